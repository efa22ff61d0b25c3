package kv

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

// memEntry is the btree item: ordered lexicographically by Key.
type memEntry struct {
	Key   []byte
	Value []byte
}

func (e memEntry) Less(than btree.Item) bool {
	return bytes.Compare(e.Key, than.(memEntry).Key) < 0
}

// MemDB is an all-in-memory Store, the reference implementation used by
// tests and the default in-memory application (§4.1). Every column family
// is backed by a B-tree so iteration is always ordered, matching the
// ordering guarantee integer-indexed column families require from a
// persistent backend.
type MemDB struct {
	mu   sync.RWMutex
	cfs  map[ColumnFamily]*btree.BTree
}

// NewMemDB opens a MemDB with the fixed set of column families (§4.1).
func NewMemDB() *MemDB {
	db := &MemDB{cfs: make(map[ColumnFamily]*btree.BTree, len(ColumnFamilies))}
	for _, cf := range ColumnFamilies {
		db.cfs[cf] = btree.New(32)
	}
	return db
}

func (db *MemDB) tree(cf ColumnFamily) *btree.BTree {
	t, ok := db.cfs[cf]
	if !ok {
		t = btree.New(32)
		db.cfs[cf] = t
	}
	return t
}

func (db *MemDB) Get(cf ColumnFamily, key []byte) ([]byte, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	item := db.tree(cf).Get(memEntry{Key: key})
	if item == nil {
		return nil, false, nil
	}
	v := item.(memEntry).Value
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (db *MemDB) Put(cf ColumnFamily, key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.put(cf, key, value)
	return nil
}

func (db *MemDB) put(cf ColumnFamily, key, value []byte) {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	db.tree(cf).ReplaceOrInsert(memEntry{Key: k, Value: v})
}

func (db *MemDB) del(cf ColumnFamily, key []byte) {
	db.tree(cf).Delete(memEntry{Key: key})
}

func (db *MemDB) MultiGet(cf ColumnFamily, keys [][]byte) ([][]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([][]byte, len(keys))
	t := db.tree(cf)
	for i, key := range keys {
		item := t.Get(memEntry{Key: key})
		if item == nil {
			continue
		}
		v := item.(memEntry).Value
		cp := make([]byte, len(v))
		copy(cp, v)
		out[i] = cp
	}
	return out, nil
}

// WriteBatch applies every operation atomically with respect to readers:
// the whole batch is applied while holding the write lock, so no reader
// observes a partial write across column families (§4.1, §5).
func (db *MemDB) WriteBatch(ops []WriteOp) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, op := range ops {
		if op.Value == nil {
			db.del(op.CF, op.Key)
			continue
		}
		db.put(op.CF, op.Key, op.Value)
	}
	return nil
}

type memIterator struct {
	entries []Entry
	idx     int
}

func (it *memIterator) Next() bool {
	it.idx++
	return it.idx < len(it.entries)
}

func (it *memIterator) Entry() Entry {
	return it.entries[it.idx]
}

func (it *memIterator) Close() error { return nil }

func (db *MemDB) Iter(cf ColumnFamily, mode IterMode, from []byte) (Iterator, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var entries []Entry
	iterFn := func(item btree.Item) bool {
		e := item.(memEntry)
		entries = append(entries, Entry{Key: append([]byte(nil), e.Key...), Value: append([]byte(nil), e.Value...)})
		return true
	}
	t := db.tree(cf)
	switch mode {
	case IterFrom:
		t.AscendGreaterOrEqual(memEntry{Key: from}, iterFn)
	default:
		t.Ascend(iterFn)
	}
	return &memIterator{entries: entries, idx: -1}, nil
}

func (db *MemDB) Close() error { return nil }

var _ Store = (*MemDB)(nil)
