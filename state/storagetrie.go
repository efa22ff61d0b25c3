package state

import (
	"bytes"

	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/trie"
	"github.com/luxfi/hybridvm/types"
)

// accountScopedStore presents one EVM account's slice of the shared
// evm_storage_trie / evm_storage_trie_root column families as a standalone
// kv.Store, so the generic trie package can open a per-account trie without
// knowing about account scoping. Keys are physically stored as
// account ++ node_hash, per §6's persisted-layout note.
type accountScopedStore struct {
	inner   kv.Store
	account types.Address
}

func (s *accountScopedStore) scopedKey(key []byte) []byte {
	out := make([]byte, 0, len(s.account)+len(key))
	out = append(out, s.account.Bytes()...)
	return append(out, key...)
}

func (s *accountScopedStore) translateCF(cf kv.ColumnFamily) kv.ColumnFamily {
	switch cf {
	case kv.CFTrie:
		return kv.CFEvmStorageTrie
	case kv.CFTrieRoot:
		return kv.CFEvmStorageTrieRoot
	default:
		return cf
	}
}

func (s *accountScopedStore) Get(cf kv.ColumnFamily, key []byte) ([]byte, bool, error) {
	return s.inner.Get(s.translateCF(cf), s.scopedKey(key))
}

func (s *accountScopedStore) Put(cf kv.ColumnFamily, key, value []byte) error {
	return s.inner.Put(s.translateCF(cf), s.scopedKey(key), value)
}

func (s *accountScopedStore) MultiGet(cf kv.ColumnFamily, keys [][]byte) ([][]byte, error) {
	scoped := make([][]byte, len(keys))
	for i, k := range keys {
		scoped[i] = s.scopedKey(k)
	}
	return s.inner.MultiGet(s.translateCF(cf), scoped)
}

func (s *accountScopedStore) WriteBatch(ops []kv.WriteOp) error {
	translated := make([]kv.WriteOp, len(ops))
	for i, op := range ops {
		translated[i] = kv.WriteOp{CF: s.translateCF(op.CF), Key: s.scopedKey(op.Key), Value: op.Value}
	}
	return s.inner.WriteBatch(translated)
}

func (s *accountScopedStore) Iter(cf kv.ColumnFamily, mode kv.IterMode, from []byte) (kv.Iterator, error) {
	var fromKey []byte
	if from != nil {
		fromKey = s.scopedKey(from)
	}
	it, err := s.inner.Iter(s.translateCF(cf), mode, fromKey)
	if err != nil {
		return nil, err
	}
	return &scopedIterator{inner: it, prefix: s.account.Bytes()}, nil
}

func (s *accountScopedStore) Close() error { return nil }

// scopedIterator filters an underlying iterator down to keys carrying this
// account's prefix, stopping as soon as the prefix no longer matches (the
// shared column family is ordered so every account's keys are contiguous).
type scopedIterator struct {
	inner kv.Iterator
	prefix []byte
	done  bool
	entry kv.Entry
}

func (it *scopedIterator) Next() bool {
	if it.done {
		return false
	}
	for it.inner.Next() {
		e := it.inner.Entry()
		if !bytes.HasPrefix(e.Key, it.prefix) {
			it.done = true
			return false
		}
		it.entry = kv.Entry{Key: e.Key[len(it.prefix):], Value: e.Value}
		return true
	}
	it.done = true
	return false
}

func (it *scopedIterator) Entry() kv.Entry { return it.entry }
func (it *scopedIterator) Close() error    { return it.inner.Close() }

// StorageTrieRepository owns one trie.Trie per EVM account plus an
// in-memory staging layer buffering writes made during the transaction
// currently executing against that account; flushed atomically into the
// account's per-account trie, and from there into the outer account's
// storage_root field, at block commit (§4.4).
type StorageTrieRepository struct {
	store   kv.Store
	staging map[types.Address]map[types.B256]types.B256
}

// NewStorageTrieRepository opens a repository over store.
func NewStorageTrieRepository(store kv.Store) *StorageTrieRepository {
	return &StorageTrieRepository{store: store, staging: make(map[types.Address]map[types.B256]types.B256)}
}

func (r *StorageTrieRepository) open(addr types.Address, root types.B256) (*trie.Trie, error) {
	return trie.Open(&accountScopedStore{inner: r.store, account: addr}, root)
}

// Get reads slot's current value for addr at storageRoot, checking the
// staging layer first; zero-default on a missing slot (§4.3, §4.4).
func (r *StorageTrieRepository) Get(addr types.Address, storageRoot types.B256, slot types.B256) (types.B256, error) {
	if acct, ok := r.staging[addr]; ok {
		if v, ok := acct[slot]; ok {
			return v, nil
		}
	}
	t, err := r.open(addr, storageRoot)
	if err != nil {
		return types.B256{}, err
	}
	raw, ok, err := t.Get(slot)
	if err != nil {
		return types.B256{}, err
	}
	if !ok {
		return types.B256{}, nil
	}
	var v types.B256
	copy(v[:], raw)
	return v, nil
}

// Set buffers a write to addr's slot in the staging layer, not yet
// persisted to the per-account trie.
func (r *StorageTrieRepository) Set(addr types.Address, slot types.B256, value types.B256) {
	acct, ok := r.staging[addr]
	if !ok {
		acct = make(map[types.B256]types.B256)
		r.staging[addr] = acct
	}
	acct[slot] = value
}

// Flush persists addr's staged writes into its per-account trie rooted at
// storageRoot and returns the new storage root, clearing the staging
// entries for addr.
func (r *StorageTrieRepository) Flush(addr types.Address, storageRoot types.B256) (types.B256, error) {
	acct, ok := r.staging[addr]
	if !ok || len(acct) == 0 {
		return storageRoot, nil
	}
	t, err := r.open(addr, storageRoot)
	if err != nil {
		return types.B256{}, err
	}
	for slot, value := range acct {
		if value == (types.B256{}) {
			// Zero is the implicit default: a zero write needs no node unless
			// it overwrites a slot the trie already holds.
			if _, exists, err := t.Get(slot); err != nil {
				return types.B256{}, err
			} else if !exists {
				continue
			}
		}
		if err := t.Insert(slot, value.Bytes()); err != nil {
			return types.B256{}, err
		}
	}
	delete(r.staging, addr)
	return t.Root()
}

// DiscardStaging drops all buffered writes without flushing, used when a
// transaction reverts.
func (r *StorageTrieRepository) DiscardStaging(addr types.Address) {
	delete(r.staging, addr)
}

// Proof returns the Merkle proof for addr's slot at storageRoot (§4.11:
// "get_proof... emits Merkle proofs for the outer account plus storage
// slots").
func (r *StorageTrieRepository) Proof(addr types.Address, storageRoot types.B256, slot types.B256) ([][]byte, error) {
	t, err := r.open(addr, storageRoot)
	if err != nil {
		return nil, err
	}
	nodes, _, err := t.Proof(slot)
	return nodes, err
}

// Touched returns every account with staged, unflushed writes, used by the
// block builder to know which accounts' storage_root fields need
// recomputing at block commit (§4.4, §4.8).
func (r *StorageTrieRepository) Touched() []types.Address {
	addrs := make([]types.Address, 0, len(r.staging))
	for addr := range r.staging {
		addrs = append(addrs, addr)
	}
	return addrs
}
