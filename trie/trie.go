// Package trie implements the secure Merkle-Patricia trie every other
// state-bearing component is built on (§4.2). Keys are always 32-byte
// hashes (the resolver hashes tree keys before calling Insert/Get), so this
// package never does key hashing itself — it is a plain hash-keyed MPT over
// fixed-width keys built from branch (16 children plus a value), extension,
// and leaf nodes with hex-prefix encoded paths. Each node is RLP-serialized
// as a kind-tagged record (rawNode) whose children are always referenced by
// hash, and persisted by Keccak256 of that encoding in the kv.CFTrie column
// family. This is not the Ethereum node encoding, so the root of a
// non-empty trie differs from that of an Ethereum trie with the same
// entries.
//
// Nodes are never deleted on logical removal (§4.2): Insert only ever adds
// or replaces nodes reachable from the new root, so historical roots stay
// readable for as long as their nodes remain in the store.
package trie

import (
	"errors"
	"fmt"

	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/types"
)

// ErrMissingNode is returned when a historical read needs a node that is not
// present in the backing store — an invariant violation, never a silent
// zero (§4.2).
var ErrMissingNode = errors.New("trie: missing node")

// sentinelRootKey is the key under which the current top root is recorded
// in kv.CFTrieRoot (§4.2, §6).
var sentinelRootKey = []byte("trie_root")

// Trie is a Merkle-Patricia trie opened at a particular root. Reads always
// go through the backing Store; writes stage dirty nodes in memory until
// Root() persists them.
type Trie struct {
	store kv.Store
	root  node // nil if the trie is empty
}

// New opens an empty trie backed by store.
func New(store kv.Store) *Trie {
	return &Trie{store: store}
}

// Open opens the trie at a previously computed root hash, for historical
// reads (§4.2, §4.3).
func Open(store kv.Store, root types.B256) (*Trie, error) {
	t := &Trie{store: store}
	if root == (types.B256{}) || root == types.EmptyRootHash {
		return t, nil
	}
	n, err := t.resolveHash(root)
	if err != nil {
		return nil, err
	}
	t.root = n
	return t, nil
}

// CurrentRoot loads the sentinel root pointer and opens the trie at it
// (§4.2, §6): "A persisted sentinel trie_root records the current top."
func CurrentRoot(store kv.Store) (*Trie, error) {
	v, ok, err := store.Get(kv.CFTrieRoot, sentinelRootKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return New(store), nil
	}
	var root types.B256
	copy(root[:], v)
	return Open(store, root)
}

// Get returns the value stored at key32, or (nil, false) if absent.
func (t *Trie) Get(key32 types.B256) ([]byte, bool, error) {
	return t.get(t.root, newNibbles(key32[:]))
}

// Insert writes value at key32, replacing any prior value.
func (t *Trie) Insert(key32 types.B256, value []byte) error {
	newRoot, err := t.insert(t.root, newNibbles(key32[:]), value)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// Root computes the trie's root hash, persisting every dirty node reachable
// from it, and records the sentinel trie_root pointer (§4.2).
func (t *Trie) Root() (types.B256, error) {
	if t.root == nil {
		return types.EmptyRootHash, nil
	}
	var ops []kv.WriteOp
	rootHash, err := t.commit(t.root, &ops)
	if err != nil {
		return types.B256{}, err
	}
	ops = append(ops, kv.WriteOp{CF: kv.CFTrieRoot, Key: sentinelRootKey, Value: rootHash[:]})
	if err := t.store.WriteBatch(ops); err != nil {
		return types.B256{}, err
	}
	return rootHash, nil
}

// Proof returns the Merkle proof for key32: every encoded node from the
// root down to (and including) the leaf holding its value, plus whether a
// value exists at that key at all (§4.11: "get_proof... emits Merkle
// proofs for the outer account plus storage slots").
func (t *Trie) Proof(key32 types.B256) (nodes [][]byte, found bool, err error) {
	var collected [][]byte
	_, found, err = t.proof(t.root, newNibbles(key32[:]), &collected)
	if err != nil {
		return nil, false, err
	}
	return collected, found, nil
}

// RootHash returns the root hash without persisting (read-only peek,
// matches in-flight execution's need to compute a state_root before
// deciding whether to commit).
func (t *Trie) RootHash() (types.B256, error) {
	if t.root == nil {
		return types.EmptyRootHash, nil
	}
	return t.hashOf(t.root)
}

func (t *Trie) resolveHash(h types.B256) (node, error) {
	raw, ok, err := t.store.Get(kv.CFTrie, h[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingNode, h.Hex())
	}
	return decodeNode(raw)
}
