// Package state implements the state resolver, EVM per-account storage
// tries, block-hash cache, and height→state-root index the executor and
// application reader are built on (§4.3–§4.5).
package state

import (
	"github.com/luxfi/hybridvm/apperror"
	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/trie"
	"github.com/luxfi/hybridvm/types"
)

// Resolver reads and writes the outer state trie: Move resources/modules
// (wrapped in the StateValue envelope) and EVM account records (raw,
// unenveloped). Tree keys are hashed with Keccak256 before every trie
// access, matching the secure-trie convention the rest of the engine
// assumes (§4.3).
type Resolver struct {
	Trie  *trie.Trie
	store kv.Store
}

// NewResolver opens a resolver over the outer trie at the given store.
func NewResolver(store kv.Store) (*Resolver, error) {
	t, err := trie.CurrentRoot(store)
	if err != nil {
		return nil, err
	}
	return &Resolver{Trie: t, store: store}, nil
}

// OpenResolver opens a resolver at a specific historical outer root.
func OpenResolver(store kv.Store, root types.B256) (*Resolver, error) {
	t, err := trie.Open(store, root)
	if err != nil {
		return nil, err
	}
	return &Resolver{Trie: t, store: store}, nil
}

// treeKey hashes an arbitrary-length tree key into the 32-byte key the trie
// operates over.
func treeKey(key []byte) types.B256 {
	return types.Keccak256(key)
}

// GetMoveValue fetches and unwraps a Move resource/module/table-item value
// at key. ok is false if the key is absent.
func (r *Resolver) GetMoveValue(key []byte) (*types.StateValue, bool, error) {
	raw, ok, err := r.Trie.Get(treeKey(key))
	if err != nil || !ok {
		return nil, ok, err
	}
	var sv types.StateValue
	if err := sv.UnmarshalBinary(raw); err != nil {
		return nil, false, err
	}
	return &sv, true, nil
}

// PutMoveValue wraps value in the StateValue envelope and writes it at key.
func (r *Resolver) PutMoveValue(key []byte, value types.StateValue) error {
	enc, err := value.MarshalBinary()
	if err != nil {
		return err
	}
	return r.Trie.Insert(treeKey(key), enc)
}

// accountTreeKey is the outer trie key for addr's AccountInfo record.
func accountTreeKey(addr types.Address) types.B256 {
	return types.Keccak256(addr.Bytes())
}

// GetAccount returns addr's AccountInfo, or the empty account if untouched.
func (r *Resolver) GetAccount(addr types.Address) (types.AccountInfo, bool, error) {
	raw, ok, err := r.Trie.Get(accountTreeKey(addr))
	if err != nil {
		return types.AccountInfo{}, false, err
	}
	if !ok {
		return types.EmptyAccount(), false, nil
	}
	var info types.AccountInfo
	if err := info.UnmarshalBinary(raw); err != nil {
		return types.AccountInfo{}, false, err
	}
	return info, true, nil
}

// PutAccount writes addr's AccountInfo record into the outer trie.
func (r *Resolver) PutAccount(addr types.Address, info types.AccountInfo) error {
	enc, err := info.MarshalBinary()
	if err != nil {
		return err
	}
	return r.Trie.Insert(accountTreeKey(addr), enc)
}

func codeKey(hash types.B256) []byte {
	return append([]byte("code:"), hash[:]...)
}

// GetCode returns the code stored under hash. Per §4.3 a non-empty hash
// that resolves to nothing is an invariant violation reported as
// MissingCode; the empty-code hash always resolves to an empty slice
// without touching the store.
func (r *Resolver) GetCode(hash types.B256) ([]byte, error) {
	if hash == types.EmptyCodeHash {
		return nil, nil
	}
	raw, ok, err := r.store.Get(kv.CFState, codeKey(hash))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.MissingCode(hash.Hex())
	}
	return raw, nil
}

// PutCode stores code under its Keccak256 hash and returns the hash.
func (r *Resolver) PutCode(code []byte) (types.B256, error) {
	if len(code) == 0 {
		return types.EmptyCodeHash, nil
	}
	hash := types.Keccak256(code)
	if err := r.store.Put(kv.CFState, codeKey(hash), code); err != nil {
		return types.B256{}, err
	}
	return hash, nil
}

// Root commits the outer trie and returns the new state root (§4.3, §4.4).
func (r *Resolver) Root() (types.B256, error) {
	return r.Trie.Root()
}
