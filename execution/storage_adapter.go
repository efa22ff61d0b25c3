package execution

import (
	"github.com/luxfi/hybridvm/execution/evmvm"
	"github.com/luxfi/hybridvm/state"
	"github.com/luxfi/hybridvm/types"
)

// evmStorageAdapter satisfies evmvm.StorageAccess by looking each account's
// current storage root up in the resolver before delegating to the
// storage-trie repository, which keys reads by an explicit root rather
// than tracking one itself (§4.3, §4.4).
type evmStorageAdapter struct {
	resolver *state.Resolver
	repo     *state.StorageTrieRepository
}

func (a *evmStorageAdapter) Get(addr types.Address, slot types.B256) (types.B256, error) {
	info, _, err := a.resolver.GetAccount(addr)
	if err != nil {
		return types.B256{}, err
	}
	return a.repo.Get(addr, info.StorageRoot, slot)
}

func (a *evmStorageAdapter) Set(addr types.Address, slot types.B256, value types.B256) {
	a.repo.Set(addr, slot, value)
}
