package move

import (
	"sort"

	"github.com/luxfi/hybridvm/types"
)

// BalanceTypeTag is the Move type tag for the eth_token module's Balance
// resource, the only resource the in-memory VM currently materializes.
const BalanceTypeTag = "0x1::eth_token::Balance"

// ResourceKey returns the resolver key under which typeTag's resource for
// addr is stored. BalanceTypeTag routes to the same key handleMint/
// handleGetBalance use; any other type tag gets a generic per-account
// namespace so a module registered later can start populating it without
// a reader-side change.
func ResourceKey(addr types.Address, typeTag string) []byte {
	if typeTag == BalanceTypeTag {
		return ethBalanceKey(addr)
	}
	return append([]byte(typeTag+"::"), addr.Bytes()...)
}

// TableItemKey returns the resolver key for one item of a Move table
// identified by handle, the generic keying scheme mv_getTableItem reads
// through (§4.11, §6); no module in the reference VM currently populates
// a table, so lookups through this key always miss until one does.
func TableItemKey(handle types.B256, itemKey []byte) []byte {
	return append(append([]byte("table::"), handle[:]...), itemKey...)
}

// ModuleNames returns the names of every module registered with vm, sorted,
// the closest equivalent this VM has to "modules deployed at an address" —
// the in-memory VM registers modules globally rather than per account, so
// mv_listModules ignores its address argument here (§9).
func (vm *InMemoryVM) ModuleNames() []string {
	names := make([]string, 0, len(vm.handlers))
	for name := range vm.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
