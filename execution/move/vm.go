// Package move defines the narrow Move execution surface the transaction
// executor dispatches Move entry functions, scripts, and the base-token
// module to (§4.7, §9). The real Move virtual machine (Aptos Move, full
// bytecode verification and gas metering) is out of scope for this engine;
// VM is the injection point an implementation wires a real VM session
// behind. InMemoryVM is a reference implementation adequate for the
// eth_token ingress/egress path and simple counter-style modules, storing
// resources through a state.Resolver-shaped key/value surface rather than
// executing Move bytecode.
package move

import (
	"errors"

	"github.com/luxfi/hybridvm/types"
)

// ErrModuleNotFound / ErrFunctionNotFound classify a dispatch failure as a
// user error (bad module/function name), not an invariant violation.
var (
	ErrModuleNotFound   = errors.New("move: module not found")
	ErrFunctionNotFound = errors.New("move: function not found")
)

// EntryCall names a decoded Move entry function invocation (§4.7:
// "BCS-decoded first byte... route to Move VM with decoded
// (module, function, type_args, args)").
type EntryCall struct {
	Module   string
	Function string
	TypeArgs []string
	Args     [][]byte
}

// CallResult is the outcome of dispatching an entry function or script.
type CallResult struct {
	ReturnValues [][]byte
	Events       []types.Log
	GasUsed      uint64
}

// Store is the narrow resource read/write surface InMemoryVM and the real
// VM injection point both need: Move resources/modules keyed by a resolver
// tree key, enveloped in types.StateValue (§4.3).
type Store interface {
	GetMoveValue(key []byte) (*types.StateValue, bool, error)
	PutMoveValue(key []byte, value types.StateValue) error
}

// VM is the interface the executor dispatches to for Move entry functions,
// scripts, and the base-token module (§4.7, §9).
type VM interface {
	ExecuteEntryFunction(store Store, sender types.Address, call EntryCall) (CallResult, error)
	ExecuteScript(store Store, sender types.Address, code []byte, args [][]byte) (CallResult, error)

	// MintEth and GetEthBalance are the sole ingress/egress for native
	// balance, routed through the eth_token module (§4.7).
	MintEth(store Store, to types.Address, amount uint64) error
	GetEthBalance(store Store, account types.Address) (uint64, error)
}
