// Package evmvm defines the narrow EVM execution surface the transaction
// executor dispatches EVM contract calls and creations to (§4.7, §9: "VM
// extension via native functions... an injection point; implementations
// provide a function table to the VM at construction"). Interpreter is the
// reference implementation: a bytecode interpreter, one opcode switch per
// step, covering
// the opcode subset the node's scenarios exercise (arithmetic, storage,
// control flow, BLOCKHASH and the other block-context opcodes); nested
// CALL/CREATE between EVM contracts within one top-level call degrade to an
// explicit ErrNestedCallUnsupported rather than silently behaving
// incorrectly.
package evmvm

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/hybridvm/types"
)

// CallParams describes one EVM call or contract creation.
type CallParams struct {
	From  types.Address
	To    *types.Address // nil for Create
	Value *uint256.Int
	Input []byte
	Gas   uint64
}

// Result is the outcome of a Call or Create.
type Result struct {
	ReturnData     []byte
	GasUsed        uint64
	Logs           []types.Log
	Reverted       bool
	CreatedAddress *types.Address
}

// StorageAccess is the narrow per-account storage surface the interpreter
// needs; backed by state.StorageTrieRepository in the executor, an
// in-memory map in tests.
type StorageAccess interface {
	Get(addr types.Address, slot types.B256) (types.B256, error)
	Set(addr types.Address, slot types.B256, value types.B256)
}

// BlockContext supplies the block-scoped values opcodes like NUMBER,
// TIMESTAMP, and BLOCKHASH read.
type BlockContext struct {
	Number     uint64
	Timestamp  uint64
	BlockHash  func(height uint64) types.B256
	ChainID    uint64
	BaseFee    *uint256.Int
}

// VM is the interface the executor dispatches EVM contract creation and
// calls to (§4.7).
type VM interface {
	Call(block BlockContext, storage StorageAccess, code []byte, params CallParams) (Result, error)
	Create(block BlockContext, storage StorageAccess, initCode []byte, params CallParams) (Result, error)
}
