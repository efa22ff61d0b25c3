package move

import (
	"encoding/binary"

	"github.com/luxfi/hybridvm/types"
)

const ethTokenModule = "eth_token"

func ethBalanceKey(addr types.Address) []byte {
	return append([]byte("eth_token::balance::"), addr.Bytes()...)
}

// HandlerFunc implements one entry function registered against a module in
// an InMemoryVM, the narrow injection point production modules (eth_token,
// a deployed counter, the framework's bridged-token modules) are wired in
// through.
type HandlerFunc func(store Store, sender types.Address, call EntryCall) (CallResult, error)

// InMemoryVM is the reference Move VM implementation (§4.7, §9): resources
// live as types.StateValue envelopes in the resolver rather than inside a
// real Move bytecode interpreter, and entry functions are Go closures
// registered per (module, function) rather than compiled Move modules.
type InMemoryVM struct {
	handlers map[string]map[string]HandlerFunc
}

// NewInMemoryVM returns a VM with the eth_token module already registered.
func NewInMemoryVM() *InMemoryVM {
	vm := &InMemoryVM{handlers: make(map[string]map[string]HandlerFunc)}
	vm.RegisterModule(ethTokenModule, map[string]HandlerFunc{
		"mint": vm.handleMint,
		"get_balance": vm.handleGetBalance,
	})
	return vm
}

// RegisterModule wires functions as the module's dispatch table, the
// function-table injection point named in §9.
func (vm *InMemoryVM) RegisterModule(module string, functions map[string]HandlerFunc) {
	vm.handlers[module] = functions
}

func (vm *InMemoryVM) ExecuteEntryFunction(store Store, sender types.Address, call EntryCall) (CallResult, error) {
	module, ok := vm.handlers[call.Module]
	if !ok {
		return CallResult{}, ErrModuleNotFound
	}
	fn, ok := module[call.Function]
	if !ok {
		return CallResult{}, ErrFunctionNotFound
	}
	return fn(store, sender, call)
}

// ExecuteScript is not supported by the in-memory reference VM: scripts are
// arbitrary compiled bytecode, which this VM does not interpret.
func (vm *InMemoryVM) ExecuteScript(store Store, sender types.Address, code []byte, args [][]byte) (CallResult, error) {
	return CallResult{}, ErrFunctionNotFound
}

func (vm *InMemoryVM) MintEth(store Store, to types.Address, amount uint64) error {
	_, err := vm.handleMint(store, to, EntryCall{
		Module: ethTokenModule, Function: "mint",
		Args: [][]byte{to.Bytes(), encodeU64(amount)},
	})
	return err
}

func (vm *InMemoryVM) GetEthBalance(store Store, account types.Address) (uint64, error) {
	res, err := vm.handleGetBalance(store, account, EntryCall{
		Module: ethTokenModule, Function: "get_balance",
		Args: [][]byte{account.Bytes()},
	})
	if err != nil {
		return 0, err
	}
	if len(res.ReturnValues) == 0 {
		return 0, nil
	}
	return decodeU64(res.ReturnValues[0]), nil
}

func (vm *InMemoryVM) handleMint(store Store, _ types.Address, call EntryCall) (CallResult, error) {
	to, amount := addressFromArgs(call.Args, 0), decodeU64(argOrEmpty(call.Args, 1))
	current, err := vm.readBalance(store, to)
	if err != nil {
		return CallResult{}, err
	}
	if err := vm.writeBalance(store, to, current+amount); err != nil {
		return CallResult{}, err
	}
	return CallResult{}, nil
}

func (vm *InMemoryVM) handleGetBalance(store Store, _ types.Address, call EntryCall) (CallResult, error) {
	addr := addressFromArgs(call.Args, 0)
	balance, err := vm.readBalance(store, addr)
	if err != nil {
		return CallResult{}, err
	}
	return CallResult{ReturnValues: [][]byte{encodeU64(balance)}}, nil
}

func (vm *InMemoryVM) readBalance(store Store, addr types.Address) (uint64, error) {
	sv, ok, err := store.GetMoveValue(ethBalanceKey(addr))
	if err != nil || !ok {
		return 0, err
	}
	return decodeU64(sv.Inner), nil
}

func (vm *InMemoryVM) writeBalance(store Store, addr types.Address, balance uint64) error {
	return store.PutMoveValue(ethBalanceKey(addr), types.StateValue{
		Metadata: []byte("u64"),
		Inner:    encodeU64(balance),
	})
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func decodeU64(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func argOrEmpty(args [][]byte, i int) []byte {
	if i >= len(args) {
		return nil
	}
	return args[i]
}

func addressFromArgs(args [][]byte, i int) types.Address {
	var addr types.Address
	raw := argOrEmpty(args, i)
	copy(addr[:], raw)
	return addr
}
