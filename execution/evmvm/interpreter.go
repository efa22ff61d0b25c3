package evmvm

import (
	"errors"

	ethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"

	"github.com/luxfi/hybridvm/types"
)

// ErrNestedCallUnsupported is returned when executed bytecode issues a
// CALL/CREATE to another EVM contract; this reference interpreter handles
// one contract frame at a time.
var ErrNestedCallUnsupported = errors.New("evmvm: nested CALL/CREATE not supported")

// ErrStackUnderflow, ErrStackOverflow and ErrInvalidJump are returned as
// errors from Call and Create, which the executor records as an Error
// outcome. Running out of gas is not returned as an error: the frame ends
// as reverted with all of its gas used; ErrOutOfGas only signals that
// condition inside the frame's gas accounting.
var (
	ErrStackUnderflow = errors.New("evmvm: stack underflow")
	ErrStackOverflow  = errors.New("evmvm: stack overflow")
	ErrInvalidJump    = errors.New("evmvm: invalid jump destination")
	ErrOutOfGas       = errors.New("evmvm: out of gas")
)

const maxStack = 1024

// Interpreter is the reference VM implementation (§4.7, §9).
type Interpreter struct{}

// NewInterpreter returns the reference interpreter.
func NewInterpreter() *Interpreter { return &Interpreter{} }

func (in *Interpreter) Call(block BlockContext, storage StorageAccess, code []byte, params CallParams) (Result, error) {
	return in.run(block, storage, code, params)
}

func (in *Interpreter) Create(block BlockContext, storage StorageAccess, initCode []byte, params CallParams) (Result, error) {
	res, err := in.run(block, storage, initCode, params)
	if err != nil || res.Reverted {
		return res, err
	}
	addr := deriveContractAddress(params.From)
	res.CreatedAddress = &addr
	return res, nil
}

// deriveContractAddress is a simplified CREATE address scheme (Keccak256
// of the sender, truncated to 20 bytes). The address depends only on the
// sender: no creation nonce and no part of params.Input enters it, so every
// creation by one sender yields the same address.
func deriveContractAddress(from types.Address) types.Address {
	h := types.Keccak256(from.Bytes())
	var addr types.Address
	copy(addr[:], h[12:])
	return addr
}

type frame struct {
	code    []byte
	pc      uint64
	stack   []*uint256.Int
	memory  []byte
	gas     uint64
	stopped bool
	reverted bool
	ret     []byte
	logs    []types.Log
}

func (f *frame) push(v *uint256.Int) error {
	if len(f.stack) >= maxStack {
		return ErrStackOverflow
	}
	f.stack = append(f.stack, v)
	return nil
}

func (f *frame) pop() (*uint256.Int, error) {
	n := len(f.stack)
	if n == 0 {
		return nil, ErrStackUnderflow
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v, nil
}

func (f *frame) peek(depthFromTop int) (*uint256.Int, error) {
	idx := len(f.stack) - 1 - depthFromTop
	if idx < 0 {
		return nil, ErrStackUnderflow
	}
	return f.stack[idx], nil
}

func (f *frame) useGas(amount uint64) error {
	if f.gas < amount {
		return ErrOutOfGas
	}
	f.gas -= amount
	return nil
}

func (f *frame) growMemory(offset, size uint64) {
	end := offset + size
	if uint64(len(f.memory)) >= end {
		return
	}
	grown := make([]byte, end)
	copy(grown, f.memory)
	f.memory = grown
}

// run executes code as one EVM call frame with no nested CALL/CREATE
// support (§ package doc). Gas accounting is a flat per-opcode cost, not a
// full replication of Ethereum's gas schedule.
func (in *Interpreter) run(block BlockContext, storage StorageAccess, code []byte, params CallParams) (Result, error) {
	f := &frame{code: code, gas: params.Gas}
	var addr types.Address
	if params.To != nil {
		addr = *params.To
	} else {
		addr = params.From
	}

	for !f.stopped && int(f.pc) < len(f.code) {
		op := ethvm.OpCode(f.code[f.pc])
		if err := f.useGas(3); err != nil {
			return Result{Reverted: true, GasUsed: params.Gas}, nil
		}

		switch op {
		case ethvm.STOP:
			f.stopped = true

		case ethvm.ADD, ethvm.MUL, ethvm.SUB, ethvm.DIV, ethvm.MOD,
			ethvm.LT, ethvm.GT, ethvm.EQ, ethvm.AND, ethvm.OR, ethvm.XOR:
			b, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			a, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			res := new(uint256.Int)
			switch op {
			case ethvm.ADD:
				res.Add(a, b)
			case ethvm.MUL:
				res.Mul(a, b)
			case ethvm.SUB:
				res.Sub(a, b)
			case ethvm.DIV:
				res.Div(a, b)
			case ethvm.MOD:
				res.Mod(a, b)
			case ethvm.LT:
				if a.Lt(b) {
					res.SetOne()
				}
			case ethvm.GT:
				if a.Gt(b) {
					res.SetOne()
				}
			case ethvm.EQ:
				if a.Eq(b) {
					res.SetOne()
				}
			case ethvm.AND:
				res.And(a, b)
			case ethvm.OR:
				res.Or(a, b)
			case ethvm.XOR:
				res.Xor(a, b)
			}
			if err := f.push(res); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.ISZERO, ethvm.NOT:
			a, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			res := new(uint256.Int)
			if op == ethvm.ISZERO {
				if a.IsZero() {
					res.SetOne()
				}
			} else {
				res.Not(a)
			}
			if err := f.push(res); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.POP:
			if _, err := f.pop(); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.JUMPDEST:
			f.pc++

		case ethvm.JUMP:
			dest, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			if err := f.jump(dest); err != nil {
				return Result{}, err
			}

		case ethvm.JUMPI:
			dest, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			cond, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			if cond.IsZero() {
				f.pc++
			} else if err := f.jump(dest); err != nil {
				return Result{}, err
			}

		case ethvm.MLOAD:
			offset, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			off := offset.Uint64()
			f.growMemory(off, 32)
			var v uint256.Int
			v.SetBytes(f.memory[off : off+32])
			if err := f.push(&v); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.MSTORE:
			offset, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			value, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			off := offset.Uint64()
			f.growMemory(off, 32)
			b := value.Bytes32()
			copy(f.memory[off:off+32], b[:])
			f.pc++

		case ethvm.MSTORE8:
			offset, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			value, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			off := offset.Uint64()
			f.growMemory(off, 1)
			f.memory[off] = byte(value.Uint64())
			f.pc++

		case ethvm.SLOAD:
			slotVal, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			slot := types.B256(slotVal.Bytes32())
			v, err := storage.Get(addr, slot)
			if err != nil {
				return Result{}, err
			}
			var u uint256.Int
			u.SetBytes(v[:])
			if err := f.push(&u); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.SSTORE:
			slotVal, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			value, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			storage.Set(addr, types.B256(slotVal.Bytes32()), types.B256(value.Bytes32()))
			f.pc++

		case ethvm.BLOCKHASH:
			h, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			var hash types.B256
			if block.BlockHash != nil && h.IsUint64() {
				if n := h.Uint64(); n < block.Number && block.Number-n <= 256 {
					hash = block.BlockHash(n)
				}
			}
			var u uint256.Int
			u.SetBytes(hash[:])
			if err := f.push(&u); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.NUMBER:
			if err := f.push(uint256.NewInt(block.Number)); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.TIMESTAMP:
			if err := f.push(uint256.NewInt(block.Timestamp)); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.CHAINID:
			if err := f.push(uint256.NewInt(block.ChainID)); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.BASEFEE:
			v := new(uint256.Int)
			if block.BaseFee != nil {
				v.Set(block.BaseFee)
			}
			if err := f.push(v); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.CALLDATASIZE:
			if err := f.push(uint256.NewInt(uint64(len(params.Input)))); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.CALLDATALOAD:
			offset, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			off := offset.Uint64()
			var buf [32]byte
			if off < uint64(len(params.Input)) {
				copy(buf[:], params.Input[off:])
			}
			var v uint256.Int
			v.SetBytes(buf[:])
			if err := f.push(&v); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.CALLVALUE:
			v := new(uint256.Int)
			if params.Value != nil {
				v.Set(params.Value)
			}
			if err := f.push(v); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.CALLER:
			var v uint256.Int
			v.SetBytes(params.From.Bytes())
			if err := f.push(&v); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.ADDRESS:
			var v uint256.Int
			v.SetBytes(addr.Bytes())
			if err := f.push(&v); err != nil {
				return Result{}, err
			}
			f.pc++

		case ethvm.RETURN, ethvm.REVERT:
			offset, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			size, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			off, sz := offset.Uint64(), size.Uint64()
			f.growMemory(off, sz)
			f.ret = append([]byte(nil), f.memory[off:off+sz]...)
			f.reverted = op == ethvm.REVERT
			f.stopped = true

		case ethvm.CALL, ethvm.STATICCALL, ethvm.DELEGATECALL, ethvm.CALLCODE,
			ethvm.CREATE, ethvm.CREATE2:
			return Result{}, ErrNestedCallUnsupported

		default:
			if op >= ethvm.PUSH1 && op <= ethvm.PUSH32 {
				n := int(op - ethvm.PUSH1 + 1)
				start := int(f.pc) + 1
				end := start + n
				if end > len(f.code) {
					end = len(f.code)
				}
				var v uint256.Int
				v.SetBytes(f.code[start:end])
				if err := f.push(&v); err != nil {
					return Result{}, err
				}
				f.pc += uint64(n) + 1
				continue
			}
			if op >= ethvm.DUP1 && op <= ethvm.DUP16 {
				depth := int(op - ethvm.DUP1)
				v, err := f.peek(depth)
				if err != nil {
					return Result{}, err
				}
				if err := f.push(new(uint256.Int).Set(v)); err != nil {
					return Result{}, err
				}
				f.pc++
				continue
			}
			if op >= ethvm.SWAP1 && op <= ethvm.SWAP16 {
				depth := int(op - ethvm.SWAP1) + 1
				n := len(f.stack)
				if n-1-depth < 0 {
					return Result{}, ErrStackUnderflow
				}
				f.stack[n-1], f.stack[n-1-depth] = f.stack[n-1-depth], f.stack[n-1]
				f.pc++
				continue
			}
			// Unknown opcode: treat as STOP, matching a conservative "no-op
			// frame" rather than faulting on opcodes this reference
			// interpreter does not model.
			f.stopped = true
		}
	}

	return Result{ReturnData: f.ret, GasUsed: params.Gas - f.gas, Reverted: f.reverted, Logs: f.logs}, nil
}

func (f *frame) jump(dest *uint256.Int) error {
	target := dest.Uint64()
	if target >= uint64(len(f.code)) || ethvm.OpCode(f.code[target]) != ethvm.JUMPDEST {
		return ErrInvalidJump
	}
	f.pc = target
	return nil
}
