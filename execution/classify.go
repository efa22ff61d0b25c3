// Package execution implements the dual-VM transaction executor (§4.7):
// classification of a canonical transaction's payload into Move entry
// function / Move script / EVM creation / EVM call / L2-framework call,
// dispatch to the Move VM or the EVM, and the deposited-transaction path
// (trusted sender, optional mint, relayMessage versioned-nonce
// extraction).
package execution

import (
	"encoding/binary"

	"github.com/luxfi/hybridvm/apperror"
	"github.com/luxfi/hybridvm/types"
)

// Payload tag bytes distinguishing the shape of a `to == nil` canonical
// transaction's input (§4.7). There is no externally specified wire format
// for this tagging (the Move-side BCS enum these mirror isn't visible to
// this engine), so this is this engine's own convention, used consistently
// between the transaction-construction and executor sides.
const (
	TagMoveEntryFunction byte = 0x00
	TagMoveScript        byte = 0x01
	TagEvmCreate         byte = 0x02
)

// L2 address range (§4.7): canonical EVM calls whose `to` falls in this
// range are routed to the Move framework instead of the EVM. The exact
// bounds are this engine's own choice (not given by the distilled spec);
// chosen to sit just past the standard Ethereum precompile range
// (0x01-0xff) so it cannot collide with a real EVM precompile address.
var (
	// 0x0000...000100 .. 0x0000...0001ff
	L2LowestAddress  = addressFromUint64(0x100)
	L2HighestAddress = addressFromUint64(0x1ff)
)

func addressFromUint64(v uint64) types.Address {
	var a types.Address
	binary.BigEndian.PutUint64(a[12:], v)
	return a
}

// InL2Range reports whether addr falls within the reserved Move-routed
// address space (§4.7).
func InL2Range(addr types.Address) bool {
	return !addrLess(addr, L2LowestAddress) && !addrLess(L2HighestAddress, addr)
}

func addrLess(a, b types.Address) bool {
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// InputKind classifies a canonical transaction's destination per §4.7.
type InputKind uint8

const (
	KindMoveEntryFunction InputKind = iota
	KindMoveScript
	KindEvmCreate
	KindEvmCall
	KindL2FrameworkCall
)

// Classify determines which VM path a canonical transaction's (to, input)
// pair routes through (§4.7).
func Classify(to *types.Address, input []byte) (InputKind, error) {
	if to == nil {
		if len(input) == 0 {
			return 0, apperror.InvalidTransactionData("empty input with to=None")
		}
		switch input[0] {
		case TagMoveScript:
			return KindMoveScript, nil
		case TagEvmCreate:
			return KindEvmCreate, nil
		default:
			return KindMoveEntryFunction, nil
		}
	}
	if InL2Range(*to) {
		return KindL2FrameworkCall, nil
	}
	return KindEvmCall, nil
}
