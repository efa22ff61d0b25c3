package execution

import (
	"github.com/luxfi/hybridvm/apperror"
	"github.com/luxfi/hybridvm/execution/move"
)

// decodeEntryCall parses the Move entry-function payload carried in a
// canonical transaction's input (§4.7: "BCS-decoded... route to Move VM
// with decoded (module, function, type_args, args)"). The real wire format
// is the Move side's BCS encoding of a structured call, which isn't visible
// to this engine; this is this engine's own minimal length-prefixed
// encoding used consistently between whatever constructs these
// transactions and this decoder: [1B module len][module][1B function
// len][function][1B argc][argc * (2B big-endian len, arg bytes)].
func decodeEntryCall(data []byte) (move.EntryCall, error) {
	r := byteReader{data: data}

	module, err := r.readLenPrefixed1()
	if err != nil {
		return move.EntryCall{}, err
	}
	function, err := r.readLenPrefixed1()
	if err != nil {
		return move.EntryCall{}, err
	}
	argc, err := r.readByte()
	if err != nil {
		return move.EntryCall{}, err
	}
	args := make([][]byte, 0, argc)
	for i := 0; i < int(argc); i++ {
		arg, err := r.readLenPrefixed2()
		if err != nil {
			return move.EntryCall{}, err
		}
		args = append(args, arg)
	}
	return move.EntryCall{Module: string(module), Function: string(function), Args: args}, nil
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, apperror.InvalidTransactionData("truncated move entry call payload")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) readLenPrefixed1() ([]byte, error) {
	n, err := r.readByte()
	if err != nil {
		return nil, err
	}
	return r.readN(int(n))
}

func (r *byteReader) readLenPrefixed2() ([]byte, error) {
	if r.pos+2 > len(r.data) {
		return nil, apperror.InvalidTransactionData("truncated move entry call payload")
	}
	n := int(r.data[r.pos])<<8 | int(r.data[r.pos+1])
	r.pos += 2
	return r.readN(n)
}

func (r *byteReader) readN(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, apperror.InvalidTransactionData("truncated move entry call payload")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
