// Package rpc exposes app.Reader and the command actor over the JSON-RPC
// method set named in §6: eth_*, engine_*, and the Move mv_* extensions.
// Method dispatch and request/response codec are provided by
// github.com/ethereum/go-ethereum/rpc, the same reflection-based server the
// teacher's own eth/api_*.go handlers are written against; this package
// only supplies the receivers and the BlockSpec/CallRequest conversions
// app.Reader needs.
package rpc

import (
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/luxfi/hybridvm/app"
	"github.com/luxfi/hybridvm/types"
)

// toBlockSpec converts a go-ethereum BlockNumberOrHash parameter into
// app.BlockSpec (§4.11, §6: "BlockNumberOrTag accepts
// latest|pending|safe|finalized|earliest|0x…").
func toBlockSpec(bnh gethrpc.BlockNumberOrHash) app.BlockSpec {
	if hash, ok := bnh.Hash(); ok {
		return app.BlockSpec{Tag: app.TagHash, Hash: types.B256(hash)}
	}
	number, _ := bnh.Number()
	return blockNumberSpec(number)
}

// toBlockSpecFromNumber converts a bare BlockNumber parameter (used by
// eth_getBlockByNumber and eth_feeHistory, which don't accept a hash form).
func toBlockSpecFromNumber(n gethrpc.BlockNumber) app.BlockSpec {
	return blockNumberSpec(n)
}

func blockNumberSpec(n gethrpc.BlockNumber) app.BlockSpec {
	switch n {
	case gethrpc.EarliestBlockNumber:
		return app.BlockSpec{Tag: app.TagEarliest}
	case gethrpc.PendingBlockNumber:
		return app.BlockSpec{Tag: app.TagPending}
	case gethrpc.SafeBlockNumber:
		return app.BlockSpec{Tag: app.TagSafe}
	case gethrpc.FinalizedBlockNumber:
		return app.BlockSpec{Tag: app.TagFinalized}
	case gethrpc.LatestBlockNumber:
		return app.Latest
	default:
		return app.BlockSpec{Tag: app.TagNumber, Number: uint64(n)}
	}
}
