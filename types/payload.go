package types

import "math/big"

// PayloadID is the 64-bit opaque token correlating a payload attributes
// submission to its sealed block (§3, §4.9).
type PayloadID uint64

// PayloadAttributes is the consensus-layer directive describing the
// environment of the next block to build (§4.8).
type PayloadAttributes struct {
	Timestamp             uint64
	PrevRandao            B256
	SuggestedFeeRecipient Address
	Withdrawals           []Withdrawal
	ParentBeaconBlockRoot B256
	Transactions          [][]byte // raw deposit transactions, in order
	GasLimit              uint64
}

// ExecutionOutcome is what the executor accumulates while running every
// transaction in a payload: the inputs to the header fields the block
// builder fills in after execution completes (§4.8).
type ExecutionOutcome struct {
	StateRoot        B256
	ReceiptsRoot     B256
	TransactionsRoot B256
	LogsBloom        Bloom
	GasUsed          uint64
	TotalTip         *big.Int
}
