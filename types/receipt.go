package types

// Status is the execution outcome recorded in a receipt: 1 for success, 0
// for failure (revert or VM abort), matching the Ethereum receipt status
// encoding.
type Status uint64

const (
	StatusFailed    Status = 0
	StatusSuccessful Status = 1
)

// Log is one EVM/Move-emitted log entry.
type Log struct {
	Address Address  `json:"address"`
	Topics  []B256   `json:"topics"`
	Data    []byte   `json:"data"`
}

// ExtendedReceipt is the receipt persisted for every executed transaction,
// canonical or deposited (§3).
type ExtendedReceipt struct {
	TransactionHash B256     `json:"transactionHash"`
	TransactionIndex uint64  `json:"transactionIndex"`
	From            Address  `json:"from"`
	To              *Address `json:"to"`
	ContractAddress *Address `json:"contractAddress,omitempty"`
	GasUsed         uint64   `json:"gasUsed"`
	L2GasPrice      uint64   `json:"l2GasPrice"`
	Logs            []Log    `json:"logs"`
	LogsOffset      uint64   `json:"logsOffset"`
	BlockHash       B256     `json:"blockHash"`
	BlockNumber     uint64   `json:"blockNumber"`
	BlockTimestamp  uint64   `json:"blockTimestamp"`
	Status          Status   `json:"status"`
}

// rlpReceipt is the RLP shape used to compute the receipts trie root.
type rlpReceipt struct {
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*rlpLog
}

type rlpLog struct {
	Address Address
	Topics  []B256
	Data    []byte
}

// EncodeForTrie returns the RLP encoding of the receipt as it is inserted
// into the receipts trie (keyed by RLP(transaction_index), §4.8).
func EncodeForTrie(r *ExtendedReceipt, cumulativeGasUsed uint64, bloom Bloom) ([]byte, error) {
	logs := make([]*rlpLog, len(r.Logs))
	for i, l := range r.Logs {
		logs[i] = &rlpLog{Address: l.Address, Topics: l.Topics, Data: l.Data}
	}
	return rlpEncode(&rlpReceipt{
		Status:            uint64(r.Status),
		CumulativeGasUsed: cumulativeGasUsed,
		Bloom:             bloom,
		Logs:              logs,
	})
}
