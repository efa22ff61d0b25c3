package types

// Withdrawal is a consensus-layer withdrawal carried in payload attributes
// and block bodies (§3, §6).
type Withdrawal struct {
	Index          uint64  `json:"index"`
	ValidatorIndex uint64  `json:"validatorIndex"`
	Address        Address `json:"address"`
	Amount         uint64  `json:"amount"`
}

// Body holds a block's transactions and withdrawals.
type Body struct {
	Transactions []*NormalizedTxEnvelope `json:"transactions"`
	Withdrawals  []Withdrawal            `json:"withdrawals"`
}

// Block pairs a header with its body.
type Block struct {
	Header Header `json:"header"`
	Body   Body   `json:"body"`
}

// ExtendedBlock is a sealed, immutable block (§3): once constructed by the
// block builder it is never mutated or deleted.
type ExtendedBlock struct {
	Block     Block     `json:"block"`
	Hash      B256      `json:"hash"`
	PayloadID PayloadID `json:"payloadId"`
}

// TransactionHashes returns the hash of every transaction in the block body,
// in index order, used to look up the corresponding ExtendedTransaction
// records.
func (b *ExtendedBlock) TransactionHashes() []B256 {
	hashes := make([]B256, len(b.Block.Body.Transactions))
	for i, tx := range b.Block.Body.Transactions {
		h, err := tx.Hash()
		if err != nil {
			panic("types: sealed block contains an unhashable transaction: " + err.Error())
		}
		hashes[i] = h
	}
	return hashes
}

// ExtendedTransaction wraps a normalized envelope with its block-inclusion
// metadata (§3).
type ExtendedTransaction struct {
	Inner               *NormalizedTxEnvelope `json:"inner"`
	BlockNumber         uint64                `json:"blockNumber"`
	BlockHash           B256                  `json:"blockHash"`
	TransactionIndex    uint64                `json:"transactionIndex"`
	EffectiveGasPrice   uint64                `json:"effectiveGasPrice"`
}

// From returns the effective sender of the wrapped transaction.
func (t *ExtendedTransaction) From() Address { return t.Inner.Signer() }

// Hash returns the wrapped transaction's hash.
func (t *ExtendedTransaction) Hash() (B256, error) { return t.Inner.Hash() }
