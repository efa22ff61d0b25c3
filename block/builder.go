// Package block implements the block builder (§4.8): it normalizes a
// payload's deposit transactions, assembles the ordered transaction list
// (deposits followed by the mempool's deterministic iteration order), runs
// the dual-VM executor over each, computes the header fields the execution
// pass produces, and atomically commits the result.
package block

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/luxfi/hybridvm/apperror"
	"github.com/luxfi/hybridvm/execution"
	"github.com/luxfi/hybridvm/execution/evmvm"
	"github.com/luxfi/hybridvm/execution/gas"
	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/mempool"
	"github.com/luxfi/hybridvm/state"
	"github.com/luxfi/hybridvm/trie"
	"github.com/luxfi/hybridvm/types"
)

// BlockSink is the narrow append/head surface the builder needs from block
// storage; satisfied by state.ChainStore or a persistent equivalent.
type BlockSink interface {
	Append(block *types.ExtendedBlock) error
	Head() (*types.ExtendedBlock, bool, error)
}

// TransactionSink appends one executed transaction's inclusion record.
type TransactionSink interface {
	Append(tx *types.ExtendedTransaction) error
}

// ReceiptSink appends one executed transaction's receipt.
type ReceiptSink interface {
	Append(receipt *types.ExtendedReceipt) error
}

// Builder owns every piece of mutable state the block-building algorithm
// touches (§4.8). It is meant to be driven by the single-writer command
// actor, never called concurrently with itself.
type Builder struct {
	Executor       *execution.Executor
	Resolver       *state.Resolver
	Storage        *state.StorageTrieRepository
	HeightIndex    *state.HeightIndex
	BlockHashCache *state.BlockHashCache
	Mempool        *mempool.Mempool
	GasConfig      gas.Config
	ChainID        uint64

	Blocks       BlockSink
	Transactions TransactionSink
	Receipts     ReceiptSink

	// OnPayload is invoked once a payload is sealed (§4.8 step 6).
	OnPayload func(payloadID types.PayloadID, hash types.B256)
}

// Build runs the full algorithm in §4.8 against the current chain head and
// returns the sealed block. The caller (the command actor, both for a new
// payload and for a delayed one it promotes) is responsible for ensuring
// the parent is already present; Build itself does not consult the payload
// registry.
func (b *Builder) Build(attrs types.PayloadAttributes, payloadID types.PayloadID) (*types.ExtendedBlock, error) {
	parent, hasParent, err := b.Blocks.Head()
	if err != nil {
		return nil, err
	}
	var parentHash types.B256
	var parentNumber uint64
	var parentBaseFee *big.Int
	var parentGasUsed, parentGasLimit uint64
	if hasParent {
		parentHash = parent.Hash
		parentNumber = parent.Block.Header.Number
		parentGasUsed = parent.Block.Header.GasUsed
		parentGasLimit = parent.Block.Header.GasLimit
		parentBaseFee = parent.Block.Header.BaseFeePerGas
	}
	baseFee := b.GasConfig.NextBaseFee(parentBaseFee, parentGasUsed, parentGasLimit)

	deposits, err := normalizeDeposits(attrs.Transactions)
	if err != nil {
		return nil, err
	}

	ordered := make([]*types.NormalizedTxEnvelope, 0, len(deposits)+b.Mempool.Len())
	ordered = append(ordered, deposits...)
	ordered = append(ordered, b.Mempool.Iter()...)

	blockNumber := parentNumber
	if hasParent {
		blockNumber++
	}
	uint256BaseFee, overflow := uint256.FromBig(baseFee)
	if overflow {
		apperror.Invariant("base fee overflows uint256 at height %d", blockNumber)
	}
	blockCtx := evmvm.BlockContext{
		Number:    blockNumber,
		Timestamp: attrs.Timestamp,
		ChainID:   b.ChainID,
		BaseFee:   uint256BaseFee,
		BlockHash: func(height uint64) types.B256 { return b.BlockHashCache.BlockHash(blockNumber, height) },
	}

	gasLimit := attrs.GasLimit
	if gasLimit == 0 {
		gasLimit = parentGasLimit
	}

	var totalGasUsed uint64
	var bloom types.Bloom
	receipts := make([]*types.ExtendedReceipt, 0, len(ordered))
	included := make([]mempool.IncludedEntry, 0, len(ordered))

	for i, tx := range ordered {
		result, err := b.Executor.Execute(tx, blockCtx)
		if err != nil {
			return nil, err
		}

		status := types.StatusSuccessful
		if result.Outcome != execution.OutcomeOk {
			status = types.StatusFailed
		}

		txHash, err := tx.Hash()
		if err != nil {
			return nil, err
		}
		var to *types.Address
		if !tx.IsDeposited() {
			to = tx.Canonical.To
		} else {
			toCopy := tx.Deposited.To
			to = &toCopy
		}

		receipt := &types.ExtendedReceipt{
			TransactionHash:  txHash,
			TransactionIndex: uint64(i),
			From:             tx.Signer(),
			To:               to,
			ContractAddress:  result.CreatedAddress,
			GasUsed:          result.GasUsed,
			L2GasPrice:       gas.GasPrice(baseFee).Uint64(),
			Logs:             result.Logs,
			BlockTimestamp:   attrs.Timestamp,
			Status:           status,
		}
		for _, l := range result.Logs {
			types.AddLogToBloom(&bloom, l)
		}
		totalGasUsed += result.GasUsed
		receipts = append(receipts, receipt)

		if !tx.IsDeposited() {
			included = append(included, mempool.IncludedEntry{Signer: tx.Signer(), Hash: txHash})
		}
	}

	if err := b.flushTouchedStorage(); err != nil {
		return nil, err
	}

	stateRoot, err := b.Resolver.Root()
	if err != nil {
		return nil, err
	}
	txRoot, err := indexedRoot(len(ordered), func(i int) ([]byte, error) { return ordered[i].ToEnvelope().MarshalBinary() })
	if err != nil {
		return nil, err
	}
	receiptsRoot, err := receiptsIndexedRoot(receipts, totalGasUsed, bloom)
	if err != nil {
		return nil, err
	}

	header := types.Header{
		ParentHash:            parentHash,
		Number:                blockNumber,
		Timestamp:             attrs.Timestamp,
		StateRoot:             stateRoot,
		ReceiptsRoot:          receiptsRoot,
		TransactionsRoot:      txRoot,
		LogsBloom:             bloom,
		GasUsed:               totalGasUsed,
		GasLimit:              gasLimit,
		Beneficiary:           attrs.SuggestedFeeRecipient,
		MixHash:               attrs.PrevRandao,
		ParentBeaconBlockRoot: &attrs.ParentBeaconBlockRoot,
		BaseFeePerGas:         baseFee,
	}
	hash := header.Hash()

	body := types.Body{Transactions: ordered, Withdrawals: attrs.Withdrawals}
	sealed := &types.ExtendedBlock{
		Block:     types.Block{Header: header, Body: body},
		Hash:      hash,
		PayloadID: payloadID,
	}

	for i, receipt := range receipts {
		receipt.BlockHash = hash
		receipt.BlockNumber = blockNumber
		if err := b.Receipts.Append(receipt); err != nil {
			return nil, err
		}
		if err := b.Transactions.Append(&types.ExtendedTransaction{
			Inner: ordered[i], BlockNumber: blockNumber, BlockHash: hash,
			TransactionIndex: uint64(i), EffectiveGasPrice: receipt.L2GasPrice,
		}); err != nil {
			return nil, err
		}
	}
	if err := b.Blocks.Append(sealed); err != nil {
		return nil, err
	}
	if err := b.HeightIndex.Record(blockNumber, stateRoot); err != nil {
		return nil, err
	}
	b.BlockHashCache.Push(blockNumber, hash)
	b.Mempool.RemoveIncluded(included)

	if b.OnPayload != nil {
		b.OnPayload(payloadID, hash)
	}
	return sealed, nil
}

// flushTouchedStorage persists every account's staged EVM storage writes
// into its per-account trie and updates the outer account's storage_root
// (§4.4, §4.8 step 4).
func (b *Builder) flushTouchedStorage() error {
	for _, addr := range b.Storage.Touched() {
		account, _, err := b.Resolver.GetAccount(addr)
		if err != nil {
			return err
		}
		newRoot, err := b.Storage.Flush(addr, account.StorageRoot)
		if err != nil {
			return err
		}
		account.StorageRoot = newRoot
		if err := b.Resolver.PutAccount(addr, account); err != nil {
			return err
		}
	}
	return nil
}

// normalizeDeposits decodes every raw deposit transaction in payload order;
// any decode failure, or a payload entry that isn't actually a deposited
// transaction, aborts the whole payload (§4.8 step 1).
func normalizeDeposits(raw [][]byte) ([]*types.NormalizedTxEnvelope, error) {
	out := make([]*types.NormalizedTxEnvelope, 0, len(raw))
	for _, b := range raw {
		var env types.TxEnvelope
		if err := env.UnmarshalBinary(b); err != nil {
			return nil, apperror.InvalidPayload("deposit transaction decode failed: " + err.Error())
		}
		if env.Deposited == nil {
			return nil, apperror.InvalidPayload("payload transaction is not a deposited transaction")
		}
		out = append(out, &types.NormalizedTxEnvelope{Deposited: env.Deposited})
	}
	return out, nil
}

// indexedRoot builds a transient Merkle-Patricia trie keyed by
// Keccak256(RLP(index)) over n RLP-encodable items and returns its root
// (§4.8 step 4: "transactions_root ... MPT of receipts/transactions indexed
// by RLP(index)"). A fresh in-memory store is used since this trie is
// discarded once its root is read; it is never looked up by key again.
func indexedRoot(n int, encode func(i int) ([]byte, error)) (types.B256, error) {
	t := trie.New(kv.NewMemDB())
	for i := 0; i < n; i++ {
		enc, err := encode(i)
		if err != nil {
			return types.B256{}, err
		}
		key, err := rlp.EncodeToBytes(uint64(i))
		if err != nil {
			return types.B256{}, err
		}
		if err := t.Insert(types.Keccak256(key), enc); err != nil {
			return types.B256{}, err
		}
	}
	return t.Root()
}

// receiptsIndexedRoot builds the receipts trie, threading the running
// cumulative gas total through EncodeForTrie the same way a real Ethereum
// receipts trie does.
func receiptsIndexedRoot(receipts []*types.ExtendedReceipt, totalGasUsed uint64, blockBloom types.Bloom) (types.B256, error) {
	var cumulative uint64
	encoded := make([][]byte, len(receipts))
	for i, r := range receipts {
		cumulative += r.GasUsed
		var perTxBloom types.Bloom
		for _, l := range r.Logs {
			types.AddLogToBloom(&perTxBloom, l)
		}
		enc, err := types.EncodeForTrie(r, cumulative, perTxBloom)
		if err != nil {
			return types.B256{}, err
		}
		encoded[i] = enc
	}
	return indexedRoot(len(receipts), func(i int) ([]byte, error) { return encoded[i], nil })
}
