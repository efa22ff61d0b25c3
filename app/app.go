// Package app implements the application reader (§4.11): every query
// method an RPC handler or CLI needs, safe to call concurrently with the
// actor's block commits since each query opens its own resolver/storage
// view over a chosen historical (or current) state root rather than
// sharing the actor's live, mutating handles.
package app

import (
	"math/big"
	"sort"

	"github.com/holiman/uint256"

	"github.com/luxfi/hybridvm/apperror"
	"github.com/luxfi/hybridvm/execution"
	"github.com/luxfi/hybridvm/execution/evmvm"
	"github.com/luxfi/hybridvm/execution/gas"
	"github.com/luxfi/hybridvm/execution/move"
	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/mempool"
	"github.com/luxfi/hybridvm/state"
	"github.com/luxfi/hybridvm/types"
)

// BlockTag names the symbolic forms a BlockSpec may take (§4.11).
type BlockTag uint8

const (
	TagLatest BlockTag = iota
	TagPending
	TagSafe
	TagFinalized
	TagEarliest
	TagNumber
	TagHash
)

// BlockSpec selects a point in chain history to query against (§4.11:
// "spec is Latest | Pending | Safe | Finalized | Earliest | Number(u64) |
// Hash(B256). All tags other than Earliest/Number/Hash resolve to Latest
// in this design").
type BlockSpec struct {
	Tag    BlockTag
	Number uint64
	Hash   types.B256
}

// Latest is the default BlockSpec.
var Latest = BlockSpec{Tag: TagLatest}

// Dependencies are the capability set the reader is constructed from
// (§4.11, §9): the backing store (to open historical resolvers/storage
// repositories), the chain store (blocks/transactions/receipts), the
// block-hash cache, the mempool (for pending-count style queries), the
// VMs (to simulate eth_call/eth_estimateGas), and the gas/chain
// configuration.
type Dependencies struct {
	Store          kv.Store
	ChainStore     *state.ChainStore
	BlockHashCache *state.BlockHashCache
	Mempool        *mempool.Mempool
	MoveVM         move.VM
	EvmVM          evmvm.VM
	GasConfig      gas.Config
	ChainID        uint64
	ClientVersion  string
}

// Reader is the read-only query surface (§4.11).
type Reader struct {
	deps Dependencies
}

// NewReader constructs a Reader from deps.
func NewReader(deps Dependencies) *Reader {
	if deps.ClientVersion == "" {
		deps.ClientVersion = "hybridvm/v0.1.0"
	}
	return &Reader{deps: deps}
}

// ChainID returns the configured chain id.
func (r *Reader) ChainID() uint64 { return r.deps.ChainID }

// ClientVersion returns the node's advertised client string.
func (r *Reader) ClientVersion() string { return r.deps.ClientVersion }

// GasPrice returns the suggested gas price: head base fee plus the fixed
// priority fee (§4.7, §4.11).
func (r *Reader) GasPrice() (*big.Int, error) {
	head, ok, err := r.deps.ChainStore.Head()
	if err != nil {
		return nil, err
	}
	if !ok {
		return gas.GasPrice(nil), nil
	}
	return gas.GasPrice(head.Block.Header.BaseFeePerGas), nil
}

// MaxPriorityFeePerGas returns the fixed suggested tip (§4.7, §4.11).
func (r *Reader) MaxPriorityFeePerGas() uint64 { return gas.MaxPriorityFeePerGas }

// BlockNumber returns the height of the latest block, panicking if
// genesis has never been installed (§4.11: "panics if genesis missing").
func (r *Reader) BlockNumber() uint64 {
	return r.deps.ChainStore.MustHead().Block.Header.Number
}

// BlockByHash returns the block at hash, if any.
func (r *Reader) BlockByHash(hash types.B256) (*types.ExtendedBlock, bool, error) {
	return r.deps.ChainStore.BlockByHash(hash)
}

// BlockByNumber resolves spec to a block (§4.11).
func (r *Reader) BlockByNumber(spec BlockSpec) (*types.ExtendedBlock, bool, error) {
	height, err := r.resolveHeight(spec)
	if err != nil {
		return nil, false, err
	}
	return r.deps.ChainStore.BlockByNumber(height)
}

// TransactionByHash returns the stored transaction record for hash.
func (r *Reader) TransactionByHash(hash types.B256) (*types.ExtendedTransaction, bool, error) {
	return r.deps.ChainStore.TransactionByHash(hash)
}

// TransactionReceipt returns the receipt for transaction hash.
func (r *Reader) TransactionReceipt(hash types.B256) (*types.ExtendedReceipt, bool, error) {
	return r.deps.ChainStore.ReceiptByHash(hash)
}

// resolveHeight turns a BlockSpec into a concrete block height.
func (r *Reader) resolveHeight(spec BlockSpec) (uint64, error) {
	switch spec.Tag {
	case TagEarliest:
		return 0, nil
	case TagNumber:
		return spec.Number, nil
	case TagHash:
		block, ok, err := r.deps.ChainStore.BlockByHash(spec.Hash)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, apperror.InvalidBlockHash("no block with that hash")
		}
		return block.Block.Header.Number, nil
	default: // Latest, Pending, Safe, Finalized all resolve to Latest (§4.11)
		return r.deps.ChainStore.MustHead().Block.Header.Number, nil
	}
}

// resolveState opens a resolver and storage repository at spec's state
// root, along with the block it was computed for.
func (r *Reader) resolveState(spec BlockSpec) (*state.Resolver, *state.StorageTrieRepository, *types.ExtendedBlock, error) {
	height, err := r.resolveHeight(spec)
	if err != nil {
		return nil, nil, nil, err
	}
	block, ok, err := r.deps.ChainStore.BlockByNumber(height)
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok {
		return nil, nil, nil, apperror.InvalidBlockHeight("no block at that height")
	}
	resolver, err := state.OpenResolver(r.deps.Store, block.Block.Header.StateRoot)
	if err != nil {
		return nil, nil, nil, err
	}
	storage := state.NewStorageTrieRepository(r.deps.Store)
	return resolver, storage, block, nil
}

// BalanceAt returns addr's balance at spec.
func (r *Reader) BalanceAt(addr types.Address, spec BlockSpec) (*big.Int, error) {
	resolver, _, _, err := r.resolveState(spec)
	if err != nil {
		return nil, err
	}
	info, _, err := resolver.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return info.Balance, nil
}

// NonceAt returns addr's nonce at spec.
func (r *Reader) NonceAt(addr types.Address, spec BlockSpec) (uint64, error) {
	resolver, _, _, err := r.resolveState(spec)
	if err != nil {
		return 0, err
	}
	info, _, err := resolver.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return info.Nonce, nil
}

// Storage returns addr's value at slot, at spec.
func (r *Reader) Storage(addr types.Address, slot types.B256, spec BlockSpec) (types.B256, error) {
	resolver, storage, _, err := r.resolveState(spec)
	if err != nil {
		return types.B256{}, err
	}
	info, _, err := resolver.GetAccount(addr)
	if err != nil {
		return types.B256{}, err
	}
	return storage.Get(addr, info.StorageRoot, slot)
}

// Code returns addr's code at spec.
func (r *Reader) Code(addr types.Address, spec BlockSpec) ([]byte, error) {
	resolver, _, _, err := r.resolveState(spec)
	if err != nil {
		return nil, err
	}
	info, _, err := resolver.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return resolver.GetCode(info.CodeHash)
}

// CallRequest is a simulated transaction's parameters (§4.11: "both
// simulate execution at the chosen historical state").
type CallRequest struct {
	From     types.Address
	To       *types.Address
	Gas      uint64
	GasPrice *big.Int
	Value    *big.Int
	Data     []byte
}

// defaultSimulationGas is used when a CallRequest omits a gas limit.
const defaultSimulationGas uint64 = 30_000_000

func (r *Reader) simulate(req CallRequest, spec BlockSpec) (execution.TxResult, error) {
	resolver, storage, block, err := r.resolveState(spec)
	if err != nil {
		return execution.TxResult{}, err
	}
	executor := execution.NewExecutor(resolver, storage, r.deps.MoveVM, r.deps.EvmVM, r.deps.ChainID, r.deps.GasConfig)

	account, _, err := resolver.GetAccount(req.From)
	if err != nil {
		return execution.TxResult{}, err
	}

	baseFee := block.Block.Header.BaseFeePerGas
	feeCap := req.GasPrice
	if feeCap == nil {
		feeCap = baseFee
	}
	if feeCap == nil {
		feeCap = new(big.Int)
	}
	gasLimit := req.Gas
	if gasLimit == 0 {
		gasLimit = defaultSimulationGas
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	tx := &types.NormalizedCanonicalTx{
		CanonicalTx: types.CanonicalTx{
			Kind: types.KindEip1559, ChainID: 0, Nonce: account.Nonce,
			GasFeeCap: feeCap, GasTipCap: feeCap, Gas: gasLimit,
			To: req.To, Value: value, Data: req.Data,
		},
		Signer: req.From,
	}

	var uintBaseFee *uint256.Int
	if baseFee != nil {
		uintBaseFee, _ = uint256.FromBig(baseFee)
	}
	blockCtx := evmvm.BlockContext{
		Number: block.Block.Header.Number + 1, Timestamp: block.Block.Header.Timestamp,
		ChainID: r.deps.ChainID, BaseFee: uintBaseFee,
		BlockHash: func(height uint64) types.B256 { return r.deps.BlockHashCache.BlockHash(block.Block.Header.Number+1, height) },
	}

	return executor.Execute(&types.NormalizedTxEnvelope{Canonical: tx}, blockCtx)
}

// EstimateGas simulates req at spec and returns the gas it consumed,
// floored at gas.MinimumGas (§4.11).
func (r *Reader) EstimateGas(req CallRequest, spec BlockSpec) (uint64, error) {
	result, err := r.simulate(req, spec)
	if err != nil {
		return 0, err
	}
	return gas.EstimateGas(result.GasUsed), nil
}

// Call simulates req at spec (§4.11). It returns no return data: a
// successful call yields nil. A reverted call yields an
// InvalidTransactionData error reading "execution reverted", without the
// revert data or reason; a call that ends in an Error outcome yields that
// outcome's error.
func (r *Reader) Call(req CallRequest, spec BlockSpec) ([]byte, error) {
	result, err := r.simulate(req, spec)
	if err != nil {
		return nil, err
	}
	if result.Outcome == execution.OutcomeRevert {
		return nil, apperror.InvalidTransactionData("execution reverted")
	}
	if result.Outcome == execution.OutcomeError {
		return nil, result.Err
	}
	return nil, nil
}

// FeeHistoryResult is the shape eth_feeHistory returns (§4.11).
type FeeHistoryResult struct {
	OldestBlock          uint64
	BaseFeePerGas        []*big.Int // length n+1
	GasUsedRatio         []float64  // length n
	BaseFeePerBlobGas    []*big.Int // length n+1, always zero
	BlobGasUsedRatio     []float64  // length n, always zero
	Reward               [][]*big.Int
}

// FeeHistory returns the last n blocks' fee history ending at spec, block
// count clamped to the available range (§4.11).
func (r *Reader) FeeHistory(n uint64, spec BlockSpec, percentiles []float64) (FeeHistoryResult, error) {
	endHeight, err := r.resolveHeight(spec)
	if err != nil {
		return FeeHistoryResult{}, err
	}
	if n > endHeight+1 {
		n = endHeight + 1
	}
	startHeight := endHeight + 1 - n

	result := FeeHistoryResult{OldestBlock: startHeight}
	for h := startHeight; h <= endHeight; h++ {
		block, ok, err := r.deps.ChainStore.BlockByNumber(h)
		if err != nil {
			return FeeHistoryResult{}, err
		}
		if !ok {
			return FeeHistoryResult{}, apperror.InvalidBlockHeight("missing block in fee history range")
		}
		result.BaseFeePerGas = append(result.BaseFeePerGas, block.Block.Header.BaseFeePerGas)
		result.BaseFeePerBlobGas = append(result.BaseFeePerBlobGas, big.NewInt(0))
		ratio := 0.0
		if block.Block.Header.GasLimit > 0 {
			ratio = float64(block.Block.Header.GasUsed) / float64(block.Block.Header.GasLimit)
		}
		result.GasUsedRatio = append(result.GasUsedRatio, ratio)
		result.BlobGasUsedRatio = append(result.BlobGasUsedRatio, 0)
		if len(percentiles) > 0 {
			result.Reward = append(result.Reward, make([]*big.Int, len(percentiles)))
		}
	}
	next, ok, err := r.deps.ChainStore.BlockByNumber(endHeight + 1)
	if err == nil && ok {
		result.BaseFeePerGas = append(result.BaseFeePerGas, next.Block.Header.BaseFeePerGas)
	} else {
		last := result.BaseFeePerGas[len(result.BaseFeePerGas)-1]
		result.BaseFeePerGas = append(result.BaseFeePerGas, last)
	}
	result.BaseFeePerBlobGas = append(result.BaseFeePerBlobGas, big.NewInt(0))
	return result, nil
}

// ProofResult is the Merkle proof bundle get_proof returns (§4.11).
type ProofResult struct {
	Account      types.AccountInfo
	AccountProof [][]byte
	StorageProof map[types.B256][][]byte
}

// GetProof returns Merkle proofs for addr's outer account record plus the
// requested storage slots, restricted to addresses inside the L2 range
// (§4.11: "only for addresses in the L2 range; otherwise fails
// AddressOutsideRange").
func (r *Reader) GetProof(addr types.Address, slots []types.B256, spec BlockSpec) (ProofResult, error) {
	if !execution.InL2Range(addr) {
		return ProofResult{}, apperror.AddressOutsideRange("get_proof is only available for L2-range addresses")
	}
	resolver, storage, _, err := r.resolveState(spec)
	if err != nil {
		return ProofResult{}, err
	}
	info, _, err := resolver.GetAccount(addr)
	if err != nil {
		return ProofResult{}, err
	}
	accountKey := types.Keccak256(addr.Bytes())
	accountProof, _, err := resolver.Trie.Proof(accountKey)
	if err != nil {
		return ProofResult{}, err
	}

	storageProof := make(map[types.B256][][]byte, len(slots))
	for _, slot := range slots {
		nodes, err := storage.Proof(addr, info.StorageRoot, slot)
		if err != nil {
			return ProofResult{}, err
		}
		storageProof[slot] = nodes
	}
	return ProofResult{Account: info, AccountProof: accountProof, StorageProof: storageProof}, nil
}

// MoveResourceByHeight returns typeTag's resource for addr at spec.
func (r *Reader) MoveResourceByHeight(addr types.Address, typeTag string, spec BlockSpec) (*types.StateValue, bool, error) {
	resolver, _, _, err := r.resolveState(spec)
	if err != nil {
		return nil, false, err
	}
	return resolver.GetMoveValue(move.ResourceKey(addr, typeTag))
}

// moduleLister is implemented by VMs that can enumerate registered
// modules (only move.InMemoryVM today).
type moduleLister interface{ ModuleNames() []string }

// MoveListModules returns module names after the given cursor, up to
// limit, sorted for deterministic pagination (§4.11).
func (r *Reader) MoveListModules(addr types.Address, spec BlockSpec, after string, limit int) ([]string, error) {
	lister, ok := r.deps.MoveVM.(moduleLister)
	if !ok {
		return nil, nil
	}
	names := lister.ModuleNames()
	sort.Strings(names)
	var page []string
	for _, name := range names {
		if name <= after {
			continue
		}
		page = append(page, name)
		if limit > 0 && len(page) >= limit {
			break
		}
	}
	return page, nil
}

// MoveTableItemByHeight returns one item of Move table handle at spec.
func (r *Reader) MoveTableItemByHeight(handle types.B256, itemKey []byte, spec BlockSpec) (*types.StateValue, bool, error) {
	resolver, _, _, err := r.resolveState(spec)
	if err != nil {
		return nil, false, err
	}
	return resolver.GetMoveValue(move.TableItemKey(handle, itemKey))
}
