package rpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/luxfi/hybridvm/actor"
	"github.com/luxfi/hybridvm/app"
	"github.com/luxfi/hybridvm/types"
)

// EthService implements the eth_* namespace (§6) over an app.Reader, plus
// eth_sendRawTransaction which needs the actor's command queue.
type EthService struct {
	reader *app.Reader
	queue  chan<- actor.Command
}

// NewEthService returns the eth_* receiver RegisterName expects.
func NewEthService(reader *app.Reader, queue chan<- actor.Command) *EthService {
	return &EthService{reader: reader, queue: queue}
}

// ChainId implements eth_chainId.
func (s *EthService) ChainId() hexutil.Uint64 { return hexutil.Uint64(s.reader.ChainID()) }

// BlockNumber implements eth_blockNumber.
func (s *EthService) BlockNumber() hexutil.Uint64 { return hexutil.Uint64(s.reader.BlockNumber()) }

// GasPrice implements eth_gasPrice.
func (s *EthService) GasPrice() (*hexutil.Big, error) {
	price, err := s.reader.GasPrice()
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(price), nil
}

// MaxPriorityFeePerGas implements eth_maxPriorityFeePerGas.
func (s *EthService) MaxPriorityFeePerGas() *hexutil.Big {
	return (*hexutil.Big)(new(big.Int).SetUint64(s.reader.MaxPriorityFeePerGas()))
}

// GetBalance implements eth_getBalance.
func (s *EthService) GetBalance(address common.Address, blockNrOrHash gethrpc.BlockNumberOrHash) (*hexutil.Big, error) {
	balance, err := s.reader.BalanceAt(types.Address(address), toBlockSpec(blockNrOrHash))
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(balance), nil
}

// GetTransactionCount implements eth_getTransactionCount.
func (s *EthService) GetTransactionCount(address common.Address, blockNrOrHash gethrpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	nonce, err := s.reader.NonceAt(types.Address(address), toBlockSpec(blockNrOrHash))
	return hexutil.Uint64(nonce), err
}

// GetCode implements eth_getCode.
func (s *EthService) GetCode(address common.Address, blockNrOrHash gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	return s.reader.Code(types.Address(address), toBlockSpec(blockNrOrHash))
}

// GetStorageAt implements eth_getStorageAt.
func (s *EthService) GetStorageAt(address common.Address, key common.Hash, blockNrOrHash gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	value, err := s.reader.Storage(types.Address(address), types.B256(key), toBlockSpec(blockNrOrHash))
	if err != nil {
		return nil, err
	}
	return value.Bytes(), nil
}

// GetBlockByHash implements eth_getBlockByHash.
func (s *EthService) GetBlockByHash(hash common.Hash, fullTx bool) (map[string]interface{}, error) {
	block, ok, err := s.reader.BlockByHash(types.B256(hash))
	if err != nil || !ok {
		return nil, err
	}
	return blockToRPC(block, fullTx), nil
}

// GetBlockByNumber implements eth_getBlockByNumber.
func (s *EthService) GetBlockByNumber(number gethrpc.BlockNumber, fullTx bool) (map[string]interface{}, error) {
	block, ok, err := s.reader.BlockByNumber(toBlockSpecFromNumber(number))
	if err != nil || !ok {
		return nil, err
	}
	return blockToRPC(block, fullTx), nil
}

// GetTransactionByHash implements eth_getTransactionByHash.
func (s *EthService) GetTransactionByHash(hash common.Hash) (map[string]interface{}, error) {
	tx, ok, err := s.reader.TransactionByHash(types.B256(hash))
	if err != nil || !ok {
		return nil, err
	}
	return transactionToRPC(tx), nil
}

// GetTransactionReceipt implements eth_getTransactionReceipt.
func (s *EthService) GetTransactionReceipt(hash common.Hash) (map[string]interface{}, error) {
	receipt, ok, err := s.reader.TransactionReceipt(types.B256(hash))
	if err != nil || !ok {
		return nil, err
	}
	return receiptToRPC(receipt), nil
}

// SendRawTransaction implements eth_sendRawTransaction: submits raw to the
// actor's queue and blocks for the synchronous validation result, returning
// the transaction's hash on success.
func (s *EthService) SendRawTransaction(ctx context.Context, raw hexutil.Bytes) (common.Hash, error) {
	done := make(chan error, 1)
	select {
	case s.queue <- actor.AddTransaction{Raw: raw, Done: done}:
	case <-ctx.Done():
		return common.Hash{}, ctx.Err()
	}
	select {
	case err := <-done:
		if err != nil {
			return common.Hash{}, err
		}
	case <-ctx.Done():
		return common.Hash{}, ctx.Err()
	}

	var env types.TxEnvelope
	if err := env.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	signer, err := env.Canonical.Recover()
	if err != nil {
		return common.Hash{}, err
	}
	normalized := &types.NormalizedTxEnvelope{Canonical: &types.NormalizedCanonicalTx{CanonicalTx: *env.Canonical, Signer: signer}}
	hash, err := normalized.Hash()
	return common.Hash(hash), err
}

// CallArgs is the eth_call / eth_estimateGas transaction-like parameter
// object (§6).
type CallArgs struct {
	From     *common.Address `json:"from"`
	To       *common.Address `json:"to"`
	Gas      *hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Data     *hexutil.Bytes  `json:"data"`
	Input    *hexutil.Bytes  `json:"input"`
}

func (a CallArgs) toCallRequest() app.CallRequest {
	req := app.CallRequest{}
	if a.From != nil {
		req.From = types.Address(*a.From)
	}
	if a.To != nil {
		to := types.Address(*a.To)
		req.To = &to
	}
	if a.Gas != nil {
		req.Gas = uint64(*a.Gas)
	}
	if a.GasPrice != nil {
		req.GasPrice = (*big.Int)(a.GasPrice)
	}
	if a.Value != nil {
		req.Value = (*big.Int)(a.Value)
	}
	if a.Data != nil {
		req.Data = *a.Data
	} else if a.Input != nil {
		req.Data = *a.Input
	}
	return req
}

// Call implements eth_call.
func (s *EthService) Call(args CallArgs, blockNrOrHash gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	return s.reader.Call(args.toCallRequest(), toBlockSpec(blockNrOrHash))
}

// EstimateGas implements eth_estimateGas.
func (s *EthService) EstimateGas(args CallArgs, blockNrOrHash *gethrpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	spec := app.Latest
	if blockNrOrHash != nil {
		spec = toBlockSpec(*blockNrOrHash)
	}
	gasUsed, err := s.reader.EstimateGas(args.toCallRequest(), spec)
	return hexutil.Uint64(gasUsed), err
}

// FeeHistoryResult is the eth_feeHistory response shape (§6).
type FeeHistoryResult struct {
	OldestBlock   hexutil.Uint64   `json:"oldestBlock"`
	BaseFeePerGas []*hexutil.Big   `json:"baseFeePerGas"`
	GasUsedRatio  []float64        `json:"gasUsedRatio"`
	BaseFeePerBlobGas []*hexutil.Big `json:"baseFeePerBlobGas"`
	BlobGasUsedRatio  []float64      `json:"blobGasUsedRatio"`
	Reward        [][]*hexutil.Big `json:"reward,omitempty"`
}

// FeeHistory implements eth_feeHistory. blockCount is parsed as hex per §6.
func (s *EthService) FeeHistory(blockCount hexutil.Uint64, lastBlock gethrpc.BlockNumber, rewardPercentiles []float64) (*FeeHistoryResult, error) {
	result, err := s.reader.FeeHistory(uint64(blockCount), toBlockSpecFromNumber(lastBlock), rewardPercentiles)
	if err != nil {
		return nil, err
	}
	out := &FeeHistoryResult{OldestBlock: hexutil.Uint64(result.OldestBlock), GasUsedRatio: result.GasUsedRatio, BlobGasUsedRatio: result.BlobGasUsedRatio}
	for _, fee := range result.BaseFeePerGas {
		out.BaseFeePerGas = append(out.BaseFeePerGas, (*hexutil.Big)(fee))
	}
	for _, fee := range result.BaseFeePerBlobGas {
		out.BaseFeePerBlobGas = append(out.BaseFeePerBlobGas, (*hexutil.Big)(fee))
	}
	if len(rewardPercentiles) > 0 {
		for _, row := range result.Reward {
			rewardRow := make([]*hexutil.Big, len(row))
			for i, r := range row {
				rewardRow[i] = (*hexutil.Big)(r)
			}
			out.Reward = append(out.Reward, rewardRow)
		}
	}
	return out, nil
}

// ProofResult is the eth_getProof response shape (§6).
type ProofResult struct {
	Address      common.Address              `json:"address"`
	Balance      *hexutil.Big                `json:"balance"`
	Nonce        hexutil.Uint64               `json:"nonce"`
	CodeHash     common.Hash                  `json:"codeHash"`
	StorageHash  common.Hash                  `json:"storageHash"`
	AccountProof []hexutil.Bytes              `json:"accountProof"`
	StorageProof []StorageProofEntry          `json:"storageProof"`
}

// StorageProofEntry is one requested slot's proof within ProofResult.
type StorageProofEntry struct {
	Key   common.Hash    `json:"key"`
	Proof []hexutil.Bytes `json:"proof"`
}

// GetProof implements eth_getProof. Only addresses inside the L2 range are
// supported (§4.11).
func (s *EthService) GetProof(address common.Address, storageKeys []common.Hash, blockNrOrHash gethrpc.BlockNumberOrHash) (*ProofResult, error) {
	slots := make([]types.B256, len(storageKeys))
	for i, k := range storageKeys {
		slots[i] = types.B256(k)
	}
	result, err := s.reader.GetProof(types.Address(address), slots, toBlockSpec(blockNrOrHash))
	if err != nil {
		return nil, err
	}
	out := &ProofResult{
		Address:     address,
		Balance:     (*hexutil.Big)(result.Account.Balance),
		Nonce:       hexutil.Uint64(result.Account.Nonce),
		CodeHash:    common.Hash(result.Account.CodeHash),
		StorageHash: common.Hash(result.Account.StorageRoot),
	}
	for _, node := range result.AccountProof {
		out.AccountProof = append(out.AccountProof, node)
	}
	for _, key := range storageKeys {
		nodes := result.StorageProof[types.B256(key)]
		entry := StorageProofEntry{Key: key}
		for _, n := range nodes {
			entry.Proof = append(entry.Proof, n)
		}
		out.StorageProof = append(out.StorageProof, entry)
	}
	return out, nil
}
