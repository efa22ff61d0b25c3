package app

import (
	"testing"

	"github.com/luxfi/hybridvm/block"
	"github.com/luxfi/hybridvm/execution"
	"github.com/luxfi/hybridvm/execution/evmvm"
	"github.com/luxfi/hybridvm/execution/gas"
	"github.com/luxfi/hybridvm/execution/move"
	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/mempool"
	"github.com/luxfi/hybridvm/state"
	"github.com/luxfi/hybridvm/types"
)

type stubEvmVM struct{}

func (stubEvmVM) Call(evmvm.BlockContext, evmvm.StorageAccess, []byte, evmvm.CallParams) (evmvm.Result, error) {
	return evmvm.Result{}, nil
}

func (stubEvmVM) Create(evmvm.BlockContext, evmvm.StorageAccess, []byte, evmvm.CallParams) (evmvm.Result, error) {
	return evmvm.Result{}, nil
}

const testChainID = 404

func newTestReader(t *testing.T) (*Reader, *state.ChainStore) {
	t.Helper()
	store := kv.NewMemDB()
	resolver, err := state.NewResolver(store)
	if err != nil {
		t.Fatal(err)
	}
	storage := state.NewStorageTrieRepository(store)
	moveVM := move.NewInMemoryVM()
	executor := execution.NewExecutor(resolver, storage, moveVM, stubEvmVM{}, testChainID, gas.DefaultConfig())
	chainStore := state.NewChainStore(store)

	builder := &block.Builder{
		Executor:       executor,
		Resolver:       resolver,
		Storage:        storage,
		HeightIndex:    state.NewHeightIndex(store),
		BlockHashCache: state.NewBlockHashCache(),
		Mempool:        mempool.New(),
		GasConfig:      gas.DefaultConfig(),
		ChainID:        testChainID,
		Blocks:         chainStore,
		Transactions:   state.TransactionSink{ChainStore: chainStore},
		Receipts:       state.ReceiptSink{ChainStore: chainStore},
	}
	if _, err := builder.Build(types.PayloadAttributes{Timestamp: 1, GasLimit: 30_000_000}, types.PayloadID(1)); err != nil {
		t.Fatal(err)
	}

	reader := NewReader(Dependencies{
		Store: store, ChainStore: chainStore, BlockHashCache: builder.BlockHashCache,
		Mempool: builder.Mempool, MoveVM: moveVM, EvmVM: stubEvmVM{},
		GasConfig: gas.DefaultConfig(), ChainID: testChainID,
	})
	return reader, chainStore
}

func TestBlockNumberReturnsGenesisHeight(t *testing.T) {
	reader, _ := newTestReader(t)
	if got := reader.BlockNumber(); got != 0 {
		t.Fatalf("expected height 0, got %d", got)
	}
}

func TestBlockByNumberLatestResolvesToHead(t *testing.T) {
	reader, chainStore := newTestReader(t)
	head, _, err := chainStore.Head()
	if err != nil {
		t.Fatal(err)
	}
	got, ok, err := reader.BlockByNumber(Latest)
	if err != nil || !ok {
		t.Fatalf("expected latest block, ok=%v err=%v", ok, err)
	}
	if got.Hash != head.Hash {
		t.Fatal("latest block does not match chain store head")
	}
}

func TestBalanceAtUnknownAccountIsZero(t *testing.T) {
	reader, _ := newTestReader(t)
	balance, err := reader.BalanceAt(types.Address{0x01}, Latest)
	if err != nil {
		t.Fatal(err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", balance)
	}
}

func TestGetProofRejectsAddressOutsideL2Range(t *testing.T) {
	reader, _ := newTestReader(t)
	_, err := reader.GetProof(types.Address{0xff}, nil, Latest)
	if err == nil {
		t.Fatal("expected AddressOutsideRange error")
	}
}

func TestEstimateGasFloorsAtMinimum(t *testing.T) {
	reader, _ := newTestReader(t)
	to := types.Address{0x02}
	got, err := reader.EstimateGas(CallRequest{From: types.Address{0x01}, To: &to, Data: nil}, Latest)
	if err != nil {
		t.Fatal(err)
	}
	if got != gas.MinimumGas {
		t.Fatalf("expected floor %d, got %d", gas.MinimumGas, got)
	}
}

func TestFeeHistoryClampsToAvailableRange(t *testing.T) {
	reader, _ := newTestReader(t)
	result, err := reader.FeeHistory(100, Latest, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.OldestBlock != 0 {
		t.Fatalf("expected oldest block 0, got %d", result.OldestBlock)
	}
	if len(result.BaseFeePerGas) != len(result.GasUsedRatio)+1 {
		t.Fatalf("expected baseFeePerGas one longer than gasUsedRatio, got %d and %d",
			len(result.BaseFeePerGas), len(result.GasUsedRatio))
	}
}

func TestMoveResourceByHeightMissingReturnsNotFound(t *testing.T) {
	reader, _ := newTestReader(t)
	_, ok, err := reader.MoveResourceByHeight(types.Address{0x01}, move.BalanceTypeTag, Latest)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no balance resource for an untouched account")
	}
}

func TestMoveListModulesReturnsRegisteredModules(t *testing.T) {
	reader, _ := newTestReader(t)
	names, err := reader.MoveListModules(types.Address{}, Latest, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, n := range names {
		if n == "eth_token" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected eth_token among registered modules, got %v", names)
	}
}
