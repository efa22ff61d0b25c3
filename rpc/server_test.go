package rpc

import (
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/hybridvm/actor"
	"github.com/luxfi/hybridvm/block"
	"github.com/luxfi/hybridvm/execution"
	"github.com/luxfi/hybridvm/execution/evmvm"
	"github.com/luxfi/hybridvm/execution/gas"
	"github.com/luxfi/hybridvm/execution/move"
	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/mempool"
	"github.com/luxfi/hybridvm/payload"
	"github.com/luxfi/hybridvm/state"
	"github.com/luxfi/hybridvm/types"

	"github.com/luxfi/hybridvm/app"
)

type stubEvmVM struct{}

func (stubEvmVM) Call(evmvm.BlockContext, evmvm.StorageAccess, []byte, evmvm.CallParams) (evmvm.Result, error) {
	return evmvm.Result{}, nil
}

func (stubEvmVM) Create(evmvm.BlockContext, evmvm.StorageAccess, []byte, evmvm.CallParams) (evmvm.Result, error) {
	return evmvm.Result{}, nil
}

const testChainID = 404

func newTestClient(t *testing.T) *gethrpc.Client {
	t.Helper()
	store := kv.NewMemDB()
	resolver, err := state.NewResolver(store)
	require.NoError(t, err)
	storage := state.NewStorageTrieRepository(store)
	moveVM := move.NewInMemoryVM()
	executor := execution.NewExecutor(resolver, storage, moveVM, stubEvmVM{}, testChainID, gas.DefaultConfig())
	chainStore := state.NewChainStore(store)
	registry := payload.New()

	builder := &block.Builder{
		Executor: executor, Resolver: resolver, Storage: storage,
		HeightIndex: state.NewHeightIndex(store), BlockHashCache: state.NewBlockHashCache(),
		Mempool: mempool.New(), GasConfig: gas.DefaultConfig(), ChainID: testChainID,
		Blocks: chainStore, Transactions: state.TransactionSink{ChainStore: chainStore},
		Receipts: state.ReceiptSink{ChainStore: chainStore},
	}
	_, err = builder.Build(types.PayloadAttributes{Timestamp: 1, GasLimit: 30_000_000}, types.PayloadID(1))
	require.NoError(t, err)

	reader := app.NewReader(app.Dependencies{
		Store: store, ChainStore: chainStore, BlockHashCache: builder.BlockHashCache,
		Mempool: builder.Mempool, MoveVM: moveVM, EvmVM: stubEvmVM{},
		GasConfig: gas.DefaultConfig(), ChainID: testChainID,
	})

	queue := actor.NewQueue(8)
	a := &actor.Actor{Queue: queue, Builder: builder, Registry: registry, Mempool: builder.Mempool, ChainID: testChainID}
	go a.Run()
	t.Cleanup(func() { close(queue) })

	server, err := NewServer(reader, queue, registry)
	require.NoError(t, err)
	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)

	client, err := gethrpc.Dial(httpServer.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestEthChainIDOverRPC(t *testing.T) {
	client := newTestClient(t)
	var chainID hexutil.Uint64
	require.NoError(t, client.Call(&chainID, "eth_chainId"))
	require.EqualValues(t, testChainID, chainID)
}

func TestEthBlockNumberOverRPC(t *testing.T) {
	client := newTestClient(t)
	var number hexutil.Uint64
	require.NoError(t, client.Call(&number, "eth_blockNumber"))
	require.EqualValues(t, 0, number)
}

func TestEthGetBalanceUnknownAccountIsZeroOverRPC(t *testing.T) {
	client := newTestClient(t)
	var balance hexutil.Big
	require.NoError(t, client.Call(&balance, "eth_getBalance", common.Address{0x01}, "latest"))
	require.Equal(t, 0, (*big.Int)(&balance).Sign())
}

func TestMvListModulesOverRPC(t *testing.T) {
	client := newTestClient(t)
	var names []string
	require.NoError(t, client.Call(&names, "mv_listModules", common.Address{}, "", hexutil.Uint64(0), "latest"))
	require.Contains(t, names, "eth_token")
}

func TestWeb3ClientVersionOverRPC(t *testing.T) {
	client := newTestClient(t)
	var version string
	require.NoError(t, client.Call(&version, "web3_clientVersion"))
	require.NotEmpty(t, version)
}
