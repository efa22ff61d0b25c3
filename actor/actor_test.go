package actor

import (
	"math/big"
	"testing"

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
)

type stubEvmVM struct{}

func (stubEvmVM) Call(evmvm.BlockContext, evmvm.StorageAccess, []byte, evmvm.CallParams) (evmvm.Result, error) {
	return evmvm.Result{}, nil
}

func (stubEvmVM) Create(evmvm.BlockContext, evmvm.StorageAccess, []byte, evmvm.CallParams) (evmvm.Result, error) {
	return evmvm.Result{}, nil
}

type memBlockSink struct{ blocks []*types.ExtendedBlock }

func (s *memBlockSink) Append(b *types.ExtendedBlock) error {
	s.blocks = append(s.blocks, b)
	return nil
}

func (s *memBlockSink) Head() (*types.ExtendedBlock, bool, error) {
	if len(s.blocks) == 0 {
		return nil, false, nil
	}
	return s.blocks[len(s.blocks)-1], true, nil
}

type memTxSink struct{ txs []*types.ExtendedTransaction }

func (s *memTxSink) Append(tx *types.ExtendedTransaction) error {
	s.txs = append(s.txs, tx)
	return nil
}

type memReceiptSink struct{ receipts []*types.ExtendedReceipt }

func (s *memReceiptSink) Append(r *types.ExtendedReceipt) error {
	s.receipts = append(s.receipts, r)
	return nil
}

const testChainID = 404

func newTestActor(t *testing.T) (*Actor, chan Command) {
	t.Helper()
	store := kv.NewMemDB()
	resolver, err := state.NewResolver(store)
	if err != nil {
		t.Fatal(err)
	}
	storage := state.NewStorageTrieRepository(store)
	executor := execution.NewExecutor(resolver, storage, move.NewInMemoryVM(), stubEvmVM{}, testChainID, gas.DefaultConfig())

	builder := &block.Builder{
		Executor:       executor,
		Resolver:       resolver,
		Storage:        storage,
		HeightIndex:    state.NewHeightIndex(store),
		BlockHashCache: state.NewBlockHashCache(),
		Mempool:        mempool.New(),
		GasConfig:      gas.DefaultConfig(),
		ChainID:        testChainID,
		Blocks:         &memBlockSink{},
		Transactions:   &memTxSink{},
		Receipts:       &memReceiptSink{},
	}

	queue := NewQueue(4)
	a := &Actor{
		Queue:    queue,
		Builder:  builder,
		Registry: payload.New(),
		Mempool:  builder.Mempool,
		ChainID:  testChainID,
	}
	return a, queue
}

func TestStartBlockBuildSealsGenesis(t *testing.T) {
	a, queue := newTestActor(t)
	go a.Run()

	done := make(chan BuildResult, 1)
	queue <- StartBlockBuild{
		Attributes: types.PayloadAttributes{Timestamp: 1, GasLimit: 30_000_000},
		PayloadID:  types.PayloadID(1),
		Done:       done,
	}
	res := <-done
	close(queue)

	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Block.Block.Header.Number != 0 {
		t.Fatalf("expected genesis block number 0, got %d", res.Block.Block.Header.Number)
	}
}

func TestStartBlockBuildWithStaleParentDelays(t *testing.T) {
	a, queue := newTestActor(t)
	go a.Run()

	firstDone := make(chan BuildResult, 1)
	queue <- StartBlockBuild{
		Attributes: types.PayloadAttributes{Timestamp: 1, GasLimit: 30_000_000},
		PayloadID:  types.PayloadID(1),
		Done:       firstDone,
	}
	first := <-firstDone
	if first.Err != nil {
		t.Fatal(first.Err)
	}

	staleDone := make(chan BuildResult, 1)
	queue <- StartBlockBuild{
		Attributes: types.PayloadAttributes{Timestamp: 2, GasLimit: 30_000_000},
		PayloadID:  types.PayloadID(2),
		ParentHash: types.B256{0xde, 0xad},
		Done:       staleDone,
	}
	stale := <-staleDone
	close(queue)

	if stale.Err != nil {
		t.Fatal(stale.Err)
	}
	if stale.Block != nil {
		t.Fatal("expected no block sealed for a stale parent hash")
	}
	st, ok := a.Registry.Get(types.PayloadID(2))
	if !ok || st.Status != payload.StatusDelayed {
		t.Fatalf("expected payload 2 delayed, got %+v ok=%v", st, ok)
	}
}

func TestAddTransactionRejectsWrongChainID(t *testing.T) {
	a, queue := newTestActor(t)
	go a.Run()

	tx := &types.CanonicalTx{
		Kind: types.KindEip1559, ChainID: testChainID + 1, Nonce: 0,
		GasFeeCap: bigOne(), GasTipCap: bigOne(), Gas: 21000,
	}
	raw, err := (&types.TxEnvelope{Canonical: tx}).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	queue <- AddTransaction{Raw: raw, Done: done}
	err = <-done
	close(queue)

	if err == nil {
		t.Fatal("expected chain id mismatch error")
	}
}

func TestGenesisUpdateRejectedAfterFirstInstall(t *testing.T) {
	a, queue := newTestActor(t)
	go a.Run()

	block := &types.ExtendedBlock{Hash: types.B256{0x01}}
	done := make(chan error, 1)
	queue <- GenesisUpdate{Block: block, Done: done}
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	second := make(chan error, 1)
	queue <- GenesisUpdate{Block: &types.ExtendedBlock{Hash: types.B256{0x02}}, Done: second}
	err := <-second
	close(queue)

	if err == nil {
		t.Fatal("expected second genesis installation to be rejected")
	}
}

func bigOne() *big.Int { return big.NewInt(1) }
