package block

import (
	"math/big"
	"testing"

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

type memBlockSink struct {
	blocks []*types.ExtendedBlock
}

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

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	store := kv.NewMemDB()
	resolver, err := state.NewResolver(store)
	if err != nil {
		t.Fatal(err)
	}
	storage := state.NewStorageTrieRepository(store)
	executor := execution.NewExecutor(resolver, storage, move.NewInMemoryVM(), stubEvmVM{}, 404, gas.DefaultConfig())

	return &Builder{
		Executor:       executor,
		Resolver:       resolver,
		Storage:        storage,
		HeightIndex:    state.NewHeightIndex(store),
		BlockHashCache: state.NewBlockHashCache(),
		Mempool:        mempool.New(),
		GasConfig:      gas.DefaultConfig(),
		ChainID:        404,
		Blocks:         &memBlockSink{},
		Transactions:   &memTxSink{},
		Receipts:       &memReceiptSink{},
	}
}

func TestBuildGenesisBlockHasNumberZero(t *testing.T) {
	b := newTestBuilder(t)
	block, err := b.Build(types.PayloadAttributes{Timestamp: 1, GasLimit: 30_000_000}, types.PayloadID(1))
	if err != nil {
		t.Fatal(err)
	}
	if block.Block.Header.Number != 0 {
		t.Fatalf("expected genesis block number 0, got %d", block.Block.Header.Number)
	}
}

func TestBuildSecondBlockIncrementsNumberAndLinksParent(t *testing.T) {
	b := newTestBuilder(t)
	first, err := b.Build(types.PayloadAttributes{Timestamp: 1, GasLimit: 30_000_000}, types.PayloadID(1))
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.Build(types.PayloadAttributes{Timestamp: 2, GasLimit: 30_000_000}, types.PayloadID(2))
	if err != nil {
		t.Fatal(err)
	}
	if second.Block.Header.Number != 1 {
		t.Fatalf("expected block number 1, got %d", second.Block.Header.Number)
	}
	if second.Block.Header.ParentHash != first.Hash {
		t.Fatal("second block does not link to first block's hash")
	}
}

func TestBuildInvalidDepositPayloadAborts(t *testing.T) {
	b := newTestBuilder(t)
	_, err := b.Build(types.PayloadAttributes{
		Timestamp: 1, GasLimit: 30_000_000,
		Transactions: [][]byte{{0xff, 0xff}},
	}, types.PayloadID(1))
	if err == nil {
		t.Fatal("expected InvalidPayload error for undecodable deposit bytes")
	}
}

func TestBuildRemovesIncludedMempoolTransactions(t *testing.T) {
	b := newTestBuilder(t)
	signer := types.Address{0x09}
	tx := &types.NormalizedTxEnvelope{Canonical: &types.NormalizedCanonicalTx{
		CanonicalTx: types.CanonicalTx{
			Kind: types.KindEip1559, ChainID: 404, Nonce: 0,
			GasFeeCap: big.NewInt(1000), GasTipCap: big.NewInt(1), Gas: 21000,
			Data: []byte{0x02, 0x60, 0x00}, // EVM create tag, trivial init code
		},
		Signer: signer,
	}}
	txHash, err := tx.Hash()
	if err != nil {
		t.Fatal(err)
	}
	b.Mempool.Insert(signer, 0, txHash, tx)

	if _, err := b.Build(types.PayloadAttributes{Timestamp: 1, GasLimit: 30_000_000}, types.PayloadID(1)); err != nil {
		t.Fatal(err)
	}
	if b.Mempool.Len() != 0 {
		t.Fatalf("expected mempool drained after inclusion, got %d remaining", b.Mempool.Len())
	}
}
