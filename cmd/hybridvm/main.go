// Command hybridvm wires the command actor, application reader, and
// JSON-RPC surface together into a runnable node: load genesis
// configuration, seed and install the genesis block, start the actor loop,
// and serve eth_*/engine_*/mv_* over HTTP.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/luxfi/hybridvm/actor"
	"github.com/luxfi/hybridvm/app"
	"github.com/luxfi/hybridvm/block"
	"github.com/luxfi/hybridvm/execution"
	"github.com/luxfi/hybridvm/execution/evmvm"
	"github.com/luxfi/hybridvm/execution/move"
	"github.com/luxfi/hybridvm/genesis"
	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/mempool"
	"github.com/luxfi/hybridvm/payload"
	"github.com/luxfi/hybridvm/rpc"
	"github.com/luxfi/hybridvm/state"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

const (
	httpAddrKey  = "http-addr"
	queueSizeKey = "queue-size"
)

func main() {
	fs := genesis.BuildFlagSet()
	fs.String(httpAddrKey, "127.0.0.1:8545", "address to serve eth_*/engine_*/mv_* JSON-RPC on")
	fs.Int(queueSizeKey, 256, "command actor queue capacity")

	v, err := genesis.BuildViper(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "hybridvm: couldn't parse flags: %s\n", err)
		os.Exit(1)
	}

	cfg, err := genesis.BuildConfig(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hybridvm: couldn't build genesis config: %s\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hybridvm: couldn't build logger: %s\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, v.GetString(httpAddrKey), v.GetInt(queueSizeKey), logger); err != nil {
		logger.Fatal("hybridvm exited", zap.Error(err))
	}
}

// node is every long-lived component buildServer assembles, kept around so
// callers (main, and tests) can reach the actor queue directly.
type node struct {
	Queue  chan actor.Command
	Server *gethrpc.Server
}

// buildServer wires a fresh in-memory backing store, installs the genesis
// block, starts the command actor, and returns a ready-to-serve RPC server.
func buildServer(cfg genesis.Config, queueSize int, logger *zap.Logger) (*node, error) {
	store := kv.NewMemDB()
	resolver, err := state.NewResolver(store)
	if err != nil {
		return nil, fmt.Errorf("opening resolver: %w", err)
	}
	storage := state.NewStorageTrieRepository(store)
	moveVM := move.NewInMemoryVM()
	evmVM := evmvm.NewInterpreter()
	executor := execution.NewExecutor(resolver, storage, moveVM, evmVM, cfg.ChainID, cfg.GasConfig())
	chainStore := state.NewChainStore(store)
	heightIndex := state.NewHeightIndex(store)
	blockHashCache := state.NewBlockHashCache()
	pool := mempool.New()

	builder := &block.Builder{
		Executor: executor, Resolver: resolver, Storage: storage,
		HeightIndex: heightIndex, BlockHashCache: blockHashCache,
		Mempool: pool, GasConfig: cfg.GasConfig(), ChainID: cfg.ChainID,
		Blocks: chainStore, Transactions: state.TransactionSink{ChainStore: chainStore},
		Receipts: state.ReceiptSink{ChainStore: chainStore},
	}

	genesisBlock, err := genesis.Build(cfg, resolver)
	if err != nil {
		return nil, fmt.Errorf("building genesis block: %w", err)
	}

	registry := payload.New()
	queue := actor.NewQueue(queueSize)
	a := &actor.Actor{
		Queue: queue, Builder: builder, Registry: registry, Mempool: pool,
		ChainID: cfg.ChainID, Logger: logger,
	}

	installed := make(chan error, 1)
	go a.Run()
	queue <- actor.GenesisUpdate{Block: genesisBlock, Done: installed}
	if err := <-installed; err != nil {
		return nil, fmt.Errorf("installing genesis block: %w", err)
	}
	logger.Info("genesis installed",
		zap.Uint64("chainId", cfg.ChainID),
		zap.String("hash", genesisBlock.Hash.Hex()))

	reader := app.NewReader(app.Dependencies{
		Store: store, ChainStore: chainStore, BlockHashCache: blockHashCache,
		Mempool: pool, MoveVM: moveVM, EvmVM: evmVM,
		GasConfig: cfg.GasConfig(), ChainID: cfg.ChainID,
	})

	server, err := rpc.NewServer(reader, queue, registry)
	if err != nil {
		return nil, fmt.Errorf("building rpc server: %w", err)
	}
	return &node{Queue: queue, Server: server}, nil
}

func run(cfg genesis.Config, httpAddr string, queueSize int, logger *zap.Logger) error {
	n, err := buildServer(cfg, queueSize, logger)
	if err != nil {
		return err
	}
	logger.Info("serving JSON-RPC", zap.String("addr", httpAddr))
	if err := http.ListenAndServe(httpAddr, n.Server); err != nil {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}
