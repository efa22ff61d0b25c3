package main

import (
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxfi/hybridvm/actor"
	"github.com/luxfi/hybridvm/genesis"
	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/state"
)

func mustFreshResolver(t *testing.T) *state.Resolver {
	t.Helper()
	resolver, err := state.NewResolver(kv.NewMemDB())
	require.NoError(t, err)
	return resolver
}

func TestBuildServerInstallsGenesisAndServesEthChainID(t *testing.T) {
	cfg := genesis.Default()
	cfg.ChainID = 7777

	n, err := buildServer(cfg, 8, zap.NewNop())
	require.NoError(t, err)

	httpServer := httptest.NewServer(n.Server)
	defer httpServer.Close()

	client, err := gethrpc.Dial(httpServer.URL)
	require.NoError(t, err)
	defer client.Close()

	var chainID hexutil.Uint64
	require.NoError(t, client.Call(&chainID, "eth_chainId"))
	require.EqualValues(t, cfg.ChainID, chainID)

	var number hexutil.Uint64
	require.NoError(t, client.Call(&number, "eth_blockNumber"))
	require.EqualValues(t, 0, number)
}

func TestBuildServerRejectsSecondGenesisInstall(t *testing.T) {
	n, err := buildServer(genesis.Default(), 8, zap.NewNop())
	require.NoError(t, err)

	cfg := genesis.Default()
	block, err := genesis.Build(cfg, mustFreshResolver(t))
	require.NoError(t, err)

	done := make(chan error, 1)
	n.Queue <- actor.GenesisUpdate{Block: block, Done: done}
	require.Error(t, <-done)
}
