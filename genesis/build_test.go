package genesis

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/state"
	"github.com/luxfi/hybridvm/types"
)

func newResolver(t *testing.T) *state.Resolver {
	t.Helper()
	resolver, err := state.NewResolver(kv.NewMemDB())
	require.NoError(t, err)
	return resolver
}

func TestBuildWithoutBalancesHasEmptyStateRoot(t *testing.T) {
	resolver := newResolver(t)
	block, err := Build(Default(), resolver)
	require.NoError(t, err)
	require.Equal(t, uint64(0), block.Block.Header.Number)
	require.Equal(t, types.EmptyRootHash, block.Block.Header.StateRoot)
	require.NotEqual(t, types.B256{}, block.Hash)
}

func TestBuildCreditsTreasury(t *testing.T) {
	resolver := newResolver(t)
	cfg := Default()
	cfg.Treasury = common.Address{0x01}
	cfg.TreasuryBalance = big.NewInt(1_000_000)

	block, err := Build(cfg, resolver)
	require.NoError(t, err)
	require.NotEqual(t, types.EmptyRootHash, block.Block.Header.StateRoot)

	info, ok, err := resolver.GetAccount(cfg.Treasury)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, cfg.TreasuryBalance.Cmp(info.Balance))
}

func TestBuildCreditsBridgedTokensAndMergesWithTreasury(t *testing.T) {
	resolver := newResolver(t)
	shared := common.Address{0x02}
	cfg := Default()
	cfg.Treasury = shared
	cfg.TreasuryBalance = big.NewInt(100)
	cfg.BridgedTokens = []BridgedToken{{Account: shared, Balance: big.NewInt(50)}}

	_, err := Build(cfg, resolver)
	require.NoError(t, err)

	info, ok, err := resolver.GetAccount(shared)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, big.NewInt(150).Cmp(info.Balance))
}

func TestBuildDefaultsInitialBaseFee(t *testing.T) {
	resolver := newResolver(t)
	block, err := Build(Default(), resolver)
	require.NoError(t, err)
	require.Equal(t, 0, DefaultInitialBaseFee.Cmp(block.Block.Header.BaseFeePerGas))
}
