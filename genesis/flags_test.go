package genesis

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func buildConfig(t *testing.T, args []string) Config {
	t.Helper()
	fs := BuildFlagSet()
	v, err := BuildViper(fs, args)
	require.NoError(t, err)
	cfg, err := BuildConfig(v)
	require.NoError(t, err)
	return cfg
}

func TestBuildConfigDefaults(t *testing.T) {
	cfg := buildConfig(t, nil)
	require.Equal(t, uint64(DefaultChainID), cfg.ChainID)
	require.Nil(t, cfg.TreasuryBalance)
	require.Empty(t, cfg.BridgedTokens)
}

func TestBuildConfigParsesTreasuryAndBalance(t *testing.T) {
	cfg := buildConfig(t, []string{
		"--treasury=0x0100000000000000000000000000000000000000",
		"--treasury-balance=123456",
		"--chain-id=9999",
	})
	require.Equal(t, uint64(9999), cfg.ChainID)
	require.Equal(t, common.HexToAddress("0x0100000000000000000000000000000000000000"), cfg.Treasury)
	require.Equal(t, 0, cfg.TreasuryBalance.Cmp(big.NewInt(123456)))
}

func TestBuildConfigParsesBridgedTokens(t *testing.T) {
	cfg := buildConfig(t, []string{
		"--bridged-tokens=0x0200000000000000000000000000000000000000:10,0x0300000000000000000000000000000000000000:20",
	})
	require.Len(t, cfg.BridgedTokens, 2)
	require.Equal(t, common.HexToAddress("0x0200000000000000000000000000000000000000"), cfg.BridgedTokens[0].Account)
	require.Equal(t, 0, cfg.BridgedTokens[1].Balance.Cmp(big.NewInt(20)))
}

func TestBuildConfigRejectsInvalidTreasuryAddress(t *testing.T) {
	_, err := BuildConfig(mustViper(t, []string{"--treasury=not-an-address"}))
	require.Error(t, err)
}

func mustViper(t *testing.T, args []string) *viper.Viper {
	t.Helper()
	fs := BuildFlagSet()
	v, err := BuildViper(fs, args)
	require.NoError(t, err)
	return v
}
