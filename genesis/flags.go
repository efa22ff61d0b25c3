package genesis

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag keys, exported so cmd/hybridvm can reference them without
// duplicating the strings.
const (
	ChainIDKey         = "chain-id"
	TimestampKey       = "timestamp"
	GasLimitKey        = "gas-limit"
	ElasticityKey      = "elasticity-multiplier"
	BaseFeeDenomKey    = "base-fee-max-change-denominator"
	InitialBaseFeeKey  = "initial-base-fee"
	TreasuryKey        = "treasury"
	TreasuryBalanceKey = "treasury-balance"
	L2ContractsPathKey = "l2-contracts-path"
	BridgedTokensKey   = "bridged-tokens"
	ConfigFileKey      = "config-file"
)

// BuildFlagSet declares every CLI flag genesis configuration accepts,
// mirroring the cmd/simulator convention of a single flat flag set handed
// to viper for CLI > env > file > default layering.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("genesis", pflag.ContinueOnError)
	def := Default()

	fs.Uint64(ChainIDKey, def.ChainID, "chain id")
	fs.Uint64(TimestampKey, def.Timestamp, "genesis block timestamp")
	fs.Uint64(GasLimitKey, def.GasLimit, "genesis block gas limit")
	fs.Uint64(ElasticityKey, def.ElasticityMultiplier, "EIP-1559 elasticity multiplier")
	fs.Uint64(BaseFeeDenomKey, def.BaseFeeMaxChangeDenominator, "EIP-1559 base fee max change denominator")
	fs.String(InitialBaseFeeKey, DefaultInitialBaseFee.String(), "genesis base fee, in wei")
	fs.String(TreasuryKey, "", "treasury account address (0x-prefixed)")
	fs.String(TreasuryBalanceKey, "", "treasury initial balance, in wei (empty: no initial balance)")
	fs.String(L2ContractsPathKey, "", "path to the L2 contract genesis file")
	fs.StringSlice(BridgedTokensKey, nil, "bridged token balances, each as address:balance-in-wei")
	fs.String(ConfigFileKey, "", "path to a TOML/YAML genesis config file")

	return fs
}

// BuildViper binds fs to a fresh viper instance, parses args against it,
// and layers in GENESIS_-prefixed environment variables and an optional
// config file named by --config-file.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("GENESIS")
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if path := v.GetString(ConfigFileKey); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("genesis: reading config file: %w", err)
		}
	}
	return v, nil
}

// BuildConfig turns the layered viper values into a Config, validating and
// parsing the string-encoded fields (addresses, big.Int amounts,
// bridged-token pairs) the flag set can't represent natively.
func BuildConfig(v *viper.Viper) (Config, error) {
	cfg := Default()
	cfg.ChainID = v.GetUint64(ChainIDKey)
	cfg.Timestamp = v.GetUint64(TimestampKey)
	cfg.GasLimit = v.GetUint64(GasLimitKey)
	cfg.ElasticityMultiplier = v.GetUint64(ElasticityKey)
	cfg.BaseFeeMaxChangeDenominator = v.GetUint64(BaseFeeDenomKey)
	cfg.L2ContractsPath = v.GetString(L2ContractsPathKey)

	if raw := v.GetString(InitialBaseFeeKey); raw != "" {
		baseFee, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return Config{}, fmt.Errorf("genesis: invalid %s %q", InitialBaseFeeKey, raw)
		}
		cfg.InitialBaseFee = baseFee
	}

	if raw := v.GetString(TreasuryKey); raw != "" {
		if !common.IsHexAddress(raw) {
			return Config{}, fmt.Errorf("genesis: invalid %s %q", TreasuryKey, raw)
		}
		cfg.Treasury = common.HexToAddress(raw)
	}

	if raw := v.GetString(TreasuryBalanceKey); raw != "" {
		balance, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return Config{}, fmt.Errorf("genesis: invalid %s %q", TreasuryBalanceKey, raw)
		}
		cfg.TreasuryBalance = balance
	}

	for _, entry := range v.GetStringSlice(BridgedTokensKey) {
		token, err := parseBridgedToken(entry)
		if err != nil {
			return Config{}, err
		}
		cfg.BridgedTokens = append(cfg.BridgedTokens, token)
	}

	return cfg, nil
}

func parseBridgedToken(entry string) (BridgedToken, error) {
	parts := strings.SplitN(entry, ":", 2)
	if len(parts) != 2 {
		return BridgedToken{}, fmt.Errorf("genesis: invalid %s entry %q, want address:balance", BridgedTokensKey, entry)
	}
	address, balance := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if !common.IsHexAddress(address) {
		return BridgedToken{}, fmt.Errorf("genesis: invalid bridged token address %q", address)
	}
	amount, ok := new(big.Int).SetString(balance, 10)
	if !ok {
		return BridgedToken{}, fmt.Errorf("genesis: invalid bridged token balance %q", balance)
	}
	return BridgedToken{Account: common.HexToAddress(address), Balance: amount}, nil
}
