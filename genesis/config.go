// Package genesis builds the chain's initial state and block, and loads
// the configuration that shapes it (§6 "Genesis"): chain id, base fee
// constants, the treasury account, the L2 contract genesis file, and any
// bridged tokens to pre-fund, layered CLI > env > file > defaults via
// viper/pflag, matching the teacher's own cmd/simulator flag-then-viper
// pattern.
package genesis

import (
	"math/big"

	"github.com/luxfi/hybridvm/execution/gas"
	"github.com/luxfi/hybridvm/types"
)

// DefaultInitialBaseFee is the base fee recorded in the genesis header when
// Config.InitialBaseFee is left nil, matching mainnet Ethereum's post-London
// genesis convention of 1 gwei.
var DefaultInitialBaseFee = big.NewInt(1_000_000_000)

// DefaultChainID is this chain's default chain id (§6).
const DefaultChainID = 404

// BridgedToken is one pre-funded bridged-token balance credited at genesis
// (§6: "optional bridged-token list").
type BridgedToken struct {
	Account types.Address
	Balance *big.Int
}

// Config names every genesis field §6 lists.
type Config struct {
	ChainID                     uint64
	ElasticityMultiplier        uint64
	BaseFeeMaxChangeDenominator uint64
	Treasury                    types.Address
	TreasuryBalance             *big.Int // nil: treasury receives no initial balance
	L2ContractsPath             string
	BridgedTokens               []BridgedToken
	Timestamp                   uint64
	GasLimit                    uint64
	InitialBaseFee              *big.Int
}

// Default returns the configuration used when no flag, env var, or config
// file overrides a field.
func Default() Config {
	d := gas.DefaultConfig()
	return Config{
		ChainID:                     DefaultChainID,
		ElasticityMultiplier:        d.ElasticityMultiplier,
		BaseFeeMaxChangeDenominator: d.BaseFeeMaxChangeDenominator,
		GasLimit:                    30_000_000,
	}
}

// GasConfig projects the EIP-1559 tunables into the gas package's Config.
func (c Config) GasConfig() gas.Config {
	return gas.Config{ElasticityMultiplier: c.ElasticityMultiplier, BaseFeeMaxChangeDenominator: c.BaseFeeMaxChangeDenominator}
}
