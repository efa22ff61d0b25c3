package genesis

import (
	"math/big"

	"github.com/luxfi/hybridvm/state"
	"github.com/luxfi/hybridvm/types"
)

// Build seeds the treasury and any bridged-token balances into a fresh
// resolver and returns the sealed height-0 block ready for
// actor.GenesisUpdate. resolver must be opened over an empty store (§4.10:
// GenesisUpdate is only permitted once, before any other block exists).
func Build(cfg Config, resolver *state.Resolver) (*types.ExtendedBlock, error) {
	if cfg.TreasuryBalance != nil {
		if err := creditBalance(resolver, cfg.Treasury, cfg.TreasuryBalance); err != nil {
			return nil, err
		}
	}
	for _, bt := range cfg.BridgedTokens {
		if err := creditBalance(resolver, bt.Account, bt.Balance); err != nil {
			return nil, err
		}
	}

	root, err := resolver.Root()
	if err != nil {
		return nil, err
	}

	baseFee := cfg.InitialBaseFee
	if baseFee == nil {
		baseFee = DefaultInitialBaseFee
	}

	header := types.Header{
		Number:           0,
		Timestamp:        cfg.Timestamp,
		StateRoot:        root,
		ReceiptsRoot:     types.EmptyRootHash,
		TransactionsRoot: types.EmptyRootHash,
		GasLimit:         cfg.GasLimit,
		BaseFeePerGas:    baseFee,
	}

	block := types.Block{Header: header}
	return &types.ExtendedBlock{Block: block, Hash: header.Hash()}, nil
}

// creditBalance adds amount to addr's genesis balance, merging with any
// prior credit to the same address (treasury and a bridged-token entry may
// name the same account).
func creditBalance(resolver *state.Resolver, addr types.Address, amount *big.Int) error {
	info, _, err := resolver.GetAccount(addr)
	if err != nil {
		return err
	}
	info.Balance = new(big.Int).Add(info.Balance, amount)
	return resolver.PutAccount(addr, info)
}
