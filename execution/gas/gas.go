// Package gas implements the gas market: EIP-1559 base fee adjustment with
// configurable elasticity and max-change denominator, an Ecotone-style L1
// fee for canonical transactions, a proportional L2 fee, and the constants
// backing the eth_gasPrice / eth_maxPriorityFeePerGas / eth_estimateGas RPC
// methods (§4.7).
package gas

import "math/big"

// MinimumGas is the floor eth_estimateGas never returns below, and the
// intrinsic cost of the simplest possible transaction (§4.7, §8).
const MinimumGas uint64 = 21_000

// MaxPriorityFeePerGas is the constant suggested tip returned by
// eth_maxPriorityFeePerGas (§4.7).
const MaxPriorityFeePerGas uint64 = 1_000_000

// Config names the tunable EIP-1559 parameters (§4.7): "base fee follows
// EIP-1559 with configured elasticity multiplier and max-change
// denominator" — unlike go-ethereum's fixed 8/2 constants, both are
// configuration here.
type Config struct {
	ElasticityMultiplier uint64
	BaseFeeMaxChangeDenominator uint64
}

// DefaultConfig matches mainnet Ethereum's EIP-1559 parameters.
func DefaultConfig() Config {
	return Config{ElasticityMultiplier: 2, BaseFeeMaxChangeDenominator: 8}
}

// NextBaseFee computes the next block's base fee from the parent's base
// fee, gas used, and gas limit, following EIP-1559's adjustment rule:
//
//	target = parent_gas_limit / elasticity_multiplier
//	if parent_gas_used == target: base_fee unchanged
//	if parent_gas_used > target:  base_fee increases, capped at 1/8 (or
//	                              1/denominator) of the prior base fee
//	if parent_gas_used < target:  base_fee decreases by the same bound
func (c Config) NextBaseFee(parentBaseFee *big.Int, parentGasUsed, parentGasLimit uint64) *big.Int {
	if parentBaseFee == nil {
		return big.NewInt(0)
	}
	elasticity := c.ElasticityMultiplier
	if elasticity == 0 {
		elasticity = 2
	}
	denom := c.BaseFeeMaxChangeDenominator
	if denom == 0 {
		denom = 8
	}
	target := parentGasLimit / elasticity
	if parentGasUsed == target {
		return new(big.Int).Set(parentBaseFee)
	}

	parentBaseFeeBig := new(big.Int).Set(parentBaseFee)
	if parentGasUsed > target {
		gasUsedDelta := new(big.Int).SetUint64(parentGasUsed - target)
		x := new(big.Int).Mul(parentBaseFeeBig, gasUsedDelta)
		y := x.Div(x, new(big.Int).SetUint64(target))
		baseFeeDelta := x.Div(y, new(big.Int).SetUint64(denom))
		if baseFeeDelta.Sign() == 0 {
			baseFeeDelta = big.NewInt(1)
		}
		return new(big.Int).Add(parentBaseFeeBig, baseFeeDelta)
	}

	gasUsedDelta := new(big.Int).SetUint64(target - parentGasUsed)
	x := new(big.Int).Mul(parentBaseFeeBig, gasUsedDelta)
	y := x.Div(x, new(big.Int).SetUint64(target))
	baseFeeDelta := y.Div(y, new(big.Int).SetUint64(denom))
	next := new(big.Int).Sub(parentBaseFeeBig, baseFeeDelta)
	if next.Sign() < 0 {
		return big.NewInt(0)
	}
	return next
}

// EstimateGas returns max(executionGasUsed, MinimumGas) (§4.7, §8).
func EstimateGas(executionGasUsed uint64) uint64 {
	if executionGasUsed < MinimumGas {
		return MinimumGas
	}
	return executionGasUsed
}

// GasPrice returns baseFee + MaxPriorityFeePerGas, the suggested gas price
// for eth_gasPrice (§4.7).
func GasPrice(baseFee *big.Int) *big.Int {
	tip := new(big.Int).SetUint64(MaxPriorityFeePerGas)
	if baseFee == nil {
		return tip
	}
	return new(big.Int).Add(baseFee, tip)
}

// L1FeeParams are the Ecotone-style scalars applied to a canonical
// transaction's L1 data cost (§4.7). Grounded on the OP-stack Ecotone
// formula: fee = (base_fee_scalar*l1_base_fee*16 + blob_fee_scalar*l1_blob_base_fee)*gas/16/1e6.
type L1FeeParams struct {
	L1BaseFee        *big.Int
	L1BlobBaseFee    *big.Int
	BaseFeeScalar    uint64
	BlobFeeScalar    uint64
}

// l1GasUsed is a fixed per-byte estimate of a transaction's L1 data
// footprint: 16 gas per non-zero byte, 4 per zero byte, the standard
// Ethereum calldata pricing this formula reuses for L1 fee estimation.
func l1GasUsed(data []byte) uint64 {
	var gas uint64
	for _, b := range data {
		if b == 0 {
			gas += 4
		} else {
			gas += 16
		}
	}
	return gas
}

// L1Fee computes the Ecotone-style L1 data fee for a canonical transaction
// carrying txData (§4.7). Deposited transactions never pay an L1 fee.
func (p L1FeeParams) L1Fee(txData []byte) *big.Int {
	if p.L1BaseFee == nil {
		return big.NewInt(0)
	}
	gasUsed := new(big.Int).SetUint64(l1GasUsed(txData))
	weighted := new(big.Int).Mul(p.L1BaseFee, big.NewInt(int64(p.BaseFeeScalar)))
	weighted.Mul(weighted, big.NewInt(16))
	if p.L1BlobBaseFee != nil && p.BlobFeeScalar != 0 {
		blobTerm := new(big.Int).Mul(p.L1BlobBaseFee, big.NewInt(int64(p.BlobFeeScalar)))
		weighted.Add(weighted, blobTerm)
	}
	weighted.Mul(weighted, gasUsed)
	weighted.Div(weighted, big.NewInt(16))
	return weighted.Div(weighted, big.NewInt(1_000_000))
}

// L2Fee is proportional to gas used at the L2 gas price (§4.7).
func L2Fee(gasUsed uint64, l2GasPrice *big.Int) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), l2GasPrice)
}
