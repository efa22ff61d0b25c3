package gas

import (
	"math/big"
	"testing"
)

func TestEstimateGasFloor(t *testing.T) {
	if got := EstimateGas(10_000); got != MinimumGas {
		t.Fatalf("expected floor %d, got %d", MinimumGas, got)
	}
	if got := EstimateGas(50_000); got != 50_000 {
		t.Fatalf("expected 50000, got %d", got)
	}
}

func TestGasPriceIsBaseFeePlusTip(t *testing.T) {
	got := GasPrice(big.NewInt(1_000_000_000))
	want := big.NewInt(1_001_000_000)
	if got.Cmp(want) != 0 {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestNextBaseFeeUnchangedAtTarget(t *testing.T) {
	c := DefaultConfig()
	parentBaseFee := big.NewInt(1_000_000_000)
	next := c.NextBaseFee(parentBaseFee, 15_000_000, 30_000_000) // target = limit/2
	if next.Cmp(parentBaseFee) != 0 {
		t.Fatalf("expected unchanged base fee, got %s", next)
	}
}

func TestNextBaseFeeIncreasesWhenAboveTarget(t *testing.T) {
	c := DefaultConfig()
	parentBaseFee := big.NewInt(1_000_000_000)
	next := c.NextBaseFee(parentBaseFee, 30_000_000, 30_000_000) // fully used, above target
	if next.Cmp(parentBaseFee) <= 0 {
		t.Fatalf("expected increase, got %s from %s", next, parentBaseFee)
	}
}

func TestNextBaseFeeDecreasesWhenBelowTarget(t *testing.T) {
	c := DefaultConfig()
	parentBaseFee := big.NewInt(1_000_000_000)
	next := c.NextBaseFee(parentBaseFee, 0, 30_000_000)
	if next.Cmp(parentBaseFee) >= 0 {
		t.Fatalf("expected decrease, got %s from %s", next, parentBaseFee)
	}
}

func TestL1FeeZeroWhenNoL1BaseFee(t *testing.T) {
	p := L1FeeParams{}
	if got := p.L1Fee([]byte{1, 2, 3}); got.Sign() != 0 {
		t.Fatalf("expected zero fee, got %s", got)
	}
}

func TestL1FeePositiveForNonEmptyData(t *testing.T) {
	p := L1FeeParams{L1BaseFee: big.NewInt(1_000_000_000), BaseFeeScalar: 1}
	if got := p.L1Fee([]byte{1, 2, 3, 0, 0}); got.Sign() <= 0 {
		t.Fatalf("expected positive fee, got %s", got)
	}
}

func TestL2FeeProportionalToGasUsed(t *testing.T) {
	got := L2Fee(21_000, big.NewInt(1_000_000_000))
	want := new(big.Int).Mul(big.NewInt(21_000), big.NewInt(1_000_000_000))
	if got.Cmp(want) != 0 {
		t.Fatalf("got %s want %s", got, want)
	}
}
