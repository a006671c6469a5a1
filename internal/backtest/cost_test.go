package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCostAccountant_FirstAppearanceDefaultsToZero(t *testing.T) {
	acct := NewCostAccountant(10) // 10 bps

	prev, turnover, cost := acct.Step("AAPL", 0.5)

	assert.Zero(t, prev, "prior weight defaults to 0 on first appearance")
	assert.InDelta(t, 0.5, turnover, 1e-12, "first-day turnover equals |weight|")
	assert.InDelta(t, 0.001*0.5, cost, 1e-12)
}

func TestCostAccountant_TurnoverBetweenConsecutiveDays(t *testing.T) {
	acct := NewCostAccountant(10)

	acct.Step("AAPL", 1.0)

	// Unchanged weight: no turnover, no cost (scenario: fee_bps=10,
	// turnover=0, pnl_sym = prev*ret).
	prev, turnover, cost := acct.Step("AAPL", 1.0)
	assert.InDelta(t, 1.0, prev, 1e-12)
	assert.Zero(t, turnover)
	assert.Zero(t, cost)

	// Flip long to short: turnover is the full gross change.
	prev, turnover, cost = acct.Step("AAPL", -1.0)
	assert.InDelta(t, 1.0, prev, 1e-12)
	assert.InDelta(t, 2.0, turnover, 1e-12)
	assert.InDelta(t, 0.002, cost, 1e-12)
}

func TestCostAccountant_SymbolsAreIndependent(t *testing.T) {
	acct := NewCostAccountant(10)

	acct.Step("AAPL", 1.0)
	prev, turnover, _ := acct.Step("MSFT", -0.25)

	assert.Zero(t, prev, "previous weight is never inherited from unrelated symbols")
	assert.InDelta(t, 0.25, turnover, 1e-12)
}

func TestCostAccountant_TurnoverNonNegative(t *testing.T) {
	acct := NewCostAccountant(25)

	weights := []float64{0.5, -0.5, 0, 1, 1, -0.1}
	for _, w := range weights {
		_, turnover, cost := acct.Step("AAPL", w)
		assert.GreaterOrEqual(t, turnover, 0.0)
		assert.GreaterOrEqual(t, cost, 0.0)
	}
}

func TestCostAccountant_FeeRate(t *testing.T) {
	assert.InDelta(t, 0.001, NewCostAccountant(10).FeeRate(), 1e-15)
	assert.Zero(t, NewCostAccountant(0).FeeRate())
}
