package backtest

import "math"

// CostAccountant converts position changes into return-unit costs.
// It tracks each symbol's previous weight, defaulting to 0 on a
// symbol's first appearance, and charges a linear, direction-symmetric
// fee on every unit of gross weight moved.
//
// Steps must be fed in date-ascending order; within a date the order of
// symbols does not matter.
type CostAccountant struct {
	feeRate     float64
	prevWeights map[string]float64
}

// NewCostAccountant creates an accountant for the given fee in basis
// points (fee_rate = feeBps / 10000).
func NewCostAccountant(feeBps float64) *CostAccountant {
	return &CostAccountant{
		feeRate:     feeBps / 10000.0,
		prevWeights: make(map[string]float64),
	}
}

// Step advances symbol to weight and returns the weight it held before,
// the turnover |weight - prev| and the fee charged on it.
func (c *CostAccountant) Step(symbol string, weight float64) (prev, turnover, cost float64) {
	prev = c.prevWeights[symbol]
	turnover = math.Abs(weight - prev)
	cost = c.feeRate * turnover
	c.prevWeights[symbol] = weight
	return prev, turnover, cost
}

// FeeRate returns the per-unit-turnover fee.
func (c *CostAccountant) FeeRate() float64 {
	return c.feeRate
}
