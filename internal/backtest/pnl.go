package backtest

import (
	"time"

	"github.com/wonny/quantbt/internal/contracts"
)

// tradingDay is one date's cross-section with the book the policy
// assigned to it. Rows and positions cover the same symbol set.
type tradingDay struct {
	date time.Time
	rows []contracts.JoinedObservation
	book []contracts.Position
}

// PnLAggregator books per-symbol daily pnl and compounds the equity
// curve. A position earns the return of the bar it was held through:
// pnl uses the PRIOR day's weight, so the same-day score can never
// trade the same-day return.
type PnLAggregator struct {
	policy Policy
	acct   *CostAccountant
}

// NewPnLAggregator creates an aggregator bound to a policy and a cost
// accountant.
func NewPnLAggregator(policy Policy, acct *CostAccountant) *PnLAggregator {
	return &PnLAggregator{policy: policy, acct: acct}
}

// Run folds the days, which must be in strict date-ascending order,
// into the output series. Equity compounds multiplicatively from a base
// of 1.0; missing dates are absent points, never zero-return days.
func (a *PnLAggregator) Run(days []tradingDay) []contracts.DailyPnL {
	daily := make([]contracts.DailyPnL, 0, len(days))
	equity := 1.0

	for _, day := range days {
		weights := make(map[string]float64, len(day.book))
		for _, pos := range day.book {
			weights[pos.Symbol] = pos.Weight
		}

		pnls := make([]float64, 0, len(day.rows))
		for _, row := range day.rows {
			prev, _, cost := a.acct.Step(row.Symbol, weights[row.Symbol])
			pnls = append(pnls, prev*row.Return-cost)
		}

		pnl := a.policy.Aggregate(pnls)
		equity *= 1.0 + pnl

		daily = append(daily, contracts.DailyPnL{
			Date:   day.date,
			PnL:    pnl,
			Equity: equity,
		})
	}

	return daily
}
