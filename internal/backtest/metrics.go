package backtest

import (
	"math"

	"github.com/wonny/quantbt/internal/contracts"
)

// tradingDaysPerYear annualizes daily statistics.
const tradingDaysPerYear = 252

// Summarize computes the risk metrics for a daily series. Statistics
// whose preconditions fail resolve to NaN, never to a panic:
//   - VolDaily needs at least 2 observations (sample stddev, N-1)
//   - Sharpe252 additionally needs nonzero volatility
//   - MaxDrawdown needs a nonempty series
func Summarize(daily []contracts.DailyPnL, feeBps float64, policy Policy) contracts.Metrics {
	m := contracts.Metrics{
		NDays:        len(daily),
		MeanDaily:    math.NaN(),
		VolDaily:     math.NaN(),
		Sharpe252:    math.NaN(),
		MaxDrawdown:  math.NaN(),
		FeeBps:       feeBps,
		Policy:       policy.Name(),
		PolicyParams: policy.Params(),
	}

	if len(daily) == 0 {
		return m
	}

	mean := 0.0
	for _, d := range daily {
		mean += d.PnL
	}
	mean /= float64(len(daily))
	m.MeanDaily = mean

	if len(daily) > 1 {
		variance := 0.0
		for _, d := range daily {
			diff := d.PnL - mean
			variance += diff * diff
		}
		variance /= float64(len(daily) - 1)
		m.VolDaily = math.Sqrt(variance)

		if m.VolDaily > 0 {
			m.Sharpe252 = mean / m.VolDaily * math.Sqrt(tradingDaysPerYear)
		}
	}

	m.MaxDrawdown = maxDrawdown(daily)

	return m
}

// maxDrawdown is the worst decline of equity from its running peak,
// expressed as a non-positive fraction. Zero iff equity never falls
// below a previous peak.
func maxDrawdown(daily []contracts.DailyPnL) float64 {
	worst := 0.0
	peak := daily[0].Equity

	for _, d := range daily {
		if d.Equity > peak {
			peak = d.Equity
		}
		if dd := d.Equity/peak - 1.0; dd < worst {
			worst = dd
		}
	}

	return worst
}
