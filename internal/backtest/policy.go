package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/quantbt/internal/contracts"
)

// Policy maps one date's cross-section of joined observations to signed
// position weights, and defines how that date's per-symbol pnls collapse
// into a single portfolio return.
//
// Policies are pure per-date functions with no cross-date state, so the
// engine may evaluate dates in any order.
type Policy interface {
	Name() string
	// Params is echoed into Metrics for auditability.
	Params() map[string]float64
	// Weights assigns a weight to every symbol in the cross-section.
	Weights(date time.Time, crossSection []contracts.JoinedObservation) []contracts.Position
	// Aggregate collapses one date's per-symbol pnls into the portfolio pnl.
	Aggregate(pnls []float64) float64
}

// QuantilePolicy longs the top score fraction and shorts the bottom
// score fraction of a ranked cross-section, equal-weighted within each
// bucket and dollar-neutral across them: positive weights sum to +1 and
// negative weights to -1 on every traded date.
type QuantilePolicy struct {
	longQuantile    float64
	shortQuantile   float64
	minCrossSection int
}

// DefaultMinCrossSection is the minimum cross-section size below which
// a quantile book sits out the day.
const DefaultMinCrossSection = 20

// NewQuantilePolicy creates a quantile long/short policy. Quantiles
// must lie in (0, 1]; minCrossSection of 0 takes the default.
func NewQuantilePolicy(longQ, shortQ float64, minCrossSection int) (*QuantilePolicy, error) {
	if longQ <= 0 || longQ > 1 {
		return nil, fmt.Errorf("long quantile must be in (0, 1], got %v", longQ)
	}
	if shortQ <= 0 || shortQ > 1 {
		return nil, fmt.Errorf("short quantile must be in (0, 1], got %v", shortQ)
	}
	if minCrossSection == 0 {
		minCrossSection = DefaultMinCrossSection
	}
	if minCrossSection < 1 {
		return nil, fmt.Errorf("min cross-section must be >= 1, got %d", minCrossSection)
	}

	return &QuantilePolicy{
		longQuantile:    longQ,
		shortQuantile:   shortQ,
		minCrossSection: minCrossSection,
	}, nil
}

func (p *QuantilePolicy) Name() string { return "quantile" }

func (p *QuantilePolicy) Params() map[string]float64 {
	return map[string]float64{
		"long_quantile":     p.longQuantile,
		"short_quantile":    p.shortQuantile,
		"min_cross_section": float64(p.minCrossSection),
	}
}

// Weights builds the date's book. Two kinds of days sit out with an
// all-zero book rather than trade an unstable selection:
//   - thin days, n < minCrossSection
//   - days where the long and short buckets would overlap,
//     kShort+kLong > n (small n with large quantiles)
//
// Ties on score are broken by symbol so reruns are bit-identical.
func (p *QuantilePolicy) Weights(date time.Time, crossSection []contracts.JoinedObservation) []contracts.Position {
	n := len(crossSection)

	ranked := make([]contracts.JoinedObservation, n)
	copy(ranked, crossSection)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	positions := make([]contracts.Position, n)
	for i, obs := range ranked {
		positions[i] = contracts.Position{Symbol: obs.Symbol, Date: date}
	}

	if n < p.minCrossSection {
		return positions
	}

	kShort := max(1, int(p.shortQuantile*float64(n)))
	kLong := max(1, int(p.longQuantile*float64(n)))
	if kShort+kLong > n {
		return positions
	}

	for i := 0; i < kShort; i++ {
		positions[i].Weight = -1.0 / float64(kShort)
	}
	for i := n - kLong; i < n; i++ {
		positions[i].Weight = 1.0 / float64(kLong)
	}

	return positions
}

// Aggregate sums per-symbol pnls: quantile weights already form a
// normalized +-1 book.
func (p *QuantilePolicy) Aggregate(pnls []float64) float64 {
	total := 0.0
	for _, v := range pnls {
		total += v
	}
	return total
}

// SignPolicy sets weight = sign(score) per symbol, independently of the
// rest of the cross-section. Gross exposure is deliberately not
// normalized; it scales with the count of nonzero-score symbols.
type SignPolicy struct{}

// NewSignPolicy creates a sign policy.
func NewSignPolicy() *SignPolicy { return &SignPolicy{} }

func (p *SignPolicy) Name() string { return "sign" }

func (p *SignPolicy) Params() map[string]float64 { return nil }

// Weights maps each score to -1, 0 or +1.
func (p *SignPolicy) Weights(date time.Time, crossSection []contracts.JoinedObservation) []contracts.Position {
	positions := make([]contracts.Position, len(crossSection))
	for i, obs := range crossSection {
		w := 0.0
		switch {
		case obs.Score > 0:
			w = 1.0
		case obs.Score < 0:
			w = -1.0
		}
		positions[i] = contracts.Position{Symbol: obs.Symbol, Date: date, Weight: w}
	}
	return positions
}

// Aggregate averages per-symbol pnls over the symbols present in the
// day's cross-section, since the sign book carries no normalization.
func (p *SignPolicy) Aggregate(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range pnls {
		total += v
	}
	return total / float64(len(pnls))
}
