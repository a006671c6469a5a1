package backtest

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantbt/internal/contracts"
)

func crossSection(day int, scores map[string]float64) []contracts.JoinedObservation {
	rows := make([]contracts.JoinedObservation, 0, len(scores))
	for symbol, s := range scores {
		rows = append(rows, contracts.JoinedObservation{
			Symbol: symbol,
			Date:   d(day),
			Score:  s,
		})
	}
	return rows
}

func bucketSums(positions []contracts.Position) (longSum, shortSum float64, active int) {
	for _, p := range positions {
		switch {
		case p.Weight > 0:
			longSum += p.Weight
			active++
		case p.Weight < 0:
			shortSum += p.Weight
			active++
		}
	}
	return longSum, shortSum, active
}

func TestQuantilePolicy_Validation(t *testing.T) {
	tests := []struct {
		name    string
		longQ   float64
		shortQ  float64
		minN    int
		wantErr bool
	}{
		{name: "defaults", longQ: 0.1, shortQ: 0.1, minN: 0},
		{name: "full quantiles", longQ: 1.0, shortQ: 1.0, minN: 2},
		{name: "long quantile zero", longQ: 0, shortQ: 0.1, minN: 20, wantErr: true},
		{name: "short quantile above one", longQ: 0.1, shortQ: 1.5, minN: 20, wantErr: true},
		{name: "negative min cross-section", longQ: 0.1, shortQ: 0.1, minN: -3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewQuantilePolicy(tt.longQ, tt.shortQ, tt.minN)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "quantile", p.Name())
		})
	}
}

func TestQuantilePolicy_DefaultMinCrossSection(t *testing.T) {
	p, err := NewQuantilePolicy(0.1, 0.1, 0)
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultMinCrossSection), p.Params()["min_cross_section"])
}

func TestQuantilePolicy_DollarNeutralBook(t *testing.T) {
	p, err := NewQuantilePolicy(0.1, 0.1, 20)
	require.NoError(t, err)

	scores := map[string]float64{}
	for i := 0; i < 50; i++ {
		scores[fmt.Sprintf("SYM%02d", i)] = float64(i) * 0.01
	}

	positions := p.Weights(d(2), crossSection(2, scores))
	require.Len(t, positions, 50)

	longSum, shortSum, active := bucketSums(positions)
	assert.InDelta(t, 1.0, longSum, 1e-9, "positive weights must sum to +1")
	assert.InDelta(t, -1.0, shortSum, 1e-9, "negative weights must sum to -1")

	// floor(0.1*50) = 5 per side
	assert.Equal(t, 10, active, "nonzero count must equal k_short+k_long")
}

func TestQuantilePolicy_ThinDaySitsOut(t *testing.T) {
	p, err := NewQuantilePolicy(0.1, 0.1, 20)
	require.NoError(t, err)

	scores := map[string]float64{}
	for i := 0; i < 19; i++ { // one below the threshold
		scores[fmt.Sprintf("SYM%02d", i)] = float64(i)
	}

	positions := p.Weights(d(2), crossSection(2, scores))
	require.Len(t, positions, 19)
	for _, pos := range positions {
		assert.Zero(t, pos.Weight, "thin day must produce an all-zero book")
	}
}

func TestQuantilePolicy_OverlappingBucketsSitOut(t *testing.T) {
	// n=3 with 90% quantiles: kShort=kLong=2, 4 > 3 would overlap.
	p, err := NewQuantilePolicy(0.9, 0.9, 2)
	require.NoError(t, err)

	positions := p.Weights(d(2), crossSection(2, map[string]float64{
		"A": 1.0, "B": 2.0, "C": 3.0,
	}))
	for _, pos := range positions {
		assert.Zero(t, pos.Weight, "overlapping buckets must zero the day, not overlap")
	}
}

func TestQuantilePolicy_ScenarioOneDateThreeSymbols(t *testing.T) {
	p, err := NewQuantilePolicy(0.34, 0.34, 1)
	require.NoError(t, err)

	positions := p.Weights(d(2), crossSection(2, map[string]float64{
		"A": 0.9, "B": 0.1, "C": -0.5,
	}))

	byName := map[string]float64{}
	for _, pos := range positions {
		byName[pos.Symbol] = pos.Weight
	}

	assert.InDelta(t, 1.0, byName["A"], 1e-12)
	assert.InDelta(t, 0.0, byName["B"], 1e-12)
	assert.InDelta(t, -1.0, byName["C"], 1e-12)
}

func TestQuantilePolicy_TiesBrokenBySymbol(t *testing.T) {
	p, err := NewQuantilePolicy(0.34, 0.34, 1)
	require.NoError(t, err)

	// All scores equal: rank order falls back to symbol order.
	rows := crossSection(2, map[string]float64{"A": 0.5, "B": 0.5, "C": 0.5})

	first := p.Weights(d(2), rows)
	for i := 0; i < 10; i++ {
		again := p.Weights(d(2), rows)
		assert.Equal(t, first, again, "tie handling must be reproducible")
	}

	byName := map[string]float64{}
	for _, pos := range first {
		byName[pos.Symbol] = pos.Weight
	}
	assert.InDelta(t, -1.0, byName["A"], 1e-12, "lowest rank by symbol shorts")
	assert.InDelta(t, 1.0, byName["C"], 1e-12, "highest rank by symbol longs")
}

func TestQuantilePolicy_DoesNotMutateInput(t *testing.T) {
	p, err := NewQuantilePolicy(0.34, 0.34, 1)
	require.NoError(t, err)

	rows := []contracts.JoinedObservation{
		{Symbol: "B", Date: d(2), Score: 0.2},
		{Symbol: "A", Date: d(2), Score: 0.9},
		{Symbol: "C", Date: d(2), Score: -0.5},
	}
	p.Weights(d(2), rows)

	assert.Equal(t, "B", rows[0].Symbol, "input cross-section must not be reordered")
	assert.Equal(t, "A", rows[1].Symbol)
}

func TestQuantilePolicy_AggregateSums(t *testing.T) {
	p, err := NewQuantilePolicy(0.1, 0.1, 20)
	require.NoError(t, err)

	assert.InDelta(t, 0.03, p.Aggregate([]float64{0.01, 0.04, -0.02}), 1e-12)
	assert.Zero(t, p.Aggregate(nil))
}

func TestSignPolicy_WeightsAreExactSigns(t *testing.T) {
	p := NewSignPolicy()

	rows := crossSection(2, map[string]float64{
		"A": 0.9, "B": 0.0, "C": -0.5, "D": 1e-9, "E": -1e-9,
	})
	positions := p.Weights(d(2), rows)

	byName := map[string]float64{}
	for _, pos := range positions {
		byName[pos.Symbol] = pos.Weight
		assert.Contains(t, []float64{-1, 0, 1}, pos.Weight)
	}

	assert.Equal(t, 1.0, byName["A"])
	assert.Equal(t, 0.0, byName["B"])
	assert.Equal(t, -1.0, byName["C"])
	assert.Equal(t, 1.0, byName["D"])
	assert.Equal(t, -1.0, byName["E"])
}

func TestSignPolicy_GrossExposureScalesWithActiveCount(t *testing.T) {
	p := NewSignPolicy()

	positions := p.Weights(d(2), crossSection(2, map[string]float64{
		"A": 1, "B": 2, "C": -3, "D": 0,
	}))

	book := &contracts.DailyBook{Date: d(2), Positions: positions}
	assert.InDelta(t, 3.0, book.GrossExposure(), 1e-12)
}

func TestSignPolicy_AggregateMeans(t *testing.T) {
	p := NewSignPolicy()

	assert.InDelta(t, 0.01, p.Aggregate([]float64{0.02, 0.0}), 1e-12)
	assert.Zero(t, p.Aggregate(nil), "empty day aggregates to zero")
	assert.Nil(t, p.Params())
}

func TestPolicies_NoNaNWeightsOnDefinedScores(t *testing.T) {
	q, err := NewQuantilePolicy(0.5, 0.5, 2)
	require.NoError(t, err)

	for _, p := range []Policy{q, NewSignPolicy()} {
		positions := p.Weights(d(2), crossSection(2, map[string]float64{
			"A": 1, "B": -1, "C": 0, "D": 2,
		}))
		for _, pos := range positions {
			assert.False(t, math.IsNaN(pos.Weight), "%s produced NaN weight", p.Name())
		}
	}
}
