package backtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantbt/internal/contracts"
	"github.com/wonny/quantbt/pkg/logger"
)

func TestEngine_RunSignPolicyEndToEnd(t *testing.T) {
	engine := NewEngine(NewSignPolicy(), 10, logger.NewNop())

	scores := []contracts.ScoreObservation{
		score("A", 2, 1.0),
		score("A", 3, 1.0),
	}
	bars := []contracts.Bar{
		bar("A", 1, 100),
		bar("A", 2, 102),    // +2%
		bar("A", 3, 104.04), // +2%
	}

	result, err := engine.Run(context.Background(), scores, bars)
	require.NoError(t, err)
	require.Len(t, result.Daily, 2)

	// Day 2: entry day. Prior weight 0, entry fee on turnover 1.
	assert.InDelta(t, -0.001, result.Daily[0].PnL, 1e-12)
	assert.InDelta(t, 0.999, result.Daily[0].Equity, 1e-12)

	// Day 3: held through the bar, no rebalance.
	assert.InDelta(t, 0.02, result.Daily[1].PnL, 1e-12)
	assert.InDelta(t, 0.999*1.02, result.Daily[1].Equity, 1e-12)

	assert.Equal(t, 2, result.Metrics.NDays)
	assert.Equal(t, "sign", result.Metrics.Policy)
	assert.Equal(t, 10.0, result.Metrics.FeeBps)
}

func TestEngine_QuantileThinDaysProduceZeroBook(t *testing.T) {
	p, err := NewQuantilePolicy(0.1, 0.1, 20)
	require.NoError(t, err)
	engine := NewEngine(p, 10, logger.NewNop())

	// Two symbols only: every day is below the 20-name threshold.
	scores := []contracts.ScoreObservation{
		score("A", 2, 0.9), score("B", 2, -0.9),
		score("A", 3, 0.9), score("B", 3, -0.9),
	}
	bars := []contracts.Bar{
		bar("A", 1, 100), bar("B", 1, 50),
		bar("A", 2, 110), bar("B", 2, 45),
		bar("A", 3, 120), bar("B", 3, 40),
	}

	result, err := engine.Run(context.Background(), scores, bars)
	require.NoError(t, err)
	require.Len(t, result.Daily, 2)

	for _, book := range result.Books {
		assert.Zero(t, book.ActiveCount(), "thin day must sit out")
	}
	for _, p := range result.Daily {
		assert.Zero(t, p.PnL)
		assert.InDelta(t, 1.0, p.Equity, 1e-12)
	}
}

func TestEngine_QuantileBookIsDollarNeutral(t *testing.T) {
	p, err := NewQuantilePolicy(0.25, 0.25, 4)
	require.NoError(t, err)
	engine := NewEngine(p, 10, logger.NewNop())

	scores, bars := syntheticInputs(8, 6)

	result, err := engine.Run(context.Background(), scores, bars)
	require.NoError(t, err)
	require.NotEmpty(t, result.Books)

	for _, book := range result.Books {
		if book.ActiveCount() == 0 {
			continue
		}
		assert.InDelta(t, 0.0, book.NetExposure(), 1e-9)
		assert.InDelta(t, 2.0, book.GrossExposure(), 1e-9)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	scores, bars := syntheticInputs(30, 15)

	p1, err := NewQuantilePolicy(0.2, 0.2, 10)
	require.NoError(t, err)
	engine1 := NewEngine(p1, 5, logger.NewNop())
	engine1.SetWorkers(1)

	p2, err := NewQuantilePolicy(0.2, 0.2, 10)
	require.NoError(t, err)
	engine2 := NewEngine(p2, 5, logger.NewNop())
	engine2.SetWorkers(8)

	first, err := engine1.Run(context.Background(), scores, bars)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := engine2.Run(context.Background(), scores, bars)
		require.NoError(t, err)
		assert.Equal(t, first, again, "identical inputs must produce identical outputs")
	}
}

func TestEngine_ShapeErrorsAreFatal(t *testing.T) {
	engine := NewEngine(NewSignPolicy(), 10, logger.NewNop())

	_, err := engine.Run(context.Background(),
		[]contracts.ScoreObservation{{Symbol: "", Date: d(2), Score: 1}},
		[]contracts.Bar{bar("A", 1, 100)},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate predictions")

	_, err = engine.Run(context.Background(),
		[]contracts.ScoreObservation{score("A", 2, 1)},
		[]contracts.Bar{{Symbol: "A", Date: d(1), Close: 100, Volume: -1}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate market")
}

func TestEngine_EmptyInputs(t *testing.T) {
	engine := NewEngine(NewSignPolicy(), 10, logger.NewNop())

	result, err := engine.Run(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Daily)
	assert.Equal(t, 0, result.Metrics.NDays)
	assert.False(t, contracts.Defined(result.Metrics.MaxDrawdown))
}

func TestEngine_CancelledContext(t *testing.T) {
	engine := NewEngine(NewSignPolicy(), 10, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// syntheticInputs builds a deterministic fixture of nSymbols symbols
// over nDays consecutive days, with scores that rotate ranks day by day
// and closes that drift by symbol.
func syntheticInputs(nSymbols, nDays int) ([]contracts.ScoreObservation, []contracts.Bar) {
	var scores []contracts.ScoreObservation
	var bars []contracts.Bar

	for s := 0; s < nSymbols; s++ {
		symbol := fmt.Sprintf("SYM%02d", s)
		px := 100.0 + float64(s)
		for dayNum := 1; dayNum <= nDays; dayNum++ {
			px *= 1 + 0.001*float64((s+dayNum)%7-3)
			bars = append(bars, bar(symbol, dayNum, px))
			if dayNum > 1 {
				scores = append(scores, score(symbol, dayNum, float64((s*3+dayNum)%11)-5))
			}
		}
	}

	return scores, bars
}
