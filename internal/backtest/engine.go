package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/wonny/quantbt/internal/contracts"
	"github.com/wonny/quantbt/internal/quality"
	"github.com/wonny/quantbt/pkg/logger"
)

// Engine runs one backtest: scores and bars in, cost-adjusted daily
// returns and risk metrics out. Inputs are never mutated; every run
// recomputes everything from scratch.
type Engine struct {
	policy    Policy
	feeBps    float64
	workers   int
	validator *quality.Validator
	logger    *logger.Logger
}

// Result holds everything a run produces.
type Result struct {
	// Books are the per-date position sets, date-ascending.
	Books []contracts.DailyBook
	// Daily is the output series {date, pnl, equity}, date-ascending.
	Daily []contracts.DailyPnL
	// Metrics summarizes the run and echoes its configuration.
	Metrics contracts.Metrics
}

// NewEngine creates a backtest engine for a policy and fee.
func NewEngine(policy Policy, feeBps float64, log *logger.Logger) *Engine {
	return &Engine{
		policy:    policy,
		feeBps:    feeBps,
		validator: quality.NewValidator(),
		logger:    log,
	}
}

// SetWorkers bounds the per-date weight construction pool. Values < 1
// fall back to GOMAXPROCS.
func (e *Engine) SetWorkers(n int) {
	e.workers = n
}

// Run executes the backtest over the two input streams.
func (e *Engine) Run(ctx context.Context, scores []contracts.ScoreObservation, bars []contracts.Bar) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.validator.ValidateScores(scores); err != nil {
		return nil, fmt.Errorf("validate predictions: %w", err)
	}
	if err := e.validator.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("validate market: %w", err)
	}

	joined := Align(scores, bars)
	days := groupByDay(joined)

	e.logger.WithFields(map[string]interface{}{
		"policy":      e.policy.Name(),
		"fee_bps":     e.feeBps,
		"score_rows":  len(scores),
		"bar_rows":    len(bars),
		"joined_rows": len(joined),
		"days":        len(days),
	}).Info("Starting backtest")

	// Weight construction is pure per date, so dates run concurrently;
	// the fold below is the only inherently sequential stage.
	e.buildBooks(days)

	acct := NewCostAccountant(e.feeBps)
	daily := NewPnLAggregator(e.policy, acct).Run(days)
	metrics := Summarize(daily, e.feeBps, e.policy)

	books := make([]contracts.DailyBook, len(days))
	for i, day := range days {
		books[i] = contracts.DailyBook{Date: day.date, Positions: day.book}
	}

	e.logger.WithFields(map[string]interface{}{
		"n_days":       metrics.NDays,
		"mean_daily":   metrics.MeanDaily,
		"vol_daily":    metrics.VolDaily,
		"sharpe_252":   metrics.Sharpe252,
		"max_drawdown": metrics.MaxDrawdown,
	}).Info("Backtest completed")

	return &Result{
		Books:   books,
		Daily:   daily,
		Metrics: metrics,
	}, nil
}

// groupByDay splits the joined rows, already sorted by (day, symbol),
// into per-date cross-sections.
func groupByDay(joined []contracts.JoinedObservation) []tradingDay {
	var days []tradingDay
	for _, row := range joined {
		if n := len(days); n == 0 || !days[n-1].date.Equal(row.Date) {
			days = append(days, tradingDay{date: row.Date})
		}
		last := &days[len(days)-1]
		last.rows = append(last.rows, row)
	}
	return days
}

// buildBooks evaluates the policy for every date on a bounded worker
// pool. Results land at their date's index, so the merge is in date
// order regardless of scheduling.
func (e *Engine) buildBooks(days []tradingDay) {
	workers := e.workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range days {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			days[i].book = e.policy.Weights(days[i].date, days[i].rows)
		}(i)
	}

	wg.Wait()
}
