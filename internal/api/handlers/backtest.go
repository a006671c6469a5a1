package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wonny/quantbt/internal/backtest"
	"github.com/wonny/quantbt/internal/contracts"
	"github.com/wonny/quantbt/internal/quality"
	"github.com/wonny/quantbt/internal/strategyconfig"
	"github.com/wonny/quantbt/pkg/logger"
)

// ScoreSource supplies prediction rows for a date range.
type ScoreSource interface {
	ListRange(ctx context.Context, from, to time.Time) ([]contracts.ScoreObservation, error)
}

// BarSource supplies market bars for a date range.
type BarSource interface {
	ListRange(ctx context.Context, from, to time.Time) ([]contracts.Bar, error)
}

// BacktestHandler runs backtests over stored inputs.
type BacktestHandler struct {
	scores ScoreSource
	bars   BarSource
	logger *logger.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(scores ScoreSource, bars BarSource, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		scores: scores,
		bars:   bars,
		logger: log,
	}
}

// runRequest is the POST /api/backtest body. Strategy is optional and
// defaults to the stock quantile configuration.
type runRequest struct {
	From     string                 `json:"from"` // YYYY-MM-DD
	To       string                 `json:"to"`   // YYYY-MM-DD
	Strategy *strategyconfig.Config `json:"strategy,omitempty"`
}

// runResponse carries the run output plus the configuration echo.
type runResponse struct {
	Daily   []contracts.DailyPnL `json:"daily"`
	Metrics contracts.Metrics    `json:"metrics"`
}

// Run executes a backtest for the requested range.
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not precede from")
		return
	}

	cfg := req.Strategy
	if cfg == nil {
		cfg = strategyconfig.Default()
	}
	if err := strategyconfig.Validate(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy, err := cfg.BuildPolicy()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	scores, err := h.scores.ListRange(ctx, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load predictions")
		writeError(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}
	bars, err := h.bars.ListRange(ctx, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load bars")
		writeError(w, http.StatusInternalServerError, "failed to load bars")
		return
	}

	engine := backtest.NewEngine(policy, cfg.Costs.FeeBps, h.logger)
	result, err := engine.Run(ctx, scores, bars)
	if err != nil {
		var shapeErr *quality.ShapeError
		if errors.As(err, &shapeErr) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.WithError(err).Error("Backtest failed")
		writeError(w, http.StatusInternalServerError, "backtest failed")
		return
	}

	if hash, err := strategyconfig.Hash(cfg); err == nil {
		result.Metrics.ConfigHash = hash
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runResponse{
		Daily:   result.Daily,
		Metrics: result.Metrics,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
