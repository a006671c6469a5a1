package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/quantbt/internal/contracts"
)

// PredictionRepository reads and writes model scores in Postgres.
// It is one of the external collaborators feeding the engine; the
// backtest core itself performs no I/O.
type PredictionRepository struct {
	pool *pgxpool.Pool
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(pool *pgxpool.Pool) *PredictionRepository {
	return &PredictionRepository{pool: pool}
}

// ListRange retrieves scores with trade_date in [from, to], ordered by
// (trade_date, symbol) for reproducible input order.
func (r *PredictionRepository) ListRange(ctx context.Context, from, to time.Time) ([]contracts.ScoreObservation, error) {
	query := `
		SELECT symbol, trade_date, score
		FROM quant.predictions
		WHERE trade_date BETWEEN $1 AND $2
		ORDER BY trade_date, symbol
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var scores []contracts.ScoreObservation
	for rows.Next() {
		var s contracts.ScoreObservation
		if err := rows.Scan(&s.Symbol, &s.Date, &s.Score); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// SaveBatch upserts scores on (symbol, trade_date).
func (r *PredictionRepository) SaveBatch(ctx context.Context, scores []contracts.ScoreObservation) error {
	query := `
		INSERT INTO quant.predictions (symbol, trade_date, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol, trade_date)
		DO UPDATE SET score = EXCLUDED.score
	`

	for _, s := range scores {
		if _, err := r.pool.Exec(ctx, query, s.Symbol, contracts.Day(s.Date), s.Score); err != nil {
			return fmt.Errorf("save prediction %s %s: %w", s.Symbol, s.Date.Format("2006-01-02"), err)
		}
	}
	return nil
}
