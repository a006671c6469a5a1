package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/quantbt/internal/contracts"
	"github.com/wonny/quantbt/internal/quality"
	"github.com/wonny/quantbt/internal/store"
	"github.com/wonny/quantbt/pkg/config"
	"github.com/wonny/quantbt/pkg/database"
	"github.com/wonny/quantbt/pkg/logger"
)

// loadCmd ingests CSV inputs into Postgres
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load CSV inputs into Postgres",
	Long: `Reads prediction and market CSV tables, validates their shape and
upserts the rows into the database for the api command to serve.

Example:
  quantbt load --predictions preds.csv --market market.csv
  quantbt load --market market.csv`,
	RunE: runLoad,
}

var (
	loadPredictions string
	loadMarket      string
)

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringVar(&loadPredictions, "predictions", "", "predictions CSV path")
	loadCmd.Flags().StringVar(&loadMarket, "market", "", "market OHLCV CSV path")
}

func runLoad(cmd *cobra.Command, args []string) error {
	if loadPredictions == "" && loadMarket == "" {
		return fmt.Errorf("nothing to load: pass --predictions and/or --market")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	// Read and validate everything before touching the database, so a
	// shape error never leaves a partial upload behind.
	scores, bars, err := readLoadInputs(loadPredictions, loadMarket)
	if err != nil {
		return err
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if loadPredictions != "" {
		if err := store.NewPredictionRepository(db.Pool).SaveBatch(ctx, scores); err != nil {
			return err
		}
		log.WithField("rows", len(scores)).Info("Loaded predictions")
	}
	if loadMarket != "" {
		if err := store.NewBarRepository(db.Pool).SaveBatch(ctx, bars); err != nil {
			return err
		}
		log.WithField("rows", len(bars)).Info("Loaded bars")
	}

	return nil
}

// readLoadInputs reads whichever CSV paths are set and shape-checks the
// rows with the same validator the engine runs at its boundary.
func readLoadInputs(predictionsPath, marketPath string) ([]contracts.ScoreObservation, []contracts.Bar, error) {
	v := quality.NewValidator()

	var scores []contracts.ScoreObservation
	if predictionsPath != "" {
		var err error
		scores, err = store.LoadScoresCSV(predictionsPath)
		if err != nil {
			return nil, nil, err
		}
		if err := v.ValidateScores(scores); err != nil {
			return nil, nil, fmt.Errorf("validate predictions: %w", err)
		}
	}

	var bars []contracts.Bar
	if marketPath != "" {
		var err error
		bars, err = store.LoadBarsCSV(marketPath)
		if err != nil {
			return nil, nil, err
		}
		if err := v.ValidateBars(bars); err != nil {
			return nil, nil, fmt.Errorf("validate market: %w", err)
		}
	}

	return scores, bars, nil
}
