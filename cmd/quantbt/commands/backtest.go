package commands

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/quantbt/internal/backtest"
	"github.com/wonny/quantbt/internal/store"
	"github.com/wonny/quantbt/internal/strategyconfig"
	"github.com/wonny/quantbt/pkg/config"
	"github.com/wonny/quantbt/pkg/logger"
)

// backtestCmd runs a backtest over CSV inputs
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a backtest over CSV inputs",
	Long: `Runs the backtest engine over two CSV tables and prints the
resulting metrics as JSON.

The predictions table needs columns: symbol, date, score.
The market table needs columns: symbol, date, close (open/high/low/volume
are carried when present).

Example:
  quantbt backtest --predictions preds.csv --market market.csv
  quantbt backtest --predictions preds.csv --market market.csv --strategy strategy.yaml
  quantbt backtest --predictions preds.csv --market market.csv --daily-out daily.csv`,
	RunE: runBacktest,
}

var (
	backtestPredictions string
	backtestMarket      string
	backtestStrategy    string
	backtestDailyOut    string
	backtestWorkers     int
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestPredictions, "predictions", "", "predictions CSV path (required)")
	backtestCmd.Flags().StringVar(&backtestMarket, "market", "", "market OHLCV CSV path (required)")
	backtestCmd.Flags().StringVar(&backtestStrategy, "strategy", "", "strategy YAML path (default: built-in quantile 10/10)")
	backtestCmd.Flags().StringVar(&backtestDailyOut, "daily-out", "", "write the daily {date,pnl,equity} series as CSV to this path")
	backtestCmd.Flags().IntVar(&backtestWorkers, "workers", 0, "weight-construction workers (default: GOMAXPROCS)")

	backtestCmd.MarkFlagRequired("predictions")
	backtestCmd.MarkFlagRequired("market")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	strategy := strategyconfig.Default()
	if backtestStrategy != "" {
		strategy, err = strategyconfig.Load(backtestStrategy)
		if err != nil {
			return err
		}
	}

	policy, err := strategy.BuildPolicy()
	if err != nil {
		return err
	}

	scores, err := store.LoadScoresCSV(backtestPredictions)
	if err != nil {
		return err
	}
	bars, err := store.LoadBarsCSV(backtestMarket)
	if err != nil {
		return err
	}

	engine := backtest.NewEngine(policy, strategy.Costs.FeeBps, log)
	engine.SetWorkers(backtestWorkers)

	result, err := engine.Run(context.Background(), scores, bars)
	if err != nil {
		return err
	}

	if hash, err := strategyconfig.Hash(strategy); err == nil {
		result.Metrics.ConfigHash = hash
	}

	if backtestDailyOut != "" {
		if err := writeDailyCSV(backtestDailyOut, result); err != nil {
			return err
		}
		log.WithField("path", backtestDailyOut).Info("Wrote daily series")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Metrics)
}

// writeDailyCSV writes the {date,pnl,equity} series, date-ascending.
func writeDailyCSV(path string, result *backtest.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create daily output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "pnl", "equity"}); err != nil {
		return err
	}
	for _, p := range result.Daily {
		row := []string{
			p.Date.Format("2006-01-02"),
			strconv.FormatFloat(p.PnL, 'g', -1, 64),
			strconv.FormatFloat(p.Equity, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
