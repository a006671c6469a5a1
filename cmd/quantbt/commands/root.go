package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quantbt",
	Short: "Cross-sectional backtest engine",
	Long: `quantbt replays per-symbol, per-day model scores into realized,
cost-adjusted strategy returns under a configurable portfolio policy.

Examples:
  quantbt backtest --predictions preds.csv --market market.csv
  quantbt backtest --predictions preds.csv --market market.csv --strategy strategy.yaml
  quantbt api --port 8080`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
