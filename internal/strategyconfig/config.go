package strategyconfig

import (
	"fmt"

	"github.com/wonny/quantbt/internal/backtest"
)

// Config is the full backtest strategy configuration. It is the single
// input a run needs beyond the two data streams, and it is echoed into
// the result metrics for reproducibility.
type Config struct {
	Meta   Meta   `yaml:"meta" json:"meta"`
	Policy Policy `yaml:"policy" json:"policy"`
	Costs  Costs  `yaml:"costs" json:"costs"`
}

// Meta identifies the strategy for audit output.
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Policy selects and parameterizes portfolio construction.
type Policy struct {
	Name string `yaml:"name" json:"name"` // "quantile" | "sign"

	// Quantile policy only; ignored by the sign policy.
	LongQuantile    float64 `yaml:"long_quantile" json:"long_quantile"`
	ShortQuantile   float64 `yaml:"short_quantile" json:"short_quantile"`
	MinCrossSection int     `yaml:"min_cross_section" json:"min_cross_section"`
}

// Costs holds transaction cost assumptions.
type Costs struct {
	FeeBps float64 `yaml:"fee_bps" json:"fee_bps"`
}

// Default returns the stock configuration: 10/10 quantile long/short
// over at least 20 names, 1 bp linear fee.
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "rank-ls",
			Version:    "v1",
		},
		Policy: Policy{
			Name:            "quantile",
			LongQuantile:    0.1,
			ShortQuantile:   0.1,
			MinCrossSection: backtest.DefaultMinCrossSection,
		},
		Costs: Costs{
			FeeBps: 1.0,
		},
	}
}

// BuildPolicy constructs the backtest policy the config selects.
func (c *Config) BuildPolicy() (backtest.Policy, error) {
	switch c.Policy.Name {
	case "quantile":
		return backtest.NewQuantilePolicy(
			c.Policy.LongQuantile,
			c.Policy.ShortQuantile,
			c.Policy.MinCrossSection,
		)
	case "sign":
		return backtest.NewSignPolicy(), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", c.Policy.Name)
	}
}
