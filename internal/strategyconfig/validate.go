package strategyconfig

import "fmt"

// Validate checks a config before it reaches the engine. Policy
// parameter ranges are re-checked by the policy constructors; this
// catches config-file mistakes with file-level error messages.
func Validate(cfg *Config) error {
	switch cfg.Policy.Name {
	case "quantile":
		if cfg.Policy.LongQuantile <= 0 || cfg.Policy.LongQuantile > 1 {
			return fmt.Errorf("policy.long_quantile must be in (0, 1], got %v", cfg.Policy.LongQuantile)
		}
		if cfg.Policy.ShortQuantile <= 0 || cfg.Policy.ShortQuantile > 1 {
			return fmt.Errorf("policy.short_quantile must be in (0, 1], got %v", cfg.Policy.ShortQuantile)
		}
		if cfg.Policy.MinCrossSection < 0 {
			return fmt.Errorf("policy.min_cross_section must be >= 0, got %d", cfg.Policy.MinCrossSection)
		}
	case "sign":
		// No coverage parameters beyond the fee.
	default:
		return fmt.Errorf("policy.name must be quantile or sign, got %q", cfg.Policy.Name)
	}

	if cfg.Costs.FeeBps < 0 {
		return fmt.Errorf("costs.fee_bps must be >= 0, got %v", cfg.Costs.FeeBps)
	}

	return nil
}
