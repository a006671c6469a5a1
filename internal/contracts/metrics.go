package contracts

import (
	"encoding/json"
	"math"
)

// Metrics summarizes a backtest run. Statistics whose preconditions are
// not met (fewer than 2 days, zero variance, empty series) hold NaN;
// callers must check with Defined before use.
//
// FeeBps, Policy and PolicyParams echo the run configuration so a
// result is auditable and reproducible on its own.
type Metrics struct {
	NDays        int                `json:"n_days"`
	MeanDaily    float64            `json:"mean_daily"`
	VolDaily     float64            `json:"vol_daily"`
	Sharpe252    float64            `json:"sharpe_252"`
	MaxDrawdown  float64            `json:"max_drawdown"`
	FeeBps       float64            `json:"fee_bps"`
	Policy       string             `json:"policy"`
	PolicyParams map[string]float64 `json:"policy_params,omitempty"`
	ConfigHash   string             `json:"config_hash,omitempty"`
}

// Defined reports whether a metric value carries a usable number.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// MarshalJSON encodes NaN metric values as null so that results remain
// valid JSON for the API and CLI surfaces.
func (m Metrics) MarshalJSON() ([]byte, error) {
	type out struct {
		NDays        int                `json:"n_days"`
		MeanDaily    *float64           `json:"mean_daily"`
		VolDaily     *float64           `json:"vol_daily"`
		Sharpe252    *float64           `json:"sharpe_252"`
		MaxDrawdown  *float64           `json:"max_drawdown"`
		FeeBps       float64            `json:"fee_bps"`
		Policy       string             `json:"policy"`
		PolicyParams map[string]float64 `json:"policy_params,omitempty"`
		ConfigHash   string             `json:"config_hash,omitempty"`
	}

	nullable := func(v float64) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}

	return json.Marshal(out{
		NDays:        m.NDays,
		MeanDaily:    nullable(m.MeanDaily),
		VolDaily:     nullable(m.VolDaily),
		Sharpe252:    nullable(m.Sharpe252),
		MaxDrawdown:  nullable(m.MaxDrawdown),
		FeeBps:       m.FeeBps,
		Policy:       m.Policy,
		PolicyParams: m.PolicyParams,
		ConfigHash:   m.ConfigHash,
	})
}
