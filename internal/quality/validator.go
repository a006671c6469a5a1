package quality

import (
	"fmt"
	"math"

	"github.com/wonny/quantbt/internal/contracts"
)

// ShapeError reports a structurally invalid input row. Shape failures
// are fatal: the engine produces no partial output on top of them.
type ShapeError struct {
	Input  string // "predictions" or "market"
	Row    int
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s row %d: %s", e.Input, e.Row, e.Reason)
}

// Validator checks the two input streams once, at the join boundary.
// Downstream stages assume shape-valid rows and never re-check.
type Validator struct{}

// NewValidator creates a new input validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateScores checks prediction rows. A NaN score is not a shape
// error; those rows are dropped before the join.
func (v *Validator) ValidateScores(scores []contracts.ScoreObservation) error {
	for i, s := range scores {
		switch {
		case s.Symbol == "":
			return &ShapeError{Input: "predictions", Row: i, Reason: "empty symbol"}
		case s.Date.IsZero():
			return &ShapeError{Input: "predictions", Row: i, Reason: "zero date"}
		case math.IsInf(s.Score, 0):
			return &ShapeError{Input: "predictions", Row: i, Reason: "infinite score"}
		}
	}
	return nil
}

// ValidateBars checks market rows. A NaN close is treated as a missing
// observation later; negative volume or an infinite close means the
// upstream table is broken.
func (v *Validator) ValidateBars(bars []contracts.Bar) error {
	for i, b := range bars {
		switch {
		case b.Symbol == "":
			return &ShapeError{Input: "market", Row: i, Reason: "empty symbol"}
		case b.Date.IsZero():
			return &ShapeError{Input: "market", Row: i, Reason: "zero date"}
		case math.IsInf(b.Close, 0):
			return &ShapeError{Input: "market", Row: i, Reason: "infinite close"}
		case b.Volume < 0:
			return &ShapeError{Input: "market", Row: i, Reason: fmt.Sprintf("negative volume %v", b.Volume)}
		}
	}
	return nil
}
