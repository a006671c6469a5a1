package contracts

import (
	"math"
	"time"
)

// Position is a signed portfolio weight for a symbol on a date.
// Weights are assigned from that date's cross-section only.
type Position struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Weight float64   `json:"weight"`
}

// DailyPnL is one point of the output series: the cost-adjusted
// portfolio return realized on Date and the equity compounded up to it.
type DailyPnL struct {
	Date   time.Time `json:"date"`
	PnL    float64   `json:"pnl"`
	Equity float64   `json:"equity"`
}

// DailyBook is one date's full set of positions.
type DailyBook struct {
	Date      time.Time  `json:"date"`
	Positions []Position `json:"positions"`
}

// GrossExposure returns the sum of absolute weights in the book.
func (b *DailyBook) GrossExposure() float64 {
	gross := 0.0
	for _, p := range b.Positions {
		gross += math.Abs(p.Weight)
	}
	return gross
}

// NetExposure returns the signed sum of weights in the book.
func (b *DailyBook) NetExposure() float64 {
	net := 0.0
	for _, p := range b.Positions {
		net += p.Weight
	}
	return net
}

// ActiveCount returns the number of nonzero-weight positions.
func (b *DailyBook) ActiveCount() int {
	n := 0
	for _, p := range b.Positions {
		if p.Weight != 0 {
			n++
		}
	}
	return n
}
