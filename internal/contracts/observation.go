package contracts

import "time"

// Day normalizes a timestamp to its UTC calendar day.
// Every (symbol, date) key in this package is normalized through Day so
// that map lookups and equality are exact.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ScoreObservation is one model score for a symbol on a date.
// External model output; immutable input to the engine.
type ScoreObservation struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Score  float64   `json:"score"`
}

// Bar is one daily OHLCV record. Only Close is consumed by the
// backtest core; the remaining fields ride along for provenance.
type Bar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// JoinedObservation is the inner join of a score and a realized
// close-to-close return on (symbol, date). Unique per key; a symbol's
// first traded date never appears because its return is undefined.
type JoinedObservation struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Score  float64   `json:"score"`
	Return float64   `json:"return"`
}
