package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/quantbt/internal/contracts"
)

type symbolDay struct {
	symbol string
	day    time.Time
}

// Align derives realized close-to-close returns from each symbol's own
// price series and inner-joins them to scores on (symbol, day).
//
// Both inputs are deduplicated to one row per key first, keeping the
// LAST occurrence in input order. A symbol's first traded day has no
// defined return and is dropped, as are rows with a NaN score or a
// missing close. The result is sorted by (day, symbol) so identical
// inputs always produce identical output.
func Align(scores []contracts.ScoreObservation, bars []contracts.Bar) []contracts.JoinedObservation {
	scoreByKey := dedupScores(scores)
	returns := realizedReturns(bars)

	joined := make([]contracts.JoinedObservation, 0, len(scoreByKey))
	for key, score := range scoreByKey {
		ret, ok := returns[key]
		if !ok {
			continue
		}
		joined = append(joined, contracts.JoinedObservation{
			Symbol: key.symbol,
			Date:   key.day,
			Score:  score,
			Return: ret,
		})
	}

	sort.Slice(joined, func(i, j int) bool {
		if !joined[i].Date.Equal(joined[j].Date) {
			return joined[i].Date.Before(joined[j].Date)
		}
		return joined[i].Symbol < joined[j].Symbol
	})

	return joined
}

// dedupScores keeps the last score per (symbol, day) and drops rows
// whose score is missing.
func dedupScores(scores []contracts.ScoreObservation) map[symbolDay]float64 {
	out := make(map[symbolDay]float64, len(scores))
	for _, s := range scores {
		key := symbolDay{symbol: s.Symbol, day: contracts.Day(s.Date)}
		if math.IsNaN(s.Score) {
			// A later NaN row still supersedes an earlier valid one:
			// the keep-last rule applies before the missing-value drop.
			delete(out, key)
			continue
		}
		out[key] = s.Score
	}
	return out
}

// realizedReturns computes close(d)/close(prev d) - 1 per symbol over
// that symbol's own date-ordered close series. Bars without a usable
// close are treated as absent days, not zero-return days.
func realizedReturns(bars []contracts.Bar) map[symbolDay]float64 {
	closeByKey := make(map[symbolDay]float64, len(bars))
	daysBySymbol := make(map[string][]time.Time)

	for _, b := range bars {
		key := symbolDay{symbol: b.Symbol, day: contracts.Day(b.Date)}
		if _, seen := closeByKey[key]; !seen {
			daysBySymbol[b.Symbol] = append(daysBySymbol[b.Symbol], key.day)
		}
		closeByKey[key] = b.Close // keep-last dedup
	}

	returns := make(map[symbolDay]float64, len(closeByKey))
	for symbol, days := range daysBySymbol {
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

		prevClose := math.NaN()
		for _, day := range days {
			px := closeByKey[symbolDay{symbol: symbol, day: day}]
			if math.IsNaN(px) || px <= 0 {
				continue // absent point; keeps prevClose for the next day
			}
			if !math.IsNaN(prevClose) {
				returns[symbolDay{symbol: symbol, day: day}] = px/prevClose - 1
			}
			prevClose = px
		}
	}

	return returns
}
