package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/quantbt/internal/contracts"
)

// CSV loaders for the two input tables. A header row is required;
// column order is free. Missing required columns fail immediately with
// no partial output, matching the fatal-shape-error contract.

var (
	requiredScoreColumns = []string{"symbol", "date", "score"}
	// Only close is consumed downstream; OHLV ride along when present.
	requiredBarColumns = []string{"symbol", "date", "close"}
	optionalBarColumns = []string{"open", "high", "low", "volume"}
)

// LoadScoresCSV reads prediction rows from a CSV file.
func LoadScoresCSV(path string) ([]contracts.ScoreObservation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open predictions csv: %w", err)
	}
	defer f.Close()

	cols, records, err := readTable(f, requiredScoreColumns, nil)
	if err != nil {
		return nil, fmt.Errorf("predictions csv %s: %w", path, err)
	}

	scores := make([]contracts.ScoreObservation, 0, len(records))
	for i, rec := range records {
		date, err := parseDate(rec[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("predictions csv %s row %d: %w", path, i+1, err)
		}
		scores = append(scores, contracts.ScoreObservation{
			Symbol: rec[cols["symbol"]],
			Date:   date,
			Score:  parseFloat(rec[cols["score"]]),
		})
	}
	return scores, nil
}

// LoadBarsCSV reads market OHLCV rows from a CSV file.
func LoadBarsCSV(path string) ([]contracts.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market csv: %w", err)
	}
	defer f.Close()

	cols, records, err := readTable(f, requiredBarColumns, optionalBarColumns)
	if err != nil {
		return nil, fmt.Errorf("market csv %s: %w", path, err)
	}

	get := func(rec []string, col string) float64 {
		idx, ok := cols[col]
		if !ok {
			return 0
		}
		return parseFloat(rec[idx])
	}

	bars := make([]contracts.Bar, 0, len(records))
	for i, rec := range records {
		date, err := parseDate(rec[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("market csv %s row %d: %w", path, i+1, err)
		}
		bars = append(bars, contracts.Bar{
			Symbol: rec[cols["symbol"]],
			Date:   date,
			Open:   get(rec, "open"),
			High:   get(rec, "high"),
			Low:    get(rec, "low"),
			Close:  parseFloat(rec[cols["close"]]),
			Volume: get(rec, "volume"),
		})
	}
	return bars, nil
}

// readTable parses the header, checks required columns and returns the
// column index map plus all data records.
func readTable(r io.Reader, required, optional []string) (map[string]int, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty file, header row required")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return cols, records, nil
}

// parseDate accepts a calendar date or an RFC3339 timestamp and
// normalizes either to its UTC day.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return contracts.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// parseFloat maps empty or malformed cells to NaN so they flow through
// the engine's missing-value handling instead of silently becoming 0.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
