package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
	"strings"
	"time"

	dm "perfdash/data/models"
	sm "perfdash/models"
)

var (
	ErrEmptyInput      = errors.New("no tickers requested")
	ErrInvalidRange    = errors.New("start date must be before end date")
	ErrDataUnavailable = errors.New("no price data available")
)

// PriceSource fetches daily closes for a set of symbols over [start, end).
// A symbol the source cannot serve comes back as an empty series.
type PriceSource interface {
	Name() string
	FetchCloses(ctx context.Context, symbols []string, start, end time.Time) ([]dm.SymbolSeries, error)
}

// Loader produces the price table the calculators run on
type Loader interface {
	LoadPrices(ctx context.Context, tickers []string, start, end time.Time) (*dm.PriceTable, error)
}

type PriceLoader struct {
	Source PriceSource
}

func NewPriceLoader(source PriceSource) *PriceLoader {
	return &PriceLoader{Source: source}
}

// LoadPrices normalizes the tickers, adds the benchmark, fetches them and aligns the result on the union of dates
func (pl *PriceLoader) LoadPrices(ctx context.Context, tickers []string, start, end time.Time) (*dm.PriceTable, error) {
	symbols := NormalizeTickers(tickers)
	if len(symbols) == 0 {
		return nil, ErrEmptyInput
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: %v to %v", ErrInvalidRange, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	symbols = EnsureBenchmark(symbols, sm.BenchmarkSymbol)

	startTime := time.Now()
	log.Printf("Loading %v symbols from %v", len(symbols), pl.Source.Name())
	series, err := pl.Source.FetchCloses(ctx, symbols, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: error fetching closes from %s: %w", ErrDataUnavailable, pl.Source.Name(), err)
	}

	table, err := BuildPriceTable(symbols, series)
	if err != nil {
		return nil, err
	}

	log.Printf("Loaded %v rows for %v symbols from %v (time: %v)", table.Rows(), len(symbols), pl.Source.Name(), time.Since(startTime))
	return table, nil
}

// NormalizeTickers trims and upper cases tickers, dropping blanks and duplicates while keeping the first seen order
func NormalizeTickers(tickers []string) []string {
	res := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || slices.Contains(res, t) {
			continue
		}
		res = append(res, t)
	}
	return res
}

// EnsureBenchmark returns a new slice with the benchmark appended when it is missing
func EnsureBenchmark(tickers []string, benchmark string) []string {
	res := slices.Clone(tickers)
	if !slices.Contains(res, benchmark) {
		res = append(res, benchmark)
	}
	return res
}

// BuildPriceTable aligns series on the sorted union of their dates.
// Columns follow symbols, a symbol with no series is left NaN.
func BuildPriceTable(symbols []string, series []dm.SymbolSeries) (*dm.PriceTable, error) {
	seen := make(map[time.Time]struct{})
	bySymbol := make(map[string]dm.SymbolSeries, len(series))
	for _, s := range series {
		bySymbol[s.Symbol] = s
		for _, p := range s.Points {
			if math.IsNaN(p.Close) {
				continue
			}
			seen[p.Date] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })

	rowOf := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowOf[d] = i
	}

	table := &dm.PriceTable{Table: dm.NewTable(dates, symbols)}
	for c, symbol := range symbols {
		for _, p := range bySymbol[symbol].Points {
			if math.IsNaN(p.Close) {
				continue
			}
			table.Values[c][rowOf[p.Date]] = p.Close
		}
	}

	if !table.HasData() {
		return nil, fmt.Errorf("%w for %v", ErrDataUnavailable, strings.Join(symbols, ","))
	}

	return table, nil
}
