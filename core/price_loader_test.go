package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ex "perfdash/data/extensions"
	dm "perfdash/data/models"
	sm "perfdash/models"
)

type stubSource struct {
	series   map[string][]dm.PricePoint
	err      error
	calls    int
	requests [][]string
}

func (s *stubSource) Name() string {
	return "stub"
}

func (s *stubSource) FetchCloses(ctx context.Context, symbols []string, start, end time.Time) ([]dm.SymbolSeries, error) {
	s.calls++
	s.requests = append(s.requests, symbols)
	if s.err != nil {
		return nil, s.err
	}

	res := make([]dm.SymbolSeries, len(symbols))
	for i, symbol := range symbols {
		res[i] = dm.SymbolSeries{Symbol: symbol}
		for _, p := range s.series[symbol] {
			if p.Date.Before(start) || !p.Date.Before(end) {
				continue
			}
			res[i].Points = append(res[i].Points, p)
		}
	}
	return res, nil
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func points(startDay int, closes ...float64) []dm.PricePoint {
	res := make([]dm.PricePoint, len(closes))
	for i, c := range closes {
		res[i] = dm.PricePoint{Date: day(startDay + i), Close: c}
	}
	return res
}

func TestNormalizeTickers(t *testing.T) {
	res := NormalizeTickers([]string{" mc.pa", "BNP.PA", "", "MC.PA ", "  ", "san.pa"})
	assert.Equal(t, []string{"MC.PA", "BNP.PA", "SAN.PA"}, res)
	assert.Empty(t, NormalizeTickers(nil))
}

func TestEnsureBenchmarkIsPure(t *testing.T) {
	tickers := make([]string, 1, 4)
	tickers[0] = "MC.PA"

	res := EnsureBenchmark(tickers, "^FCHI")
	assert.Equal(t, []string{"MC.PA", "^FCHI"}, res)
	assert.Equal(t, []string{"MC.PA"}, tickers)

	// the backing array of the input must not be written to
	res[0] = "CHANGED"
	ex.AssertAreEqual(t, "input", "MC.PA", tickers[0])

	present := []string{"^FCHI", "MC.PA"}
	assert.Equal(t, present, EnsureBenchmark(present, "^FCHI"))
}

func TestBuildPriceTableAlignsOnUnionOfDates(t *testing.T) {
	series := []dm.SymbolSeries{
		{Symbol: "A", Points: points(3, 101, 102)},
		{Symbol: "B", Points: points(2, 50, 51)},
		{Symbol: "EMPTY"},
	}

	table, err := BuildPriceTable([]string{"A", "B", "EMPTY"}, series)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{day(2), day(3), day(4)}, table.Dates)
	assert.Equal(t, []string{"A", "B", "EMPTY"}, table.Symbols)
	ex.AssertIsNaN(t, "A day 2", table.Values[0][0])
	ex.AssertAreEqual(t, "A day 4", 102.0, table.Values[0][2])
	ex.AssertIsNaN(t, "B day 4", table.Values[1][2])
	ex.AssertAreEqual(t, "EMPTY valid", 0, dm.CountValid(table.Values[2]))
}

func TestBuildPriceTableWithoutDataFails(t *testing.T) {
	_, err := BuildPriceTable([]string{"A"}, []dm.SymbolSeries{{Symbol: "A"}})
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestLoadPrices(t *testing.T) {
	source := &stubSource{series: map[string][]dm.PricePoint{
		"MC.PA": points(2, 700, 710, 705, 720),
		"^FCHI": points(2, 7500, 7550, 7520, 7600),
	}}
	loader := NewPriceLoader(source)

	table, err := loader.LoadPrices(context.Background(), []string{"mc.pa", "^fchi"}, day(2), day(5))
	require.NoError(t, err)

	ex.AssertAreEqual(t, "rows", 3, table.Rows())
	assert.Equal(t, []string{"MC.PA", "^FCHI"}, table.Symbols)
	assert.Equal(t, []string{"MC.PA", "^FCHI"}, source.requests[0])
}

func TestLoadPricesAddsBenchmarkColumn(t *testing.T) {
	source := &stubSource{series: map[string][]dm.PricePoint{
		"MC.PA": points(2, 700, 710, 705, 720),
	}}

	table, err := NewPriceLoader(source).LoadPrices(context.Background(), []string{"MC.PA"}, day(2), day(6))
	require.NoError(t, err)

	assert.Equal(t, []string{"MC.PA", sm.BenchmarkSymbol}, source.requests[0])
	assert.Equal(t, []string{"MC.PA", sm.BenchmarkSymbol}, table.Symbols)

	// the benchmark column is present even when the source had nothing for it
	bench, ok := table.Column(sm.BenchmarkSymbol)
	require.True(t, ok)
	ex.AssertAreEqual(t, "benchmark observations", 0, dm.CountValid(bench))
}

func TestLoadPricesErrors(t *testing.T) {
	source := &stubSource{}
	loader := NewPriceLoader(source)
	ctx := context.Background()

	_, err := loader.LoadPrices(ctx, []string{" ", ""}, day(1), day(5))
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = loader.LoadPrices(ctx, []string{"A"}, day(5), day(5))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = loader.LoadPrices(ctx, []string{"A"}, day(1), day(5))
	assert.ErrorIs(t, err, ErrDataUnavailable)

	ex.AssertAreEqual(t, "source calls", 1, source.calls)

	source.err = errors.New("network down")
	_, err = loader.LoadPrices(ctx, []string{"A"}, day(1), day(5))
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, source.err)
}
