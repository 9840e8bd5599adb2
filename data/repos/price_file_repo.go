package repos

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	dm "perfdash/data/models"
)

var (
	priceFileDateFormats = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05-07:00",
		time.RFC3339,
	}
)

// PriceFile serves closing prices from a static csv export.
// The first column is the date, every other header is a ticker symbol.
type PriceFile struct {
	Path string
}

func NewPriceFile(path string) *PriceFile {
	return &PriceFile{Path: path}
}

func (pf *PriceFile) Name() string {
	return "csv"
}

// FetchCloses reads the file on every call, the file may be replaced while the service runs
func (pf *PriceFile) FetchCloses(ctx context.Context, symbols []string, start, end time.Time) ([]dm.SymbolSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(pf.Path)
	if err != nil {
		return nil, fmt.Errorf("error opening price file %s: %w", pf.Path, err)
	}
	defer f.Close()

	return ReadPriceFile(f, symbols, start, end)
}

// ReadPriceFile parses csv price data, keeping the requested symbols and dates in [start, end).
// A requested symbol with no column in the file comes back as an empty series.
func ReadPriceFile(r io.Reader, symbols []string, start, end time.Time) ([]dm.SymbolSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading price file header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header[1:] {
		columns[strings.ToUpper(strings.TrimSpace(h))] = i + 1
	}

	res := make([]dm.SymbolSeries, len(symbols))
	for i, s := range symbols {
		res[i] = dm.SymbolSeries{Symbol: s}
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading price file line %d: %w", line, err)
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}

		date, err := parseFileDate(record[0])
		if err != nil {
			return nil, fmt.Errorf("error on price file line %d: %w", line, err)
		}
		if date.Before(start) || !date.Before(end) {
			continue
		}

		for i, s := range symbols {
			col, ok := columns[s]
			if !ok || col >= len(record) {
				continue
			}
			raw := strings.TrimSpace(record[col])
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("error parsing %s price %q on line %d: %w", s, raw, line, err)
			}
			res[i].Points = append(res[i].Points, dm.PricePoint{Date: date, Close: v})
		}
	}

	return res, nil
}

func parseFileDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, format := range priceFileDateFormats {
		t, err := time.Parse(format, s)
		if err != nil {
			continue
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("error converting date %s to time.Time", s)
}
