package models

import (
	"math"
	"slices"
	"time"
)

// Table is a date indexed set of float columns, one per symbol.
// Values is column major: Values[col][row]. Missing values are NaN.
type Table struct {
	Dates   []time.Time
	Symbols []string
	Values  [][]float64
}

// PriceTable holds daily closing prices.
type PriceTable struct {
	Table
}

// ReturnsTable holds day over day fractional changes, row 0 is always NaN.
type ReturnsTable struct {
	Table
}

// CumulativeReturnsTable holds the running product of (1 + return).
type CumulativeReturnsTable struct {
	Table
}

// NewTable allocates a table with every cell set to NaN
func NewTable(dates []time.Time, symbols []string) Table {
	values := make([][]float64, len(symbols))
	for i := range values {
		values[i] = NaNs(len(dates))
	}

	return Table{
		Dates:   slices.Clone(dates),
		Symbols: slices.Clone(symbols),
		Values:  values,
	}
}

// NaNs returns a slice of length n filled with NaN
func NaNs(n int) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = math.NaN()
	}
	return res
}

func (t Table) Rows() int {
	return len(t.Dates)
}

func (t Table) IsEmpty() bool {
	return len(t.Dates) == 0 || len(t.Symbols) == 0
}

func (t Table) Index(symbol string) int {
	return slices.Index(t.Symbols, symbol)
}

// Column returns the values for symbol. The slice is shared with the table, callers must not write to it.
func (t Table) Column(symbol string) ([]float64, bool) {
	idx := t.Index(symbol)
	if idx < 0 {
		return nil, false
	}
	return t.Values[idx], true
}

// Select returns a copy of the table restricted to the given symbols, in that order.
// Symbols not present in t are skipped.
func (t Table) Select(symbols []string) Table {
	res := Table{
		Dates:   slices.Clone(t.Dates),
		Symbols: make([]string, 0, len(symbols)),
		Values:  make([][]float64, 0, len(symbols)),
	}

	for _, s := range symbols {
		col, ok := t.Column(s)
		if !ok {
			continue
		}
		res.Symbols = append(res.Symbols, s)
		res.Values = append(res.Values, slices.Clone(col))
	}

	return res
}

// Without returns a copy of the table with symbol removed
func (t Table) Without(symbol string) Table {
	keep := make([]string, 0, len(t.Symbols))
	for _, s := range t.Symbols {
		if s != symbol {
			keep = append(keep, s)
		}
	}
	return t.Select(keep)
}

// CountValid returns the number of non NaN observations in a column
func CountValid(values []float64) int {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// HasData reports whether at least one cell in the table is not NaN
func (t Table) HasData() bool {
	for _, col := range t.Values {
		if CountValid(col) > 0 {
			return true
		}
	}
	return false
}
