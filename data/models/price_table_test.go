package models

import (
	"math"
	"testing"
	"time"

	ex "perfdash/data/extensions"
)

func testTable(t *testing.T) Table {
	t.Helper()
	dates := []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	tbl := NewTable(dates, []string{"A", "B", "^FCHI"})
	tbl.Values[0] = []float64{1, 2}
	tbl.Values[1] = []float64{3, math.NaN()}
	return tbl
}

func TestNewTableIsAllNaN(t *testing.T) {
	tbl := NewTable(make([]time.Time, 3), []string{"A", "B"})

	ex.AssertAreEqual(t, "rows", 3, tbl.Rows())
	for _, col := range tbl.Values {
		ex.AssertAreEqual(t, "valid", 0, CountValid(col))
	}
	if tbl.HasData() {
		t.Fatalf("expected a freshly allocated table to have no data")
	}
}

func TestSelectCopiesAndSkipsUnknown(t *testing.T) {
	tbl := testTable(t)

	sel := tbl.Select([]string{"B", "MISSING", "A"})
	ex.AssertAreEqual(t, "symbols", 2, len(sel.Symbols))
	ex.AssertAreEqual(t, "first symbol", "B", sel.Symbols[0])

	sel.Values[1][0] = 42
	if tbl.Values[0][0] != 1 {
		t.Fatalf("select must not share column storage with the source table")
	}
}

func TestWithoutDropsSymbol(t *testing.T) {
	tbl := testTable(t)

	res := tbl.Without("^FCHI")
	ex.AssertAreEqual(t, "symbols", 2, len(res.Symbols))
	if res.Index("^FCHI") >= 0 {
		t.Fatalf("benchmark should have been removed")
	}
	if tbl.Index("^FCHI") < 0 {
		t.Fatalf("source table must be left untouched")
	}
}

func TestIsEmpty(t *testing.T) {
	if !(Table{}).IsEmpty() {
		t.Fatalf("zero table should be empty")
	}
	if testTable(t).IsEmpty() {
		t.Fatalf("populated table should not be empty")
	}
}
