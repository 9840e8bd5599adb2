package models

import (
	"time"

	"github.com/guregu/null/v6"
)

type TimeSeriesResult struct {
	Metadata   *TimeSeriesMetadata
	TimeSeries []*TimeSeriesData
}

type TimeSeriesMetadata struct {
	Information   null.String
	Symbol        string
	LastRefreshed time.Time
	OutputSize    null.String
	TimeZone      string
}

// TimeSeriesData is one daily bar, any field the provider leaves out stays invalid
type TimeSeriesData struct {
	Timestamp      time.Time
	Open           null.Float
	High           null.Float
	Low            null.Float
	Close          null.Float
	AdjustedClose  null.Float
	Volume         null.Float
	DividendAmount null.Float
}

// ClosePrice prefers the adjusted close when the provider sends one
func (d *TimeSeriesData) ClosePrice() null.Float {
	if d.AdjustedClose.Valid {
		return d.AdjustedClose
	}
	return d.Close
}

// SymbolSeries is the daily closes of a single symbol, the common output of every price source
type SymbolSeries struct {
	Symbol string
	Points []PricePoint
}

type PricePoint struct {
	Date  time.Time
	Close float64
}
