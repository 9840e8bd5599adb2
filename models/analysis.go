package models

import (
	"time"

	"github.com/guregu/null/v6"

	e "perfdash/data/extensions"
)

const (
	StatusOk              = "ok"
	StatusEmptyInput      = "empty_input"
	StatusInvalidRange    = "invalid_range"
	StatusDataUnavailable = "data_unavailable"
)

type AnalysisRequest struct {
	Tickers []string  `json:"tickers"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// AnalysisResponse is everything the dashboard draws for one ticker selection
type AnalysisResponse struct {
	Status            string             `json:"status"`
	Options           []string           `json:"options"`
	Selected          []string           `json:"selected"`
	Prices            []LineSeries       `json:"prices"`
	PricesAssetsOnly  []LineSeries       `json:"pricesAssetsOnly"`
	CumulativeReturns []LineSeries       `json:"cumulativeReturns"`
	Volatility        BarSeries          `json:"volatility"`
	Beta              BarSeries          `json:"beta"`
	SharpeRatio       BarSeries          `json:"sharpeRatio"`
	Metrics           []MetricsPayload   `json:"metrics"`
	Correlation       CorrelationHeatmap `json:"correlation"`
}

type LineSeries struct {
	Symbol string      `json:"symbol"`
	Points []LinePoint `json:"points"`
}

type LinePoint struct {
	Date  string     `json:"date"`
	Value null.Float `json:"value"`
}

type BarSeries struct {
	Title string `json:"title"`
	Bars  []Bar  `json:"bars"`
}

type Bar struct {
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`
}

type MetricsPayload struct {
	Symbol       string     `json:"symbol"`
	Volatility   null.Float `json:"volatility"`
	Beta         null.Float `json:"beta"`
	BetaStatus   string     `json:"betaStatus"`
	SharpeRatio  null.Float `json:"sharpeRatio"`
	AnnualReturn null.Float `json:"annualReturn"`
	Observations int        `json:"observations"`
}

// CorrelationHeatmap is row major, Values[i][j] is the correlation of Symbols[i] and Symbols[j]
type CorrelationHeatmap struct {
	Symbols []string       `json:"symbols"`
	Values  [][]null.Float `json:"values"`
}

// EmptyAnalysisResponse is the result shown when the pipeline could not run
func EmptyAnalysisResponse(status string) *AnalysisResponse {
	return &AnalysisResponse{
		Status:            status,
		Options:           []string{},
		Selected:          []string{},
		Prices:            []LineSeries{},
		PricesAssetsOnly:  []LineSeries{},
		CumulativeReturns: []LineSeries{},
		Volatility:        BarSeries{Title: "Volatility", Bars: []Bar{}},
		Beta:              BarSeries{Title: "Beta", Bars: []Bar{}},
		SharpeRatio:       BarSeries{Title: "Sharpe Ratio", Bars: []Bar{}},
		Metrics:           []MetricsPayload{},
		Correlation:       CorrelationHeatmap{Symbols: []string{}, Values: [][]null.Float{}},
	}
}

// FloatOrNull maps NaN and infinities to a JSON null
func FloatOrNull(v float64) null.Float {
	return null.FloatFromPtr(e.NaNToNil(v))
}
