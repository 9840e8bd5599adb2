package core

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	e "perfdash/data/extensions"
	dm "perfdash/data/models"
	sm "perfdash/models"
)

// Analysis is the computed state for one request, shared by the http payload and the cli report
type Analysis struct {
	Symbols     []string
	Prices      *dm.PriceTable
	Returns     dm.ReturnsTable
	Cumulative  dm.CumulativeReturnsTable
	Metrics     []MetricsRecord
	Correlation *CorrelationMatrix
}

// Analyze loads prices for the tickers plus the benchmark and runs every calculator.
// The correlation matrix only covers the assets, the benchmark is left out.
func Analyze(ctx context.Context, loader Loader, tickers []string, start, end time.Time) (*Analysis, error) {
	prices, err := loader.LoadPrices(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}

	returns := CalculateReturns(*prices)
	assets := dm.ReturnsTable{Table: returns.Without(sm.BenchmarkSymbol)}

	return &Analysis{
		Symbols:     prices.Symbols,
		Prices:      prices,
		Returns:     returns,
		Cumulative:  CalculateCumulativeReturns(returns),
		Metrics:     CalculateMetrics(returns, sm.BenchmarkSymbol, sm.RiskFreeRate),
		Correlation: CalculateCorrelation(assets),
	}, nil
}

// RunAnalysis never fails, a pipeline error gives an empty response whose status says why
func (sc *ServiceContext) RunAnalysis(ctx context.Context, req sm.AnalysisRequest) *sm.AnalysisResponse {
	start := time.Now()
	log.Printf("Recieved analysis request for %v from %v to %v", strings.Join(req.Tickers, ","), e.FmtShort(req.Start), e.FmtShort(req.End))

	analysis, err := Analyze(ctx, sc.Loader, req.Tickers, req.Start, req.End)
	if err != nil {
		status := statusOf(err)
		log.Printf("Analysis for %v returned %v: %v (time: %v)", strings.Join(req.Tickers, ","), status, err, time.Since(start))
		return sm.EmptyAnalysisResponse(status)
	}

	log.Printf("Building analysis response for %v symbols (time: %v)", len(analysis.Symbols), time.Since(start))
	response := buildAnalysisResponse(analysis)

	log.Printf("Analysis completed (time: %v)", time.Since(start))
	return response
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return sm.StatusEmptyInput
	case errors.Is(err, ErrInvalidRange):
		return sm.StatusInvalidRange
	default:
		return sm.StatusDataUnavailable
	}
}

func buildAnalysisResponse(a *Analysis) *sm.AnalysisResponse {
	res := sm.EmptyAnalysisResponse(sm.StatusOk)
	res.Options = a.Symbols
	res.Selected = a.Symbols

	assetsOnly := a.Prices.Without(sm.BenchmarkSymbol)
	res.Prices = toLineSeries(a.Prices.Table)
	res.PricesAssetsOnly = toLineSeries(assetsOnly)
	res.CumulativeReturns = toLineSeries(a.Cumulative.Table)

	for _, record := range a.Metrics {
		appendBar(&res.Volatility, record.Symbol, record.Volatility)
		appendBar(&res.Beta, record.Symbol, record.Beta)
		appendBar(&res.SharpeRatio, record.Symbol, record.SharpeRatio)
	}
	res.Metrics = e.Map(a.Metrics, toMetricsPayload)

	res.Correlation = toHeatmap(a.Correlation)
	return res
}

func toLineSeries(t dm.Table) []sm.LineSeries {
	res := make([]sm.LineSeries, len(t.Symbols))
	for c, symbol := range t.Symbols {
		points := make([]sm.LinePoint, len(t.Dates))
		for i, d := range t.Dates {
			points[i] = sm.LinePoint{Date: e.FmtShort(d), Value: sm.FloatOrNull(t.Values[c][i])}
		}
		res[c] = sm.LineSeries{Symbol: symbol, Points: points}
	}
	return res
}

func appendBar(series *sm.BarSeries, symbol string, value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	series.Bars = append(series.Bars, sm.Bar{Symbol: symbol, Value: value})
}

func toMetricsPayload(r MetricsRecord) sm.MetricsPayload {
	return sm.MetricsPayload{
		Symbol:       r.Symbol,
		Volatility:   sm.FloatOrNull(r.Volatility),
		Beta:         sm.FloatOrNull(r.Beta),
		BetaStatus:   r.BetaStatus.String(),
		SharpeRatio:  sm.FloatOrNull(r.SharpeRatio),
		AnnualReturn: sm.FloatOrNull(r.AnnualReturn),
		Observations: r.Observations,
	}
}

func toHeatmap(cm *CorrelationMatrix) sm.CorrelationHeatmap {
	if cm.IsEmpty() {
		return sm.CorrelationHeatmap{Symbols: []string{}, Values: [][]null.Float{}}
	}

	n := len(cm.Symbols)
	values := make([][]null.Float, n)
	for i := range n {
		values[i] = make([]null.Float, n)
		for j := range n {
			values[i][j] = sm.FloatOrNull(cm.Values.At(i, j))
		}
	}

	return sm.CorrelationHeatmap{Symbols: cm.Symbols, Values: values}
}
