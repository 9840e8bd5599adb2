package core

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	dm "perfdash/data/models"
	sm "perfdash/models"
)

// BetaStatus tells apart the reasons a beta can be undefined
type BetaStatus int

const (
	BetaOK BetaStatus = iota
	BetaNoData
	BetaZeroVariance
)

func (b BetaStatus) String() string {
	switch b {
	case BetaOK:
		return "ok"
	case BetaNoData:
		return "no_data"
	case BetaZeroVariance:
		return "zero_variance"
	default:
		return ""
	}
}

// MetricsRecord is the per ticker result of the metrics calculator, NaN marks missing data
type MetricsRecord struct {
	Symbol       string
	Volatility   float64
	Beta         float64
	BetaStatus   BetaStatus
	SharpeRatio  float64
	AnnualReturn float64
	Observations int
}

// CorrelationMatrix is symmetric by construction, Values is nil when fewer than two columns qualify
type CorrelationMatrix struct {
	Symbols []string
	Values  *mat.SymDense
}

func (cm *CorrelationMatrix) IsEmpty() bool {
	return cm == nil || cm.Values == nil || len(cm.Symbols) < 2
}

// At looks up the correlation of two symbols
func (cm *CorrelationMatrix) At(a, b string) (float64, bool) {
	if cm.IsEmpty() {
		return math.NaN(), false
	}
	i, j := indexOf(cm.Symbols, a), indexOf(cm.Symbols, b)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return cm.Values.At(i, j), true
}

// CalculateReturns computes prices[i]/prices[i-1] - 1 per column, row 0 and any gap become NaN
func CalculateReturns(prices dm.PriceTable) dm.ReturnsTable {
	res := dm.ReturnsTable{Table: dm.NewTable(prices.Dates, prices.Symbols)}

	for c, col := range prices.Values {
		out := res.Values[c]
		for i := 1; i < len(col); i++ {
			prev, cur := col[i-1], col[i]
			if math.IsNaN(prev) || math.IsNaN(cur) || prev == 0 {
				continue
			}
			out[i] = cur/prev - 1
		}
	}

	return res
}

// CalculateCumulativeReturns is the running product of (1 + r), skipping NaN returns without resetting
func CalculateCumulativeReturns(returns dm.ReturnsTable) dm.CumulativeReturnsTable {
	res := dm.CumulativeReturnsTable{Table: dm.NewTable(returns.Dates, returns.Symbols)}

	for c, col := range returns.Values {
		growth := 1.0
		for i, r := range col {
			if math.IsNaN(r) {
				continue
			}
			growth *= 1 + r
			res.Values[c][i] = growth
		}
	}

	return res
}

// validObservations drops NaN values
func validObservations(x []float64) []float64 {
	res := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			res = append(res, v)
		}
	}
	return res
}

// pairwiseComplete keeps only the rows where both series have a value.
// Covariance and correlation are always computed on its output so rows are never misaligned.
func pairwiseComplete(x, y []float64) ([]float64, []float64) {
	n := min(len(x), len(y))
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := range n {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// sampleVariance is the ddof=1 variance, NaN under two observations
func sampleVariance(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.Variance(x, nil)
}

// AnnualizedVolatility is the sample standard deviation of daily returns scaled by sqrt(252)
func AnnualizedVolatility(returns []float64) float64 {
	valid := validObservations(returns)
	variance := sampleVariance(valid)
	if math.IsNaN(variance) {
		return math.NaN()
	}
	return math.Sqrt(variance) * math.Sqrt(sm.Daily)
}

// AnnualizedReturn is the arithmetic mean daily return times 252
func AnnualizedReturn(returns []float64) float64 {
	valid := validObservations(returns)
	if len(valid) == 0 {
		return math.NaN()
	}
	return stat.Mean(valid, nil) * sm.Daily
}

// CalculateBeta is cov(asset, benchmark) / var(benchmark).
// The covariance is pairwise complete, the variance uses every benchmark observation.
func CalculateBeta(asset, benchmark []float64) (float64, BetaStatus) {
	benchmarkVariance := sampleVariance(validObservations(benchmark))
	if math.IsNaN(benchmarkVariance) {
		return math.NaN(), BetaNoData
	}
	if benchmarkVariance == 0 {
		return math.NaN(), BetaZeroVariance
	}

	xs, ys := pairwiseComplete(asset, benchmark)
	if len(xs) < 2 {
		return math.NaN(), BetaNoData
	}

	return stat.Covariance(xs, ys, nil) / benchmarkVariance, BetaOK
}

// SharpeRatio is (annual return - risk free) / volatility, undefined for zero or missing volatility
func SharpeRatio(annualReturn, volatility, riskFreeRate float64) float64 {
	if math.IsNaN(volatility) || volatility == 0 || math.IsNaN(annualReturn) {
		return math.NaN()
	}
	return (annualReturn - riskFreeRate) / volatility
}

// CalculateMetrics returns one record per column other than the benchmark, in column order.
// A missing benchmark column leaves every beta undefined.
func CalculateMetrics(returns dm.ReturnsTable, benchmark string, riskFreeRate float64) []MetricsRecord {
	benchmarkReturns, ok := returns.Column(benchmark)
	if !ok {
		benchmarkReturns = dm.NaNs(returns.Rows())
	}

	res := make([]MetricsRecord, 0, len(returns.Symbols))
	for c, symbol := range returns.Symbols {
		if symbol == benchmark {
			continue
		}

		col := returns.Values[c]
		volatility := AnnualizedVolatility(col)
		annualReturn := AnnualizedReturn(col)
		beta, status := CalculateBeta(col, benchmarkReturns)

		res = append(res, MetricsRecord{
			Symbol:       symbol,
			Volatility:   volatility,
			Beta:         beta,
			BetaStatus:   status,
			SharpeRatio:  SharpeRatio(annualReturn, volatility, riskFreeRate),
			AnnualReturn: annualReturn,
			Observations: dm.CountValid(col),
		})
	}

	return res
}

// CalculateCorrelation builds the pearson correlation matrix over columns with at least two observations.
// Pairs with fewer than two shared rows or a constant series are NaN.
func CalculateCorrelation(returns dm.ReturnsTable) *CorrelationMatrix {
	symbols := make([]string, 0, len(returns.Symbols))
	columns := make([][]float64, 0, len(returns.Symbols))
	for c, symbol := range returns.Symbols {
		if dm.CountValid(returns.Values[c]) < 2 {
			continue
		}
		symbols = append(symbols, symbol)
		columns = append(columns, returns.Values[c])
	}

	if len(symbols) < 2 {
		return &CorrelationMatrix{}
	}

	n := len(symbols)
	corr := mat.NewSymDense(n, nil)
	for i := range n {
		if sampleVariance(validObservations(columns[i])) > 0 {
			corr.SetSym(i, i, 1)
		} else {
			corr.SetSym(i, i, math.NaN())
		}

		for j := range i {
			corr.SetSym(i, j, pairCorrelation(columns[i], columns[j]))
		}
	}

	return &CorrelationMatrix{
		Symbols: symbols,
		Values:  corr,
	}
}

func pairCorrelation(x, y []float64) float64 {
	xs, ys := pairwiseComplete(x, y)
	if len(xs) < 2 {
		return math.NaN()
	}
	if !(sampleVariance(xs) > 0) || !(sampleVariance(ys) > 0) {
		return math.NaN()
	}

	// rounding can push a perfect correlation a hair past 1
	return math.Max(-1, math.Min(1, stat.Correlation(xs, ys, nil)))
}

func indexOf(symbols []string, symbol string) int {
	for i, s := range symbols {
		if s == symbol {
			return i
		}
	}
	return -1
}
