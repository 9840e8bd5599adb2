package models

// Daily is the number of trading days used to annualize daily statistics
const Daily = 252

const (
	RiskFreeRate    = 0.025
	BenchmarkSymbol = "^FCHI"
)
