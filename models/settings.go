package models

type SettingsResponse struct {
	Benchmark     string  `json:"benchmark"`
	RiskFreeRate  float64 `json:"riskFreeRate"`
	Annualization int     `json:"annualization"`
	DefaultStart  string  `json:"defaultStart"`
	DefaultEnd    string  `json:"defaultEnd"`
	Source        string  `json:"source"`
}

func GetSettingsResponse(source, defaultStart, defaultEnd string) SettingsResponse {
	return SettingsResponse{
		Benchmark:     BenchmarkSymbol,
		RiskFreeRate:  RiskFreeRate,
		Annualization: Daily,
		DefaultStart:  defaultStart,
		DefaultEnd:    defaultEnd,
		Source:        source,
	}
}
