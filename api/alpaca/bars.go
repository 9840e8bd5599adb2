package alpaca

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	e "perfdash/data/extensions"
	m "perfdash/data/models"
)

// barsGetter is the part of the alpaca market data client we use
type barsGetter interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// BarsClient loads daily closes from Alpaca. Alpaca has no index symbols and rejects
// the whole request when given one, so ^ symbols are never sent and come back empty.
type BarsClient struct {
	data barsGetter
	feed marketdata.Feed
}

func GetClient(apiKey, apiSecret string) *BarsClient {
	return &BarsClient{
		data: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		feed: marketdata.IEX,
	}
}

func (bc *BarsClient) Name() string {
	return "alpaca"
}

// FetchCloses asks for every servable symbol in one multi bars call
func (bc *BarsClient) FetchCloses(ctx context.Context, symbols []string, start, end time.Time) ([]m.SymbolSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	servable := e.FilterMultiple(symbols, isServable)
	if skipped := len(symbols) - len(servable); skipped > 0 {
		log.Printf("Skipping %v index symbols alpaca cannot serve", skipped)
	}

	var bars map[string][]marketdata.Bar
	if len(servable) > 0 {
		var err error
		bars, err = bc.data.GetMultiBars(servable, marketdata.GetBarsRequest{
			Start:     start,
			End:       end,
			TimeFrame: marketdata.OneDay,
			Feed:      bc.feed,
		})
		if err != nil {
			return nil, fmt.Errorf("error getting bars: %w", err)
		}
	}

	res := make([]m.SymbolSeries, len(symbols))
	for i, symbol := range symbols {
		res[i] = toSymbolSeries(symbol, bars[symbol], start, end)
	}

	return res, nil
}

// isServable rejects index tickers such as ^FCHI
func isServable(symbol string) bool {
	return !strings.HasPrefix(symbol, "^")
}

func toSymbolSeries(symbol string, bars []marketdata.Bar, start, end time.Time) m.SymbolSeries {
	res := m.SymbolSeries{Symbol: symbol}
	for _, bar := range bars {
		date := e.TruncateDay(bar.Timestamp)
		if date.Before(start) || !date.Before(end) {
			continue
		}
		res.Points = append(res.Points, m.PricePoint{Date: date, Close: bar.Close})
	}
	return res
}
