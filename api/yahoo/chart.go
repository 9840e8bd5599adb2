package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	c "perfdash/api"
	m "perfdash/data/models"
)

const (
	HostDefault = "query1.finance.yahoo.com"

	defaultTimeout = 30 * time.Second
	chartPath      = "v8/finance/chart/"
)

var ErrTickerNotFound = errors.New("ticker not found")

// --- Yahoo Finance v8 chart API types ---

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol    string `json:"symbol"`
	Currency  string `json:"currency"`
	GmtOffset int64  `json:"gmtoffset"`
}

type indicators struct {
	Quote    []quote    `json:"quote"`
	AdjClose []adjClose `json:"adjclose"`
}

type quote struct {
	Close []*float64 `json:"close"`
}

type adjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type ChartClient struct {
	*c.Client
}

func GetClient(timeout time.Duration) *ChartClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ChartClient{c.ClientFactory(HostDefault, "", timeout)}
}

func (cc *ChartClient) Name() string {
	return "yahoo"
}

func (cc *ChartClient) FetchCloses(ctx context.Context, symbols []string, start, end time.Time) ([]m.SymbolSeries, error) {
	return c.FetchEach(ctx, cc.Name(), symbols, c.DefaultFetchLimit, func(ctx context.Context, ticker string) (m.SymbolSeries, error) {
		return cc.GetDailyCloses(ctx, ticker, start, end)
	})
}

// GetDailyCloses returns daily closes in [start, end), preferring adjusted closes
func (cc *ChartClient) GetDailyCloses(ctx context.Context, ticker string, start, end time.Time) (m.SymbolSeries, error) {
	endpoint := &url.URL{Path: chartPath + ticker}
	q := endpoint.Query()
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,split")
	endpoint.RawQuery = q.Encode()

	response, err := cc.Connection.Request(ctx, endpoint)
	if err != nil {
		return m.SymbolSeries{}, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}
	defer response.Body.Close()

	return parseChart(response.Body, ticker, start, end)
}

func parseChart(reader io.Reader, ticker string, start, end time.Time) (m.SymbolSeries, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return m.SymbolSeries{}, fmt.Errorf("read response: %w", err)
	}

	var resp chartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return m.SymbolSeries{}, fmt.Errorf("parse yahoo chart: %w", err)
	}

	if resp.Chart.Error != nil {
		return m.SymbolSeries{}, fmt.Errorf("yahoo chart error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return m.SymbolSeries{}, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}

	result := resp.Chart.Result[0]
	closes := pickCloses(result.Indicators)

	res := m.SymbolSeries{Symbol: ticker}
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}

		// bars are stamped at the exchange open, shift by the exchange offset to get its calendar date
		y, mo, d := time.Unix(ts+result.Meta.GmtOffset, 0).UTC().Date()
		date := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
		if date.Before(start) || !date.Before(end) {
			continue
		}

		res.Points = append(res.Points, m.PricePoint{Date: date, Close: *closes[i]})
	}

	return res, nil
}

func pickCloses(ind indicators) []*float64 {
	if len(ind.AdjClose) > 0 && len(ind.AdjClose[0].AdjClose) > 0 {
		return ind.AdjClose[0].AdjClose
	}
	if len(ind.Quote) > 0 {
		return ind.Quote[0].Close
	}
	return nil
}
