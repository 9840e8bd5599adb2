package alpha_vantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	c "perfdash/api"
	e "perfdash/data/extensions"
	m "perfdash/data/models"
)

// public
const (
	HostDefault = "www.alphavantage.co"
)

// private
const (
	// default query parameters
	defaultOutputSize = "full"
	defaultDataType   = "json"
	defaultTimeout    = time.Second * 30

	// free keys are limited to a handful of requests per minute
	fetchLimit = 2

	// api request elements
	query    = "query"
	symbol   = "symbol"
	function = "function"
)

var (
	ErrApiMessage = errors.New("alpha vantage returned a message instead of data")

	timeSeriesDateFormats = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
	}

	// struct field -> suffix of the json key, keys come numbered like "4. close"
	ohlcvResultKeys = map[string]string{
		"Open":           ". open",
		"High":           ". high",
		"Low":            ". low",
		"Close":          ". close",
		"AdjustedClose":  ". adjusted close",
		"Volume":         ". volume",
		"DividendAmount": ". dividend amount",
	}
)

type AlphaVantageClient struct {
	*c.Client
	Series TimeSeries
}

func GetClient(apiKey string, timeout time.Duration) *AlphaVantageClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &AlphaVantageClient{
		Client: c.ClientFactory(HostDefault, apiKey, timeout),
		Series: TimeSeriesDaily,
	}
}

func (avc *AlphaVantageClient) Name() string {
	return "alphavantage"
}

// FetchCloses queries every symbol and keeps the closes in [start, end)
func (avc *AlphaVantageClient) FetchCloses(ctx context.Context, symbols []string, start, end time.Time) ([]m.SymbolSeries, error) {
	return c.FetchEach(ctx, avc.Name(), symbols, fetchLimit, func(ctx context.Context, ticker string) (m.SymbolSeries, error) {
		tsr, err := avc.GetStockDailyMetrics(ctx, ticker)
		if err != nil {
			return m.SymbolSeries{}, err
		}
		return toSymbolSeries(ticker, tsr.TimeSeries, start, end), nil
	})
}

// https://www.alphavantage.co/documentation/#daily
func (avc *AlphaVantageClient) GetStockDailyMetrics(ctx context.Context, ticker string) (*m.TimeSeriesResult, error) {
	if avc == nil || avc.Client == nil {
		panic("alpha vantage client has not been set.")
	}

	endpoint := avc.buildRequestPath(map[string]string{
		function: avc.Series.Function(),
		symbol:   ticker,
	})

	response, err := avc.Client.Connection.Request(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()

	return parseTimeSeriesResponse(response.Body, avc.Series.TimeSeriesKey())
}

func (avc *AlphaVantageClient) buildRequestPath(params map[string]string) *url.URL {
	// build our URL
	endpoint := &url.URL{}
	endpoint.Path = query

	// base parameters
	query := endpoint.Query()
	query.Set("apikey", avc.Client.ApiKey)
	query.Set("datatype", defaultDataType)
	query.Set("outputsize", defaultOutputSize)

	// additional parameters
	for key, value := range params {
		query.Set(key, value)
	}

	endpoint.RawQuery = query.Encode()

	return endpoint
}

func parseTimeSeriesResponse(reader io.Reader, key string) (*m.TimeSeriesResult, error) {
	raw, err := parseRawJson(reader)
	if err != nil {
		return nil, err
	}

	metaData, timeZone, err := parseMetaData(raw)
	if err != nil {
		return nil, err
	}

	timeSeriesData, err := parseTimeSeriesDataResult(raw, key, timeZone)
	if err != nil {
		return nil, err
	}

	return &m.TimeSeriesResult{
		Metadata:   metaData,
		TimeSeries: timeSeriesData,
	}, nil
}

func parseRawJson(reader io.Reader) (raw map[string]json.RawMessage, err error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	// converting to a <string, raw message> map
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	// bad symbols and rate limits come back as 200 with a single message key
	for _, k := range []string{"Error Message", "Note", "Information"} {
		if msg, ok := raw[k]; ok {
			var text string
			_ = json.Unmarshal(msg, &text)
			return nil, fmt.Errorf("%w: %s", ErrApiMessage, text)
		}
	}

	return
}

func parseMetaData(raw map[string]json.RawMessage) (*m.TimeSeriesMetadata, *time.Location, error) {
	var metadataElements map[string]string
	if err := json.Unmarshal(raw["Meta Data"], &metadataElements); err != nil {
		return nil, nil, fmt.Errorf("error unmarshaling meta data: %w", err)
	}

	metaDataKeys := slices.Collect(maps.Keys(metadataElements))

	// parse symbol
	sf := func(s string) bool { return strings.HasSuffix(s, ". Symbol") }
	symbolKey, err := e.FilterSingle(metaDataKeys, sf)
	if err != nil {
		return nil, nil, fmt.Errorf("error extracting symbol for meta data")
	}

	// parse time zone
	tzf := func(s string) bool { return strings.HasSuffix(s, ". Time Zone") }
	timeZoneKey, err := e.FilterSingle(metaDataKeys, tzf)
	if err != nil {
		return nil, nil, fmt.Errorf("error extracting time zone for meta data")
	}

	timeZone, err := getTimeZone(metadataElements[timeZoneKey])
	if err != nil {
		return nil, nil, fmt.Errorf("error converting time zone key %s, to time.Location: %w", metadataElements[timeZoneKey], err)
	}

	// parse last refreshed
	lrf := func(s string) bool { return strings.HasSuffix(s, ". Last Refreshed") }
	lastRefreshedKey, err := e.FilterSingle(metaDataKeys, lrf)
	if err != nil {
		return nil, nil, fmt.Errorf("error extracting last refreshed date")
	}

	lastRefreshed, err := parseDate(metadataElements[lastRefreshedKey], timeZone)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing last refreshed date")
	}

	res := m.TimeSeriesMetadata{
		Symbol:        metadataElements[symbolKey],
		LastRefreshed: lastRefreshed,
		TimeZone:      metadataElements[timeZoneKey],
	}

	// optional elements
	if k, err := e.FilterSingle(metaDataKeys, func(s string) bool { return strings.HasSuffix(s, ". Information") }); err == nil {
		res.Information = null.StringFrom(metadataElements[k])
	}
	if k, err := e.FilterSingle(metaDataKeys, func(s string) bool { return strings.HasSuffix(s, ". Output Size") }); err == nil {
		res.OutputSize = null.StringFrom(metadataElements[k])
	}

	return &res, timeZone, nil
}

func parseTimeSeriesDataResult(raw map[string]json.RawMessage, key string, location *time.Location) ([]*m.TimeSeriesData, error) {
	var timeSeriesElements map[string]map[string]string
	if err := json.Unmarshal(raw[key], &timeSeriesElements); err != nil {
		return nil, fmt.Errorf("error unmarshaling time series: %w", err)
	}

	if len(timeSeriesElements) == 0 {
		return []*m.TimeSeriesData{}, nil
	}

	// populate the lookups
	var firstValue map[string]string
	for _, v := range timeSeriesElements {
		firstValue = v
		break
	}

	ohlcvLookup, err := getLookupKey(ohlcvResultKeys, firstValue)
	if err != nil {
		return nil, err
	}

	timeSeries := make([]*m.TimeSeriesData, 0, len(timeSeriesElements))
	for timeSeriesKey, timeSeriesValue := range timeSeriesElements {
		// get timestamp
		timestamp, err := parseDate(timeSeriesKey, location)
		if err != nil {
			return nil, fmt.Errorf("error converting TIMESTAMP from string to time.Time: %w", err)
		}

		data := &m.TimeSeriesData{Timestamp: timestamp}
		if err := parseOHLCV(data, timeSeriesValue, ohlcvLookup); err != nil {
			return nil, fmt.Errorf("error parsing OHLCV: %w", err)
		}

		timeSeries = append(timeSeries, data)
	}

	// map iteration order is random, callers expect ascending dates
	slices.SortFunc(timeSeries, func(a, b *m.TimeSeriesData) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	return timeSeries, nil
}

func parseOHLCV(res *m.TimeSeriesData, value, lookup map[string]string) error {
	v := reflect.ValueOf(res).Elem()
	for jsonKey, structAttribute := range lookup {
		field := v.FieldByName(structAttribute)
		if !field.IsValid() {
			return fmt.Errorf("field %s does not exist", structAttribute)
		}
		if !field.CanSet() {
			return fmt.Errorf("field %s cannot be set", structAttribute)
		}

		field.Set(reflect.ValueOf(parseFloat(value[jsonKey])))
	}
	return nil
}

func getLookupKey(expectedKeys, values map[string]string) (map[string]string, error) {
	res := make(map[string]string)
	responseValueHeaders := slices.Collect(maps.Keys(values))

	for key, value := range expectedKeys {
		f := func(s string) bool {
			return strings.HasSuffix(strings.ToLower(s), strings.ToLower(value))
		}
		if jsonKey, err := e.FilterSingle(responseValueHeaders, f); err == nil {
			res[jsonKey] = key
		}
	}

	if len(res) == 0 {
		ex := slices.Collect(maps.Keys(values))
		return nil, fmt.Errorf("error generating key value map from av response object. Available headers: %v", ex)
	}

	return res, nil
}

func getTimeZone(location string) (*time.Location, error) {
	var loc string
	switch strings.ToUpper(location) {
	case "US/EASTERN":
		loc = "America/New_York"
	case "UTC":
		return time.UTC, nil
	default:
		log.Printf("default time zone hit, %s is not recognized", location)
		return time.UTC, nil
	}

	res, err := time.LoadLocation(loc)

	if err != nil {
		return nil, fmt.Errorf("error parsing time zone %s in time.LoadLocation", loc)
	}

	return res, nil
}

func parseDate(dateString string, location *time.Location) (time.Time, error) {
	for _, format := range timeSeriesDateFormats {
		t, err := time.ParseInLocation(format, dateString, location)
		if err != nil {
			continue
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("error converting date %s to time.Time", dateString)
}

func parseFloat(val string) null.Float {
	if val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return null.FloatFrom(f)
		}
	}
	return null.Float{}
}

// toSymbolSeries keeps bars with a usable close inside [start, end), keyed by calendar date
func toSymbolSeries(ticker string, data []*m.TimeSeriesData, start, end time.Time) m.SymbolSeries {
	res := m.SymbolSeries{Symbol: ticker}
	for _, d := range data {
		date := e.TruncateDay(d.Timestamp)
		if date.Before(start) || !date.Before(end) {
			continue
		}
		price := d.ClosePrice()
		if !price.Valid {
			continue
		}
		res.Points = append(res.Points, m.PricePoint{Date: date, Close: price.Float64})
	}
	return res
}
