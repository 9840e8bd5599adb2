package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	c "perfdash/api"
	ex "perfdash/data/extensions"
)

// 2024-01-02, 2024-01-03 and 2024-01-04 at 09:00 Paris time
const chartBody = `{"chart":{"result":[{
    "meta":{"symbol":"^FCHI","currency":"EUR","gmtoffset":3600},
    "timestamp":[1704182400,1704268800,1704355200],
    "indicators":{
        "quote":[{"close":[7543.18,null,7450.63]}],
        "adjclose":[{"adjclose":[7543.18,null,7450.63]}]
    }
}],"error":null}}`

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func Test_Yahoo_ParseChartSkipsNullCloses(t *testing.T) {
	res, err := parseChart(strings.NewReader(chartBody), "^FCHI", day(1), day(31))
	if err != nil {
		t.Fatalf("error parsing chart: %v", err)
	}

	ex.AssertAreEqual(t, "points", 2, len(res.Points))
	ex.AssertAreEqual(t, "first date", day(2), res.Points[0].Date)
	ex.AssertAreEqual(t, "second date", day(4), res.Points[1].Date)
	ex.AssertAreEqual(t, "second close", 7450.63, res.Points[1].Close)
}

func Test_Yahoo_ParseChartUsesQuoteWithoutAdjClose(t *testing.T) {
	body := `{"chart":{"result":[{"meta":{"gmtoffset":0},"timestamp":[1704153600],
        "indicators":{"quote":[{"close":[101.5]}]}}],"error":null}}`

	res, err := parseChart(strings.NewReader(body), "A", day(1), day(31))
	if err != nil {
		t.Fatalf("error parsing chart: %v", err)
	}
	ex.AssertAreEqual(t, "close", 101.5, res.Points[0].Close)
}

func Test_Yahoo_ParseChartErrors(t *testing.T) {
	body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`
	if _, err := parseChart(strings.NewReader(body), "NOPE", day(1), day(31)); err == nil {
		t.Fatalf("expected chart error")
	}

	body = `{"chart":{"result":[],"error":null}}`
	if _, err := parseChart(strings.NewReader(body), "NOPE", day(1), day(31)); !errors.Is(err, ErrTickerNotFound) {
		t.Fatalf("expected ErrTickerNotFound, got %v", err)
	}
}

func Test_Yahoo_FetchClosesAgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v8/finance/chart/^FCHI") {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("expected daily interval, got %s", r.URL.Query().Get("interval"))
		}
		w.Write([]byte(chartBody))
	}))
	defer server.Close()

	u, _ := url.Parse(server.URL)
	cc := &ChartClient{&c.Client{Connection: c.NewClientHost("http", u.Host, time.Second)}}

	res, err := cc.FetchCloses(context.Background(), []string{"^FCHI", "MISSING"}, day(1), day(4))
	if err != nil {
		t.Fatalf("error fetching closes: %v", err)
	}

	ex.AssertAreEqual(t, "series", 2, len(res))
	// day 4 is excluded by the half open range
	ex.AssertAreEqual(t, "index points", 1, len(res[0].Points))
	ex.AssertAreEqual(t, "missing points", 0, len(res[1].Points))
}
