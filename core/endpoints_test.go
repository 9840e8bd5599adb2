package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ex "perfdash/data/extensions"
	sm "perfdash/models"
)

func serve(t *testing.T, sc *ServiceContext, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	GetRouter(sc).ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	rec := serve(t, testContext(marketSource()), http.MethodGet, "/api/ping", "")

	ex.AssertAreEqual(t, "status", http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rec.Body.String())
}

func TestGetSettings(t *testing.T) {
	rec := serve(t, testContext(marketSource()), http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res sm.ServiceResponse[sm.SettingsResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Data)
	ex.AssertAreEqual(t, "benchmark", sm.BenchmarkSymbol, res.Data.Benchmark)
	ex.AssertAreEqual(t, "annualization", sm.Daily, res.Data.Annualization)
	ex.AssertAreEqual(t, "default start", "2024-01-01", res.Data.DefaultStart)
}

func TestGetAnalysis(t *testing.T) {
	rec := serve(t, testContext(marketSource()), http.MethodGet, "/api/analysis?tickers=MC.PA,bnp.pa&start=2024-01-01&end=2024-02-01", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res sm.ServiceResponse[sm.AnalysisResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Data)
	ex.AssertAreEqual(t, "error", "", res.Error)
	ex.AssertAreEqual(t, "status", sm.StatusOk, res.Data.Status)
	assert.Equal(t, []string{"MC.PA", "BNP.PA", "^FCHI"}, res.Data.Options)
}

func TestGetAnalysisNaNIsNull(t *testing.T) {
	rec := serve(t, testContext(marketSource()), http.MethodGet, "/api/analysis?tickers=MC.PA&start=2024-01-01&end=2024-02-01", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// the first cumulative return has no previous price
	assert.Contains(t, rec.Body.String(), `"value":null`)
	assert.NotContains(t, rec.Body.String(), "NaN")
}

func TestPostAnalysis(t *testing.T) {
	body := `{"tickers":["MC.PA, BNP.PA"],"start":"2024-01-01","end":"2024-02-01"}`
	rec := serve(t, testContext(marketSource()), http.MethodPost, "/api/analysis", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var res sm.ServiceResponse[sm.AnalysisResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	ex.AssertAreEqual(t, "metrics", 2, len(res.Data.Metrics))
}

func TestAnalysisBadRequests(t *testing.T) {
	sc := testContext(marketSource())

	rec := serve(t, sc, http.MethodGet, "/api/analysis?tickers=MC.PA&start=01/01/2024", "")
	ex.AssertAreEqual(t, "bad date", http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid date")

	rec = serve(t, sc, http.MethodPost, "/api/analysis", "{not json")
	ex.AssertAreEqual(t, "bad body", http.StatusBadRequest, rec.Code)
}

func TestAnalysisPipelineFailureIsNotAnHttpError(t *testing.T) {
	rec := serve(t, testContext(marketSource()), http.MethodGet, "/api/analysis?tickers=&start=2024-01-01&end=2024-02-01", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res sm.ServiceResponse[sm.AnalysisResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	ex.AssertAreEqual(t, "status", sm.StatusEmptyInput, res.Data.Status)
	assert.Empty(t, res.Data.Options)
}

func TestCorsPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/analysis", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	sc := testContext(marketSource())
	sc.Config.CorsOrigins = []string{"http://localhost:3000"}
	GetRouter(sc).ServeHTTP(rec, req)

	ex.AssertAreEqual(t, "allow origin", "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetHttpServerUsesServiceContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sc := testContext(marketSource())
	sc.Context = ctx
	sc.Config.Addr = ":9090"

	s := GetHttpServer(sc)
	ex.AssertAreEqual(t, "addr", ":9090", s.Addr)
	require.NotNil(t, s.BaseContext)

	base := s.BaseContext(nil)
	cancel()
	select {
	case <-base.Done():
	default:
		t.Fatalf("request base context should end with the service context")
	}
}
