package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	e "perfdash/data/extensions"
	sm "perfdash/models"
)

const (
	DefaultAddr    = ":8080"
	DefaultTimeout = 30 * time.Second
)

var errInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// AnalysisQuery is the wire form of an analysis request, dates are YYYY-MM-DD
type AnalysisQuery struct {
	Tickers []string `json:"tickers"`
	Start   string   `json:"start"`
	End     string   `json:"end"`
}

func GetHttpServer(sc *ServiceContext) *http.Server {
	addr := sc.Config.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	timeout := sc.Config.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	server := &http.Server{
		Addr:           addr,
		Handler:        GetRouter(sc),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   timeout + 10*time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// requests derive from the service context so shutdown cancels in flight fetches
	if sc.Context != nil {
		server.BaseContext = func(net.Listener) context.Context { return sc.Context }
	}

	return server
}

func GetRouter(sc *ServiceContext) http.Handler {
	timeout := sc.Config.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	origins := sc.Config.CorsOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", ping)
		r.Get("/settings", func(w http.ResponseWriter, r *http.Request) { getSettings(w, r, sc) })
		r.Get("/analysis", func(w http.ResponseWriter, r *http.Request) { getAnalysis(w, r, sc) })
		r.Post("/analysis", func(w http.ResponseWriter, r *http.Request) { postAnalysis(w, r, sc) })
	})

	return r
}

func ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func getSettings(w http.ResponseWriter, r *http.Request, sc *ServiceContext) {
	start, end := sc.Config.DefaultRange(time.Now())
	source := sc.Config.Source
	settings := sm.GetSettingsResponse(source, e.FmtShort(start), e.FmtShort(end))
	writeJSON(w, http.StatusOK, sm.GetServiceResponseOk(&settings))
}

func getAnalysis(w http.ResponseWriter, r *http.Request, sc *ServiceContext) {
	q := r.URL.Query()
	query := AnalysisQuery{
		Tickers: e.SplitList(q.Get("tickers")),
		Start:   q.Get("start"),
		End:     q.Get("end"),
	}
	runAnalysis(w, r, sc, query)
}

func postAnalysis(w http.ResponseWriter, r *http.Request, sc *ServiceContext) {
	var query AnalysisQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		writeJSON(w, http.StatusBadRequest, sm.GetServiceResponseError(fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	runAnalysis(w, r, sc, query)
}

func runAnalysis(w http.ResponseWriter, r *http.Request, sc *ServiceContext, query AnalysisQuery) {
	req, err := toAnalysisRequest(sc, query)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, sm.GetServiceResponseError(err.Error()))
		return
	}

	res := sc.RunAnalysis(r.Context(), req)
	writeJSON(w, http.StatusOK, sm.GetServiceResponseOk(res))
}

// toAnalysisRequest fills missing dates from the configured default range
func toAnalysisRequest(sc *ServiceContext, query AnalysisQuery) (sm.AnalysisRequest, error) {
	start, end := sc.Config.DefaultRange(time.Now())

	if query.Start != "" {
		t, err := e.ParseShort(query.Start)
		if err != nil {
			return sm.AnalysisRequest{}, fmt.Errorf("start: %w", errInvalidDate)
		}
		start = t
	}
	if query.End != "" {
		t, err := e.ParseShort(query.End)
		if err != nil {
			return sm.AnalysisRequest{}, fmt.Errorf("end: %w", errInvalidDate)
		}
		end = t
	}

	tickers := make([]string, 0, len(query.Tickers))
	for _, t := range query.Tickers {
		tickers = append(tickers, e.SplitList(t)...)
	}

	return sm.AnalysisRequest{Tickers: tickers, Start: start, End: end}, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
