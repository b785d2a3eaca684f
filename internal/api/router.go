// Package api is the HTTP surface of the strategy lab.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/lab"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/logger"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/metrics"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"
)

// Replayer serves curve frames a client missed.
type Replayer interface {
	Missed(sessionID string, after int64) [][]byte
}

// Deps wires the router. Lab and Quotes are required; the rest may be nil.
type Deps struct {
	Lab     *lab.Service
	Quotes  model.QuoteStore
	WS      http.Handler
	Replay  Replayer
	Health  *metrics.HealthStatus
	Metrics *metrics.Metrics
}

type server struct {
	Deps
}

// NewRouter sets up HTTP routes for the API server.
func NewRouter(d Deps) http.Handler {
	s := &server{Deps: d}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", s.health)
	mux.HandleFunc("GET /api/v1/market", s.market)

	mux.HandleFunc("POST /api/v1/pl/curve", s.plCurve)
	mux.HandleFunc("POST /api/v1/risk/position-size", s.positionSize)
	mux.HandleFunc("POST /api/v1/risk/validate", s.validateRisk)
	mux.HandleFunc("POST /api/v1/risk/portfolio", s.portfolioRisk)
	mux.HandleFunc("POST /api/v1/risk/kelly", s.kelly)
	mux.HandleFunc("POST /api/v1/risk/shares", s.sharesForRisk)

	mux.HandleFunc("GET /api/v1/strategies", s.listStrategies)
	mux.HandleFunc("GET /api/v1/strategies/{id}", s.getStrategy)
	mux.HandleFunc("GET /api/v1/strategies/{id}/analysis", s.strategyAnalysis)
	mux.HandleFunc("POST /api/v1/strategies/validate", s.validateSetup)

	mux.HandleFunc("POST /api/v1/sessions", s.createSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.getSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.deleteSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/legs", s.addLeg)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}/legs", s.clearLegs)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}/legs/{index}", s.removeLeg)
	mux.HandleFunc("POST /api/v1/sessions/{id}/preset", s.applyPreset)
	mux.HandleFunc("GET /api/v1/sessions/{id}/curve", s.sessionCurve)
	mux.HandleFunc("GET /api/v1/sessions/{id}/missed", s.missed)

	mux.HandleFunc("POST /api/v1/quotes", s.putQuote)
	mux.HandleFunc("GET /api/v1/quotes/{symbol}", s.getQuote)
	mux.HandleFunc("GET /api/v1/journal", s.journal)

	if d.WS != nil {
		mux.Handle("GET /ws", d.WS)
	}

	return s.instrument(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument tags each request with an ID, logs it and counts it. The
// WebSocket upgrade needs the raw writer, so /ws only gets the ID.
func (s *server) instrument(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logger.NewRequestID()
		}
		ctx := logger.WithRequestID(r.Context(), id)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", id)
		setCORS(w)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		_, pattern := next.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		if s.Metrics != nil {
			s.Metrics.HTTPRequestsTotal.WithLabelValues(pattern, strconv.Itoa(rec.code)).Inc()
		}
		slog.Debug("http request",
			append(logger.Attrs(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.code,
				"duration", time.Since(start))...)
	})
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
}
