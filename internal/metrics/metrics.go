package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the strategy lab.
type Metrics struct {
	// Calculations (labels: kind=pl_curve|position_size|validate|portfolio|kelly)
	CalculationsTotal  *prometheus.CounterVec
	CalculationDur     *prometheus.HistogramVec
	ValidationFailures *prometheus.CounterVec
	CurvePoints        prometheus.Histogram
	UnboundedCurves    *prometheus.CounterVec // labels: side=profit|loss
	JournalWriteErrors prometheus.Counter
	HTTPRequestsTotal  *prometheus.CounterVec // labels: route, code

	// Sessions and fan-out
	SessionsActive   prometheus.Gauge
	SessionsCreated  prometheus.Counter
	WSClients        prometheus.Gauge
	CurvePushesTotal prometheus.Counter
	CurvePushDrops   prometheus.Counter

	// Quotes
	QuoteUpdatesTotal prometheus.Counter
	QuoteBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	MarketState       prometheus.Gauge // 0=closed, 1=open
}

// NewMetrics registers the metrics with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lab_calculations_total",
			Help: "Calculations served, by kind",
		}, []string{"kind"}),
		CalculationDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lab_calculation_duration_seconds",
			Help:    "Calculation latency, by kind",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"kind"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lab_validation_failures_total",
			Help: "Requests rejected by validation, by kind",
		}, []string{"kind"}),
		CurvePoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lab_curve_points",
			Help:    "Samples per computed P/L curve",
			Buckets: []float64{10, 25, 50, 100, 150, 200},
		}),
		UnboundedCurves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lab_unbounded_curves_total",
			Help: "Curves with an unbounded tail, by side",
		}, []string{"side"}),
		JournalWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lab_journal_write_errors_total",
			Help: "Failed calculation journal writes",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lab_http_requests_total",
			Help: "HTTP requests, by route and status code",
		}, []string{"route", "code"}),

		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lab_sessions_active",
			Help: "Open lab sessions",
		}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lab_sessions_created_total",
			Help: "Lab sessions created",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lab_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		CurvePushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lab_curve_pushes_total",
			Help: "Curve updates delivered to WebSocket clients",
		}),
		CurvePushDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lab_curve_push_drops_total",
			Help: "Curve updates dropped for slow WebSocket clients",
		}),

		QuoteUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lab_quote_updates_total",
			Help: "Quote updates received from the quote feed",
		}),
		QuoteBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lab_quote_breaker_state",
			Help: "Quote cache breaker state: 0=closed, 1=open, 2=half-open",
		}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lab_market_state",
			Help: "NYSE regular session: 1=open, 0=closed",
		}),
	}

	reg.MustRegister(
		m.CalculationsTotal,
		m.CalculationDur,
		m.ValidationFailures,
		m.CurvePoints,
		m.UnboundedCurves,
		m.JournalWriteErrors,
		m.HTTPRequestsTotal,
		m.SessionsActive,
		m.SessionsCreated,
		m.WSClients,
		m.CurvePushesTotal,
		m.CurvePushDrops,
		m.QuoteUpdatesTotal,
		m.QuoteBreakerState,
		m.MarketState,
	)

	return m
}

// ObserveCalculation counts one calculation of kind and records its latency.
// Safe on a nil receiver.
func (m *Metrics) ObserveCalculation(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.CalculationsTotal.WithLabelValues(kind).Inc()
	m.CalculationDur.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// ValidationFailed counts a rejected request of kind. Safe on a nil receiver.
func (m *Metrics) ValidationFailed(kind string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(kind).Inc()
}

// HealthStatus tracks dependency health for the /healthz endpoint.
// Redis is optional: when no client is configured it is reported as disabled
// and does not degrade the status.
type HealthStatus struct {
	mu sync.RWMutex

	StartedAt       time.Time
	RedisEnabled    bool
	RedisConnected  bool
	RedisLatencyMs  float64
	SQLiteOK        bool
	SQLiteLatencyMs float64
	LastQuoteAt     time.Time
	Sessions        int
	LastCheckAt     time.Time
}

// NewHealthStatus creates a health tracker.
func NewHealthStatus(redisEnabled bool) *HealthStatus {
	return &HealthStatus{StartedAt: time.Now(), RedisEnabled: redisEnabled}
}

func (h *HealthStatus) SetLastQuoteTime(t time.Time) {
	h.mu.Lock()
	h.LastQuoteAt = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetSessions(n int) {
	h.mu.Lock()
	h.Sessions = n
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the journal database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker probes dependencies once immediately and then every interval.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if rdb != nil {
			h.CheckRedis(probeCtx, rdb)
		}
		if sqlDB != nil {
			h.CheckSQLite(probeCtx, sqlDB)
		}
	}
	go func() {
		probe()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probe()
			}
		}
	}()
}

// Report is the /healthz body.
type Report struct {
	Status          string  `json:"status"`
	Uptime          string  `json:"uptime"`
	Redis           string  `json:"redis"`
	RedisLatencyMs  float64 `json:"redis_latency_ms"`
	SQLiteOK        bool    `json:"sqlite_ok"`
	SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
	LastQuoteTime   string  `json:"last_quote_time,omitempty"`
	QuoteAge        string  `json:"quote_age,omitempty"`
	Sessions        int     `json:"sessions"`
	LastCheckAt     string  `json:"last_check_at"`
}

// Report summarises current health and the HTTP code to serve it with.
func (h *HealthStatus) Report() (Report, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	redisOK := !h.RedisEnabled || h.RedisConnected
	status, code := "healthy", http.StatusOK
	switch {
	case !redisOK && !h.SQLiteOK:
		status, code = "unhealthy", http.StatusServiceUnavailable
	case !redisOK || !h.SQLiteOK:
		status, code = "degraded", http.StatusServiceUnavailable
	}

	redis := "disabled"
	if h.RedisEnabled {
		redis = "down"
		if h.RedisConnected {
			redis = "up"
		}
	}

	r := Report{
		Status:          status,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		Redis:           redis,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		Sessions:        h.Sessions,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}
	if !h.LastQuoteAt.IsZero() {
		r.LastQuoteTime = h.LastQuoteAt.Format(time.RFC3339)
		r.QuoteAge = time.Since(h.LastQuoteAt).Round(time.Millisecond).String()
	}
	return r, code
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report, code := h.Report()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(report)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
