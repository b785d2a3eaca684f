package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveCalculation(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())
	m.ObserveCalculation("pl_curve", time.Now())
	m.ObserveCalculation("pl_curve", time.Now())
	m.ValidationFailed("position_size")

	if got := testutil.ToFloat64(m.CalculationsTotal.WithLabelValues("pl_curve")); got != 2 {
		t.Errorf("pl_curve calculations: got %v", got)
	}
	if got := testutil.ToFloat64(m.ValidationFailures.WithLabelValues("position_size")); got != 1 {
		t.Errorf("validation failures: got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveCalculation("pl_curve", time.Now())
	nilMetrics.ValidationFailed("kelly")
}

func TestHealthStatus_Report(t *testing.T) {
	tests := []struct {
		name         string
		redisEnabled bool
		redisUp      bool
		sqliteOK     bool
		wantStatus   string
		wantCode     int
		wantRedis    string
	}{
		{"all up", true, true, true, "healthy", http.StatusOK, "up"},
		{"redis disabled", false, false, true, "healthy", http.StatusOK, "disabled"},
		{"redis down", true, false, true, "degraded", http.StatusServiceUnavailable, "down"},
		{"sqlite down", false, false, false, "degraded", http.StatusServiceUnavailable, "disabled"},
		{"both down", true, false, false, "unhealthy", http.StatusServiceUnavailable, "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthStatus(tt.redisEnabled)
			h.RedisConnected = tt.redisUp
			h.SQLiteOK = tt.sqliteOK

			r, code := h.Report()
			if r.Status != tt.wantStatus || code != tt.wantCode || r.Redis != tt.wantRedis {
				t.Fatalf("got status=%s code=%d redis=%s", r.Status, code, r.Redis)
			}
		})
	}
}

func TestHealthStatus_ServeHTTP(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "h.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	h := NewHealthStatus(false)
	h.CheckSQLite(context.Background(), db)
	h.SetSessions(3)
	h.SetLastQuoteTime(time.Now())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code: got %d, body %s", rec.Code, rec.Body)
	}
	var body Report
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.SQLiteOK || body.Sessions != 3 || body.QuoteAge == "" {
		t.Fatalf("got %+v", body)
	}
}
