package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fuzzyter/NKU-Hackathon-2025/config"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/api"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/gateway"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/lab"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/logger"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/marketdata"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/markethours"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/metrics"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/notification"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/store/sqlite"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/strategy"

	goredis "github.com/go-redis/redis/v8"
)

func main() {
	cfg := config.Load()
	logger.Init("labserver", logger.ParseLevel(cfg.LogLevel))
	log.Println("[labserver] starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	prom := metrics.NewMetrics()

	// ---- Alerts ----
	notifiers := notification.Multi{notification.NewLogNotifier()}
	if cfg.AlertWebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhook(cfg.AlertWebhookURL, notification.DefaultWebhookTimeout))
	}
	alerts := notification.NewDispatcher(notifiers, 10*time.Second)

	// ---- SQLite journal ----
	var journal model.CalculationJournal
	var sqlDB *sql.DB
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	j, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		log.Printf("[labserver] WARNING: sqlite journal unavailable: %v (continuing without journal)", err)
		alerts.Alert(notification.AlertWarning, "journal", "journal unavailable", err.Error())
	} else {
		defer j.Close()
		journal = j
		sqlDB = j.DB()
		log.Printf("[labserver] journal ready at %s", cfg.SQLitePath)
	}

	// ---- Quote store: Redis when reachable, in-memory otherwise ----
	var quotes interface {
		model.QuoteStore
		lab.QuoteFeed
	}
	var rdb *goredis.Client
	cache, err := marketdata.NewQuoteCache(marketdata.Config{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		TTLOpen:   cfg.QuoteTTL,
		TTLClosed: cfg.QuoteTTLClosed,
	})
	if err != nil {
		log.Printf("[labserver] WARNING: redis init failed: %v (using in-memory quotes)", err)
		alerts.Alert(notification.AlertWarning, "quotes", "redis unavailable", "using in-memory quotes: "+err.Error())
		quotes = marketdata.NewMemoryQuotes()
	} else {
		defer cache.Close()
		cache.OnBreakerChange(func(to marketdata.BreakerState) {
			prom.QuoteBreakerState.Set(float64(to))
			switch to {
			case marketdata.BreakerOpen:
				alerts.Alert(notification.AlertCritical, "quotes", "quote cache breaker open", "redis writes are failing")
			case marketdata.BreakerClosed:
				alerts.Alert(notification.AlertInfo, "quotes", "quote cache recovered", "redis writes resumed")
			}
		})
		quotes = cache
		rdb = cache.Client()
	}

	// ---- Health ----
	health := metrics.NewHealthStatus(rdb != nil)
	health.StartLivenessChecker(ctx, rdb, sqlDB, 10*time.Second)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Lab service + curve push ----
	hub := gateway.NewHub(prom)
	svc := lab.NewService(lab.Config{
		BandPct: cfg.SweepBandPct,
		Step:    cfg.SweepStep,
	}, lab.Deps{
		Quotes:   quotes,
		Catalog:  strategy.NewCatalog(),
		Journal:  journal,
		Notifier: hub,
		Metrics:  prom,
		Health:   health,
	})

	go func() {
		if err := svc.Run(ctx, quotes); err != nil && ctx.Err() == nil {
			log.Printf("[labserver] quote feed stopped: %v", err)
		}
	}()
	go trackMarketState(ctx, prom)

	// ---- HTTP ----
	srv := &http.Server{
		Addr: cfg.LabAddr,
		Handler: api.NewRouter(api.Deps{
			Lab:     svc,
			Quotes:  quotes,
			WS:      hub,
			Replay:  hub,
			Health:  health,
			Metrics: prom,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[labserver] serving at http://localhost%s", cfg.LabAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[labserver] server error: %v", err)
		}
	}()

	<-sigCh
	log.Println("[labserver] shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	log.Println("[labserver] stopped")
}

// trackMarketState keeps the market gauge in line with the NYSE session.
func trackMarketState(ctx context.Context, prom *metrics.Metrics) {
	set := func() {
		if markethours.IsMarketOpen(time.Now()) {
			prom.MarketState.Set(1)
		} else {
			prom.MarketState.Set(0)
		}
	}
	set()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			set()
		}
	}
}
