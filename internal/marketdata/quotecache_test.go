package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/markethours"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"

	goredis "github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// unreachableCache points at a port nothing listens on, without retries.
func unreachableCache(t *testing.T) *QuoteCache {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { client.Close() })
	return newQuoteCache(client, Config{TTLOpen: time.Minute, TTLClosed: 12 * time.Hour})
}

func TestQuoteKeys(t *testing.T) {
	if got := QuoteKey(" aapl "); got != "quote:AAPL" {
		t.Errorf("QuoteKey: got %q", got)
	}
	if got := QuoteChannel("spy"); got != "pub:quote:SPY" {
		t.Errorf("QuoteChannel: got %q", got)
	}
}

func TestQuoteCache_TTL(t *testing.T) {
	qc := unreachableCache(t)
	open := time.Date(2026, time.October, 14, 11, 0, 0, 0, markethours.NewYork)
	closed := time.Date(2026, time.October, 17, 11, 0, 0, 0, markethours.NewYork)
	if got := qc.TTL(open); got != time.Minute {
		t.Errorf("open: got %s", got)
	}
	if got := qc.TTL(closed); got != 12*time.Hour {
		t.Errorf("closed: got %s", got)
	}
}

func TestNormalizeQuote(t *testing.T) {
	fixed := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixed }

	q, err := normalizeQuote(model.Quote{Symbol: "msft", Price: decimal.NewFromInt(410)}, now)
	if err != nil {
		t.Fatal(err)
	}
	if q.Symbol != "MSFT" || !q.TS.Equal(fixed) {
		t.Fatalf("got %+v", q)
	}

	bad := []model.Quote{
		{Symbol: "", Price: decimal.NewFromInt(1)},
		{Symbol: "X", Price: decimal.Zero},
		{Symbol: "X", Price: decimal.NewFromInt(-3)},
	}
	for _, b := range bad {
		if _, err := normalizeQuote(b, now); !errors.Is(err, ErrInvalidQuote) {
			t.Errorf("expected error for %+v", b)
		}
	}
}

func TestQuoteCache_PutRejectsInvalidWithoutRedis(t *testing.T) {
	qc := unreachableCache(t)
	err := qc.Put(context.Background(), model.Quote{Symbol: "AAPL"})
	if !errors.Is(err, ErrInvalidQuote) {
		t.Fatalf("expected ErrInvalidQuote, got %v", err)
	}
	if qc.breaker.State() != BreakerClosed {
		t.Fatal("validation failures must not count against redis")
	}
}

func TestQuoteCache_BreakerTripsWhenRedisDown(t *testing.T) {
	qc := unreachableCache(t)
	var seen []BreakerState
	qc.OnBreakerChange(func(to BreakerState) { seen = append(seen, to) })
	ctx := context.Background()
	q := model.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(150)}

	for i := 0; i < 5; i++ {
		if err := qc.Put(ctx, q); err == nil {
			t.Fatal("expected redis error")
		}
	}
	if err := qc.Put(ctx, q); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	if qc.BreakerState() != BreakerOpen || len(seen) != 1 || seen[0] != BreakerOpen {
		t.Fatalf("breaker transitions: %v", seen)
	}

	_, err := qc.Get(ctx, "AAPL")
	if err == nil || errors.Is(err, ErrQuoteNotFound) {
		t.Fatalf("connection error must not read as a miss, got %v", err)
	}
}

func TestDecodeQuote(t *testing.T) {
	q, err := decodeQuote([]byte(`{"symbol":"SPY","price":"512.25","ts":"2026-03-02T15:00:00Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	if q.Symbol != "SPY" || !q.Price.Equal(decimal.RequireFromString("512.25")) {
		t.Fatalf("got %+v", q)
	}
	if _, err := decodeQuote([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}
