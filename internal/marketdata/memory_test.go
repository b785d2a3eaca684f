package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"

	"github.com/shopspring/decimal"
)

func TestMemoryQuotes_PutGet(t *testing.T) {
	m := NewMemoryQuotes()
	ctx := context.Background()

	if _, err := m.Get(ctx, "AAPL"); !errors.Is(err, ErrQuoteNotFound) {
		t.Fatalf("expected ErrQuoteNotFound, got %v", err)
	}
	if err := m.Put(ctx, model.Quote{Symbol: "aapl", Price: decimal.NewFromInt(150)}); err != nil {
		t.Fatal(err)
	}
	q, err := m.Get(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if !q.Price.Equal(decimal.NewFromInt(150)) || q.TS.IsZero() {
		t.Fatalf("got %+v", q)
	}
	if err := m.Put(ctx, model.Quote{Symbol: "AAPL"}); err == nil {
		t.Fatal("expected error for zero price")
	}
}

func TestMemoryQuotes_Subscribe(t *testing.T) {
	m := NewMemoryQuotes()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan model.Quote, 1)
	done := make(chan struct{})
	go func() {
		m.Subscribe(ctx, func(q model.Quote) { got <- q })
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for m.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(time.Millisecond)
	}

	m.Put(ctx, model.Quote{Symbol: "SPY", Price: decimal.NewFromInt(500)})
	select {
	case q := <-got:
		if q.Symbol != "SPY" {
			t.Fatalf("got %+v", q)
		}
	case <-time.After(time.Second):
		t.Fatal("no quote delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
	if m.Subscribers() != 0 {
		t.Fatal("subscription not removed")
	}
}
