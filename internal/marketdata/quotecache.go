// Package marketdata caches underlying quotes in Redis and fans quote updates
// out over Redis Pub/Sub.
//
// Keys:
//
//	quote:<SYM>      latest quote JSON, expiring after the open or closed TTL
//	pub:quote:<SYM>  Pub/Sub channel announcing every Put
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/markethours"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

var (
	// ErrQuoteNotFound is returned by Get when no live quote is cached.
	ErrQuoteNotFound = errors.New("quote not found")

	// ErrInvalidQuote is returned by Put for a quote without symbol or price.
	ErrInvalidQuote = errors.New("invalid quote")
)

const (
	keyPrefix     = "quote:"
	channelPrefix = "pub:quote:"
)

// QuoteKey is the Redis key holding the latest quote for symbol.
func QuoteKey(symbol string) string { return keyPrefix + NormalizeSymbol(symbol) }

// QuoteChannel is the Pub/Sub channel announcing quotes for symbol.
func QuoteChannel(symbol string) string { return channelPrefix + NormalizeSymbol(symbol) }

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// Config configures the quote cache.
type Config struct {
	Addr      string
	Password  string
	DB        int
	TTLOpen   time.Duration // while the NYSE session is open
	TTLClosed time.Duration // outside the session
}

// QuoteCache stores quotes in Redis. Writes go through a Breaker so a dead
// Redis fails fast instead of stalling request handlers.
type QuoteCache struct {
	client    *goredis.Client
	ttlOpen   time.Duration
	ttlClosed time.Duration
	breaker   *Breaker
	now       func() time.Time
}

// NewQuoteCache connects to Redis and pings the server.
func NewQuoteCache(cfg Config) (*QuoteCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[quotes] connected to %s (ttl open=%s closed=%s)", cfg.Addr, cfg.TTLOpen, cfg.TTLClosed)
	return newQuoteCache(client, cfg), nil
}

func newQuoteCache(client *goredis.Client, cfg Config) *QuoteCache {
	qc := &QuoteCache{
		client:    client,
		ttlOpen:   cfg.TTLOpen,
		ttlClosed: cfg.TTLClosed,
		breaker:   NewBreaker(5, 10*time.Second),
		now:       time.Now,
	}
	qc.breaker.OnStateChange = func(from, to BreakerState) {
		log.Printf("[quotes] redis breaker %s -> %s", from, to)
	}
	return qc
}

// OnBreakerChange runs fn after each breaker transition. Call before the
// cache is shared.
func (qc *QuoteCache) OnBreakerChange(fn func(to BreakerState)) {
	qc.breaker.OnStateChange = func(from, to BreakerState) {
		log.Printf("[quotes] redis breaker %s -> %s", from, to)
		fn(to)
	}
}

// BreakerState reports the write breaker's state.
func (qc *QuoteCache) BreakerState() BreakerState { return qc.breaker.State() }

// Client returns the underlying Redis client for health checks.
func (qc *QuoteCache) Client() *goredis.Client { return qc.client }

// TTL is the expiry applied to a quote written at t.
func (qc *QuoteCache) TTL(t time.Time) time.Duration {
	if markethours.IsMarketOpen(t) {
		return qc.ttlOpen
	}
	return qc.ttlClosed
}

// Put stores the quote and publishes it in one pipeline.
func (qc *QuoteCache) Put(ctx context.Context, q model.Quote) error {
	q, err := normalizeQuote(q, qc.now)
	if err != nil {
		return err
	}
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote %s: %w", q.Symbol, err)
	}

	return qc.breaker.Do(func() error {
		pipe := qc.client.Pipeline()
		pipe.Set(ctx, QuoteKey(q.Symbol), data, qc.TTL(qc.now()))
		pipe.Publish(ctx, QuoteChannel(q.Symbol), data)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("put quote %s: %w", q.Symbol, err)
		}
		return nil
	})
}

// Get returns the cached quote for symbol.
func (qc *QuoteCache) Get(ctx context.Context, symbol string) (model.Quote, error) {
	data, err := qc.client.Get(ctx, QuoteKey(symbol)).Bytes()
	if err == goredis.Nil {
		return model.Quote{}, fmt.Errorf("%w: %s", ErrQuoteNotFound, NormalizeSymbol(symbol))
	}
	if err != nil {
		return model.Quote{}, fmt.Errorf("get quote %s: %w", symbol, err)
	}
	return decodeQuote(data)
}

// Subscribe pattern-subscribes to every quote channel and calls fn for each
// quote until ctx is cancelled. Undecodable messages are skipped. The channel
// survives Redis restarts: go-redis resubscribes on reconnect.
func (qc *QuoteCache) Subscribe(ctx context.Context, fn func(model.Quote)) error {
	pubsub := qc.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			q, err := decodeQuote([]byte(msg.Payload))
			if err != nil {
				log.Printf("[quotes] bad payload on %s: %v", msg.Channel, err)
				continue
			}
			fn(q)
		}
	}
}

// Close closes the Redis client.
func (qc *QuoteCache) Close() error {
	return qc.client.Close()
}

func normalizeQuote(q model.Quote, now func() time.Time) (model.Quote, error) {
	q.Symbol = NormalizeSymbol(q.Symbol)
	if q.Symbol == "" {
		return q, fmt.Errorf("%w: symbol is required", ErrInvalidQuote)
	}
	if !q.Price.IsPositive() {
		return q, fmt.Errorf("%w: %s price must be > 0, got %s", ErrInvalidQuote, q.Symbol, q.Price)
	}
	if q.TS.IsZero() {
		q.TS = now().UTC()
	}
	return q, nil
}

func decodeQuote(data []byte) (model.Quote, error) {
	var q model.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return model.Quote{}, fmt.Errorf("decode quote: %w", err)
	}
	return q, nil
}
