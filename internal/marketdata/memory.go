package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"
)

// MemoryQuotes is an in-process quote store with the same contract as
// QuoteCache, minus expiry. Used when Redis is not configured and in tests.
type MemoryQuotes struct {
	mu     sync.RWMutex
	quotes map[string]model.Quote
	subs   map[int]chan model.Quote
	nextID int
	now    func() time.Time
}

// NewMemoryQuotes creates an empty store.
func NewMemoryQuotes() *MemoryQuotes {
	return &MemoryQuotes{
		quotes: make(map[string]model.Quote),
		subs:   make(map[int]chan model.Quote),
		now:    time.Now,
	}
}

// Put stores the quote and delivers it to subscribers. A subscriber that is
// not keeping up misses the update.
func (m *MemoryQuotes) Put(_ context.Context, q model.Quote) error {
	q, err := normalizeQuote(q, m.now)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[q.Symbol] = q
	for _, ch := range m.subs {
		select {
		case ch <- q:
		default:
		}
	}
	return nil
}

// Get returns the stored quote for symbol.
func (m *MemoryQuotes) Get(_ context.Context, symbol string) (model.Quote, error) {
	sym := NormalizeSymbol(symbol)
	m.mu.RLock()
	q, ok := m.quotes[sym]
	m.mu.RUnlock()
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: %s", ErrQuoteNotFound, sym)
	}
	return q, nil
}

// Subscribe calls fn for every Put until ctx is cancelled.
func (m *MemoryQuotes) Subscribe(ctx context.Context, fn func(model.Quote)) error {
	ch := make(chan model.Quote, 64)
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case q := <-ch:
			fn(q)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (m *MemoryQuotes) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}
