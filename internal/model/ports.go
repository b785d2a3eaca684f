package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ── Port interfaces ──
// These decouple the lab service from Redis, SQLite and the WebSocket hub.

// Quote is the latest underlying price for a symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	TS     time.Time       `json:"ts"`
}

// QuoteStore caches underlying quotes.
type QuoteStore interface {
	// Get returns the cached quote or an error wrapping a not-found sentinel.
	Get(ctx context.Context, symbol string) (Quote, error)

	// Put stores the quote and announces it to subscribers.
	Put(ctx context.Context, q Quote) error
}

// CalculationKind tags journal rows.
type CalculationKind string

const (
	KindPositionSize CalculationKind = "position_size"
	KindPLCurve      CalculationKind = "pl_curve"
)

// CalculationRecord is one journaled calculation.
type CalculationRecord struct {
	ID        int64           `json:"id"`
	Kind      CalculationKind `json:"kind"`
	Session   string          `json:"session,omitempty"`
	Symbol    string          `json:"symbol,omitempty"`
	Input     json.RawMessage `json:"input"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// CalculationJournal persists calculation records for audit.
type CalculationJournal interface {
	Record(ctx context.Context, rec CalculationRecord) error
	Recent(ctx context.Context, limit int) ([]CalculationRecord, error)
}

// CurveNotifier pushes recomputed session curves to interested clients.
type CurveNotifier interface {
	Notify(sessionID string, payload any)
}
