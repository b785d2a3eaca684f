// Package portfolio holds the strategy-lab calculations.
//
// It computes expiration P/L curves for sets of stock and option legs, sizes
// trades against an account risk policy, and keeps the in-memory leg
// collection of a lab session. Every calculation is a pure function of its
// input; only Lab carries state.
package portfolio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"

	"github.com/shopspring/decimal"
)

// ErrLegIndex is returned when removing a leg that does not exist.
var ErrLegIndex = errors.New("leg index out of range")

// Lab is an ordered collection of legs on one underlying plus its latest price.
type Lab struct {
	mu        sync.RWMutex
	symbol    string
	positions []model.Position
	price     decimal.Decimal
}

// NewLab creates an empty lab for symbol.
func NewLab(symbol string) *Lab {
	return &Lab{
		symbol:    symbol,
		positions: make([]model.Position, 0, 4),
	}
}

// Symbol returns the underlying symbol.
func (l *Lab) Symbol() string { return l.symbol }

// Add appends a leg and returns the new leg count.
func (l *Lab) Add(p model.Position) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions = append(l.positions, p)
	return len(l.positions)
}

// Replace swaps the whole leg set, as when a preset is applied.
func (l *Lab) Replace(ps []model.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions = append(make([]model.Position, 0, len(ps)), ps...)
}

// Remove deletes the leg at index i, keeping the order of the rest.
func (l *Lab) Remove(i int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.positions) {
		return fmt.Errorf("%w: %d (have %d)", ErrLegIndex, i, len(l.positions))
	}
	l.positions = append(l.positions[:i], l.positions[i+1:]...)
	return nil
}

// Clear drops every leg.
func (l *Lab) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions = l.positions[:0]
}

// Positions returns a snapshot of the legs.
func (l *Lab) Positions() []model.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := make([]model.Position, len(l.positions))
	copy(cp, l.positions)
	return cp
}

// SetPrice records the latest underlying price.
func (l *Lab) SetPrice(p decimal.Decimal) {
	l.mu.Lock()
	l.price = p
	l.mu.Unlock()
}

// Price returns the latest underlying price (zero if none yet).
func (l *Lab) Price() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.price
}

// Curve computes the P/L curve for the current legs over a band around the
// latest price.
func (l *Lab) Curve(bandPct, step decimal.Decimal) (Curve, error) {
	l.mu.RLock()
	legs := make([]model.Position, len(l.positions))
	copy(legs, l.positions)
	price := l.price
	l.mu.RUnlock()

	r, err := DefaultPriceRange(price, bandPct, step)
	if err != nil {
		return Curve{}, err
	}
	return ComputePLCurve(legs, r, price)
}

// SetupCheck is the result of ValidateSetup.
type SetupCheck struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// maxSetupQuantity is the total leg quantity above which a setup is flagged.
const maxSetupQuantity = 10

// ValidateSetup sanity-checks a leg set before it is executed.
func ValidateSetup(positions []model.Position) SetupCheck {
	errs := []string{}
	warns := []string{}

	if len(positions) == 0 {
		errs = append(errs, "At least one position is required")
	}

	var calls, puts, qty int64
	for _, p := range positions {
		switch {
		case p.IsCall():
			calls++
		case p.IsPut():
			puts++
		}
		if p.Instrument() == model.InstrumentOption {
			qty = min(qty+min(p.Quantity(), maxSetupQuantity+1), maxSetupQuantity+1)
		}
	}
	if calls > 0 && puts > 0 {
		warns = append(warns, "Mixed call and put positions detected")
	}
	if qty > maxSetupQuantity {
		warns = append(warns, "High position quantity detected")
	}

	return SetupCheck{IsValid: len(errs) == 0, Errors: errs, Warnings: warns}
}
