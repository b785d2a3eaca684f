// Package payoff holds the expiration payoff primitives used by the P/L engine.
//
// Values are intrinsic only: there is no time value, volatility or rate input.
// A leg is valued either at the live underlying price or at expiration across
// a price sweep, never with a pricing model.
package payoff

import (
	"sort"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"

	"github.com/shopspring/decimal"
)

// IntrinsicValue is the per-unit value of an instrument at the given underlying price.
// A stock is worth the underlying price; a call max(0, S-K); a put max(0, K-S).
func IntrinsicValue(instrument model.InstrumentType, optType model.OptionType, strike, underlying decimal.Decimal) decimal.Decimal {
	if instrument == model.InstrumentStock {
		return underlying
	}
	switch optType {
	case model.OptionCall:
		return decimal.Max(decimal.Zero, underlying.Sub(strike))
	case model.OptionPut:
		return decimal.Max(decimal.Zero, strike.Sub(underlying))
	}
	return decimal.Zero
}

// PositionProfit is direction * (intrinsic - premium) * quantity * multiplier.
func PositionProfit(p model.Position, underlying decimal.Decimal) decimal.Decimal {
	iv := IntrinsicValue(p.Instrument(), p.OptionType(), p.Strike(), underlying)
	pl := iv.Sub(p.Premium()).Mul(p.Units())
	if p.Action() == model.ActionSell {
		return pl.Neg()
	}
	return pl
}

// AggregateProfit sums PositionProfit over every leg. Identical legs are not netted.
func AggregateProfit(positions []model.Position, underlying decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(PositionProfit(p, underlying))
	}
	return total
}

// UpsideSlope is the aggregate P/L change per $1 of underlying once the price
// is above every strike. Puts are worthless there, so only calls and stock count.
// Summed in decimal so large quantities cannot wrap.
func UpsideSlope(positions []model.Position) decimal.Decimal {
	slope := decimal.Zero
	for _, p := range positions {
		if p.IsPut() {
			continue
		}
		slope = slope.Add(p.Units().Mul(decimal.NewFromInt(p.Action().Direction())))
	}
	return slope
}

// Tails reports whether profit or loss grows without limit as the underlying rises.
// Prices cannot go below zero, so the downside tail is always finite.
func Tails(positions []model.Position) (profitUnbounded, lossUnbounded bool) {
	s := UpsideSlope(positions)
	return s.IsPositive(), s.IsNegative()
}

// Kinks returns the prices where the aggregate payoff can change slope: zero
// and every option strike, ascending and de-duplicated.
func Kinks(positions []model.Position) []decimal.Decimal {
	out := []decimal.Decimal{decimal.Zero}
	for _, p := range positions {
		if p.Instrument() != model.InstrumentOption {
			continue
		}
		k := p.Strike()
		i := sort.Search(len(out), func(i int) bool { return out[i].GreaterThanOrEqual(k) })
		if i < len(out) && out[i].Equal(k) {
			continue
		}
		out = append(out, decimal.Zero)
		copy(out[i+1:], out[i:])
		out[i] = k
	}
	return out
}
