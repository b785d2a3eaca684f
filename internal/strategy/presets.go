package strategy

import (
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"

	"github.com/shopspring/decimal"
)

func call(a model.Action, pct int64, qty int64) LegTemplate {
	return LegTemplate{Instrument: model.InstrumentOption, OptionType: model.OptionCall, Action: a, StrikePct: decimal.NewFromInt(pct), Quantity: qty}
}

func put(a model.Action, pct int64, qty int64) LegTemplate {
	return LegTemplate{Instrument: model.InstrumentOption, OptionType: model.OptionPut, Action: a, StrikePct: decimal.NewFromInt(pct), Quantity: qty}
}

func shares(a model.Action, qty int64) LegTemplate {
	return LegTemplate{Instrument: model.InstrumentStock, Action: a, Quantity: qty}
}

func greeks(delta, gamma, theta, vega string) Greeks {
	return Greeks{
		Delta: decimal.RequireFromString(delta),
		Gamma: decimal.RequireFromString(gamma),
		Theta: decimal.RequireFromString(theta),
		Vega:  decimal.RequireFromString(vega),
	}
}

func exactly(n int, sameExpiry, sameStrike bool) Requirements {
	return Requirements{MinPositions: n, MaxPositions: n, SameExpiry: sameExpiry, SameStrike: sameStrike}
}

func builtins() []Preset {
	buy, sell := model.ActionBuy, model.ActionSell
	return []Preset{
		{
			ID:           "covered_call",
			Name:         "Covered Call",
			Description:  "Sell a call option against stock you own to generate income",
			Category:     CategoryIncome,
			Difficulty:   Beginner,
			RiskLevel:    RiskLow,
			Outlook:      Neutral,
			Greeks:       greeks("0.5", "0.02", "-0.05", "0.1"),
			Requirements: exactly(2, true, true),
			Legs:         []LegTemplate{shares(buy, 100), call(sell, 105, 1)},
		},
		{
			ID:           "cash_secured_put",
			Name:         "Cash-Secured Put",
			Description:  "Sell a put option with cash to cover assignment",
			Category:     CategoryIncome,
			Difficulty:   Beginner,
			RiskLevel:    RiskMedium,
			Outlook:      Bullish,
			Greeks:       greeks("-0.5", "0.02", "0.05", "0.1"),
			Requirements: exactly(1, false, false),
			Legs:         []LegTemplate{put(sell, 100, 1)},
		},
		{
			ID:           "long_straddle",
			Name:         "Long Straddle",
			Description:  "Buy both call and put at same strike to profit from volatility",
			Category:     CategoryVolatility,
			Difficulty:   Intermediate,
			RiskLevel:    RiskHigh,
			Outlook:      Volatile,
			Greeks:       greeks("0", "0.04", "-0.1", "0.2"),
			Requirements: exactly(2, true, true),
			Legs:         []LegTemplate{call(buy, 100, 1), put(buy, 100, 1)},
		},
		{
			ID:           "short_straddle",
			Name:         "Short Straddle",
			Description:  "Sell both call and put at same strike to profit from low volatility",
			Category:     CategoryVolatility,
			Difficulty:   Advanced,
			RiskLevel:    RiskHigh,
			Outlook:      Neutral,
			Greeks:       greeks("0", "-0.04", "0.1", "-0.2"),
			Requirements: exactly(2, true, true),
			Legs:         []LegTemplate{call(sell, 100, 1), put(sell, 100, 1)},
		},
		{
			ID:           "bull_call_spread",
			Name:         "Bull Call Spread",
			Description:  "Buy lower strike call, sell higher strike call for bullish outlook",
			Category:     CategoryDirectional,
			Difficulty:   Intermediate,
			RiskLevel:    RiskMedium,
			Outlook:      Bullish,
			Greeks:       greeks("0.3", "0.01", "-0.02", "0.05"),
			Requirements: exactly(2, true, false),
			Legs:         []LegTemplate{call(buy, 100, 1), call(sell, 110, 1)},
		},
		{
			ID:           "bear_put_spread",
			Name:         "Bear Put Spread",
			Description:  "Buy higher strike put, sell lower strike put for bearish outlook",
			Category:     CategoryDirectional,
			Difficulty:   Intermediate,
			RiskLevel:    RiskMedium,
			Outlook:      Bearish,
			Greeks:       greeks("-0.3", "0.01", "-0.02", "0.05"),
			Requirements: exactly(2, true, false),
			Legs:         []LegTemplate{put(buy, 100, 1), put(sell, 90, 1)},
		},
		{
			ID:           "iron_condor",
			Name:         "Iron Condor",
			Description:  "Sell call spread and put spread for income in range-bound market",
			Category:     CategoryIncome,
			Difficulty:   Advanced,
			RiskLevel:    RiskMedium,
			Outlook:      Neutral,
			Greeks:       greeks("0", "-0.02", "0.05", "-0.1"),
			Requirements: exactly(4, true, false),
			Legs: []LegTemplate{
				put(sell, 95, 1), put(buy, 90, 1),
				call(sell, 105, 1), call(buy, 110, 1),
			},
		},
		{
			ID:           "protective_put",
			Name:         "Protective Put",
			Description:  "Buy put to protect long stock position",
			Category:     CategoryHedging,
			Difficulty:   Beginner,
			RiskLevel:    RiskLow,
			Outlook:      Bullish,
			Greeks:       greeks("0.5", "0.02", "-0.05", "0.1"),
			Requirements: exactly(2, false, false),
			Legs:         []LegTemplate{put(buy, 100, 1), shares(buy, 100)},
		},
	}
}
