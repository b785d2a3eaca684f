package strategy

import (
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/payoff"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/portfolio"

	"github.com/shopspring/decimal"
)

// Analysis is a preset evaluated at one underlying price.
type Analysis struct {
	Preset          string                `json:"preset"`
	Underlying      decimal.Decimal       `json:"underlying"`
	Premium         decimal.Decimal       `json:"premium"`
	Legs            []model.Position      `json:"legs"`
	Range           portfolio.PriceRange  `json:"range"`
	MaxProfit       payoff.Bound          `json:"maxProfit"`
	MaxLoss         payoff.Bound          `json:"maxLoss"`
	BreakevenPoints []decimal.Decimal     `json:"breakevenPoints"`
	ProfitZones     []portfolio.PriceZone `json:"profitZones"`
	Greeks          Greeks                `json:"greeks"`
}

// Analyze builds the preset at underlying and sweeps the default band around it.
func (p Preset) Analyze(underlying, premium decimal.Decimal) (Analysis, error) {
	legs, err := p.Build(underlying, premium)
	if err != nil {
		return Analysis{}, err
	}
	r, err := portfolio.DefaultPriceRange(underlying, decimal.NewFromInt(portfolio.DefaultBandPct), portfolio.DefaultStep)
	if err != nil {
		return Analysis{}, err
	}
	c, err := portfolio.ComputePLCurve(legs, r, underlying)
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{
		Preset:          p.ID,
		Underlying:      underlying,
		Premium:         premium,
		Legs:            legs,
		Range:           c.Range,
		MaxProfit:       c.MaxProfit,
		MaxLoss:         c.MaxLoss,
		BreakevenPoints: c.BreakevenPoints,
		ProfitZones:     c.ProfitZones,
		Greeks:          p.Greeks,
	}, nil
}
