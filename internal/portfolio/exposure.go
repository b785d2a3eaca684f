package portfolio

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// Holding is one open position as seen by portfolio-level risk analysis.
type Holding struct {
	Symbol string          `json:"symbol"`
	Value  decimal.Decimal `json:"value"`
	Risk   decimal.Decimal `json:"risk"` // amount at risk to the stop
}

// RiskLevel buckets portfolio risk as a percentage of the account.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskExtreme RiskLevel = "extreme"
)

// PortfolioRiskAnalysis summarises aggregate exposure.
type PortfolioRiskAnalysis struct {
	TotalPortfolioValue  decimal.Decimal `json:"totalPortfolioValue"`
	TotalRisk            decimal.Decimal `json:"totalRisk"`
	RiskPercentage       decimal.Decimal `json:"riskPercentage"`
	DiversificationScore int64           `json:"diversificationScore"`
	MaxDrawdown          decimal.Decimal `json:"maxDrawdown"`
	RiskLevel            RiskLevel       `json:"riskLevel"`
	Recommendations      []string        `json:"recommendations"`
}

// ErrAccountValue is returned when portfolio analysis gets a non-positive account.
var ErrAccountValue = errors.New("account value must be greater than 0")

const (
	// holdings needed for a full diversification score
	diversifiedSymbols = 10
	maxHoldings        = 20
)

// AnalyzePortfolioRisk scores a set of holdings against the account value.
// The drawdown figure assumes every stop is hit at once.
func AnalyzePortfolioRisk(holdings []Holding, accountValue decimal.Decimal) (PortfolioRiskAnalysis, error) {
	if !accountValue.IsPositive() {
		return PortfolioRiskAnalysis{}, ErrAccountValue
	}

	totalValue, totalRisk := decimal.Zero, decimal.Zero
	symbols := make(map[string]struct{}, len(holdings))
	for _, h := range holdings {
		totalValue = totalValue.Add(h.Value)
		totalRisk = totalRisk.Add(h.Risk)
		symbols[h.Symbol] = struct{}{}
	}

	riskPct := totalRisk.Div(accountValue).Mul(hundred)
	score := decimal.NewFromInt(int64(len(symbols))).
		Div(decimal.NewFromInt(diversifiedSymbols)).
		Mul(hundred)
	score = decimal.Min(score, hundred)
	drawdown := decimal.Min(riskPct, hundred)

	var level RiskLevel
	switch {
	case riskPct.LessThan(decimal.NewFromInt(5)):
		level = RiskLow
	case riskPct.LessThan(decimal.NewFromInt(15)):
		level = RiskMedium
	case riskPct.LessThan(decimal.NewFromInt(25)):
		level = RiskHigh
	default:
		level = RiskExtreme
	}

	recs := []string{}
	if riskPct.GreaterThan(decimal.NewFromInt(20)) {
		recs = append(recs, "Portfolio risk is too high. Consider reducing position sizes.")
	}
	if score.LessThan(decimal.NewFromInt(50)) {
		recs = append(recs, "Portfolio lacks diversification. Consider adding more positions.")
	}
	if len(holdings) > maxHoldings {
		recs = append(recs, "Too many positions. Consider consolidating for better management.")
	}

	return PortfolioRiskAnalysis{
		TotalPortfolioValue:  totalValue,
		TotalRisk:            totalRisk,
		RiskPercentage:       riskPct.Round(2),
		DiversificationScore: score.Round(0).IntPart(),
		MaxDrawdown:          drawdown.Round(2),
		RiskLevel:            level,
		Recommendations:      recs,
	}, nil
}

var kellyCap = decimal.RequireFromString("0.25")

// KellyFraction is the Kelly bet fraction (b*p - q) / b with b = avgWin/avgLoss,
// clamped to [0, 0.25]. winRate is a fraction in [0, 1].
func KellyFraction(winRate, avgWin, avgLoss decimal.Decimal) decimal.Decimal {
	if avgLoss.IsZero() || avgWin.IsZero() {
		return decimal.Zero
	}
	b := avgWin.Div(avgLoss)
	q := decimal.NewFromInt(1).Sub(winRate)
	k := b.Mul(winRate).Sub(q).Div(b)
	return decimal.Max(decimal.Zero, decimal.Min(kellyCap, k))
}

// StockSizing is the plain stock sizing used by quick lookups. Clamped is set
// when the share count was cut to the largest representable value.
type StockSizing struct {
	Shares        int64           `json:"shares"`
	PositionValue decimal.Decimal `json:"positionValue"`
	RiskAmount    decimal.Decimal `json:"riskAmount"`
	Clamped       bool            `json:"clamped,omitempty"`
}

// SharesForRisk sizes a stock trade with no validation or annotations.
// Equal price and stop size to zero shares.
func SharesForRisk(accountValue, price, stop, riskPct decimal.Decimal) StockSizing {
	risk := accountValue.Mul(riskPct).Div(hundred)
	diff := price.Sub(stop).Abs()
	if diff.IsZero() {
		return StockSizing{RiskAmount: risk, PositionValue: decimal.Zero}
	}
	shares, fits := wholeUnits(risk.Div(diff), math.MaxInt64)
	return StockSizing{
		Shares:        shares,
		PositionValue: decimal.NewFromInt(shares).Mul(price),
		RiskAmount:    risk,
		Clamped:       !fits,
	}
}
