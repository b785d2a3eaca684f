package portfolio

import (
	"math"
	"strings"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"

	"github.com/shopspring/decimal"
)

// RiskPolicy holds the thresholds used by the sizing calculator.
type RiskPolicy struct {
	MaxRiskPercent          decimal.Decimal `json:"max_risk_percent"`          // upper bound on risk per trade
	ConventionalRiskPercent decimal.Decimal `json:"conventional_risk_percent"` // warn strictly above this
	MaxConcentrationPct     decimal.Decimal `json:"max_concentration_pct"`     // position value vs account
	RiskDriftFactor         decimal.Decimal `json:"risk_drift_factor"`         // max loss vs target risk
	ProfitTargetPct         decimal.Decimal `json:"profit_target_pct"`         // assumed favourable move
	DefaultStopPct          decimal.Decimal `json:"default_stop_pct"`          // recommended stop distance
}

// DefaultRiskPolicy returns the conventional retail thresholds.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		MaxRiskPercent:          decimal.NewFromInt(10),
		ConventionalRiskPercent: decimal.NewFromInt(2),
		MaxConcentrationPct:     decimal.NewFromInt(30),
		RiskDriftFactor:         decimal.RequireFromString("1.1"),
		ProfitTargetPct:         decimal.NewFromInt(10),
		DefaultStopPct:          decimal.NewFromInt(5),
	}
}

// RiskCalculationInput describes a trade to size. OptionType empty means a stock trade.
type RiskCalculationInput struct {
	AccountValue        decimal.Decimal    `json:"accountValue"`
	RiskPerTradePercent decimal.Decimal    `json:"riskPerTradePercent"`
	EntryPrice          decimal.Decimal    `json:"entryPrice"`
	StopLossPrice       decimal.Decimal    `json:"stopLossPrice"`
	PositionType        model.PositionSide `json:"positionType"`
	OptionType          model.OptionType   `json:"optionType,omitempty"`
	OptionStrike        *decimal.Decimal   `json:"optionStrike,omitempty"`
	OptionPremium       *decimal.Decimal   `json:"optionPremium,omitempty"`
	Contracts           *int64             `json:"contracts,omitempty"`
}

// IsOption reports whether the input asks for option sizing.
func (in RiskCalculationInput) IsOption() bool {
	return in.OptionType != ""
}

// RiskCalculationResult is a sizing recommendation. RiskRewardRatio uses an
// assumed favourable move (ProfitTargetPct), not a market-derived target.
type RiskCalculationResult struct {
	RiskAmount          decimal.Decimal `json:"riskAmount"`
	PositionValue       decimal.Decimal `json:"positionValue"`
	MaxLoss             decimal.Decimal `json:"maxLoss"`
	SharesOrContracts   int64           `json:"sharesOrContracts"`
	RiskRewardRatio     decimal.Decimal `json:"riskRewardRatio"`
	RecommendedStopLoss decimal.Decimal `json:"recommendedStopLoss"`
	Warnings            []string        `json:"warnings"`
	Suggestions         []string        `json:"suggestions"`
}

// ValidationResult lists blocking errors and non-blocking warnings.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidationError is returned by CalculatePositionSize when the input is rejected.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return "invalid risk parameters: " + strings.Join(e.Errors, "; ")
}

// Messages emitted by the calculator.
const (
	MsgAccountValue      = "Account value must be greater than 0"
	MsgRiskRange         = "Risk per trade must be greater than 0% and at most 10%"
	MsgEntryPrice        = "Entry price must be greater than 0"
	MsgStopPrice         = "Stop loss price must be greater than 0"
	MsgLongStop          = "For long positions, stop loss must be below entry price"
	MsgShortStop         = "For short positions, stop loss must be above entry price"
	MsgPositionType      = "Position type must be long or short"
	MsgOptionType        = "Option type must be call or put"
	MsgOptionFields      = "Option strike and premium are required for option calculations"
	MsgContracts         = "Contracts must be greater than 0 when provided"
	MsgStopEqualsEntry   = "Stop loss price cannot be the same as entry price"
	MsgRiskExceedsTarget = "Calculated risk exceeds target risk amount"
	MsgConcentration     = "Position size exceeds 30% of account value"
	MsgRiskAboveConv     = "Risk per trade exceeds recommended 2%"
	MsgTooSmall          = "Risk amount is too small for a single share or contract"
	MsgContractsAbove    = "Requested contracts exceed the recommended size"
	MsgSizeTooLarge      = "Position size is too large to represent; reduce account value or risk"

	SuggestStopDistance   = "Set a stop loss at least 2-5% away from entry price"
	SuggestDiversify      = "Consider reducing position size for better diversification"
	SuggestLowerRisk      = "Consider reducing risk per trade to 1-2%"
	SuggestRiskReward     = "Consider improving risk-reward ratio to at least 1:1"
	SuggestIncreaseBudget = "Increase risk per trade or widen the account allocation to size this trade"
)

var hundred = decimal.NewFromInt(100)

// RiskCalculator sizes trades under a RiskPolicy. It holds no mutable state and
// is safe for concurrent use.
type RiskCalculator struct {
	policy RiskPolicy
}

// NewRiskCalculator creates a calculator with the given policy.
func NewRiskCalculator(policy RiskPolicy) *RiskCalculator {
	return &RiskCalculator{policy: policy}
}

// Policy returns the calculator's thresholds.
func (rc *RiskCalculator) Policy() RiskPolicy { return rc.policy }

// ValidateRiskParameters checks the input without computing a size.
// A stop equal to entry is not an error: sizing falls back and warns.
func (rc *RiskCalculator) ValidateRiskParameters(in RiskCalculationInput) ValidationResult {
	errs := []string{}
	warns := []string{}

	if !in.AccountValue.IsPositive() {
		errs = append(errs, MsgAccountValue)
	}
	if !in.RiskPerTradePercent.IsPositive() || in.RiskPerTradePercent.GreaterThan(rc.policy.MaxRiskPercent) {
		errs = append(errs, MsgRiskRange)
	}
	if !in.EntryPrice.IsPositive() {
		errs = append(errs, MsgEntryPrice)
	}
	if !in.StopLossPrice.IsPositive() {
		errs = append(errs, MsgStopPrice)
	}

	switch in.PositionType {
	case model.SideLong:
		if in.StopLossPrice.GreaterThan(in.EntryPrice) {
			errs = append(errs, MsgLongStop)
		}
	case model.SideShort:
		if in.StopLossPrice.LessThan(in.EntryPrice) {
			errs = append(errs, MsgShortStop)
		}
	default:
		errs = append(errs, MsgPositionType)
	}

	if in.IsOption() {
		if in.OptionType != model.OptionCall && in.OptionType != model.OptionPut {
			errs = append(errs, MsgOptionType)
		}
		if in.OptionStrike == nil || !in.OptionStrike.IsPositive() ||
			in.OptionPremium == nil || !in.OptionPremium.IsPositive() {
			errs = append(errs, MsgOptionFields)
		}
	}
	if in.Contracts != nil && *in.Contracts <= 0 {
		errs = append(errs, MsgContracts)
	}

	if in.EntryPrice.IsPositive() && in.EntryPrice.Equal(in.StopLossPrice) {
		warns = append(warns, MsgStopEqualsEntry)
	}
	if in.RiskPerTradePercent.GreaterThan(rc.policy.ConventionalRiskPercent) {
		warns = append(warns, MsgRiskAboveConv)
	}

	return ValidationResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
}

// CalculatePositionSize validates the input and, when valid, computes a size.
// Invalid input returns a *ValidationError and no result.
func (rc *RiskCalculator) CalculatePositionSize(in RiskCalculationInput) (RiskCalculationResult, error) {
	v := rc.ValidateRiskParameters(in)
	if !v.IsValid {
		return RiskCalculationResult{}, &ValidationError{Errors: v.Errors, Warnings: v.Warnings}
	}

	riskAmount := in.AccountValue.Mul(in.RiskPerTradePercent).Div(hundred)
	priceDiff := in.EntryPrice.Sub(in.StopLossPrice).Abs()
	stop := rc.recommendedStop(in)

	warnings := []string{}
	suggestions := []string{}
	if priceDiff.IsZero() {
		warnings = append(warnings, MsgStopEqualsEntry)
		suggestions = append(suggestions, SuggestStopDistance)
		if in.RiskPerTradePercent.GreaterThan(rc.policy.ConventionalRiskPercent) {
			warnings = append(warnings, MsgRiskAboveConv)
			suggestions = append(suggestions, SuggestLowerRisk)
		}
		return RiskCalculationResult{
			RiskAmount:          riskAmount,
			PositionValue:       decimal.Zero,
			MaxLoss:             decimal.Zero,
			SharesOrContracts:   0,
			RiskRewardRatio:     decimal.Zero,
			RecommendedStopLoss: stop,
			Warnings:            warnings,
			Suggestions:         suggestions,
		}, nil
	}

	var units int64 // shares, or contracts for options
	var fits bool
	var positionValue, maxLoss, unitsControlled decimal.Decimal
	if in.IsOption() {
		perContract := in.OptionPremium.Mul(hundred)
		units, fits = wholeUnits(riskAmount.Div(perContract), math.MaxInt64/model.OptionMultiplier)
		if !fits {
			return RiskCalculationResult{}, &ValidationError{Errors: []string{MsgSizeTooLarge}, Warnings: v.Warnings}
		}
		positionValue = decimal.NewFromInt(units).Mul(perContract)
		// long premium is the whole risk
		maxLoss = positionValue
		unitsControlled = decimal.NewFromInt(units * model.OptionMultiplier)
		if in.Contracts != nil && *in.Contracts > units {
			warnings = append(warnings, MsgContractsAbove)
		}
	} else {
		units, fits = wholeUnits(riskAmount.Div(priceDiff), math.MaxInt64)
		if !fits {
			return RiskCalculationResult{}, &ValidationError{Errors: []string{MsgSizeTooLarge}, Warnings: v.Warnings}
		}
		positionValue = decimal.NewFromInt(units).Mul(in.EntryPrice)
		maxLoss = decimal.NewFromInt(units).Mul(priceDiff)
		unitsControlled = decimal.NewFromInt(units)
	}

	if maxLoss.GreaterThan(riskAmount.Mul(rc.policy.RiskDriftFactor)) {
		warnings = append(warnings, MsgRiskExceedsTarget)
	}
	if positionValue.GreaterThan(in.AccountValue.Mul(rc.policy.MaxConcentrationPct).Div(hundred)) {
		warnings = append(warnings, MsgConcentration)
		suggestions = append(suggestions, SuggestDiversify)
	}
	if in.RiskPerTradePercent.GreaterThan(rc.policy.ConventionalRiskPercent) {
		warnings = append(warnings, MsgRiskAboveConv)
		suggestions = append(suggestions, SuggestLowerRisk)
	}

	ratio := decimal.Zero
	if units == 0 {
		warnings = append(warnings, MsgTooSmall)
		suggestions = append(suggestions, SuggestIncreaseBudget)
	} else {
		target := in.EntryPrice.Mul(rc.policy.ProfitTargetPct).Div(hundred)
		potential := target.Mul(unitsControlled)
		ratio = potential.Div(maxLoss).Round(2)
		if ratio.LessThan(decimal.NewFromInt(1)) {
			suggestions = append(suggestions, SuggestRiskReward)
		}
	}

	return RiskCalculationResult{
		RiskAmount:          riskAmount,
		PositionValue:       positionValue,
		MaxLoss:             maxLoss,
		SharesOrContracts:   units,
		RiskRewardRatio:     ratio,
		RecommendedStopLoss: stop,
		Warnings:            warnings,
		Suggestions:         suggestions,
	}, nil
}

// wholeUnits floors q to a count. It reports false, with limit, when the
// count is above limit.
func wholeUnits(q decimal.Decimal, limit int64) (int64, bool) {
	f := q.Floor()
	if f.GreaterThan(decimal.NewFromInt(limit)) {
		return limit, false
	}
	return f.IntPart(), true
}

// recommendedStop is DefaultStopPct below entry for longs and above for shorts,
// independent of the stop the user supplied.
func (rc *RiskCalculator) recommendedStop(in RiskCalculationInput) decimal.Decimal {
	off := in.EntryPrice.Mul(rc.policy.DefaultStopPct).Div(hundred)
	if in.PositionType == model.SideShort {
		return in.EntryPrice.Add(off)
	}
	return in.EntryPrice.Sub(off)
}
