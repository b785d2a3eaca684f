package portfolio

import (
	"errors"
	"slices"
	"testing"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"

	"github.com/shopspring/decimal"
)

func stockInput(account, risk, entry, stop string, side model.PositionSide) RiskCalculationInput {
	return RiskCalculationInput{
		AccountValue:        d(account),
		RiskPerTradePercent: d(risk),
		EntryPrice:          d(entry),
		StopLossPrice:       d(stop),
		PositionType:        side,
	}
}

func ptr[T any](v T) *T { return &v }

func TestCalculatePositionSize_StockLong(t *testing.T) {
	rc := NewRiskCalculator(DefaultRiskPolicy())
	res, err := rc.CalculatePositionSize(stockInput("10000", "2", "100", "95", model.SideLong))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.RiskAmount.Equal(d("200")) {
		t.Errorf("risk amount: got %s, want 200", res.RiskAmount)
	}
	if res.SharesOrContracts != 40 {
		t.Errorf("shares: got %d, want 40", res.SharesOrContracts)
	}
	if !res.MaxLoss.Equal(d("200")) {
		t.Errorf("max loss: got %s, want 200", res.MaxLoss)
	}
	if !res.PositionValue.Equal(d("4000")) {
		t.Errorf("position value: got %s, want 4000", res.PositionValue)
	}
	if !res.RecommendedStopLoss.Equal(d("95")) {
		t.Errorf("recommended stop: got %s, want 95", res.RecommendedStopLoss)
	}
	// 10% of 100 on 40 shares vs 200 at risk
	if !res.RiskRewardRatio.Equal(d("2")) {
		t.Errorf("risk/reward: got %s, want 2", res.RiskRewardRatio)
	}
	// exactly 2% is within convention
	if slices.Contains(res.Warnings, MsgRiskAboveConv) {
		t.Errorf("2%% risk must not warn, warnings=%v", res.Warnings)
	}
	// 4000 of 10000 is above the 30% concentration line
	if !slices.Contains(res.Warnings, MsgConcentration) {
		t.Errorf("expected concentration warning, got %v", res.Warnings)
	}
}

func TestCalculatePositionSize_StockShort(t *testing.T) {
	rc := NewRiskCalculator(DefaultRiskPolicy())
	res, err := rc.CalculatePositionSize(stockInput("10000", "1", "50", "52", model.SideShort))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SharesOrContracts != 50 {
		t.Errorf("shares: got %d, want 50", res.SharesOrContracts)
	}
	if !res.RecommendedStopLoss.Equal(d("52.5")) {
		t.Errorf("recommended stop: got %s, want 52.5", res.RecommendedStopLoss)
	}
}

func TestCalculatePositionSize_LongStopAboveEntry(t *testing.T) {
	rc := NewRiskCalculator(DefaultRiskPolicy())
	res, err := rc.CalculatePositionSize(stockInput("10000", "2", "100", "105", model.SideLong))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !slices.Contains(verr.Errors, MsgLongStop) {
		t.Errorf("errors: got %v, want %q", verr.Errors, MsgLongStop)
	}
	if res.SharesOrContracts != 0 || !res.RiskAmount.IsZero() {
		t.Errorf("no result expected on validation failure, got %+v", res)
	}
}

func TestCalculatePositionSize_StopEqualsEntry(t *testing.T) {
	rc := NewRiskCalculator(DefaultRiskPolicy())
	res, err := rc.CalculatePositionSize(stockInput("10000", "2", "100", "100", model.SideLong))
	if err != nil {
		t.Fatalf("equal stop must not error: %v", err)
	}
	if res.SharesOrContracts != 0 || !res.MaxLoss.IsZero() || !res.RiskRewardRatio.IsZero() {
		t.Errorf("expected zero sizing, got %+v", res)
	}
	if !slices.Contains(res.Warnings, MsgStopEqualsEntry) {
		t.Errorf("warnings: got %v", res.Warnings)
	}
	if !slices.Contains(res.Suggestions, SuggestStopDistance) {
		t.Errorf("suggestions: got %v", res.Suggestions)
	}
	if !res.RecommendedStopLoss.Equal(d("95")) {
		t.Errorf("fallback stop: got %s, want 95", res.RecommendedStopLoss)
	}
}

func TestCalculatePositionSize_StopEqualsEntryHighRisk(t *testing.T) {
	rc := NewRiskCalculator(DefaultRiskPolicy())
	res, err := rc.CalculatePositionSize(stockInput("10000", "5", "100", "100", model.SideLong))
	if err != nil {
		t.Fatalf("equal stop must not error: %v", err)
	}
	for _, w := range []string{MsgStopEqualsEntry, MsgRiskAboveConv} {
		if !slices.Contains(res.Warnings, w) {
			t.Errorf("missing warning %q in %v", w, res.Warnings)
		}
	}
	for _, s := range []string{SuggestStopDistance, SuggestLowerRisk} {
		if !slices.Contains(res.Suggestions, s) {
			t.Errorf("missing suggestion %q in %v", s, res.Suggestions)
		}
	}
}

func TestCalculatePositionSize_SizeTooLarge(t *testing.T) {
	rc := NewRiskCalculator(DefaultRiskPolicy())
	tests := []struct {
		name string
		in   RiskCalculationInput
	}{
		// 1e22 risk over a 0.01 stop is 1e24 shares
		{"stock", stockInput("1e24", "1", "1", "0.99", model.SideLong)},
		{"option", RiskCalculationInput{
			AccountValue:        d("1e24"),
			RiskPerTradePercent: d("1"),
			EntryPrice:          d("1"),
			StopLossPrice:       d("0.99"),
			PositionType:        model.SideLong,
			OptionType:          model.OptionCall,
			OptionStrike:        ptr(d("1")),
			OptionPremium:       ptr(d("0.01")),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rc.CalculatePositionSize(tt.in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !slices.Contains(ve.Errors, MsgSizeTooLarge) {
				t.Errorf("errors: got %v", ve.Errors)
			}
		})
	}
}

func TestCalculatePositionSize_Option(t *testing.T) {
	rc := NewRiskCalculator(DefaultRiskPolicy())
	in := stockInput("10000", "2", "100", "90", model.SideLong)
	in.OptionType = model.OptionCall
	in.OptionStrike = ptr(d("100"))
	in.OptionPremium = ptr(d("1.5"))
	in.Contracts = ptr(int64(3))

	res, err := rc.CalculatePositionSize(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 200 / 150 per contract
	if res.SharesOrContracts != 1 {
		t.Errorf("contracts: got %d, want 1", res.SharesOrContracts)
	}
	if !res.PositionValue.Equal(d("150")) || !res.MaxLoss.Equal(d("150")) {
		t.Errorf("value/loss: got %s/%s, want 150/150", res.PositionValue, res.MaxLoss)
	}
	if !res.RiskRewardRatio.Equal(d("6.67")) {
		t.Errorf("risk/reward: got %s, want 6.67", res.RiskRewardRatio)
	}
	if !slices.Contains(res.Warnings, MsgContractsAbove) {
		t.Errorf("expected contracts warning, got %v", res.Warnings)
	}
}

func TestCalculatePositionSize_TooSmall(t *testing.T) {
	rc := NewRiskCalculator(DefaultRiskPolicy())
	res, err := rc.CalculatePositionSize(stockInput("100", "1", "100", "95", model.SideLong))
	if err != nil {
		t.Fatal(err)
	}
	if res.SharesOrContracts != 0 || !res.RiskRewardRatio.IsZero() {
		t.Errorf("got %+v", res)
	}
	if !slices.Contains(res.Warnings, MsgTooSmall) {
		t.Errorf("warnings: got %v", res.Warnings)
	}
}

func TestValidateRiskParameters(t *testing.T) {
	rc := NewRiskCalculator(DefaultRiskPolicy())

	tests := []struct {
		name    string
		mutate  func(*RiskCalculationInput)
		wantErr string
	}{
		{"zero account", func(in *RiskCalculationInput) { in.AccountValue = decimal.Zero }, MsgAccountValue},
		{"zero risk", func(in *RiskCalculationInput) { in.RiskPerTradePercent = decimal.Zero }, MsgRiskRange},
		{"risk above 10", func(in *RiskCalculationInput) { in.RiskPerTradePercent = d("10.5") }, MsgRiskRange},
		{"zero entry", func(in *RiskCalculationInput) { in.EntryPrice = decimal.Zero }, MsgEntryPrice},
		{"negative stop", func(in *RiskCalculationInput) { in.StopLossPrice = d("-1") }, MsgStopPrice},
		{"short stop below", func(in *RiskCalculationInput) { in.PositionType = model.SideShort }, MsgShortStop},
		{"unknown side", func(in *RiskCalculationInput) { in.PositionType = "flat" }, MsgPositionType},
		{"option without premium", func(in *RiskCalculationInput) {
			in.OptionType = model.OptionPut
			in.OptionStrike = ptr(d("95"))
		}, MsgOptionFields},
		{"bad option type", func(in *RiskCalculationInput) {
			in.OptionType = "straddle"
			in.OptionStrike = ptr(d("95"))
			in.OptionPremium = ptr(d("1"))
		}, MsgOptionType},
		{"zero contracts", func(in *RiskCalculationInput) { in.Contracts = ptr(int64(0)) }, MsgContracts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := stockInput("10000", "2", "100", "95", model.SideLong)
			tt.mutate(&in)
			v := rc.ValidateRiskParameters(in)
			if v.IsValid {
				t.Fatal("expected invalid")
			}
			if !slices.Contains(v.Errors, tt.wantErr) {
				t.Errorf("errors: got %v, want %q", v.Errors, tt.wantErr)
			}
		})
	}

	v := rc.ValidateRiskParameters(stockInput("10000", "3", "100", "95", model.SideLong))
	if !v.IsValid || !slices.Contains(v.Warnings, MsgRiskAboveConv) {
		t.Errorf("3%% risk: got %+v", v)
	}
}
