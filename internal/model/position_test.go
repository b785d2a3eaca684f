package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewOptionPosition_Invariants(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name    string
		ot      OptionType
		action  Action
		strike  string
		premium string
		qty     int64
	}{
		{"missing option type", "", ActionBuy, "100", "1", 1},
		{"bad action", OptionCall, "hold", "100", "1", 1},
		{"negative strike", OptionCall, ActionBuy, "-1", "1", 1},
		{"negative premium", OptionPut, ActionSell, "100", "-0.5", 1},
		{"zero quantity", OptionPut, ActionSell, "100", "1", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOptionPosition(tt.ot, tt.action, d(tt.strike), d(tt.premium), tt.qty)
			if !errors.Is(err, ErrInvalidPosition) {
				t.Errorf("expected ErrInvalidPosition, got %v", err)
			}
		})
	}
}

func TestMultiplier(t *testing.T) {
	opt, err := NewOptionPosition(OptionCall, ActionBuy, decimal.NewFromInt(100), decimal.NewFromInt(2), 3)
	if err != nil {
		t.Fatal(err)
	}
	if opt.Multiplier() != 100 {
		t.Errorf("option multiplier: got %d, want 100", opt.Multiplier())
	}
	if !opt.Units().Equal(decimal.NewFromInt(300)) {
		t.Errorf("option units: got %s, want 300", opt.Units())
	}

	stk, err := NewStockPosition(ActionBuy, decimal.NewFromInt(50), 10)
	if err != nil {
		t.Fatal(err)
	}
	if stk.Multiplier() != 1 || stk.OptionType() != "" {
		t.Errorf("stock leg: multiplier=%d optionType=%q", stk.Multiplier(), stk.OptionType())
	}
}

func TestPosition_JSONRoundTrip(t *testing.T) {
	in := `{"instrumentType":"option","optionType":"PUT","action":"Sell","strike":"95","premium":"1.25","quantity":2,"multiplier":7}`
	var p Position
	if err := json.Unmarshal([]byte(in), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.IsPut() || p.Action() != ActionSell || p.Quantity() != 2 {
		t.Errorf("decoded leg: %s", p)
	}
	if p.Multiplier() != 100 {
		t.Errorf("supplied multiplier must be ignored, got %d", p.Multiplier())
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var back Position
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if back.String() != p.String() {
		t.Errorf("round trip: got %s, want %s", back, p)
	}
}

func TestPosition_JSONRejectsStockWithOptionType(t *testing.T) {
	var p Position
	err := json.Unmarshal([]byte(`{"instrumentType":"stock","optionType":"call","action":"buy","premium":"10","quantity":1}`), &p)
	if !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition, got %v", err)
	}
}
