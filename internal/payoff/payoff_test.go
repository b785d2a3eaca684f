package payoff

import (
	"encoding/json"
	"testing"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func option(t *testing.T, ot model.OptionType, a model.Action, strike, premium string, qty int64) model.Position {
	t.Helper()
	p, err := model.NewOptionPosition(ot, a, d(strike), d(premium), qty)
	if err != nil {
		t.Fatalf("NewOptionPosition: %v", err)
	}
	return p
}

func TestIntrinsicValue(t *testing.T) {
	tests := []struct {
		name       string
		instrument model.InstrumentType
		ot         model.OptionType
		strike     string
		price      string
		want       string
	}{
		{"stock is price", model.InstrumentStock, "", "0", "123.45", "123.45"},
		{"call ITM", model.InstrumentOption, model.OptionCall, "100", "110", "10"},
		{"call OTM", model.InstrumentOption, model.OptionCall, "100", "90", "0"},
		{"call ATM", model.InstrumentOption, model.OptionCall, "100", "100", "0"},
		{"put ITM", model.InstrumentOption, model.OptionPut, "100", "92.5", "7.5"},
		{"put OTM", model.InstrumentOption, model.OptionPut, "100", "101", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntrinsicValue(tt.instrument, tt.ot, d(tt.strike), d(tt.price))
			if !got.Equal(d(tt.want)) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPositionProfit_Direction(t *testing.T) {
	long := option(t, model.OptionCall, model.ActionBuy, "100", "2.5", 1)
	short := option(t, model.OptionCall, model.ActionSell, "100", "2.5", 1)

	// at 110: intrinsic 10, premium 2.5 → 7.5 * 100
	if got := PositionProfit(long, d("110")); !got.Equal(d("750")) {
		t.Errorf("long call at 110: got %s, want 750", got)
	}
	if got := PositionProfit(short, d("110")); !got.Equal(d("-750")) {
		t.Errorf("short call at 110: got %s, want -750", got)
	}

	stock, err := model.NewStockPosition(model.ActionBuy, d("50"), 10)
	if err != nil {
		t.Fatal(err)
	}
	if got := PositionProfit(stock, d("55")); !got.Equal(d("50")) {
		t.Errorf("stock at 55: got %s, want 50", got)
	}
}

func TestAggregateProfit_NoNetting(t *testing.T) {
	leg := option(t, model.OptionPut, model.ActionBuy, "100", "1", 1)
	one := AggregateProfit([]model.Position{leg}, d("90"))
	two := AggregateProfit([]model.Position{leg, leg}, d("90"))
	if !two.Equal(one.Mul(d("2"))) {
		t.Errorf("duplicate legs should each count: one=%s two=%s", one, two)
	}
}

func TestTails(t *testing.T) {
	tests := []struct {
		name       string
		legs       []model.Position
		wantProfit bool
		wantLoss   bool
	}{
		{"empty", nil, false, false},
		{"long call", []model.Position{option(t, model.OptionCall, model.ActionBuy, "100", "2", 1)}, true, false},
		{"short call", []model.Position{option(t, model.OptionCall, model.ActionSell, "100", "2", 1)}, false, true},
		{"short put", []model.Position{option(t, model.OptionPut, model.ActionSell, "100", "2", 1)}, false, false},
		{"call spread", []model.Position{
			option(t, model.OptionCall, model.ActionBuy, "100", "3", 1),
			option(t, model.OptionCall, model.ActionSell, "110", "1", 1),
		}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, l := Tails(tt.legs)
			if p != tt.wantProfit || l != tt.wantLoss {
				t.Errorf("got (%v, %v), want (%v, %v)", p, l, tt.wantProfit, tt.wantLoss)
			}
		})
	}
}

func TestKinks_SortedUnique(t *testing.T) {
	legs := []model.Position{
		option(t, model.OptionCall, model.ActionBuy, "110", "1", 1),
		option(t, model.OptionPut, model.ActionBuy, "90", "1", 1),
		option(t, model.OptionCall, model.ActionSell, "110", "1", 1),
	}
	got := Kinks(legs)
	want := []string{"0", "90", "110"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(d(want[i])) {
			t.Errorf("kink %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBound_JSON(t *testing.T) {
	b, err := json.Marshal(Unbounded)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"unbounded":true}` {
		t.Errorf("unbounded: got %s", b)
	}

	var back Bound
	if err := json.Unmarshal([]byte(`{"unbounded":false,"amount":"-250"}`), &back); err != nil {
		t.Fatal(err)
	}
	amt, ok := back.Amount()
	if !ok || !amt.Equal(d("-250")) {
		t.Errorf("got (%s, %v), want (-250, true)", amt, ok)
	}
	if back.Equal(Unbounded) {
		t.Error("bounded value should not equal Unbounded")
	}
}
