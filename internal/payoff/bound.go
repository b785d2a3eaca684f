package payoff

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Bound is either a finite amount or Unbounded. It is never a float sentinel,
// so callers cannot accidentally do arithmetic with an infinite value.
type Bound struct {
	amount    decimal.Decimal
	unbounded bool
}

// Unbounded marks a payoff with no finite extreme.
var Unbounded = Bound{unbounded: true}

// Bounded wraps a finite amount.
func Bounded(amount decimal.Decimal) Bound {
	return Bound{amount: amount}
}

// IsUnbounded reports whether the bound has no finite value.
func (b Bound) IsUnbounded() bool { return b.unbounded }

// Amount returns the finite amount and true, or zero and false when unbounded.
func (b Bound) Amount() (decimal.Decimal, bool) {
	if b.unbounded {
		return decimal.Zero, false
	}
	return b.amount, true
}

// Equal compares two bounds.
func (b Bound) Equal(o Bound) bool {
	if b.unbounded || o.unbounded {
		return b.unbounded == o.unbounded
	}
	return b.amount.Equal(o.amount)
}

func (b Bound) String() string {
	if b.unbounded {
		return "unbounded"
	}
	return b.amount.String()
}

type boundJSON struct {
	Unbounded bool             `json:"unbounded"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

// MarshalJSON encodes {"unbounded":true} or {"unbounded":false,"amount":"..."}.
func (b Bound) MarshalJSON() ([]byte, error) {
	if b.unbounded {
		return json.Marshal(boundJSON{Unbounded: true})
	}
	amt := b.amount
	return json.Marshal(boundJSON{Amount: &amt})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (b *Bound) UnmarshalJSON(data []byte) error {
	var raw boundJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Unbounded {
		*b = Unbounded
		return nil
	}
	if raw.Amount == nil {
		*b = Bounded(decimal.Zero)
		return nil
	}
	*b = Bounded(*raw.Amount)
	return nil
}
