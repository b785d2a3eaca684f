package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidPosition is wrapped by every leg construction failure.
var ErrInvalidPosition = errors.New("invalid position")

// Position is one leg of a strategy. Legs are built with NewStockPosition or
// NewOptionPosition and are immutable afterwards; the multiplier is 1 for
// stock and 100 for options.
type Position struct {
	instrument InstrumentType
	optionType OptionType // empty for stock legs
	action     Action
	strike     decimal.Decimal
	premium    decimal.Decimal
	quantity   int64
	multiplier int64
}

// NewStockPosition creates a stock leg. premium is the entry price per share.
func NewStockPosition(action Action, premium decimal.Decimal, quantity int64) (Position, error) {
	if err := checkCommon(action, premium, quantity); err != nil {
		return Position{}, err
	}
	return Position{
		instrument: InstrumentStock,
		action:     action,
		strike:     decimal.Zero,
		premium:    premium,
		quantity:   quantity,
		multiplier: StockMultiplier,
	}, nil
}

// NewOptionPosition creates an option leg of quantity contracts.
func NewOptionPosition(optType OptionType, action Action, strike, premium decimal.Decimal, quantity int64) (Position, error) {
	if optType != OptionCall && optType != OptionPut {
		return Position{}, fmt.Errorf("%w: option leg needs call or put, got %q", ErrInvalidPosition, optType)
	}
	if strike.IsNegative() {
		return Position{}, fmt.Errorf("%w: strike %s is negative", ErrInvalidPosition, strike)
	}
	if err := checkCommon(action, premium, quantity); err != nil {
		return Position{}, err
	}
	return Position{
		instrument: InstrumentOption,
		optionType: optType,
		action:     action,
		strike:     strike,
		premium:    premium,
		quantity:   quantity,
		multiplier: OptionMultiplier,
	}, nil
}

func checkCommon(action Action, premium decimal.Decimal, quantity int64) error {
	if action != ActionBuy && action != ActionSell {
		return fmt.Errorf("%w: action must be buy or sell, got %q", ErrInvalidPosition, action)
	}
	if premium.IsNegative() {
		return fmt.Errorf("%w: premium %s is negative", ErrInvalidPosition, premium)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be > 0, got %d", ErrInvalidPosition, quantity)
	}
	return nil
}

func (p Position) Instrument() InstrumentType { return p.instrument }
func (p Position) OptionType() OptionType     { return p.optionType }
func (p Position) Action() Action             { return p.action }
func (p Position) Strike() decimal.Decimal    { return p.strike }
func (p Position) Premium() decimal.Decimal   { return p.premium }
func (p Position) Quantity() int64            { return p.quantity }
func (p Position) Multiplier() int64          { return p.multiplier }

// IsCall reports whether the leg is a call option.
func (p Position) IsCall() bool {
	return p.instrument == InstrumentOption && p.optionType == OptionCall
}

// IsPut reports whether the leg is a put option.
func (p Position) IsPut() bool {
	return p.instrument == InstrumentOption && p.optionType == OptionPut
}

// Units is quantity * multiplier as a decimal.
func (p Position) Units() decimal.Decimal {
	return decimal.NewFromInt(p.quantity).Mul(decimal.NewFromInt(p.multiplier))
}

// Cost is the premium paid (buy) or received (sell) for the leg, always positive.
func (p Position) Cost() decimal.Decimal {
	return p.premium.Mul(p.Units())
}

func (p Position) String() string {
	if p.instrument == InstrumentStock {
		return fmt.Sprintf("%s %d stock @ %s", p.action, p.quantity, p.premium)
	}
	return fmt.Sprintf("%s %d %s %s @ %s", p.action, p.quantity, p.strike, p.optionType, p.premium)
}

// positionJSON is the wire shape of a leg.
type positionJSON struct {
	InstrumentType InstrumentType  `json:"instrumentType"`
	OptionType     OptionType      `json:"optionType,omitempty"`
	Action         Action          `json:"action"`
	Strike         decimal.Decimal `json:"strike"`
	Premium        decimal.Decimal `json:"premium"`
	Quantity       int64           `json:"quantity"`
	Multiplier     int64           `json:"multiplier,omitempty"`
}

// MarshalJSON encodes the leg including its multiplier.
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(positionJSON{
		InstrumentType: p.instrument,
		OptionType:     p.optionType,
		Action:         p.action,
		Strike:         p.strike,
		Premium:        p.premium,
		Quantity:       p.quantity,
		Multiplier:     p.multiplier,
	})
}

// UnmarshalJSON decodes a leg through the constructors so decoded legs obey
// the same invariants. A supplied multiplier is ignored.
func (p *Position) UnmarshalJSON(data []byte) error {
	var raw positionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	it := raw.InstrumentType
	if it == "" {
		// legs sent with only an option type are options
		if raw.OptionType != "" {
			it = InstrumentOption
		} else {
			it = InstrumentStock
		}
	}
	it, err := ParseInstrumentType(string(it))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	action, err := ParseAction(string(raw.Action))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}

	var built Position
	switch it {
	case InstrumentStock:
		if raw.OptionType != "" {
			return fmt.Errorf("%w: stock leg cannot carry option type %q", ErrInvalidPosition, raw.OptionType)
		}
		built, err = NewStockPosition(action, raw.Premium, raw.Quantity)
	case InstrumentOption:
		ot, perr := ParseOptionType(string(raw.OptionType))
		if perr != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPosition, perr)
		}
		built, err = NewOptionPosition(ot, action, raw.Strike, raw.Premium, raw.Quantity)
	}
	if err != nil {
		return err
	}
	*p = built
	return nil
}

// PLPoint is one sample of a payoff curve.
type PLPoint struct {
	UnderlyingPrice decimal.Decimal `json:"underlyingPrice"`
	AggregateProfit decimal.Decimal `json:"aggregateProfit"`
}
