package model

import (
	"fmt"
	"strings"
)

// InstrumentType distinguishes stock legs from option legs.
type InstrumentType string

const (
	InstrumentStock  InstrumentType = "stock"
	InstrumentOption InstrumentType = "option"
)

// OptionType is the right carried by an option leg.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// Action is the direction of a leg.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Direction returns +1 for buy and -1 for sell.
func (a Action) Direction() int64 {
	if a == ActionSell {
		return -1
	}
	return 1
}

// PositionSide is the side of a sized trade.
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

// Contract multipliers.
const (
	StockMultiplier  int64 = 1
	OptionMultiplier int64 = 100
)

// ParseInstrumentType accepts "stock" or "option" in any case.
func ParseInstrumentType(s string) (InstrumentType, error) {
	switch InstrumentType(strings.ToLower(strings.TrimSpace(s))) {
	case InstrumentStock:
		return InstrumentStock, nil
	case InstrumentOption:
		return InstrumentOption, nil
	}
	return "", fmt.Errorf("unknown instrument type %q", s)
}

// ParseOptionType accepts "call" or "put" in any case.
func ParseOptionType(s string) (OptionType, error) {
	switch OptionType(strings.ToLower(strings.TrimSpace(s))) {
	case OptionCall:
		return OptionCall, nil
	case OptionPut:
		return OptionPut, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// ParseAction accepts "buy" or "sell" in any case.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionBuy:
		return ActionBuy, nil
	case ActionSell:
		return ActionSell, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// ParsePositionSide accepts "long" or "short" in any case.
func ParsePositionSide(s string) (PositionSide, error) {
	switch PositionSide(strings.ToLower(strings.TrimSpace(s))) {
	case SideLong:
		return SideLong, nil
	case SideShort:
		return SideShort, nil
	}
	return "", fmt.Errorf("unknown position side %q", s)
}
