// cmd/riskcalc runs the lab calculators from the command line and prints the
// result as JSON.
//
// Usage:
//
//	go run ./cmd/riskcalc --account=10000 --risk=2 --entry=100 --stop=95
//	go run ./cmd/riskcalc --account=10000 --risk=2 --entry=3 --stop=1.5 --option=call --strike=100 --premium=3
//	go run ./cmd/riskcalc --legs=legs.json --price=100 --min=80 --max=120
//	go run ./cmd/riskcalc --preset=iron_condor --price=450
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/portfolio"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/store/sqlite"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/strategy"

	"github.com/shopspring/decimal"
)

func main() {
	log.SetFlags(0)
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("[riskcalc] %v", err)
	}
}

// decFlag is a decimal flag that remembers whether it was given.
type decFlag struct {
	v   decimal.Decimal
	set bool
}

func (f *decFlag) String() string { return f.v.String() }

func (f *decFlag) Set(s string) error {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	f.v, f.set = v, true
	return nil
}

func (f *decFlag) ptr() *decimal.Decimal {
	if !f.set {
		return nil
	}
	v := f.v
	return &v
}

type options struct {
	account, risk, entry, stop decFlag
	strike, premium            decFlag
	price, min, max, step      decFlag
	side, option               string
	contracts                  int64
	legsFile, preset           string
	journal                    string
	summary                    bool
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("riskcalc", flag.ContinueOnError)
	fs.Var(&o.account, "account", "Account value")
	fs.Var(&o.risk, "risk", "Risk per trade, percent of account")
	fs.Var(&o.entry, "entry", "Entry price")
	fs.Var(&o.stop, "stop", "Stop loss price")
	fs.StringVar(&o.side, "side", "long", "Position side: long or short")
	fs.StringVar(&o.option, "option", "", "Option type for option sizing: call or put")
	fs.Var(&o.strike, "strike", "Option strike")
	fs.Var(&o.premium, "premium", "Option premium (preset mode: premium per leg)")
	fs.Int64Var(&o.contracts, "contracts", 0, "Requested contracts, checked against the recommendation")
	fs.StringVar(&o.legsFile, "legs", "", "JSON file with an array of legs; prints their P/L curve")
	fs.StringVar(&o.preset, "preset", "", "Preset id; prints the P/L curve of the preset built at --price")
	fs.Var(&o.price, "price", "Current underlying price for curve modes")
	fs.Var(&o.min, "min", "Sweep lower bound (default: price -20%)")
	fs.Var(&o.max, "max", "Sweep upper bound (default: price +20%)")
	fs.Var(&o.step, "step", "Sweep step (default: 1)")
	fs.BoolVar(&o.summary, "summary", false, "Print the curve summary without samples")
	fs.StringVar(&o.journal, "journal", "", "SQLite path; record the calculation in the journal")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.legsFile != "" && o.preset != "" {
		return nil, errors.New("--legs and --preset are mutually exclusive")
	}
	return o, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}

	var j *sqlite.Journal
	if o.journal != "" {
		if j, err = sqlite.Open(o.journal); err != nil {
			return err
		}
		defer j.Close()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if o.legsFile != "" || o.preset != "" {
		legs, err := o.legs()
		if err != nil {
			return err
		}
		c, err := o.curve(legs)
		if err != nil {
			return err
		}
		if j != nil {
			if err := j.RecordCurve(ctx, "", o.preset, legs, c); err != nil {
				return fmt.Errorf("journal: %w", err)
			}
		}
		if o.summary {
			return enc.Encode(c.Summary())
		}
		return enc.Encode(c)
	}

	in, err := o.riskInput()
	if err != nil {
		return err
	}
	rc := portfolio.NewRiskCalculator(portfolio.DefaultRiskPolicy())
	res, err := rc.CalculatePositionSize(in)
	var verr *portfolio.ValidationError
	if errors.As(err, &verr) {
		enc.Encode(portfolio.ValidationResult{Errors: verr.Errors, Warnings: verr.Warnings})
		return err
	}
	if err != nil {
		return err
	}
	if j != nil {
		if err := j.RecordRiskCalculation(ctx, in, res); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}
	return enc.Encode(res)
}

func (o *options) riskInput() (portfolio.RiskCalculationInput, error) {
	side, err := model.ParsePositionSide(o.side)
	if err != nil {
		return portfolio.RiskCalculationInput{}, err
	}
	in := portfolio.RiskCalculationInput{
		AccountValue:        o.account.v,
		RiskPerTradePercent: o.risk.v,
		EntryPrice:          o.entry.v,
		StopLossPrice:       o.stop.v,
		PositionType:        side,
	}
	if o.option != "" {
		ot, err := model.ParseOptionType(o.option)
		if err != nil {
			return portfolio.RiskCalculationInput{}, err
		}
		in.OptionType = ot
		in.OptionStrike = o.strike.ptr()
		in.OptionPremium = o.premium.ptr()
	}
	if o.contracts != 0 {
		n := o.contracts
		in.Contracts = &n
	}
	return in, nil
}

func (o *options) legs() ([]model.Position, error) {
	if o.preset != "" {
		p, err := strategy.NewCatalog().ByID(o.preset)
		if err != nil {
			return nil, err
		}
		premium := strategy.DefaultPremium
		if o.premium.set {
			premium = o.premium.v
		}
		return p.Build(o.price.v, premium)
	}

	data, err := os.ReadFile(o.legsFile)
	if err != nil {
		return nil, err
	}
	var legs []model.Position
	if err := json.Unmarshal(data, &legs); err != nil {
		return nil, fmt.Errorf("%s: %w", o.legsFile, err)
	}
	return legs, nil
}

func (o *options) curve(legs []model.Position) (portfolio.Curve, error) {
	step := portfolio.DefaultStep
	if o.step.set {
		step = o.step.v
	}
	r, err := portfolio.DefaultPriceRange(o.price.v, decimal.NewFromInt(portfolio.DefaultBandPct), step)
	if err != nil {
		return portfolio.Curve{}, err
	}
	if o.min.set {
		r.Min = o.min.v
	}
	if o.max.set {
		r.Max = o.max.v
	}
	return portfolio.ComputePLCurve(legs, r.Capped(), o.price.v)
}
