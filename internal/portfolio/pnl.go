package portfolio

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/payoff"

	"github.com/shopspring/decimal"
)

const (
	// MaxSweepPoints caps the number of samples in one curve.
	MaxSweepPoints = 200

	// DefaultBandPct is the sweep half-width around the live price, in percent.
	DefaultBandPct = 20
)

// DefaultStep is the default sweep step in price units.
var DefaultStep = decimal.NewFromInt(1)

// maxSteps bounds the step count Len computes exactly.
var maxSteps = decimal.NewFromInt(math.MaxInt32)

// ErrInvalidRange is returned for a sweep that cannot be walked.
var ErrInvalidRange = errors.New("invalid price range")

// PriceRange is an inclusive sweep [Min, Max] walked in Step increments.
type PriceRange struct {
	Min  decimal.Decimal `json:"min"`
	Max  decimal.Decimal `json:"max"`
	Step decimal.Decimal `json:"step"`
}

// Validate checks the range can be swept.
func (r PriceRange) Validate() error {
	if !r.Step.IsPositive() {
		return fmt.Errorf("%w: step must be > 0, got %s", ErrInvalidRange, r.Step)
	}
	if r.Min.IsNegative() {
		return fmt.Errorf("%w: min %s is negative", ErrInvalidRange, r.Min)
	}
	if r.Max.LessThan(r.Min) {
		return fmt.Errorf("%w: max %s below min %s", ErrInvalidRange, r.Max, r.Min)
	}
	return nil
}

// Len is the number of samples the sweep produces, both bounds included.
func (r PriceRange) Len() int {
	if r.Validate() != nil {
		return 0
	}
	steps := r.Max.Sub(r.Min).Div(r.Step)
	// saturate before IntPart, which wraps above int64
	if steps.GreaterThanOrEqual(maxSteps) {
		return math.MaxInt
	}
	n := int(steps.Floor().IntPart()) + 1
	if !steps.Equal(steps.Floor()) {
		n++ // max is off-grid and emitted on its own
	}
	return n
}

// Capped widens Step so the sweep has at most MaxSweepPoints samples.
func (r PriceRange) Capped() PriceRange {
	if r.Validate() != nil || r.Len() <= MaxSweepPoints {
		return r
	}
	width := r.Max.Sub(r.Min)
	// leave room for an off-grid max sample
	step := width.Div(decimal.NewFromInt(MaxSweepPoints - 2)).RoundUp(2)
	return PriceRange{Min: r.Min, Max: r.Max, Step: step}
}

// DefaultPriceRange is current ±bandPct% snapped outward to whole steps, floored at 0
// and capped at MaxSweepPoints samples.
func DefaultPriceRange(current decimal.Decimal, bandPct, step decimal.Decimal) (PriceRange, error) {
	if !current.IsPositive() {
		return PriceRange{}, fmt.Errorf("%w: current price must be > 0, got %s", ErrInvalidRange, current)
	}
	if !step.IsPositive() {
		return PriceRange{}, fmt.Errorf("%w: step must be > 0, got %s", ErrInvalidRange, step)
	}
	if !bandPct.IsPositive() || bandPct.GreaterThan(decimal.NewFromInt(100)) {
		return PriceRange{}, fmt.Errorf("%w: band must be in (0, 100], got %s", ErrInvalidRange, bandPct)
	}
	band := current.Mul(bandPct).Div(decimal.NewFromInt(100))
	lo := current.Sub(band).Div(step).Floor().Mul(step)
	hi := current.Add(band).Div(step).Ceil().Mul(step)
	if lo.IsNegative() {
		lo = decimal.Zero
	}
	return PriceRange{Min: lo, Max: hi, Step: step}.Capped(), nil
}

// Sweep returns a lazy sequence of aggregate P/L samples over r. The sequence is
// finite and restartable: every range over it walks the sweep from Min again.
// An invalid range yields nothing.
func Sweep(positions []model.Position, r PriceRange) iter.Seq[model.PLPoint] {
	legs := slices.Clone(positions)
	return func(yield func(model.PLPoint) bool) {
		if r.Validate() != nil {
			return
		}
		price := r.Min
		for {
			pt := model.PLPoint{
				UnderlyingPrice: price,
				AggregateProfit: payoff.AggregateProfit(legs, price),
			}
			if !yield(pt) {
				return
			}
			if price.GreaterThanOrEqual(r.Max) {
				return
			}
			price = decimal.Min(price.Add(r.Step), r.Max)
		}
	}
}

// Curve is the result of ComputePLCurve.
type Curve struct {
	Range           PriceRange        `json:"range"`
	Points          []model.PLPoint   `json:"points"`
	CurrentPrice    decimal.Decimal   `json:"currentPrice"`
	CurrentPL       decimal.Decimal   `json:"currentPL"`
	MaxProfit       payoff.Bound      `json:"maxProfit"`
	MaxLoss         payoff.Bound      `json:"maxLoss"`
	BreakevenPoints []decimal.Decimal `json:"breakevenPoints"`
	ProfitZones     []PriceZone       `json:"profitZones"`
}

// CurveSummary is a curve without its samples.
type CurveSummary struct {
	Range           PriceRange        `json:"range"`
	Samples         int               `json:"samples"`
	CurrentPrice    decimal.Decimal   `json:"currentPrice"`
	CurrentPL       decimal.Decimal   `json:"currentPL"`
	MaxProfit       payoff.Bound      `json:"maxProfit"`
	MaxLoss         payoff.Bound      `json:"maxLoss"`
	BreakevenPoints []decimal.Decimal `json:"breakevenPoints"`
	ProfitZones     []PriceZone       `json:"profitZones"`
}

// Summary drops the samples from c.
func (c Curve) Summary() CurveSummary {
	return CurveSummary{
		Range:           c.Range,
		Samples:         len(c.Points),
		CurrentPrice:    c.CurrentPrice,
		CurrentPL:       c.CurrentPL,
		MaxProfit:       c.MaxProfit,
		MaxLoss:         c.MaxLoss,
		BreakevenPoints: c.BreakevenPoints,
		ProfitZones:     c.ProfitZones,
	}
}

// ComputePLCurve sweeps r and summarises the aggregate payoff of positions.
// A range with more than MaxSweepPoints samples is widened first, and the
// returned Curve.Range is the range actually walked.
//
// CurrentPL is evaluated exactly at currentPrice. MaxProfit and MaxLoss are the
// extremes of the sampled profit and of the payoff at its kinks (MaxLoss is the
// signed minimum, so a debit shows as a negative amount) unless the upside tail
// is unbounded, which is decided from the legs rather than the samples.
func ComputePLCurve(positions []model.Position, r PriceRange, currentPrice decimal.Decimal) (Curve, error) {
	if err := r.Validate(); err != nil {
		return Curve{}, err
	}
	if currentPrice.IsNegative() {
		return Curve{}, fmt.Errorf("%w: current price %s is negative", ErrInvalidRange, currentPrice)
	}
	r = r.Capped()
	if n := r.Len(); n < 1 || n > MaxSweepPoints {
		return Curve{}, fmt.Errorf("%w: %d samples", ErrInvalidRange, n)
	}

	points := make([]model.PLPoint, 0, r.Len())
	for pt := range Sweep(positions, r) {
		points = append(points, pt)
	}

	// The payoff is piecewise linear with kinks at zero and at each strike, so
	// folding those prices in makes the extremes independent of the window.
	hi, lo := points[0].AggregateProfit, points[0].AggregateProfit
	for _, pt := range points[1:] {
		hi = decimal.Max(hi, pt.AggregateProfit)
		lo = decimal.Min(lo, pt.AggregateProfit)
	}
	for _, k := range payoff.Kinks(positions) {
		v := payoff.AggregateProfit(positions, k)
		hi = decimal.Max(hi, v)
		lo = decimal.Min(lo, v)
	}

	profitUnbounded, lossUnbounded := payoff.Tails(positions)
	maxProfit, maxLoss := payoff.Bounded(hi), payoff.Bounded(lo)
	if profitUnbounded {
		maxProfit = payoff.Unbounded
	}
	if lossUnbounded {
		maxLoss = payoff.Unbounded
	}

	return Curve{
		Range:           r,
		Points:          points,
		CurrentPrice:    currentPrice,
		CurrentPL:       payoff.AggregateProfit(positions, currentPrice),
		MaxProfit:       maxProfit,
		MaxLoss:         maxLoss,
		BreakevenPoints: Breakevens(points),
		ProfitZones:     ProfitZones(points, profitUnbounded),
	}, nil
}

// Breakevens finds every sign change of aggregate profit between grid samples.
//
// For adjacent samples of opposite sign the reported price is the sample whose
// profit is closer to zero (the lower price on a tie). A run of exact zeros
// between a loss and a gain reports the first zero sample. A curve that only
// touches zero without crossing has no breakeven there.
func Breakevens(points []model.PLPoint) []decimal.Decimal {
	out := []decimal.Decimal{}
	last := -1 // index of last non-zero sample
	for i, pt := range points {
		sign := pt.AggregateProfit.Sign()
		if sign == 0 {
			continue
		}
		if last >= 0 && points[last].AggregateProfit.Sign() != sign {
			if i == last+1 {
				prev := points[last]
				if pt.AggregateProfit.Abs().LessThan(prev.AggregateProfit.Abs()) {
					out = append(out, pt.UnderlyingPrice)
				} else {
					out = append(out, prev.UnderlyingPrice)
				}
			} else {
				out = append(out, points[last+1].UnderlyingPrice)
			}
		}
		last = i
	}
	return out
}

// PriceZone is a run of sampled prices [From, To] with positive profit.
// OpenAbove marks a zone that keeps going past the top of the sweep.
type PriceZone struct {
	From      decimal.Decimal `json:"from"`
	To        decimal.Decimal `json:"to"`
	OpenAbove bool            `json:"openAbove,omitempty"`
}

// ProfitZones groups consecutive profitable samples. upsideUnbounded opens a
// zone that reaches the last sample.
func ProfitZones(points []model.PLPoint, upsideUnbounded bool) []PriceZone {
	out := []PriceZone{}
	start := -1
	for i, pt := range points {
		if pt.AggregateProfit.IsPositive() {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, PriceZone{From: points[start].UnderlyingPrice, To: points[i-1].UnderlyingPrice})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, PriceZone{
			From:      points[start].UnderlyingPrice,
			To:        points[len(points)-1].UnderlyingPrice,
			OpenAbove: upsideUnbounded,
		})
	}
	return out
}

// NearestPoint returns the sample closest to price when it lies within half a
// step of the grid, for callers that want the sampled rather than exact value.
func NearestPoint(c Curve, price decimal.Decimal) (model.PLPoint, bool) {
	if len(c.Points) == 0 {
		return model.PLPoint{}, false
	}
	half := c.Range.Step.Div(decimal.NewFromInt(2))
	best := -1
	var bestDist decimal.Decimal
	for i, pt := range c.Points {
		d := pt.UnderlyingPrice.Sub(price).Abs()
		if best < 0 || d.LessThan(bestDist) {
			best, bestDist = i, d
		}
	}
	if bestDist.GreaterThan(half) {
		return model.PLPoint{}, false
	}
	return c.Points[best], true
}
