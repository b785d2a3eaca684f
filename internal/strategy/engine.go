// Package strategy provides the catalog of option strategy presets.
//
// A Preset describes the legs of a textbook strategy relative to the current
// underlying price. The Catalog looks presets up by id, category, difficulty
// and market outlook, and builds concrete legs the P/L engine can evaluate.
package strategy

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownPreset is returned for an id the catalog does not hold.
	ErrUnknownPreset = errors.New("unknown strategy preset")
	// ErrRequirements is matched by a *RequirementsError.
	ErrRequirements = errors.New("legs do not fit strategy")
)

// DefaultPremium is the per-share premium assumed for option legs built from a
// preset when no quote is available.
var DefaultPremium = decimal.RequireFromString("2.5")

// Category groups presets by purpose.
type Category string

const (
	CategoryIncome      Category = "income"
	CategoryDirectional Category = "directional"
	CategoryVolatility  Category = "volatility"
	CategoryHedging     Category = "hedging"
)

// Difficulty is the experience level a preset targets.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// RiskLevel is the qualitative risk of a preset.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) rank() int {
	switch r {
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	}
	return 1
}

// Outlook is the market view a preset expresses.
type Outlook string

const (
	Bullish  Outlook = "bullish"
	Bearish  Outlook = "bearish"
	Neutral  Outlook = "neutral"
	Volatile Outlook = "volatile"
)

// LegTemplate is a preset leg. StrikePct places the strike as a percentage of
// the underlying price (105 = 5% above); stock legs ignore it.
type LegTemplate struct {
	Instrument model.InstrumentType `json:"instrumentType"`
	OptionType model.OptionType     `json:"optionType,omitempty"`
	Action     model.Action         `json:"action"`
	StrikePct  decimal.Decimal      `json:"strikePct"`
	Quantity   int64                `json:"quantity"`
}

// Greeks are reference sensitivities for one lot of a preset near the money.
// They are teaching values, not model output.
type Greeks struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
}

// Requirements constrain a leg set that claims to be the preset.
// SameStrike means every option leg shares one strike. The lab prices every
// leg at a single expiry, so SameExpiry always holds there.
type Requirements struct {
	MinPositions int  `json:"minPositions"`
	MaxPositions int  `json:"maxPositions"`
	SameExpiry   bool `json:"sameExpiry"`
	SameStrike   bool `json:"sameStrike"`
}

// Preset is a named multi-leg strategy.
type Preset struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Category     Category      `json:"category"`
	Difficulty   Difficulty    `json:"difficulty"`
	RiskLevel    RiskLevel     `json:"riskLevel"`
	Outlook      Outlook       `json:"marketOutlook"`
	Greeks       Greeks        `json:"greeks"`
	Requirements Requirements  `json:"requirements"`
	Legs         []LegTemplate `json:"legs"`
}

// RequirementsError lists why a leg set does not fit a preset.
type RequirementsError struct {
	Preset   string
	Problems []string
}

func (e *RequirementsError) Error() string {
	return fmt.Sprintf("%s: %s", e.Preset, strings.Join(e.Problems, "; "))
}

func (e *RequirementsError) Is(target error) bool { return target == ErrRequirements }

// CheckLegs returns the requirement violations of legs, or nil when they fit.
// A zero MaxPositions leaves the count unbounded above.
func (p Preset) CheckLegs(legs []model.Position) []string {
	var problems []string
	req := p.Requirements
	n := len(legs)
	switch {
	case n < req.MinPositions && req.MinPositions == req.MaxPositions:
		problems = append(problems, fmt.Sprintf("%s needs exactly %d positions, got %d", p.Name, req.MinPositions, n))
	case n < req.MinPositions:
		problems = append(problems, fmt.Sprintf("%s needs at least %d positions, got %d", p.Name, req.MinPositions, n))
	case req.MaxPositions > 0 && n > req.MaxPositions && req.MinPositions == req.MaxPositions:
		problems = append(problems, fmt.Sprintf("%s needs exactly %d positions, got %d", p.Name, req.MaxPositions, n))
	case req.MaxPositions > 0 && n > req.MaxPositions:
		problems = append(problems, fmt.Sprintf("%s allows at most %d positions, got %d", p.Name, req.MaxPositions, n))
	}
	if req.SameStrike {
		var strike *decimal.Decimal
		for _, l := range legs {
			if l.Instrument() != model.InstrumentOption {
				continue
			}
			k := l.Strike()
			if strike == nil {
				strike = &k
			} else if !strike.Equal(k) {
				problems = append(problems, fmt.Sprintf("%s requires every option at the same strike", p.Name))
				break
			}
		}
	}
	return problems
}

// Fit is CheckLegs as an error.
func (p Preset) Fit(legs []model.Position) error {
	if problems := p.CheckLegs(legs); len(problems) > 0 {
		return &RequirementsError{Preset: p.ID, Problems: problems}
	}
	return nil
}

// Build turns the preset into concrete legs at the given underlying price.
// Option legs use premium per share; stock legs enter at the underlying price.
// Strikes are rounded to whole units.
func (p Preset) Build(underlying, premium decimal.Decimal) ([]model.Position, error) {
	if !underlying.IsPositive() {
		return nil, fmt.Errorf("build %s: underlying price must be > 0, got %s", p.ID, underlying)
	}
	legs := make([]model.Position, 0, len(p.Legs))
	for i, lt := range p.Legs {
		var (
			pos model.Position
			err error
		)
		if lt.Instrument == model.InstrumentStock {
			pos, err = model.NewStockPosition(lt.Action, underlying, lt.Quantity)
		} else {
			strike := underlying.Mul(lt.StrikePct).Div(decimal.NewFromInt(100)).Round(0)
			pos, err = model.NewOptionPosition(lt.OptionType, lt.Action, strike, premium, lt.Quantity)
		}
		if err != nil {
			return nil, fmt.Errorf("build %s leg %d: %w", p.ID, i, err)
		}
		legs = append(legs, pos)
	}
	return legs, nil
}

// Catalog holds registered presets in registration order.
type Catalog struct {
	mu      sync.RWMutex
	presets []Preset
}

// NewCatalog creates a catalog with the built-in presets registered.
func NewCatalog() *Catalog {
	c := &Catalog{}
	for _, p := range builtins() {
		c.Register(p)
	}
	return c
}

// Register adds a preset, replacing any preset with the same id.
func (c *Catalog) Register(p Preset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.presets {
		if c.presets[i].ID == p.ID {
			c.presets[i] = p
			return
		}
	}
	c.presets = append(c.presets, p)
}

// All returns every preset.
func (c *Catalog) All() []Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.presets)
}

// ByID returns the preset with the given id.
func (c *Catalog) ByID(id string) (Preset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.presets {
		if p.ID == id {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, id)
}

// ByCategory filters presets by category.
func (c *Catalog) ByCategory(cat Category) []Preset {
	return c.filter(func(p Preset) bool { return p.Category == cat })
}

// ByDifficulty filters presets by difficulty.
func (c *Catalog) ByDifficulty(diff Difficulty) []Preset {
	return c.filter(func(p Preset) bool { return p.Difficulty == diff })
}

// Recommend returns presets matching the outlook (neutral presets always match)
// whose risk level does not exceed the tolerance. Unknown levels count as low.
func (c *Catalog) Recommend(outlook Outlook, tolerance RiskLevel) []Preset {
	outlook = Outlook(strings.ToLower(string(outlook)))
	return c.filter(func(p Preset) bool {
		if p.Outlook != outlook && p.Outlook != Neutral {
			return false
		}
		return p.RiskLevel.rank() <= tolerance.rank()
	})
}

func (c *Catalog) filter(keep func(Preset) bool) []Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []Preset{}
	for _, p := range c.presets {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
