package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/markethours"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/portfolio"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/strategy"

	"github.com/shopspring/decimal"
)

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if s.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	report, code := s.Health.Report()
	writeJSON(w, code, report)
}

func (s *server) market(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	writeJSON(w, http.StatusOK, map[string]any{
		"open":     markethours.IsMarketOpen(now),
		"status":   markethours.StatusString(now),
		"nextOpen": markethours.NextOpen(now),
	})
}

// ── Stateless calculators ──

type curveRequest struct {
	Positions    []model.Position      `json:"positions"`
	CurrentPrice decimal.Decimal       `json:"currentPrice"`
	Range        *portfolio.PriceRange `json:"range,omitempty"`
}

func (s *server) plCurve(w http.ResponseWriter, r *http.Request) {
	var req curveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.Lab.PLCurve(r.Context(), req.Positions, req.Range, req.CurrentPrice)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) positionSize(w http.ResponseWriter, r *http.Request) {
	var in portfolio.RiskCalculationInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.Lab.SizePosition(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) validateRisk(w http.ResponseWriter, r *http.Request) {
	var in portfolio.RiskCalculationInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	start := time.Now()
	v := s.Lab.Risk().ValidateRiskParameters(in)
	s.Metrics.ObserveCalculation("validate", start)
	writeJSON(w, http.StatusOK, v)
}

type portfolioRequest struct {
	AccountValue decimal.Decimal     `json:"accountValue"`
	Holdings     []portfolio.Holding `json:"holdings"`
}

func (s *server) portfolioRisk(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	start := time.Now()
	a, err := portfolio.AnalyzePortfolioRisk(req.Holdings, req.AccountValue)
	if err != nil {
		s.Metrics.ValidationFailed("portfolio")
		writeError(w, r, err)
		return
	}
	s.Metrics.ObserveCalculation("portfolio", start)
	writeJSON(w, http.StatusOK, a)
}

type kellyRequest struct {
	WinRate decimal.Decimal `json:"winRate"`
	AvgWin  decimal.Decimal `json:"avgWin"`
	AvgLoss decimal.Decimal `json:"avgLoss"`
}

func (s *server) kelly(w http.ResponseWriter, r *http.Request) {
	var req kellyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	one := decimal.NewFromInt(1)
	if req.WinRate.IsNegative() || req.WinRate.GreaterThan(one) || req.AvgWin.IsNegative() || req.AvgLoss.IsNegative() {
		s.Metrics.ValidationFailed("kelly")
		writeError(w, r, fmt.Errorf("%w: winRate must be in [0, 1] and averages non-negative", errInvalidInput))
		return
	}
	start := time.Now()
	f := portfolio.KellyFraction(req.WinRate, req.AvgWin, req.AvgLoss)
	s.Metrics.ObserveCalculation("kelly", start)
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"fraction": f})
}

type sharesRequest struct {
	AccountValue        decimal.Decimal `json:"accountValue"`
	Price               decimal.Decimal `json:"price"`
	StopLossPrice       decimal.Decimal `json:"stopLossPrice"`
	RiskPerTradePercent decimal.Decimal `json:"riskPerTradePercent"`
}

func (s *server) sharesForRisk(w http.ResponseWriter, r *http.Request) {
	var req sharesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !req.AccountValue.IsPositive() || !req.Price.IsPositive() || !req.StopLossPrice.IsPositive() || !req.RiskPerTradePercent.IsPositive() {
		s.Metrics.ValidationFailed("shares")
		writeError(w, r, fmt.Errorf("%w: account value, price, stop and risk percent must be > 0", errInvalidInput))
		return
	}
	writeJSON(w, http.StatusOK, portfolio.SharesForRisk(req.AccountValue, req.Price, req.StopLossPrice, req.RiskPerTradePercent))
}

// ── Strategy presets ──

func (s *server) listStrategies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cat := s.Lab.Catalog()
	var out []strategy.Preset
	switch {
	case q.Get("outlook") != "":
		tol := strategy.RiskLevel(strings.ToLower(q.Get("risk")))
		if tol == "" {
			tol = strategy.RiskHigh
		}
		out = cat.Recommend(strategy.Outlook(q.Get("outlook")), tol)
	case q.Get("category") != "":
		out = cat.ByCategory(strategy.Category(strings.ToLower(q.Get("category"))))
	case q.Get("difficulty") != "":
		out = cat.ByDifficulty(strategy.Difficulty(strings.ToLower(q.Get("difficulty"))))
	default:
		out = cat.All()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) getStrategy(w http.ResponseWriter, r *http.Request) {
	p, err := s.Lab.Catalog().ByID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// strategyAnalysis evaluates a preset at ?price= (or the cached quote for
// ?symbol=) with an optional ?premium=.
func (s *server) strategyAnalysis(w http.ResponseWriter, r *http.Request) {
	p, err := s.Lab.Catalog().ByID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	var price decimal.Decimal
	switch {
	case q.Get("price") != "":
		price, err = decimal.NewFromString(q.Get("price"))
		if err != nil || !price.IsPositive() {
			writeError(w, r, fmt.Errorf("%w: price %q", errInvalidInput, q.Get("price")))
			return
		}
	case q.Get("symbol") != "":
		quote, err := s.Quotes.Get(r.Context(), q.Get("symbol"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		price = quote.Price
	default:
		writeError(w, r, fmt.Errorf("%w: price or symbol is required", errInvalidInput))
		return
	}
	premium := strategy.DefaultPremium
	if raw := q.Get("premium"); raw != "" {
		premium, err = decimal.NewFromString(raw)
		if err != nil || !premium.IsPositive() {
			writeError(w, r, fmt.Errorf("%w: premium %q", errInvalidInput, raw))
			return
		}
	}
	a, err := p.Analyze(price, premium)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// validateSetup checks positions in general and, when preset is named,
// against that preset's leg requirements.
func (s *server) validateSetup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Positions []model.Position `json:"positions"`
		Preset    string           `json:"preset,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	check := portfolio.ValidateSetup(req.Positions)
	if req.Preset != "" {
		p, err := s.Lab.Catalog().ByID(req.Preset)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if problems := p.CheckLegs(req.Positions); len(problems) > 0 {
			check.Errors = append(check.Errors, problems...)
			check.IsValid = false
		}
	}
	writeJSON(w, http.StatusOK, check)
}

// ── Sessions ──

type createSessionRequest struct {
	Symbol string           `json:"symbol"`
	Price  *decimal.Decimal `json:"price,omitempty"`
}

func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.Lab.CreateSession(r.Context(), req.Symbol, req.Price)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *server) getSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.Lab.Session(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Lab.DeleteSession(r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) addLeg(w http.ResponseWriter, r *http.Request) {
	var leg model.Position
	if err := decode(r, &leg); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.Lab.AddLeg(r.Context(), r.PathValue("id"), leg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *server) removeLeg(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: leg index %q", portfolio.ErrLegIndex, r.PathValue("index")))
		return
	}
	v, err := s.Lab.RemoveLeg(r.Context(), r.PathValue("id"), idx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *server) clearLegs(w http.ResponseWriter, r *http.Request) {
	v, err := s.Lab.ClearLegs(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type presetRequest struct {
	Preset  string           `json:"preset"`
	Premium *decimal.Decimal `json:"premium,omitempty"`
}

func (s *server) applyPreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.Lab.ApplyPreset(r.Context(), r.PathValue("id"), req.Preset, req.Premium)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *server) sessionCurve(w http.ResponseWriter, r *http.Request) {
	c, err := s.Lab.Curve(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) missed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.Lab.Session(id); err != nil {
		writeError(w, r, err)
		return
	}
	after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
	frames := []byte("[")
	if s.Replay != nil {
		for i, f := range s.Replay.Missed(id, after) {
			if i > 0 {
				frames = append(frames, ',')
			}
			frames = append(frames, f...)
		}
	}
	frames = append(frames, ']')
	w.Header().Set("Content-Type", "application/json")
	w.Write(frames)
}

// ── Quotes and journal ──

func (s *server) putQuote(w http.ResponseWriter, r *http.Request) {
	var q model.Quote
	if err := decode(r, &q); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Quotes.Put(r.Context(), q); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) getQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.Quotes.Get(r.Context(), r.PathValue("symbol"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) journal(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.Lab.Journal(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
