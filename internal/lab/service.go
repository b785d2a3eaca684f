// Package lab runs strategy-lab sessions: per-user leg sets on one underlying
// whose P/L curve is recomputed whenever the legs or the underlying quote move.
package lab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/marketdata"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/metrics"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/portfolio"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoPrice         = errors.New("no underlying price for session")
	ErrSymbolRequired  = errors.New("symbol is required")
)

// QuoteFeed delivers quote updates until ctx is cancelled.
type QuoteFeed interface {
	Subscribe(ctx context.Context, fn func(model.Quote)) error
}

// Config tunes the default sweep around the live price.
type Config struct {
	BandPct decimal.Decimal
	Step    decimal.Decimal
}

// Deps are the collaborators of a Service. Only Quotes and Catalog are required.
type Deps struct {
	Quotes   model.QuoteStore
	Catalog  *strategy.Catalog
	Journal  model.CalculationJournal
	Notifier model.CurveNotifier
	Metrics  *metrics.Metrics
	Health   *metrics.HealthStatus
}

// Service owns the lab sessions and the stateless calculators.
type Service struct {
	cfg      Config
	quotes   model.QuoteStore
	catalog  *strategy.Catalog
	journal  model.CalculationJournal
	notifier model.CurveNotifier
	metrics  *metrics.Metrics
	health   *metrics.HealthStatus
	risk     *portfolio.RiskCalculator
	now      func() time.Time
	retryMin time.Duration

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	id        string
	createdAt time.Time
	lab       *portfolio.Lab
}

// SessionView is a snapshot of a session.
type SessionView struct {
	ID        string               `json:"id"`
	Symbol    string               `json:"symbol"`
	Price     decimal.Decimal      `json:"price"`
	CreatedAt time.Time            `json:"createdAt"`
	Legs      []model.Position     `json:"legs"`
	Setup     portfolio.SetupCheck `json:"setup"`
}

// CurveUpdate is what subscribers receive after a recompute.
type CurveUpdate struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Legs   int             `json:"legs"`
	Curve  portfolio.Curve `json:"curve"`
}

// NewService creates a service. Zero sweep settings fall back to the defaults.
func NewService(cfg Config, deps Deps) *Service {
	if !cfg.BandPct.IsPositive() {
		cfg.BandPct = decimal.NewFromInt(portfolio.DefaultBandPct)
	}
	if !cfg.Step.IsPositive() {
		cfg.Step = portfolio.DefaultStep
	}
	if deps.Catalog == nil {
		deps.Catalog = strategy.NewCatalog()
	}
	return &Service{
		cfg:      cfg,
		quotes:   deps.Quotes,
		catalog:  deps.Catalog,
		journal:  deps.Journal,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		health:   deps.Health,
		risk:     portfolio.NewRiskCalculator(portfolio.DefaultRiskPolicy()),
		now:      time.Now,
		retryMin: feedRetryMin,
		sessions: make(map[string]*session),
	}
}

// Catalog returns the preset catalog.
func (s *Service) Catalog() *strategy.Catalog { return s.catalog }

// Risk returns the sizing calculator.
func (s *Service) Risk() *portfolio.RiskCalculator { return s.risk }

// CreateSession opens a session on symbol. price, when given, seeds the
// underlying price; otherwise the cached quote is used if there is one.
func (s *Service) CreateSession(ctx context.Context, symbol string, price *decimal.Decimal) (SessionView, error) {
	symbol = marketdata.NormalizeSymbol(symbol)
	if symbol == "" {
		return SessionView{}, ErrSymbolRequired
	}

	l := portfolio.NewLab(symbol)
	switch {
	case price != nil:
		if !price.IsPositive() {
			return SessionView{}, fmt.Errorf("%w: price must be > 0, got %s", portfolio.ErrInvalidRange, *price)
		}
		l.SetPrice(*price)
	case s.quotes != nil:
		q, err := s.quotes.Get(ctx, symbol)
		switch {
		case err == nil:
			l.SetPrice(q.Price)
		case !errors.Is(err, marketdata.ErrQuoteNotFound):
			log.Printf("[lab] quote lookup for %s failed: %v", symbol, err)
		}
	}

	sess := &session{id: uuid.NewString(), createdAt: s.now().UTC(), lab: l}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
		s.metrics.SessionsActive.Set(float64(n))
	}
	if s.health != nil {
		s.health.SetSessions(n)
	}
	log.Printf("[lab] session %s opened on %s", sess.id, symbol)
	return view(sess), nil
}

// Session returns a snapshot of session id.
func (s *Service) Session(id string) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	return view(sess), nil
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// DeleteSession closes session id.
func (s *Service) DeleteSession(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	if f, ok := s.notifier.(interface{ Forget(string) }); ok {
		f.Forget(id)
	}
	if s.metrics != nil {
		s.metrics.SessionsActive.Set(float64(n))
	}
	if s.health != nil {
		s.health.SetSessions(n)
	}
	log.Printf("[lab] session %s closed", id)
	return nil
}

// AddLeg appends a leg to session id.
func (s *Service) AddLeg(ctx context.Context, id string, p model.Position) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	sess.lab.Add(p)
	s.push(sess)
	return view(sess), nil
}

// RemoveLeg deletes the leg at index from session id.
func (s *Service) RemoveLeg(ctx context.Context, id string, index int) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	if err := sess.lab.Remove(index); err != nil {
		return SessionView{}, err
	}
	s.push(sess)
	return view(sess), nil
}

// ClearLegs drops every leg of session id.
func (s *Service) ClearLegs(ctx context.Context, id string) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	sess.lab.Clear()
	s.push(sess)
	return view(sess), nil
}

// ApplyPreset replaces the legs of session id with preset presetID built at
// the session's price. premium nil uses strategy.DefaultPremium.
func (s *Service) ApplyPreset(ctx context.Context, id, presetID string, premium *decimal.Decimal) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	preset, err := s.catalog.ByID(presetID)
	if err != nil {
		return SessionView{}, err
	}
	price := sess.lab.Price()
	if !price.IsPositive() {
		return SessionView{}, fmt.Errorf("%w: %s", ErrNoPrice, sess.lab.Symbol())
	}
	prem := strategy.DefaultPremium
	if premium != nil {
		prem = *premium
	}
	legs, err := preset.Build(price, prem)
	if err != nil {
		return SessionView{}, err
	}
	if err := preset.Fit(legs); err != nil {
		return SessionView{}, err
	}
	sess.lab.Replace(legs)
	s.push(sess)
	log.Printf("[lab] session %s applied preset %s at %s", id, presetID, price)
	return view(sess), nil
}

// Curve computes the curve of session id around its price and journals it.
func (s *Service) Curve(ctx context.Context, id string) (portfolio.Curve, error) {
	sess, err := s.get(id)
	if err != nil {
		return portfolio.Curve{}, err
	}
	if !sess.lab.Price().IsPositive() {
		return portfolio.Curve{}, fmt.Errorf("%w: %s", ErrNoPrice, sess.lab.Symbol())
	}
	c, err := s.sessionCurve(sess)
	if err != nil {
		return portfolio.Curve{}, err
	}
	s.record(ctx, model.KindPLCurve, sess.id, sess.lab.Symbol(), sess.lab.Positions(), c.Summary())
	return c, nil
}

// PLCurve is the stateless curve calculation. A nil range sweeps the default
// band around currentPrice.
func (s *Service) PLCurve(ctx context.Context, legs []model.Position, r *portfolio.PriceRange, currentPrice decimal.Decimal) (portfolio.Curve, error) {
	start := time.Now()
	var rng portfolio.PriceRange
	if r != nil {
		rng = r.Capped()
	} else {
		var err error
		rng, err = portfolio.DefaultPriceRange(currentPrice, s.cfg.BandPct, s.cfg.Step)
		if err != nil {
			s.metrics.ValidationFailed(string(model.KindPLCurve))
			return portfolio.Curve{}, err
		}
	}
	c, err := portfolio.ComputePLCurve(legs, rng, currentPrice)
	if err != nil {
		s.metrics.ValidationFailed(string(model.KindPLCurve))
		return portfolio.Curve{}, err
	}
	s.observeCurve(c, start)
	s.record(ctx, model.KindPLCurve, "", "", legs, c.Summary())
	return c, nil
}

// SizePosition runs the risk calculator and journals accepted calculations.
func (s *Service) SizePosition(ctx context.Context, in portfolio.RiskCalculationInput) (portfolio.RiskCalculationResult, error) {
	start := time.Now()
	res, err := s.risk.CalculatePositionSize(in)
	if err != nil {
		s.metrics.ValidationFailed(string(model.KindPositionSize))
		return res, err
	}
	s.metrics.ObserveCalculation(string(model.KindPositionSize), start)
	s.record(ctx, model.KindPositionSize, "", "", in, res)
	return res, nil
}

// OnQuote sets the price of every session on q's symbol and pushes the
// recomputed curves.
func (s *Service) OnQuote(q model.Quote) {
	sym := marketdata.NormalizeSymbol(q.Symbol)
	if !q.Price.IsPositive() {
		return
	}
	if s.metrics != nil {
		s.metrics.QuoteUpdatesTotal.Inc()
	}
	if s.health != nil {
		s.health.SetLastQuoteTime(s.now())
	}

	s.mu.RLock()
	var hit []*session
	for _, sess := range s.sessions {
		if sess.lab.Symbol() == sym {
			hit = append(hit, sess)
		}
	}
	s.mu.RUnlock()

	// deterministic push order
	sort.Slice(hit, func(i, j int) bool { return hit[i].createdAt.Before(hit[j].createdAt) })
	for _, sess := range hit {
		sess.lab.SetPrice(q.Price)
		s.push(sess)
	}
}

// Feed retry backoff bounds.
const (
	feedRetryMin = 500 * time.Millisecond
	feedRetryMax = 30 * time.Second
)

// Run feeds quote updates into OnQuote until ctx is cancelled. A feed that
// fails or ends early is resubscribed with exponential backoff.
func (s *Service) Run(ctx context.Context, feed QuoteFeed) error {
	backoff := s.retryMin
	for {
		log.Printf("[lab] following quote updates")
		err := feed.Subscribe(ctx, s.OnQuote)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Printf("[lab] quote feed: %v, retrying in %s", err, backoff)
		} else {
			log.Printf("[lab] quote feed ended, retrying in %s", backoff)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, feedRetryMax)
	}
}

// DefaultJournalLimit is the page size used when no limit is given.
const DefaultJournalLimit = 50

// Journal returns up to limit recent calculations, newest first. Without a
// journal the list is empty.
func (s *Service) Journal(ctx context.Context, limit int) ([]model.CalculationRecord, error) {
	if s.journal == nil {
		return []model.CalculationRecord{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = DefaultJournalLimit
	}
	return s.journal.Recent(ctx, limit)
}

func (s *Service) get(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Service) sessionCurve(sess *session) (portfolio.Curve, error) {
	start := time.Now()
	c, err := sess.lab.Curve(s.cfg.BandPct, s.cfg.Step)
	if err != nil {
		return portfolio.Curve{}, err
	}
	s.observeCurve(c, start)
	return c, nil
}

// push recomputes and notifies when the session has a price.
func (s *Service) push(sess *session) {
	if s.notifier == nil || !sess.lab.Price().IsPositive() {
		return
	}
	c, err := s.sessionCurve(sess)
	if err != nil {
		log.Printf("[lab] recompute %s: %v", sess.id, err)
		return
	}
	s.notifier.Notify(sess.id, CurveUpdate{
		Symbol: sess.lab.Symbol(),
		Price:  c.CurrentPrice,
		Legs:   len(sess.lab.Positions()),
		Curve:  c,
	})
}

func (s *Service) observeCurve(c portfolio.Curve, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveCalculation(string(model.KindPLCurve), start)
	s.metrics.CurvePoints.Observe(float64(len(c.Points)))
	if c.MaxProfit.IsUnbounded() {
		s.metrics.UnboundedCurves.WithLabelValues("profit").Inc()
	}
	if c.MaxLoss.IsUnbounded() {
		s.metrics.UnboundedCurves.WithLabelValues("loss").Inc()
	}
}

// record journals a calculation; failures are logged and counted, never returned.
func (s *Service) record(ctx context.Context, kind model.CalculationKind, sessionID, symbol string, input, result any) {
	if s.journal == nil {
		return
	}
	in, err := json.Marshal(input)
	if err == nil {
		var out []byte
		out, err = json.Marshal(result)
		if err == nil {
			err = s.journal.Record(ctx, model.CalculationRecord{
				Kind:      kind,
				Session:   sessionID,
				Symbol:    symbol,
				Input:     in,
				Result:    out,
				CreatedAt: s.now(),
			})
		}
	}
	if err != nil {
		log.Printf("[lab] journal %s: %v", kind, err)
		if s.metrics != nil {
			s.metrics.JournalWriteErrors.Inc()
		}
	}
}

func view(sess *session) SessionView {
	legs := sess.lab.Positions()
	return SessionView{
		ID:        sess.id,
		Symbol:    sess.lab.Symbol(),
		Price:     sess.lab.Price(),
		CreatedAt: sess.createdAt,
		Legs:      legs,
		Setup:     portfolio.ValidateSetup(legs),
	}
}
