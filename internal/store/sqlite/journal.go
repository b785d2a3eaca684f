// Package sqlite journals lab calculations to a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/portfolio"

	_ "github.com/mattn/go-sqlite3"
)

const defaultRecentLimit = 50

// Journal is an append-only log of risk calculations and curve summaries.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// Open opens (or creates) the journal at path in WAL mode and applies the schema.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[journal] opened calculation journal at %s", path)
	return &Journal{db: db, now: time.Now}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS calculations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			kind       TEXT    NOT NULL,
			session    TEXT    NOT NULL DEFAULT '',
			symbol     TEXT    NOT NULL DEFAULT '',
			input      TEXT    NOT NULL,
			result     TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_calculations_created ON calculations(created_at);
		CREATE INDEX IF NOT EXISTS idx_calculations_kind ON calculations(kind, created_at);
	`)
	return err
}

// Record appends rec. A zero CreatedAt is stamped with the current time.
func (j *Journal) Record(ctx context.Context, rec model.CalculationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = j.now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO calculations (kind, session, symbol, input, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(rec.Kind), rec.Session, rec.Symbol,
		string(rec.Input), string(rec.Result),
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert %s calculation: %w", rec.Kind, err)
	}
	return nil
}

// RecordRiskCalculation journals a sizing request and its result.
func (j *Journal) RecordRiskCalculation(ctx context.Context, in portfolio.RiskCalculationInput, res portfolio.RiskCalculationResult) error {
	input, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal risk input: %w", err)
	}
	result, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal risk result: %w", err)
	}
	return j.Record(ctx, model.CalculationRecord{
		Kind:   model.KindPositionSize,
		Input:  input,
		Result: result,
	})
}

// RecordCurve journals the legs of a session and the summary of their curve.
func (j *Journal) RecordCurve(ctx context.Context, session, symbol string, legs []model.Position, c portfolio.Curve) error {
	input, err := json.Marshal(legs)
	if err != nil {
		return fmt.Errorf("marshal legs: %w", err)
	}
	result, err := json.Marshal(c.Summary())
	if err != nil {
		return fmt.Errorf("marshal curve summary: %w", err)
	}
	return j.Record(ctx, model.CalculationRecord{
		Kind:    model.KindPLCurve,
		Session: session,
		Symbol:  symbol,
		Input:   input,
		Result:  result,
	})
}

// Recent returns up to limit records, newest first. limit <= 0 uses a default.
func (j *Journal) Recent(ctx context.Context, limit int) ([]model.CalculationRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, kind, session, symbol, input, result, created_at
		FROM calculations
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	out := []model.CalculationRecord{}
	for rows.Next() {
		var (
			rec           model.CalculationRecord
			kind          string
			input, result string
			createdMs     int64
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.Session, &rec.Symbol, &input, &result, &createdMs); err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		rec.Kind = model.CalculationKind(kind)
		rec.Input = json.RawMessage(input)
		rec.Result = json.RawMessage(result)
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of journaled calculations of kind.
func (j *Journal) Count(ctx context.Context, kind model.CalculationKind) (int64, error) {
	var n int64
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calculations WHERE kind = ?`, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s calculations: %w", kind, err)
	}
	return n, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
