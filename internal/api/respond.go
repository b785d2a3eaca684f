package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/lab"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/logger"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/marketdata"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/portfolio"
	"github.com/fuzzyter/NKU-Hackathon-2025/internal/strategy"
)

const maxBody = 1 << 20

// problem is the error body. Validation failures carry the full lists.
type problem struct {
	Error    string   `json:"error,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// errBadJSON marks a body that could not be decoded.
var errBadJSON = errors.New("malformed JSON body")

// decode reads a JSON body. Syntax and type errors wrap errBadJSON; leg
// constructor failures keep model.ErrInvalidPosition so they map to 422.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, model.ErrInvalidPosition) {
			return err
		}
		return errors.Join(errBadJSON, err)
	}
	return nil
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *portfolio.ValidationError
	var rerr *strategy.RequirementsError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, problem{Errors: verr.Errors, Warnings: verr.Warnings})
		return
	case errors.As(err, &rerr):
		writeJSON(w, http.StatusUnprocessableEntity, problem{Errors: rerr.Problems, Warnings: []string{}})
		return
	case errors.Is(err, errBadJSON):
		writeJSON(w, http.StatusBadRequest, problem{Error: err.Error()})
		return
	case errors.Is(err, lab.ErrSessionNotFound),
		errors.Is(err, strategy.ErrUnknownPreset),
		errors.Is(err, marketdata.ErrQuoteNotFound):
		writeJSON(w, http.StatusNotFound, problem{Error: err.Error()})
		return
	case errors.Is(err, model.ErrInvalidPosition),
		errors.Is(err, portfolio.ErrInvalidRange),
		errors.Is(err, portfolio.ErrLegIndex),
		errors.Is(err, portfolio.ErrAccountValue),
		errors.Is(err, lab.ErrSymbolRequired),
		errors.Is(err, lab.ErrNoPrice),
		errors.Is(err, marketdata.ErrInvalidQuote),
		errors.Is(err, errInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, problem{Errors: []string{err.Error()}, Warnings: []string{}})
		return
	case errors.Is(err, marketdata.ErrBreakerOpen):
		writeJSON(w, http.StatusServiceUnavailable, problem{Error: err.Error()})
		return
	}
	slog.Error("request failed", append(logger.Attrs(r.Context()), "path", r.URL.Path, "error", err)...)
	writeJSON(w, http.StatusInternalServerError, problem{Error: "internal error"})
}

// errInvalidInput marks request fields that fail simple checks.
var errInvalidInput = errors.New("invalid input")
