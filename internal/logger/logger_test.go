package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestInitTo_WritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	l := InitTo(&buf, "labserver", slog.LevelInfo)
	l.Debug("hidden")
	l.Info("curve computed", "points", 41)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if rec["service"] != "labserver" {
		t.Errorf("service: got %v", rec["service"])
	}
	if rec["msg"] != "curve computed" {
		t.Errorf("msg: got %v", rec["msg"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if id := RequestID(ctx); id != "" {
		t.Errorf("expected empty request id, got %q", id)
	}
	if Attrs(ctx) != nil {
		t.Error("expected nil attrs without request id")
	}

	ctx = WithRequestID(ctx, "req-123")
	if id := RequestID(ctx); id != "req-123" {
		t.Errorf("got %q", id)
	}
	if len(Attrs(ctx)) != 1 {
		t.Fatal("expected one attr with request id set")
	}
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if a == b {
		t.Fatal("expected distinct ids")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("not a uuid: %q", a)
	}
}
