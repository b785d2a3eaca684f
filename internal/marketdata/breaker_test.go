package marketdata

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*Breaker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)}
	b := NewBreaker(threshold, 10*time.Second)
	b.now = clk.Now
	return b, clk
}

var errRedis = errors.New("redis down")

func fail() error { return errRedis }
func ok() error   { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3)
	if b.State() != BreakerClosed {
		t.Fatalf("expected closed, got %v", b.State())
	}
	for i := 0; i < 3; i++ {
		if err := b.Do(fail); !errors.Is(err, errRedis) {
			t.Fatalf("call %d: got %v", i, err)
		}
	}
	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %v", b.State())
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrBreakerOpen) || called {
		t.Fatalf("expected short-circuit, got err=%v called=%v", err, called)
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(2)
	b.Do(fail)
	b.Do(ok)
	b.Do(fail)
	if b.State() != BreakerClosed {
		t.Fatalf("failures were not consecutive, got %v", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	tests := []struct {
		name  string
		probe func() error
		want  BreakerState
	}{
		{"probe succeeds", ok, BreakerClosed},
		{"probe fails", fail, BreakerOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, clk := newTestBreaker(1)
			var transitions []BreakerState
			b.OnStateChange = func(_, to BreakerState) { transitions = append(transitions, to) }

			b.Do(fail)
			clk.Advance(11 * time.Second)
			b.Do(tt.probe)

			if b.State() != tt.want {
				t.Fatalf("got %v, want %v", b.State(), tt.want)
			}
			want := []BreakerState{BreakerOpen, BreakerHalfOpen, tt.want}
			if len(transitions) != len(want) {
				t.Fatalf("transitions: got %v, want %v", transitions, want)
			}
			for i := range want {
				if transitions[i] != want[i] {
					t.Fatalf("transitions: got %v, want %v", transitions, want)
				}
			}
		})
	}
}

func TestBreakerState_String(t *testing.T) {
	if BreakerHalfOpen.String() != "half-open" || BreakerState(9).String() != "unknown" {
		t.Fatal("unexpected state names")
	}
}
