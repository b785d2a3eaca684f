package portfolio

import (
	"errors"
	"sync"
	"testing"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/model"
)

func TestLab_AddRemoveClear(t *testing.T) {
	l := NewLab("AAPL")
	a := opt(t, model.OptionCall, model.ActionBuy, "100", "2", 1)
	b := opt(t, model.OptionPut, model.ActionBuy, "95", "1", 1)
	c := opt(t, model.OptionCall, model.ActionSell, "110", "1", 1)

	l.Add(a)
	l.Add(b)
	if n := l.Add(c); n != 3 {
		t.Fatalf("count: got %d, want 3", n)
	}

	if err := l.Remove(1); err != nil {
		t.Fatal(err)
	}
	got := l.Positions()
	if len(got) != 2 || got[0].String() != a.String() || got[1].String() != c.String() {
		t.Errorf("order after remove: %v", got)
	}

	if err := l.Remove(5); !errors.Is(err, ErrLegIndex) {
		t.Errorf("expected ErrLegIndex, got %v", err)
	}

	l.Clear()
	if len(l.Positions()) != 0 {
		t.Error("clear left legs behind")
	}
}

func TestLab_SnapshotIsolation(t *testing.T) {
	l := NewLab("AAPL")
	l.Add(opt(t, model.OptionCall, model.ActionBuy, "100", "2", 1))
	snap := l.Positions()
	l.Clear()
	if len(snap) != 1 {
		t.Error("snapshot must not change when the lab does")
	}
}

func TestLab_Curve(t *testing.T) {
	l := NewLab("AAPL")
	l.Add(opt(t, model.OptionCall, model.ActionBuy, "100", "2.5", 1))

	if _, err := l.Curve(d("20"), DefaultStep); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("no price yet: expected ErrInvalidRange, got %v", err)
	}

	l.SetPrice(d("100"))
	c, err := l.Curve(d("20"), DefaultStep)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Range.Min.Equal(d("80")) || !c.Range.Max.Equal(d("120")) {
		t.Errorf("range: got %v", c.Range)
	}
	if !c.CurrentPL.Equal(d("-250")) {
		t.Errorf("current P/L: got %s, want -250", c.CurrentPL)
	}
}

func TestLab_ConcurrentAccess(t *testing.T) {
	l := NewLab("AAPL")
	l.SetPrice(d("100"))
	leg := opt(t, model.OptionCall, model.ActionBuy, "100", "2.5", 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.Add(leg)
		}()
		go func() {
			defer wg.Done()
			if _, err := l.Curve(d("20"), DefaultStep); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if len(l.Positions()) != 8 {
		t.Errorf("legs: got %d, want 8", len(l.Positions()))
	}
}

func TestValidateSetup(t *testing.T) {
	if c := ValidateSetup(nil); c.IsValid {
		t.Error("empty setup should be invalid")
	}

	mixed := ValidateSetup([]model.Position{
		opt(t, model.OptionCall, model.ActionBuy, "100", "2", 6),
		opt(t, model.OptionPut, model.ActionBuy, "100", "2", 6),
	})
	if !mixed.IsValid || len(mixed.Warnings) != 2 {
		t.Errorf("got %+v, want valid with mixed and quantity warnings", mixed)
	}
}
