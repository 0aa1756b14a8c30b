package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	cb := New(Config{MaxFailures: 3, Timeout: 30 * time.Second, Now: clk.now})
	boom := errors.New("redis down")

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected backend error, got %v", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	called := false
	if err := cb.Call(func() error { called = true; return nil }); !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open circuit must short-circuit, err=%v called=%v", err, called)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(Config{MaxFailures: 2})
	boom := errors.New("timeout")

	_ = cb.Call(func() error { return boom })
	_ = cb.Call(func() error { return nil })
	_ = cb.Call(func() error { return boom })

	if cb.State() != StateClosed {
		t.Fatalf("failures were not consecutive, expected closed, got %s", cb.State())
	}
}

func TestHalfOpenProbe(t *testing.T) {
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	cb := New(Config{MaxFailures: 1, Timeout: 10 * time.Second, Now: clk.now})
	boom := errors.New("refused")

	_ = cb.Call(func() error { return boom })
	clk.t = clk.t.Add(10 * time.Second)

	// Failed probe reopens and restarts the cool-down
	if err := cb.Call(func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("probe must reach the backend, got %v", err)
	}
	if cb.State() != StateOpen {
		t.Fatalf("failed probe must reopen, got %s", cb.State())
	}
	clk.t = clk.t.Add(5 * time.Second)
	if err := cb.Call(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("cool-down restarted, expected open, got %v", err)
	}

	clk.t = clk.t.Add(5 * time.Second)
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("successful probe: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("successful probe must close, got %s", cb.State())
	}
}
