package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func failing(_ context.Context) error { return errors.New("upstream 503") }
func passing(_ context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), failing)
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("should not be called when circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})

	_ = cb.Execute(context.Background(), failing)
	_ = cb.Execute(context.Background(), failing)
	_ = cb.Execute(context.Background(), passing)
	_ = cb.Execute(context.Background(), failing)
	_ = cb.Execute(context.Background(), failing)

	if cb.consecutiveFailures != 2 || cb.State() != CircuitClosed {
		t.Errorf("expected 2 failures and closed, got %d %s", cb.consecutiveFailures, cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Second})
	cb.nowFunc = func() time.Time { return now }

	_ = cb.Execute(context.Background(), failing)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	now = now.Add(11 * time.Second)
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.State())
	}

	if err := cb.Execute(context.Background(), passing); err != nil {
		t.Fatalf("probe should pass: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenSingleProbe(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.nowFunc = func() time.Time { return now }
	_ = cb.Execute(context.Background(), failing)
	now = now.Add(2 * time.Second)

	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(context.Background(), func(_ context.Context) error {
			<-release
			return nil
		})
	}()

	// Wait until the probe holds the half-open slot.
	deadline := time.Now().Add(time.Second)
	for {
		cb.mu.Lock()
		probing := cb.probing
		cb.mu.Unlock()
		if probing || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if err := cb.Execute(context.Background(), passing); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second caller during probe should be rejected, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("probe failed: %v", err)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.nowFunc = func() time.Time { return now }

	_ = cb.Execute(context.Background(), failing)
	now = now.Add(2 * time.Second)
	_ = cb.Execute(context.Background(), failing)

	if state := cb.State(); state != CircuitOpen {
		t.Errorf("expected open after failed probe, got %s", state)
	}
}

func TestCircuitBreaker_CancellationDoesNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})

	_ = cb.Execute(context.Background(), func(_ context.Context) error { return context.Canceled })
	if cb.State() != CircuitClosed {
		t.Errorf("cancellation should not trip the breaker, got %s", cb.State())
	}

	_ = cb.Execute(context.Background(), func(_ context.Context) error { return context.DeadlineExceeded })
	if cb.State() != CircuitOpen {
		t.Errorf("timeouts should trip the breaker, got %s", cb.State())
	}
}

func TestExecuteVal_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	v, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
		return "https://facebook.com/acme", nil
	})
	if err != nil || v != "https://facebook.com/acme" {
		t.Errorf("unexpected result %q %v", v, err)
	}
}

func TestServiceBreakers_PerService(t *testing.T) {
	var transitions int
	sb := NewServiceBreakers(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange:    func(_, _ CircuitState) { transitions++ },
	})

	if sb.Get("serpapi") != sb.Get("serpapi") {
		t.Fatal("expected the same breaker for one service")
	}
	_ = sb.Get("openai").Execute(context.Background(), failing)

	states := sb.States()
	if states["openai"] != CircuitOpen {
		t.Errorf("openai should be open, got %s", states["openai"])
	}
	if states["serpapi"] != CircuitClosed {
		t.Errorf("serpapi should be closed, got %s", states["serpapi"])
	}
	if transitions != 1 {
		t.Errorf("expected 1 transition callback, got %d", transitions)
	}
}

func TestCircuitState_String(t *testing.T) {
	cases := map[CircuitState]string{
		CircuitClosed:    "closed",
		CircuitOpen:      "open",
		CircuitHalfOpen:  "half-open",
		CircuitState(42): "unknown",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("%d: expected %q, got %q", s, want, s.String())
		}
	}
}
