package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

func fastRetries(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	}
}

func temporary(msg string) error {
	return domain.WrapError(domain.ErrTemporary, "store", errors.New(msg))
}

func TestExecuteRetryBudget(t *testing.T) {
	cases := []struct {
		name     string
		failures int
		errFn    func() error
		wantErr  bool
		wantRuns int
	}{
		{name: "recovers within budget", failures: 2, errFn: func() error { return temporary("conn reset") }, wantRuns: 3},
		{name: "budget exhausted", failures: 5, errFn: func() error { return temporary("conn reset") }, wantErr: true, wantRuns: 3},
		{name: "caller mistake is final", failures: 5, errFn: func() error { return fmt.Errorf("save: %w", domain.ErrInvalidInput) }, wantErr: true, wantRuns: 1},
		{name: "unknown error is final", failures: 5, errFn: func() error { return errors.New("boom") }, wantErr: true, wantRuns: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exec := NewExecutor(fastRetries(3))
			runs := 0
			err := exec.Execute(context.Background(), "results.save", func(context.Context) error {
				runs++
				if runs <= tc.failures {
					return tc.errFn()
				}
				return nil
			}, nil)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if runs != tc.wantRuns {
				t.Fatalf("runs = %d, want %d", runs, tc.wantRuns)
			}
		})
	}
}

func TestExecuteStopsWhenContextEnds(t *testing.T) {
	exec := NewExecutor(Config{RetryMaxAttempts: 5, RetryInitialBackoff: time.Second, RetryMaxBackoff: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	runs := 0
	start := time.Now()
	err := exec.Execute(ctx, "nats.publish", func(context.Context) error {
		runs++
		return temporary("no servers")
	}, nil)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected last temporary error, got %v", err)
	}
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("backoff ignored context deadline")
	}
}

func TestExecuteTripsBreakerPerOperation(t *testing.T) {
	cfg := fastRetries(1)
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(cfg)

	failing := func(context.Context) error { return errors.New("boom") }
	for range 2 {
		_ = exec.Execute(context.Background(), "results.save", failing, nil)
	}

	err := exec.Execute(context.Background(), "results.save", func(context.Context) error {
		t.Fatal("open breaker must not run the call")
		return nil
	}, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if !domain.IsKind(AsTemporary("results.save", err), domain.ErrTemporary) {
		t.Fatalf("open breaker should surface as temporary")
	}

	if err := exec.Execute(context.Background(), "nats.publish", func(context.Context) error { return nil }, nil); err != nil {
		t.Fatalf("other operations keep their own breaker: %v", err)
	}
}

func TestExecuteIgnoresCallerMistakesInBreaker(t *testing.T) {
	cfg := fastRetries(1)
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	exec := NewExecutor(cfg)

	for range 4 {
		err := exec.Execute(context.Background(), "results.get", func(context.Context) error {
			return domain.ErrResultNotFound
		}, nil)
		if !errors.Is(err, domain.ErrResultNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
}

func TestClassifyTemporary(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{name: "nil", err: nil},
		{name: "canceled", err: context.Canceled},
		{name: "deadline", err: fmt.Errorf("publish: %w", context.DeadlineExceeded)},
		{name: "invalid input", err: fmt.Errorf("parse: %w", domain.ErrInvalidInput)},
		{name: "malformed corpus", err: domain.ErrMalformedCorpus},
		{name: "temporary", err: temporary("conn reset"), retryable: true, record: true},
		{name: "breaker open", err: gobreaker.ErrOpenState, retryable: true, record: true},
		{name: "other", err: errors.New("boom"), record: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyTemporary(tc.err)
			if got.Retryable != tc.retryable || got.RecordFailure != tc.record {
				t.Fatalf("ClassifyTemporary(%v) = %+v", tc.err, got)
			}
		})
	}
}

func TestAsTemporary(t *testing.T) {
	if AsTemporary("op", nil) != nil {
		t.Fatal("nil stays nil")
	}
	plain := errors.New("boom")
	if got := AsTemporary("op", plain); got != plain {
		t.Fatalf("plain errors pass through, got %v", got)
	}
	got := AsTemporary("nats.publish", gobreaker.ErrTooManyRequests)
	if !domain.IsKind(got, domain.ErrTemporary) || !errors.Is(got, gobreaker.ErrTooManyRequests) {
		t.Fatalf("half-open rejection should be temporary and keep its cause, got %v", got)
	}
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(5, 50, 800, false)
	if cfg.RetryMaxAttempts != 5 || cfg.RetryInitialBackoff != 50*time.Millisecond || cfg.RetryMaxBackoff != 800*time.Millisecond {
		t.Fatalf("retry settings not applied: %+v", cfg)
	}
	if cfg.BreakerEnabled {
		t.Fatal("breaker should stay disabled")
	}

	fallback := FromSettings(0, 0, 0, true)
	if fallback.RetryMaxAttempts != defaultMaxAttempts || fallback.RetryInitialBackoff != defaultInitialBackoff || fallback.RetryMaxBackoff != defaultMaxBackoff {
		t.Fatalf("zero settings should use defaults: %+v", fallback)
	}

	inverted := FromSettings(3, 500, 100, true)
	if inverted.RetryMaxBackoff != 500*time.Millisecond {
		t.Fatalf("max backoff below initial should be raised, got %v", inverted.RetryMaxBackoff)
	}
}

func TestBackoffGrowsToCap(t *testing.T) {
	cfg := FromSettings(5, 100, 400, true)
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := cfg.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}
