// Package resilience wraps outbound calls (OCR provider, message queue) with
// a per-operation circuit breaker and optional bounded retry.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrorClassification tells the executor how to treat one failure:
// whether the call may be re-issued, and whether the failure says anything
// about the health of the downstream (and so counts toward tripping the
// breaker). Document-specific rejections keep RecordFailure false.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Executor keys one circuit breaker per operation name so an unhealthy
// provider endpoint cannot trip calls to a healthy one.
type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	name := strings.TrimSpace(operation)
	if name == "" {
		name = "unknown"
	}
	if classifier == nil {
		classifier = conservativeClassifier
	}

	if !e.cfg.BreakerEnabled {
		return e.retryLoop(ctx, name, fn, classifier)
	}

	_, err := e.breakerFor(name, classifier).Execute(func() (any, error) {
		return nil, e.retryLoop(ctx, name, fn, classifier)
	})
	return err
}

func (e *Executor) retryLoop(
	ctx context.Context,
	name string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.RetryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if class := classifier(lastErr); !class.Retryable {
			return lastErr
		}
		if attempt == e.cfg.RetryMaxAttempts {
			return lastErr
		}

		wait := e.backoffFor(attempt)
		slog.Warn("retry_attempt",
			"operation", name,
			"attempt", attempt,
			"max_attempts", e.cfg.RetryMaxAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", lastErr,
		)
		if !sleepCtx(ctx, wait) {
			return lastErr
		}
	}
	return lastErr
}

// backoffFor scales the initial backoff exponentially, capped at the
// configured maximum.
func (e *Executor) backoffFor(attempt int) time.Duration {
	wait := e.cfg.RetryInitialBackoff
	for i := 1; i < attempt; i++ {
		wait = time.Duration(float64(wait) * e.cfg.RetryMultiplier)
		if wait >= e.cfg.RetryMaxBackoff {
			return e.cfg.RetryMaxBackoff
		}
	}
	if wait > e.cfg.RetryMaxBackoff {
		wait = e.cfg.RetryMaxBackoff
	}
	return wait
}

func sleepCtx(ctx context.Context, wait time.Duration) bool {
	if wait <= 0 {
		return true
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Executor) breakerFor(name string, classifier ErrorClassifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[name]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !classifier(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change",
				"operation", name, "from", from.String(), "to", to.String())
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[name] = breaker
	return breaker
}

// IsCircuitOpen reports whether the error came from the breaker itself rather
// than the wrapped call.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// conservativeClassifier is used when a caller passes no classifier: never
// retry, always count the failure.
func conservativeClassifier(error) ErrorClassification {
	return ErrorClassification{Retryable: false, RecordFailure: true}
}
