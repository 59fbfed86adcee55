// Package retry wraps external-service calls with bounded retries and hard
// timeouts. Transient upstream failures (rate limits, 5xx, connection resets)
// are retried with exponential backoff; everything else fails immediately.
// Callers always receive an apperr.External, never the raw upstream error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gongintel/gongintel/internal/apperr"
)

// Policy controls one call site's retry behavior.
type Policy struct {
	MaxAttempts   int
	Initial       time.Duration // first backoff delay
	Cap           time.Duration // backoff ceiling
	RetryStatuses []int         // upstream HTTP statuses treated as transient
}

var (
	// Analyzer is the policy for Claude calls. 529 is Anthropic's
	// overloaded status.
	Analyzer = Policy{
		MaxAttempts:   3,
		Initial:       time.Second,
		Cap:           16 * time.Second,
		RetryStatuses: []int{429, 500, 502, 503, 529},
	}

	// Storage is the policy for Drive reads.
	Storage = Policy{
		MaxAttempts:   3,
		Initial:       time.Second,
		Cap:           8 * time.Second,
		RetryStatuses: []int{429, 500, 502, 503, 504},
	}
)

// maxRetryAfter caps server-supplied Retry-After hints.
const maxRetryAfter = 30 * time.Second

// StatusCoder is implemented by upstream errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// RetryHinter is implemented by upstream errors that carry a server-supplied
// Retry-After hint.
type RetryHinter interface {
	RetryAfterHint() time.Duration
}

// sleep is swapped out in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn up to pol.MaxAttempts times. Retryable failures back off
// exponentially (or per the upstream's Retry-After hint, capped at 30s).
// Fatal classification or exhaustion yields an apperr.External carrying the
// service, operation, attempt count and last underlying error.
func Do[T any](ctx context.Context, logger *slog.Logger, service, op string, pol Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = pol.Initial
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = pol.Cap
	bo.MaxElapsedTime = 0
	bo.Reset()

	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= pol.MaxAttempts; attempt++ {
		attempts = attempt

		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if !Retryable(err, pol.RetryStatuses) || attempt == pol.MaxAttempts {
			break
		}

		delay := bo.NextBackOff()
		if hint := retryAfterHint(err); hint > 0 {
			delay = min(hint, maxRetryAfter)
		}

		logger.Warn("retrying "+op,
			"service", service,
			"operation", op,
			"attempt", attempt+1,
			"max_attempts", pol.MaxAttempts,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)

		if serr := sleep(ctx, delay); serr != nil {
			lastErr = serr
			break
		}
	}

	e := apperr.External(service, op,
		fmt.Sprintf("%s failed after %d attempts: %v", op, attempts, lastErr), lastErr)
	e.Attempts = attempts
	return zero, e
}

// WithTimeout races fn against a wall-clock ceiling. On timeout the in-flight
// call is not cancelled: it is orphaned and its eventual result discarded
// (at-least-once semantics on the upstream side effect).
func WithTimeout[T any](ctx context.Context, d time.Duration, service, label string, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)

	go func() {
		val, err := fn(ctx)
		ch <- result{val, err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case r := <-ch:
		return r.val, r.err
	case <-timer.C:
		return zero, apperr.External(service, label,
			fmt.Sprintf("%s timed out after %dms", label, d.Milliseconds()), nil)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Retryable classifies err against a policy's status table. Connection resets
// and network timeouts are always transient.
func Retryable(err error, statuses []int) bool {
	var sc StatusCoder
	if errors.As(err, &sc) {
		status := sc.HTTPStatus()
		for _, s := range statuses {
			if s == status {
				return true
			}
		}
		return false
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ETIMEDOUT)
}

func retryAfterHint(err error) time.Duration {
	var rh RetryHinter
	if errors.As(err, &rh) {
		return rh.RetryAfterHint()
	}
	return 0
}
