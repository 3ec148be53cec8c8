// Package retry runs provider calls with a per-attempt timeout and a bounded
// number of retries with exponential backoff.
package retry

import (
	"context"
	"errors"
	"net"
	"time"
)

// Policy configures timeouts and retries for one kind of request.
type Policy struct {
	MaxRetries int           // retries after the first attempt
	Delay      time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap on exponential backoff
	Timeout    time.Duration // per-attempt timeout, 0 disables it
}

// DefaultPolicy performs a single retry.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 1,
		Delay:      500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Timeout:    60 * time.Second,
	}
}

// Classifier reports whether an error is worth another attempt.
type Classifier func(err error) bool

// Do runs op until it succeeds, fails with a non-retryable error, the retries
// are exhausted or ctx is done. It returns the number of attempts made.
func Do(ctx context.Context, p Policy, retryable Classifier, op func(ctx context.Context) error) (int, error) {
	if retryable == nil {
		retryable = Transient
	}
	attempts := 0
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return attempts, ctx.Err()
			case <-time.After(p.Backoff(attempt)):
			}
		}
		attempts++
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		err := op(attemptCtx)
		cancel()
		if err == nil {
			return attempts, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return attempts, ctx.Err()
		}
		if !retryable(err) {
			return attempts, err
		}
	}
	return attempts, lastErr
}

// Backoff returns the delay before the given retry (1-based), doubling each time.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Delay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d > p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Transient treats deadline and network timeout errors as retryable.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// StatusRetryable reports whether an HTTP status code is worth retrying.
func StatusRetryable(code int) bool {
	return code == 408 || code == 429 || code >= 500
}
