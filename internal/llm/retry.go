package llm

import (
	"context"
	"errors"
	"log"
	"time"
)

// RetryProvider repeats failed generations with exponential backoff.
type RetryProvider struct {
	inner    Provider
	attempts int
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps p so that each Generate call is tried up to attempts
// times. attempts <= 1 returns p unchanged.
func WithRetry(p Provider, attempts int, backoff time.Duration) Provider {
	if attempts <= 1 {
		return p
	}
	return &RetryProvider{inner: p, attempts: attempts, backoff: backoff, sleep: sleepContext}
}

func (r *RetryProvider) IsConfigured() bool { return r.inner.IsConfigured() }

func (r *RetryProvider) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	delay := r.backoff
	for attempt := 1; attempt <= r.attempts; attempt++ {
		text, err := r.inner.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) || attempt == r.attempts {
			break
		}
		log.Printf("Attempt %d/%d failed: %v (retrying in %s)", attempt, r.attempts, err, delay)
		if err := r.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}
	return "", lastErr
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNotConfigured) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
