package places

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net/http"
	"time"

	"github.com/JakeFAU/coffeemap/internal/cafe"
)

// RetryPolicy bounds retries of transport-level lookup failures with
// jittered exponential backoff.
type RetryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryPolicy builds a policy allowing maxRetries extra attempts. Zero
// disables retries.
func NewRetryPolicy(maxRetries int) *RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryPolicy{
		maxRetries: maxRetries,
		baseDelay:  250 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}
}

// ShouldRetry reports whether attempt (zero-based) may be followed by another.
// Only transport failures that look transient are retried.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if p == nil || err == nil || attempt >= p.maxRetries {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var lookupErr *cafe.LookupError
	if !errors.As(err, &lookupErr) || lookupErr.Kind != cafe.LookupTransport {
		return false
	}
	switch {
	case lookupErr.Status == 0:
		return true
	case lookupErr.Status == http.StatusTooManyRequests:
		return true
	default:
		return lookupErr.Status >= 500
	}
}

// Backoff returns the wait before the attempt following attempt.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
