// Package resilience provides the retry and circuit-breaker machinery used
// around model backend calls.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// RateLimitError marks a backend rejection caused by quota exhaustion
// (HTTP 429 or an SDK-level rate-limit signal). It is the only error class
// the gateway retries with backoff; everything else fails the call once.
type RateLimitError struct {
	Provider   string
	Err        error
	RetryAfter float64 // seconds, 0 if the backend gave no hint
}

func (e *RateLimitError) Error() string {
	return e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError wraps err as a retryable rate-limit rejection.
func NewRateLimitError(provider string, err error) *RateLimitError {
	return &RateLimitError{Provider: provider, Err: err}
}

// IsRateLimit reports whether err (or anything in its chain) is a
// rate-limit rejection.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// IsTransient reports whether err looks like a transient network-level
// failure: timeouts, resets, DNS flaps. Used for observability tagging; the
// gateway deliberately does not retry this class, a failed provider is
// degraded to an error response instead.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
