package inference

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/domain"
)

// ErrTruncated is returned by backends when the output hit the token limit.
var ErrTruncated = errors.New("output truncated: response exceeded output token limit")

// RateLimitError indicates an inference provider returned HTTP 429.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

// StatusError is a non-2xx response from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusRequestTimeout
}

// CheckStatus converts a non-2xx HTTP response into a RateLimitError or StatusError.
func CheckStatus(provider string, resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	statusErr := &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: Truncate(string(body), 500)}
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return NewRateLimitError(provider, statusErr, retryAfter)
	}
	return statusErr
}

// classify maps a raw backend error onto the pipeline error taxonomy.
// parent is the caller's context; a cancelled parent is never retryable.
func classify(parent context.Context, backend string, err error) error {
	var ibe *domain.InferenceBackendError
	if errors.As(err, &ibe) {
		return err
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return domain.NewInferenceBackendError(backend, domain.BackendErrorRateLimit, true, err)
	}
	if errors.Is(err, ErrTruncated) {
		return domain.NewInferenceBackendError(backend, domain.BackendErrorTruncated, false, err)
	}
	var se *StatusError
	if errors.As(err, &se) {
		return domain.NewInferenceBackendError(backend, domain.BackendErrorStatus, se.Retryable(), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewInferenceBackendError(backend, domain.BackendErrorTimeout, parent.Err() == nil, err)
	}
	if parent.Err() != nil {
		return domain.NewInferenceBackendError(backend, domain.BackendErrorTransport, false, err)
	}
	return domain.NewInferenceBackendError(backend, domain.BackendErrorTransport, true, err)
}

// Truncate shortens s to maxLen bytes for log and error output.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
