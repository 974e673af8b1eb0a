package inference

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"fiscaldoc/internal/logger"
	"fiscaldoc/internal/port"
)

// circuitState tracks rate-limit backoff for a single backend.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackBackend tries backends in order, skipping those with open circuits.
// It implements port.InferenceBackend.
type FallbackBackend struct {
	backends []port.InferenceBackend
	circuits []*circuitState
	logger   *zap.Logger
	now      func() time.Time
}

// FallbackOption configures a FallbackBackend.
type FallbackOption func(*FallbackBackend)

// WithFallbackLogger sets the logger used for skip and failure events.
func WithFallbackLogger(l *zap.Logger) FallbackOption {
	return func(f *FallbackBackend) { f.logger = l }
}

// WithClock overrides the time source used for circuit bookkeeping.
func WithClock(now func() time.Time) FallbackOption {
	return func(f *FallbackBackend) { f.now = now }
}

// NewFallbackBackend creates a FallbackBackend from an ordered list of backends.
func NewFallbackBackend(backends []port.InferenceBackend, opts ...FallbackOption) *FallbackBackend {
	circuits := make([]*circuitState, len(backends))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	f := &FallbackBackend{
		backends: backends,
		circuits: circuits,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FallbackBackend) Name() string { return "fallback" }

// SupportsStructuredOutput is true only when every member supports it, since
// the gateway decides prompt shape before a member is picked.
func (f *FallbackBackend) SupportsStructuredOutput() bool {
	for _, b := range f.backends {
		if !b.SupportsStructuredOutput() {
			return false
		}
	}
	return len(f.backends) > 0
}

func (f *FallbackBackend) Complete(ctx context.Context, req port.CompletionRequest) (*port.CompletionResponse, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, b := range f.backends {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			f.logger.Info("skipping backend with open circuit",
				zap.String(logger.FieldBackend, b.Name()),
				zap.Time("reset_at", resetAt))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := b.Complete(ctx, req)
		if err == nil {
			return out, nil
		}

		f.logger.Warn("backend failed",
			zap.String(logger.FieldBackend, b.Name()),
			zap.Error(err))
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		retryAfter := earliestReset.Sub(f.now())
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", errors.New("all backends rate limited"), int(retryAfter.Seconds()))
	}

	return nil, errors.Wrap(lastErr, "all backends failed")
}
