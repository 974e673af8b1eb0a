package inference

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/logger"
	"fiscaldoc/internal/port"
)

const (
	defaultTimeout     = 120 * time.Second
	defaultMaxRetries  = 3
	defaultBackoffBase = time.Second
	maxBackoff         = 30 * time.Second
	defaultTemperature = 0.1
	defaultMaxTokens   = 8192
)

// Gateway implements port.Gateway on top of an InferenceBackend. Every call
// is bounded by a per-attempt timeout and retried with exponential backoff.
type Gateway struct {
	backend     port.InferenceBackend
	limiter     *rate.Limiter
	schemas     *schemaCache
	maxRetries  int
	backoffBase time.Duration
	timeout     time.Duration
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithMaxRetries sets how many times a retryable failure is retried.
func WithMaxRetries(n int) Option {
	return func(g *Gateway) { g.maxRetries = n }
}

// WithBackoffBase sets the first backoff interval; it doubles per retry.
func WithBackoffBase(d time.Duration) Option {
	return func(g *Gateway) { g.backoffBase = d }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithRequestsPerMinute paces outgoing calls. Zero disables pacing.
func WithRequestsPerMinute(rpm int) Option {
	return func(g *Gateway) {
		if rpm <= 0 {
			g.limiter = nil
			return
		}
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
}

// WithDefaults sets the sampling budget used when a call passes zero values.
func WithDefaults(temperature float64, maxTokens int) Option {
	return func(g *Gateway) {
		g.temperature = temperature
		g.maxTokens = maxTokens
	}
}

// NewGateway creates a Gateway for the given backend.
func NewGateway(backend port.InferenceBackend, opts ...Option) *Gateway {
	g := &Gateway{
		backend:     backend,
		schemas:     newSchemaCache(),
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
		timeout:     defaultTimeout,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewGatewayFromConfig creates a Gateway using the inference config section.
func NewGatewayFromConfig(backend port.InferenceBackend, cfg config.InferenceConfig, l *zap.Logger) *Gateway {
	opts := []Option{
		WithLogger(l),
		WithMaxRetries(cfg.MaxRetries),
		WithRequestsPerMinute(cfg.RequestsPerMinute),
		WithDefaults(cfg.Temperature, cfg.MaxTokens),
	}
	if cfg.TimeoutSecs > 0 {
		opts = append(opts, WithTimeout(time.Duration(cfg.TimeoutSecs)*time.Second))
	}
	if cfg.BackoffBaseMS > 0 {
		opts = append(opts, WithBackoffBase(time.Duration(cfg.BackoffBaseMS)*time.Millisecond))
	}
	return NewGateway(backend, opts...)
}

// Generate returns the backend's free-text answer.
func (g *Gateway) Generate(ctx context.Context, messages []port.Message, opts port.GenerateOptions) (string, error) {
	req := g.request(messages, opts)
	var text string
	err := g.do(ctx, func(ctx context.Context) error {
		resp, err := g.complete(ctx, req)
		if err != nil {
			return err
		}
		text = resp.Text
		return nil
	})
	return text, err
}

// GenerateStructured asks for JSON conforming to schema and decodes it into out.
// Malformed or non-conforming output is a retryable InferenceBackendError.
func (g *Gateway) GenerateStructured(ctx context.Context, messages []port.Message, schema port.StructuredSchema, opts port.GenerateOptions, out any) error {
	compiled, err := g.schemas.get(schema)
	if err != nil {
		return err
	}

	req := g.request(messages, opts)
	if g.backend.SupportsStructuredOutput() {
		req.Schema = &schema
	} else {
		instruction, err := SchemaInstruction(schema)
		if err != nil {
			return err
		}
		req.Messages = withInstruction(req.Messages, instruction)
	}

	return g.do(ctx, func(ctx context.Context) error {
		resp, err := g.complete(ctx, req)
		if err != nil {
			return err
		}
		return g.decode(resp.Text, compiled, out)
	})
}

func (g *Gateway) request(messages []port.Message, opts port.GenerateOptions) port.CompletionRequest {
	req := port.CompletionRequest{
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = g.maxTokens
	}
	return req
}

// withInstruction appends the instruction to the first system message, or
// prepends a system message when there is none. The input slice is not modified.
func withInstruction(messages []port.Message, instruction string) []port.Message {
	out := make([]port.Message, len(messages))
	copy(out, messages)
	for i := range out {
		if out[i].Role == port.RoleSystem {
			out[i].Text = out[i].Text + "\n\n" + instruction
			return out
		}
	}
	return append([]port.Message{{Role: port.RoleSystem, Text: instruction}}, out...)
}

func (g *Gateway) complete(ctx context.Context, req port.CompletionRequest) (*port.CompletionResponse, error) {
	name := g.backend.Name()
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, classify(ctx, name, err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.backend.Complete(attemptCtx, req)
	if err != nil {
		return nil, classify(ctx, name, err)
	}
	if resp == nil || resp.Text == "" {
		return nil, domain.NewInferenceBackendError(name, domain.BackendErrorMalformed, true, errors.New("empty response from backend"))
	}
	return resp, nil
}

func (g *Gateway) decode(text string, schema *jsonschema.Schema, out any) error {
	name := g.backend.Name()
	cleaned := StripCodeFences(text)

	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return domain.NewInferenceBackendError(name, domain.BackendErrorMalformed, true,
			errors.Wrapf(err, "parsing JSON output (raw: %s)", Truncate(text, 500)))
	}
	if err := schema.Validate(v); err != nil {
		return domain.NewInferenceBackendError(name, domain.BackendErrorSchema, true,
			errors.Wrap(err, "output does not match schema"))
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return domain.NewInferenceBackendError(name, domain.BackendErrorMalformed, true,
			errors.Wrap(err, "decoding output"))
	}
	return nil
}

func (g *Gateway) do(ctx context.Context, fn func(ctx context.Context) error) error {
	name := g.backend.Name()
	maxRetries := g.maxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	base := g.backoffBase
	if base <= 0 {
		base = time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(maxRetries),
		retry.WithCappedDuration(maxBackoff, retry.NewExponential(base)))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var ibe *domain.InferenceBackendError
		if errors.As(err, &ibe) && ibe.Retryable {
			g.logger.Warn("inference attempt failed",
				zap.String(logger.FieldBackend, name),
				zap.Int(logger.FieldAttempt, attempt),
				zap.String("kind", string(ibe.Kind)),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrInferenceBackend) {
		err = classify(ctx, name, err)
	}
	return errors.Wrapf(err, "after %d attempt(s)", attempt)
}
