package logger

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fiscaldoc/internal/config"
)

// Standard field names for structured logging across the pipeline.
const (
	FieldProcessingID = "processing_id"
	FieldSource       = "source"
	FieldStage        = "stage"
	FieldState        = "state"
	FieldBatch        = "batch"
	FieldBatchCount   = "batch_count"
	FieldPageCount    = "page_count"
	FieldStrategy     = "strategy"
	FieldBackend      = "backend"
	FieldModel        = "model"
	FieldDocType      = "doc_type"
	FieldConfidence   = "confidence"
	FieldAttempt      = "attempt"
	FieldDurationMS   = "duration_ms"
	FieldError        = "error"
)

// New builds a zap logger from the log config. Format "json" yields the
// production encoder; anything else yields the development console encoder.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing log level %q", cfg.Level)
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return l, nil
}

type contextKey string

const processingIDKey contextKey = "logger_processing_id"

// WithProcessingID stores a processing ID on the context.
func WithProcessingID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, processingIDKey, id)
}

// ProcessingID returns the processing ID stored on ctx, or "".
func ProcessingID(ctx context.Context) string {
	if v, ok := ctx.Value(processingIDKey).(string); ok {
		return v
	}
	return ""
}

// FromContext returns l decorated with the processing ID carried by ctx.
func FromContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if id := ProcessingID(ctx); id != "" {
		return l.With(zap.String(FieldProcessingID, id))
	}
	return l
}
