package strategy

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/logger"
	"fiscaldoc/internal/port"
)

// Attempt records how one strategy fared.
type Attempt struct {
	Strategy string `json:"strategy"`
	Produced bool   `json:"produced"`
	Error    string `json:"error,omitempty"`
}

// Outcome is the chain's answer: the winning strategy and every attempt.
type Outcome struct {
	Strategy string                `json:"strategy,omitempty"`
	Document *domain.TypedDocument `json:"document,omitempty"`
	Attempts []Attempt             `json:"attempts"`
}

// Chain tries strategies in priority order and stops at the first one that
// returns a document without error.
type Chain struct {
	strategies []port.ExtractionStrategy
	logger     *zap.Logger
}

// NewChain creates a chain over strategies, tried in the given order.
func NewChain(l *zap.Logger, strategies ...port.ExtractionStrategy) *Chain {
	if l == nil {
		l = zap.NewNop()
	}
	return &Chain{strategies: strategies, logger: l}
}

// Names lists the strategies in priority order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		out[i] = s.Name()
	}
	return out
}

// Run returns the first strategy result. When none produces a document the
// outcome is still returned alongside an error marked ErrNoStrategySucceeded.
func (c *Chain) Run(ctx context.Context, blob domain.DocumentBlob) (*Outcome, error) {
	l := logger.FromContext(ctx, c.logger).With(zap.String(logger.FieldSource, blob.Filename))
	out := &Outcome{Attempts: make([]Attempt, 0, len(c.strategies))}

	var lastErr error
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return out, errors.Wrap(err, "fallback chain canceled")
		}
		name := s.Name()
		doc, err := s.Extract(ctx, blob)
		switch {
		case err != nil:
			lastErr = err
			out.Attempts = append(out.Attempts, Attempt{Strategy: name, Error: err.Error()})
			l.Warn("strategy failed", zap.String(logger.FieldStrategy, name), zap.Error(err))
			continue
		case doc == nil:
			out.Attempts = append(out.Attempts, Attempt{Strategy: name, Error: "no result"})
			l.Debug("strategy produced no result", zap.String(logger.FieldStrategy, name))
			continue
		}
		out.Attempts = append(out.Attempts, Attempt{Strategy: name, Produced: true})
		out.Strategy = name
		out.Document = doc
		l.Info("strategy succeeded",
			zap.String(logger.FieldStrategy, name),
			zap.String(logger.FieldDocType, string(doc.Type)))
		return out, nil
	}

	err := errors.Mark(errors.Newf("no strategy produced a result for %s", blob.Filename), domain.ErrNoStrategySucceeded)
	if lastErr != nil {
		err = errors.WithSecondaryError(err, lastErr)
	}
	return out, err
}
