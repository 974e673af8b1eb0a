package classifier

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/logger"
	"fiscaldoc/internal/port"
	"fiscaldoc/internal/prompt"
)

// DefaultMinConfidence is the confidence below which a classification is
// reported as uncertain.
const DefaultMinConfidence = 0.7

var classificationSchema = port.StructuredSchema{
	Name: "document_classification",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"type", "confidence"},
		"properties": map[string]any{
			"type": map[string]any{
				"type": "string",
				"enum": []any{
					string(domain.DocumentTypeProductInvoice),
					string(domain.DocumentTypeServiceInvoice),
					string(domain.DocumentTypeFinancialStatement),
					string(domain.DocumentTypeUnsupported),
				},
			},
			"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"signals": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"has_access_key":          map[string]any{"type": "boolean"},
					"has_verification_code":   map[string]any{"type": "boolean"},
					"has_service_description": map[string]any{"type": "boolean"},
					"has_dated_entries":       map[string]any{"type": "boolean"},
					"has_running_balance":     map[string]any{"type": "boolean"},
					"keywords":                map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
			},
			"rationale": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	},
}

// Classifier labels documents through the inference gateway.
type Classifier struct {
	gateway       port.Gateway
	prompts       prompt.Set
	minConfidence float64
	logger        *zap.Logger
}

// New creates a Classifier. A non-positive minConfidence uses DefaultMinConfidence.
func New(gateway port.Gateway, prompts prompt.Set, minConfidence float64, l *zap.Logger) *Classifier {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Classifier{gateway: gateway, prompts: prompts, minConfidence: minConfidence, logger: l}
}

// Classify asks the backend which supported type the document is.
// Low confidence is only logged; an unsupported label is returned as-is
// for the caller to act on.
func (c *Classifier) Classify(ctx context.Context, in domain.ExtractionInput) (*domain.ClassificationResult, error) {
	if in.IsEmpty() {
		return nil, domain.NewInvalidInputError("", "classification requires text or images")
	}
	l := logger.FromContext(ctx, c.logger)

	var res domain.ClassificationResult
	msgs := c.prompts.Messages(c.prompts.Classifier, in)
	if err := c.gateway.GenerateStructured(ctx, msgs, classificationSchema, port.GenerateOptions{}, &res); err != nil {
		return nil, errors.Wrap(err, "classifying document")
	}

	res.Type = domain.ParseDocumentType(string(res.Type))
	res.Confidence = clamp(res.Confidence)

	l.Info("document classified",
		zap.String(logger.FieldDocType, string(res.Type)),
		zap.Float64(logger.FieldConfidence, res.Confidence))
	if res.Confidence < c.minConfidence {
		l.Warn("low classification confidence",
			zap.String(logger.FieldDocType, string(res.Type)),
			zap.Float64(logger.FieldConfidence, res.Confidence),
			zap.Float64("min_confidence", c.minConfidence))
	}
	return &res, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
