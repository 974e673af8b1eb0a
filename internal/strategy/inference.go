package strategy

import (
	"context"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// Inference runs the full inference pipeline and keeps invoice results only.
type Inference struct {
	processor port.DocumentProcessor
}

// NewInference wraps a document processor as a strategy.
func NewInference(processor port.DocumentProcessor) *Inference {
	return &Inference{processor: processor}
}

func (s *Inference) Name() string { return "inference" }

func (s *Inference) Extract(ctx context.Context, blob domain.DocumentBlob) (*domain.TypedDocument, error) {
	res := s.processor.Process(ctx, blob)
	if res == nil {
		return nil, nil
	}
	if !res.Success {
		if res.Err != nil {
			return nil, res.Err
		}
		return nil, domain.NewInvalidInputError(blob.Filename, res.Error)
	}
	if !res.TypedDocument.IsInvoice() {
		return nil, nil
	}
	return res.TypedDocument, nil
}
