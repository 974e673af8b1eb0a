package strategy

import (
	"go.uber.org/zap"

	"fiscaldoc/internal/port"
)

// Deps are the collaborators of the default chain. Nil members drop the
// strategy that needs them.
type Deps struct {
	Processor  port.DocumentProcessor
	PDF        port.PDFToolkit
	OCR        port.OCREngine
	Production bool
}

// NewDefaultChain builds the chain in priority order: inference, NF-e XML,
// PDF patterns, OCR and, outside production, the simulated strategy.
func NewDefaultChain(d Deps, l *zap.Logger) *Chain {
	var strategies []port.ExtractionStrategy
	if d.Processor != nil {
		strategies = append(strategies, NewInference(d.Processor))
	}
	strategies = append(strategies, NewNFeXML())
	if d.PDF != nil {
		strategies = append(strategies, NewPDFPattern(d.PDF))
	}
	if d.OCR != nil {
		strategies = append(strategies, NewOCR(d.OCR))
	}
	if !d.Production {
		strategies = append(strategies, NewSimulated())
	}
	return NewChain(l, strategies...)
}
