package strategy

import (
	"context"

	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// PDFPattern extracts invoice fields from a PDF's text layer with regular
// expressions.
type PDFPattern struct {
	pdf port.PDFToolkit
}

// NewPDFPattern creates the PDF pattern strategy.
func NewPDFPattern(pdf port.PDFToolkit) *PDFPattern {
	return &PDFPattern{pdf: pdf}
}

func (s *PDFPattern) Name() string { return "pdf_pattern" }

func (s *PDFPattern) Extract(ctx context.Context, blob domain.DocumentBlob) (*domain.TypedDocument, error) {
	if ft, _ := blob.FileType(); ft != domain.FileTypePDF {
		return nil, nil
	}
	text, err := s.pdf.ExtractText(ctx, blob.Data)
	if err != nil {
		return nil, errors.Wrap(err, "extracting pdf text")
	}
	inv := parseInvoiceText(text)
	if inv == nil {
		return nil, nil
	}
	return domain.NewProductInvoiceDocument(inv), nil
}
