package strategy

import (
	"context"

	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// OCR recognizes the text of scanned invoice images and applies the same
// patterns as PDFPattern.
type OCR struct {
	engine port.OCREngine
}

// NewOCR creates the OCR strategy.
func NewOCR(engine port.OCREngine) *OCR {
	return &OCR{engine: engine}
}

func (s *OCR) Name() string { return "ocr" }

func (s *OCR) Extract(ctx context.Context, blob domain.DocumentBlob) (*domain.TypedDocument, error) {
	if ft, _ := blob.FileType(); !ft.IsImage() {
		return nil, nil
	}
	text, err := s.engine.Recognize(ctx, blob.Data)
	if err != nil {
		return nil, errors.Wrap(err, "recognizing image text")
	}
	inv := parseInvoiceText(text)
	if inv == nil {
		return nil, nil
	}
	return domain.NewProductInvoiceDocument(inv), nil
}
