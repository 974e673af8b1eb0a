package port

import (
	"context"

	"fiscaldoc/internal/domain"
)

// ContentAdapter turns raw document bytes into classifier/extractor input.
type ContentAdapter interface {
	// Adapt returns text or images plus the page count. An input with no
	// signal is returned empty with a nil error.
	Adapt(ctx context.Context, blob domain.DocumentBlob) (domain.ExtractionInput, int, error)
	// Rasterize returns one normalized image per page.
	Rasterize(ctx context.Context, blob domain.DocumentBlob) ([]domain.Image, error)
}

// PDFToolkit extracts text and page rasters from PDF bytes.
type PDFToolkit interface {
	PageCount(ctx context.Context, pdf []byte) (int, error)
	ExtractText(ctx context.Context, pdf []byte) (string, error)
	// RenderPages returns one encoded PNG per page at the given DPI.
	RenderPages(ctx context.Context, pdf []byte, dpi int) ([][]byte, error)
}

// OCREngine recognizes text in a raster image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Classifier labels an extraction input with a document type.
type Classifier interface {
	Classify(ctx context.Context, input domain.ExtractionInput) (*domain.ClassificationResult, error)
}

// Extractor produces a typed record for one document type. It returns
// (nil, nil) when the mandatory identifying field is absent.
type Extractor interface {
	Type() domain.DocumentType
	Extract(ctx context.Context, input domain.ExtractionInput) (*domain.TypedDocument, error)
}

// ExtractorProvider resolves the extractor for a classified type.
type ExtractorProvider interface {
	For(t domain.DocumentType) (Extractor, error)
}

// DocumentValidator scores a typed record. Implementations must be pure.
type DocumentValidator interface {
	Validate(doc *domain.TypedDocument) domain.ValidationResult
}

// DocumentProcessor runs the full pipeline for one document.
type DocumentProcessor interface {
	Process(ctx context.Context, blob domain.DocumentBlob) *domain.ProcessingResult
}
