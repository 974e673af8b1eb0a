package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// MockContentAdapter is a mock implementation of port.ContentAdapter.
type MockContentAdapter struct {
	mock.Mock
}

func (m *MockContentAdapter) Adapt(ctx context.Context, blob domain.DocumentBlob) (domain.ExtractionInput, int, error) {
	args := m.Called(ctx, blob)
	return args.Get(0).(domain.ExtractionInput), args.Int(1), args.Error(2)
}

func (m *MockContentAdapter) Rasterize(ctx context.Context, blob domain.DocumentBlob) ([]domain.Image, error) {
	args := m.Called(ctx, blob)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Image), args.Error(1)
}

// MockPDFToolkit is a mock implementation of port.PDFToolkit.
type MockPDFToolkit struct {
	mock.Mock
}

func (m *MockPDFToolkit) PageCount(ctx context.Context, pdf []byte) (int, error) {
	args := m.Called(ctx, pdf)
	return args.Int(0), args.Error(1)
}

func (m *MockPDFToolkit) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	args := m.Called(ctx, pdf)
	return args.String(0), args.Error(1)
}

func (m *MockPDFToolkit) RenderPages(ctx context.Context, pdf []byte, dpi int) ([][]byte, error) {
	args := m.Called(ctx, pdf, dpi)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]byte), args.Error(1)
}

// MockOCREngine is a mock implementation of port.OCREngine.
type MockOCREngine struct {
	mock.Mock
}

func (m *MockOCREngine) Recognize(ctx context.Context, image []byte) (string, error) {
	args := m.Called(ctx, image)
	return args.String(0), args.Error(1)
}

// MockClassifier is a mock implementation of port.Classifier.
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, input domain.ExtractionInput) (*domain.ClassificationResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClassificationResult), args.Error(1)
}

// MockExtractor is a mock implementation of port.Extractor.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Type() domain.DocumentType {
	args := m.Called()
	return args.Get(0).(domain.DocumentType)
}

func (m *MockExtractor) Extract(ctx context.Context, input domain.ExtractionInput) (*domain.TypedDocument, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TypedDocument), args.Error(1)
}

// MockExtractorProvider is a mock implementation of port.ExtractorProvider.
type MockExtractorProvider struct {
	mock.Mock
}

func (m *MockExtractorProvider) For(t domain.DocumentType) (port.Extractor, error) {
	args := m.Called(t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(port.Extractor), args.Error(1)
}

// MockDocumentValidator is a mock implementation of port.DocumentValidator.
type MockDocumentValidator struct {
	mock.Mock
}

func (m *MockDocumentValidator) Validate(doc *domain.TypedDocument) domain.ValidationResult {
	args := m.Called(doc)
	return args.Get(0).(domain.ValidationResult)
}

// MockDocumentProcessor is a mock implementation of port.DocumentProcessor.
type MockDocumentProcessor struct {
	mock.Mock
}

func (m *MockDocumentProcessor) Process(ctx context.Context, blob domain.DocumentBlob) *domain.ProcessingResult {
	args := m.Called(ctx, blob)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.ProcessingResult)
}
