package multimodal

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/logger"
	"fiscaldoc/internal/port"
)

// Options tune how documents are turned into extraction input.
type Options struct {
	MinTextChars int
	DPI          int
	MaxDimension int
	JPEGQuality  int
}

// OptionsFromConfig maps pipeline configuration onto adapter options.
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	return Options{
		MinTextChars: cfg.MinTextChars,
		DPI:          cfg.DPI,
		MaxDimension: cfg.MaxImageDimension,
		JPEGQuality:  cfg.JPEGQuality,
	}
}

// DefaultOptions returns the stock adapter options.
func DefaultOptions() Options {
	return Options{MinTextChars: 100, DPI: 200, MaxDimension: 2048, JPEGQuality: 85}
}

// Adapter implements port.ContentAdapter.
type Adapter struct {
	pdf    port.PDFToolkit
	opts   Options
	logger *zap.Logger
}

// NewAdapter creates a content adapter backed by the given PDF toolkit.
func NewAdapter(pdf port.PDFToolkit, opts Options, l *zap.Logger) *Adapter {
	def := DefaultOptions()
	if opts.MinTextChars <= 0 {
		opts.MinTextChars = def.MinTextChars
	}
	if opts.DPI <= 0 {
		opts.DPI = def.DPI
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = def.MaxDimension
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = def.JPEGQuality
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Adapter{pdf: pdf, opts: opts, logger: l}
}

// Adapt converts a blob into text or image input and reports its page count.
// PDFs with a usable text layer yield text; scanned PDFs are rasterized.
// Every other file type, XML included, yields an empty input and no error.
func (a *Adapter) Adapt(ctx context.Context, blob domain.DocumentBlob) (domain.ExtractionInput, int, error) {
	l := logger.FromContext(ctx, a.logger).With(zap.String(logger.FieldSource, blob.Filename))

	ft, ok := blob.FileType()
	if !ok {
		l.Info("unsupported file type, no content extracted")
		return domain.ExtractionInput{}, 0, nil
	}

	if ft.IsImage() {
		img, err := Normalize(blob.Data, a.opts.MaxDimension, a.opts.JPEGQuality)
		if err != nil {
			return domain.ExtractionInput{}, 0, domain.NewInvalidInputError(blob.Filename, err.Error())
		}
		return domain.ImageInput([]domain.Image{{Data: img, MediaType: MediaTypeJPEG}}), 1, nil
	}

	if ft != domain.FileTypePDF {
		l.Info("no content adapter for file type", zap.String("file_type", string(ft)))
		return domain.ExtractionInput{}, 0, nil
	}

	pages, err := a.pdf.PageCount(ctx, blob.Data)
	if err != nil {
		return domain.ExtractionInput{}, 0, domain.NewInvalidInputError(blob.Filename, "unreadable pdf: "+err.Error())
	}

	text, err := a.pdf.ExtractText(ctx, blob.Data)
	if err != nil {
		l.Warn("pdf text extraction failed, rasterizing", zap.Error(err))
	}
	text = NormalizeText(text)
	if SignalChars(text) >= a.opts.MinTextChars {
		l.Debug("using pdf text layer", zap.Int(logger.FieldPageCount, pages), zap.Int("chars", SignalChars(text)))
		return domain.TextInput(text), pages, nil
	}

	images, err := a.Rasterize(ctx, blob)
	if err != nil {
		return domain.ExtractionInput{}, 0, err
	}
	if len(images) > pages {
		pages = len(images)
	}
	l.Debug("rasterized pdf", zap.Int(logger.FieldPageCount, pages))
	return domain.ImageInput(images), pages, nil
}

// Rasterize renders every page of a PDF (or the single image) to normalized JPEG.
func (a *Adapter) Rasterize(ctx context.Context, blob domain.DocumentBlob) ([]domain.Image, error) {
	ft, ok := blob.FileType()
	if !ok {
		return nil, domain.NewInvalidInputError(blob.Filename, "unsupported file type")
	}
	if ft.IsImage() {
		img, err := Normalize(blob.Data, a.opts.MaxDimension, a.opts.JPEGQuality)
		if err != nil {
			return nil, domain.NewInvalidInputError(blob.Filename, err.Error())
		}
		return []domain.Image{{Data: img, MediaType: MediaTypeJPEG}}, nil
	}
	if ft != domain.FileTypePDF {
		return nil, domain.NewInvalidInputError(blob.Filename, "cannot rasterize "+string(ft))
	}

	rendered, err := a.pdf.RenderPages(ctx, blob.Data, a.opts.DPI)
	if err != nil {
		return nil, domain.NewInvalidInputError(blob.Filename, "rasterization failed: "+err.Error())
	}
	images := make([]domain.Image, 0, len(rendered))
	for i, page := range rendered {
		img, err := Normalize(page, a.opts.MaxDimension, a.opts.JPEGQuality)
		if err != nil {
			return nil, errors.Wrapf(domain.NewInvalidInputError(blob.Filename, err.Error()), "page %d", i+1)
		}
		images = append(images, domain.Image{Data: img, MediaType: MediaTypeJPEG})
	}
	return images, nil
}
