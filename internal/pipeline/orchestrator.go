package pipeline

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/logger"
	"fiscaldoc/internal/port"
)

// Options control pagination.
type Options struct {
	// MaxPagesPerCall is the page count above which a document is batched.
	MaxPagesPerCall int
	// BatchSize is the number of page images sent per inference call.
	BatchSize int
}

// OptionsFromConfig maps pipeline configuration onto orchestrator options.
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	return Options{MaxPagesPerCall: cfg.MaxPagesPerCall, BatchSize: cfg.BatchSize}
}

// Orchestrator drives one document through adapt, classify, extract,
// merge and validate. It implements port.DocumentProcessor.
type Orchestrator struct {
	adapter    port.ContentAdapter
	classifier port.Classifier
	extractors port.ExtractorProvider
	validator  port.DocumentValidator
	opts       Options
	logger     *zap.Logger
	newID      func() string
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(
	adapter port.ContentAdapter,
	classifier port.Classifier,
	extractors port.ExtractorProvider,
	validator port.DocumentValidator,
	opts Options,
	l *zap.Logger,
) *Orchestrator {
	if opts.MaxPagesPerCall <= 0 {
		opts.MaxPagesPerCall = 10
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Orchestrator{
		adapter:    adapter,
		classifier: classifier,
		extractors: extractors,
		validator:  validator,
		opts:       opts,
		logger:     l,
		newID:      uuid.NewString,
	}
}

// run carries the per-document state of one Process call.
type run struct {
	result *domain.ProcessingResult
	sm     *machine
	log    *zap.Logger
	start  time.Time
}

func (r *run) advance(to domain.ProcessingState) {
	if err := r.sm.advance(to); err != nil {
		r.log.DPanic("state machine", zap.Error(err))
		return
	}
	r.log.Debug("state", zap.String(logger.FieldState, string(to)))
}

func (r *run) fail(err error) *domain.ProcessingResult {
	from := r.sm.state
	_ = r.sm.advance(domain.StateError)
	r.result.Success = false
	r.result.Err = err
	r.result.Error = err.Error()
	r.result.FinalState = domain.StateError
	r.result.Duration = time.Since(r.start)
	r.log.Error("document processing failed",
		zap.String(logger.FieldStage, string(from)),
		zap.Int64(logger.FieldDurationMS, r.result.Duration.Milliseconds()),
		zap.Error(err))
	return r.result
}

// Process never returns nil; failures are reported through Success and Error.
func (o *Orchestrator) Process(ctx context.Context, blob domain.DocumentBlob) *domain.ProcessingResult {
	id := o.newID()
	ctx = logger.WithProcessingID(ctx, id)
	r := &run{
		result: &domain.ProcessingResult{ProcessingID: id, SourceName: blob.Filename},
		sm:     newMachine(),
		log:    logger.FromContext(ctx, o.logger).With(zap.String(logger.FieldSource, blob.Filename)),
		start:  time.Now(),
	}

	r.advance(domain.StateAdapting)
	in, pages, err := o.adapter.Adapt(ctx, blob)
	if err != nil {
		return r.fail(err)
	}
	if in.IsEmpty() {
		return r.fail(domain.NewInvalidInputError(blob.Filename, "unable to extract text or images"))
	}
	r.result.PageCount = pages

	batches, err := o.partition(ctx, r, blob, in, pages)
	if err != nil {
		return r.fail(err)
	}
	r.result.InputForm = batches[0].Form()
	r.result.BatchCount = len(batches)

	cls, err := o.classifier.Classify(ctx, batches[0])
	if err != nil {
		return r.fail(err)
	}
	r.result.Classification = cls
	if !cls.Type.IsSupported() {
		return r.fail(domain.NewUnsupportedDocumentTypeError(cls.Type))
	}
	r.advance(domain.StateClassified)
	r.log = r.log.With(zap.String(logger.FieldDocType, string(cls.Type)))

	extractor, err := o.extractors.For(cls.Type)
	if err != nil {
		return r.fail(err)
	}

	docs := make([]*domain.TypedDocument, 0, len(batches))
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return r.fail(errors.Wrap(err, "processing canceled"))
		}
		doc, err := extractor.Extract(ctx, batch)
		if err == nil && doc == nil {
			err = domain.NewExtractionIncompleteError(cls.Type, i)
		}
		if err != nil {
			if i == 0 {
				return r.fail(err)
			}
			r.log.Warn("dropping batch",
				zap.Int(logger.FieldBatch, i),
				zap.Int(logger.FieldBatchCount, len(batches)),
				zap.Error(err))
			r.result.DroppedBatches = append(r.result.DroppedBatches, i)
			continue
		}
		docs = append(docs, doc)
	}
	r.advance(domain.StateExtracted)

	final := docs[0]
	if len(batches) > 1 {
		r.advance(domain.StateMerging)
		final, err = Merge(docs)
		if err != nil {
			return r.fail(err)
		}
	}

	validation := o.validator.Validate(final)
	r.advance(domain.StateValidated)
	r.result.TypedDocument = final
	r.result.Validation = &validation

	r.advance(domain.StateDone)
	r.result.Success = true
	r.result.FinalState = domain.StateDone
	r.result.Duration = time.Since(r.start)
	r.log.Info("document processed",
		zap.Int(logger.FieldPageCount, r.result.PageCount),
		zap.Int(logger.FieldBatchCount, r.result.BatchCount),
		zap.Ints("dropped_batches", r.result.DroppedBatches),
		zap.Bool("valid", validation.Valid),
		zap.Float64("quality_score", validation.QualityScore),
		zap.Int64(logger.FieldDurationMS, r.result.Duration.Milliseconds()))
	return r.result
}

// partition decides between a single call and image batches. Documents
// over the page limit are rasterized in full and split into BatchSize chunks.
func (o *Orchestrator) partition(ctx context.Context, r *run, blob domain.DocumentBlob, in domain.ExtractionInput, pages int) ([]domain.ExtractionInput, error) {
	if pages <= o.opts.MaxPagesPerCall {
		r.advance(domain.StateSingleBatch)
		return []domain.ExtractionInput{in}, nil
	}
	r.advance(domain.StateBatching)

	images := in.Images
	if in.Form() != domain.InputFormImages {
		var err error
		images, err = o.adapter.Rasterize(ctx, blob)
		if err != nil {
			return nil, err
		}
	}
	if len(images) == 0 {
		return nil, domain.NewInvalidInputError(blob.Filename, "unable to extract text or images")
	}

	var batches []domain.ExtractionInput
	for i := 0; i < len(images); i += o.opts.BatchSize {
		end := min(i+o.opts.BatchSize, len(images))
		batches = append(batches, domain.ImageInput(images[i:end]))
	}
	r.log.Info("document split into batches",
		zap.Int(logger.FieldPageCount, pages),
		zap.Int(logger.FieldBatchCount, len(batches)))
	return batches, nil
}
