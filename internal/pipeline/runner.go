package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// RunnerConfig holds settings for the multi-document runner.
type RunnerConfig struct {
	Concurrency int
	// DocumentTimeout bounds each document; zero means no extra bound.
	DocumentTimeout time.Duration
}

// Runner processes independent documents concurrently.
type Runner struct {
	processor port.DocumentProcessor
	cfg       RunnerConfig
	logger    *zap.Logger
}

// NewRunner creates a Runner. Concurrency below 1 is treated as 1.
func NewRunner(processor port.DocumentProcessor, cfg RunnerConfig, l *zap.Logger) *Runner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Runner{processor: processor, cfg: cfg, logger: l}
}

// ProcessAll runs every blob through the processor with at most
// Concurrency documents in flight. Results keep the input order.
func (r *Runner) ProcessAll(ctx context.Context, blobs []domain.DocumentBlob) []*domain.ProcessingResult {
	results := make([]*domain.ProcessingResult, len(blobs))
	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup

	r.logger.Info("runner: started",
		zap.Int("documents", len(blobs)),
		zap.Int("concurrency", r.cfg.Concurrency))

	for i := range blobs {
		blob := blobs[i]
		sem <- struct{}{} // acquire
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }() // release

			docCtx := ctx
			if r.cfg.DocumentTimeout > 0 {
				var cancel context.CancelFunc
				docCtx, cancel = context.WithTimeout(ctx, r.cfg.DocumentTimeout)
				defer cancel()
			}
			results[i] = r.processor.Process(docCtx, blob)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, res := range results {
		if res != nil && res.Success {
			ok++
		}
	}
	r.logger.Info("runner: finished", zap.Int("documents", len(blobs)), zap.Int("succeeded", ok))
	return results
}
