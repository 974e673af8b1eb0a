package pipeline_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/pipeline"
	"fiscaldoc/mocks"
)

// countingProcessor records how many documents are in flight at once.
type countingProcessor struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	mu       sync.Mutex
	seen     []string
}

func (p *countingProcessor) Process(ctx context.Context, blob domain.DocumentBlob) *domain.ProcessingResult {
	n := p.inFlight.Add(1)
	for {
		m := p.maxSeen.Load()
		if n <= m || p.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	p.inFlight.Add(-1)

	p.mu.Lock()
	p.seen = append(p.seen, blob.Filename)
	p.mu.Unlock()
	return &domain.ProcessingResult{SourceName: blob.Filename, Success: true}
}

func TestRunner_KeepsOrderAndBoundsConcurrency(t *testing.T) {
	proc := &countingProcessor{}
	blobs := make([]domain.DocumentBlob, 12)
	for i := range blobs {
		blobs[i] = domain.DocumentBlob{Filename: string(rune('a'+i)) + ".pdf"}
	}

	results := pipeline.NewRunner(proc, pipeline.RunnerConfig{Concurrency: 3}, nil).ProcessAll(context.Background(), blobs)

	require.Len(t, results, len(blobs))
	for i, res := range results {
		assert.Equal(t, blobs[i].Filename, res.SourceName)
	}
	assert.LessOrEqual(t, proc.maxSeen.Load(), int32(3))
	assert.Len(t, proc.seen, len(blobs))
}

func TestRunner_AppliesDocumentTimeout(t *testing.T) {
	proc := new(mocks.MockDocumentProcessor)
	proc.On("Process", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(&domain.ProcessingResult{Success: true})

	results := pipeline.NewRunner(proc, pipeline.RunnerConfig{DocumentTimeout: time.Minute}, nil).
		ProcessAll(context.Background(), []domain.DocumentBlob{{Filename: "a.pdf"}})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	proc.AssertExpectations(t)
}

func TestRunner_Empty(t *testing.T) {
	results := pipeline.NewRunner(&countingProcessor{}, pipeline.RunnerConfig{}, nil).ProcessAll(context.Background(), nil)
	assert.Empty(t, results)
}
