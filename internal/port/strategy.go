package port

import (
	"context"
	"io"

	"fiscaldoc/internal/domain"
)

// ExtractionStrategy is one link of the fallback chain. It returns
// (nil, nil) when it has nothing to offer for the document.
type ExtractionStrategy interface {
	Name() string
	Extract(ctx context.Context, blob domain.DocumentBlob) (*domain.TypedDocument, error)
}

// SourceLoader resolves a document reference into its bytes.
type SourceLoader interface {
	Open(ctx context.Context, ref string) (domain.DocumentBlob, error)
}

// ResultWriter serializes processing results.
type ResultWriter interface {
	Write(w io.Writer, results []*domain.ProcessingResult) error
}

// UploadInput encapsulates the parameters needed to upload an object.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
}

// UploadOutput contains the result of a successful upload.
type UploadOutput struct {
	Location string
	ETag     string
}

// ObjectStorage abstracts the cloud object storage used for source
// documents and exported results.
type ObjectStorage interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
}
