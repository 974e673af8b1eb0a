// Package source resolves document references into bytes.
package source

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

const s3Scheme = "s3://"

// Loader opens local paths and s3://bucket/key references.
type Loader struct {
	storage port.ObjectStorage
	maxSize int64
}

var _ port.SourceLoader = (*Loader)(nil)

// NewLoader creates a loader. storage may be nil when only local files are
// used; maxSize <= 0 disables the size check for local files.
func NewLoader(storage port.ObjectStorage, maxSize int64) *Loader {
	return &Loader{storage: storage, maxSize: maxSize}
}

// ParseS3Ref splits s3://bucket/key. ok is false for anything else.
func ParseS3Ref(ref string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(ref, s3Scheme) {
		return "", "", false
	}
	bucket, key, found := strings.Cut(strings.TrimPrefix(ref, s3Scheme), "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func (l *Loader) Open(ctx context.Context, ref string) (domain.DocumentBlob, error) {
	if strings.HasPrefix(ref, s3Scheme) {
		return l.openS3(ctx, ref)
	}
	return l.openFile(ref)
}

func (l *Loader) openS3(ctx context.Context, ref string) (domain.DocumentBlob, error) {
	bucket, key, ok := ParseS3Ref(ref)
	if !ok {
		return domain.DocumentBlob{}, domain.NewInvalidInputError(ref, "malformed s3 reference, want s3://bucket/key")
	}
	if l.storage == nil {
		return domain.DocumentBlob{}, errors.Newf("no object storage configured for %s", ref)
	}
	data, err := l.storage.Download(ctx, bucket, key)
	if err != nil {
		return domain.DocumentBlob{}, errors.Wrapf(err, "loading %s", ref)
	}
	return domain.DocumentBlob{Filename: path.Base(key), Data: data}, nil
}

func (l *Loader) openFile(p string) (domain.DocumentBlob, error) {
	info, err := os.Stat(p)
	if err != nil {
		return domain.DocumentBlob{}, errors.Wrapf(err, "loading %s", p)
	}
	if info.IsDir() {
		return domain.DocumentBlob{}, domain.NewInvalidInputError(p, "is a directory")
	}
	if l.maxSize > 0 && info.Size() > l.maxSize {
		return domain.DocumentBlob{}, domain.NewInvalidInputError(p, "file too large")
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return domain.DocumentBlob{}, errors.Wrapf(err, "reading %s", p)
	}
	return domain.DocumentBlob{Filename: filepath.Base(p), Data: data}, nil
}
