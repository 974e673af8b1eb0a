package main

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/export"
	"fiscaldoc/internal/logger"
	"fiscaldoc/internal/port"
	"fiscaldoc/internal/source"
)

func newProcessCmd(root *rootOptions) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "process <ref>...",
		Short: "Run the extraction pipeline on local files or s3:// references",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, root.cfg, root.logger)
			if err != nil {
				return err
			}

			results := processRefs(ctx, a.loader, a.runner, args, root.logger)

			w, err := export.New(f)
			if err != nil {
				return err
			}
			return writeResults(ctx, cmd.OutOrStdout(), a.storage, out, f, w, results)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json, csv or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "output file or s3://bucket/key (default stdout)")
	return cmd
}

// batchProcessor runs loaded documents and returns results in input order.
type batchProcessor interface {
	ProcessAll(ctx context.Context, blobs []domain.DocumentBlob) []*domain.ProcessingResult
}

// processRefs loads and processes every reference and returns one result per
// reference in argument order. Unreadable references become failed results
// so one bad path does not abort the batch.
func processRefs(ctx context.Context, loader port.SourceLoader, p batchProcessor, refs []string, l *zap.Logger) []*domain.ProcessingResult {
	results := make([]*domain.ProcessingResult, len(refs))
	blobs := make([]domain.DocumentBlob, 0, len(refs))
	slots := make([]int, 0, len(refs))
	for i, ref := range refs {
		blob, err := loader.Open(ctx, ref)
		if err != nil {
			l.Warn("unable to load document", zap.String(logger.FieldSource, ref), zap.Error(err))
			results[i] = &domain.ProcessingResult{
				SourceName: ref,
				Error:      err.Error(),
				Err:        err,
				FinalState: domain.StateError,
			}
			continue
		}
		blobs = append(blobs, blob)
		slots = append(slots, i)
	}
	if len(blobs) == 0 {
		return results
	}
	for j, r := range p.ProcessAll(ctx, blobs) {
		results[slots[j]] = r
	}
	return results
}

func writeResults(
	ctx context.Context,
	stdout io.Writer,
	storage port.ObjectStorage,
	out string,
	f export.Format,
	w port.ResultWriter,
	results []*domain.ProcessingResult,
) error {
	if bucket, key, ok := source.ParseS3Ref(out); ok {
		var buf bytes.Buffer
		if err := w.Write(&buf, results); err != nil {
			return err
		}
		_, err := storage.Upload(ctx, port.UploadInput{
			Bucket:      bucket,
			Key:         key,
			Body:        &buf,
			ContentType: f.ContentType(),
		})
		return errors.Wrap(err, "uploading results")
	}
	if out == "" {
		return w.Write(stdout, results)
	}
	file, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "creating %s", out)
	}
	if err := w.Write(file, results); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrapf(file.Close(), "closing %s", out)
}
