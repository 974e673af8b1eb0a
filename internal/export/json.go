package export

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/domain"
)

// JSONLines writes one JSON object per result per line.
type JSONLines struct{}

func (JSONLines) Write(w io.Writer, results []*domain.ProcessingResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return errors.Wrapf(err, "encoding result for %s", r.SourceName)
		}
	}
	return nil
}
