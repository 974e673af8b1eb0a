package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/domain"
)

// BOM is the UTF-8 byte order mark Excel on Windows needs to detect the encoding.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// summaryColumns is the header row shared by the CSV export and the XLSX
// Summary sheet.
var summaryColumns = []string{
	"Source",
	"Processing ID",
	"Success",
	"Error",
	"Document Type",
	"Confidence",
	"Number",
	"Date",
	"Issuer Name",
	"Issuer Tax ID",
	"Recipient Name",
	"Recipient Tax ID",
	"Amount",
	"Line Count",
	"Valid",
	"Quality Score",
	"Critical Errors",
	"Warnings",
	"Pages",
	"Batches",
	"Dropped Batches",
	"Duration MS",
}

// CSV writes one summary row per result.
type CSV struct{}

func (CSV) Write(w io.Writer, results []*domain.ProcessingResult) error {
	if _, err := w.Write(BOM); err != nil {
		return errors.Wrap(err, "writing bom")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryColumns); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, r := range results {
		if err := cw.Write(summaryRow(r)); err != nil {
			return errors.Wrapf(err, "writing csv row for %s", r.SourceName)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// summaryRow fills the metadata columns always and the document columns
// only when a record was extracted.
func summaryRow(r *domain.ProcessingResult) []string {
	row := make([]string, len(summaryColumns))
	row[0] = r.SourceName
	row[1] = r.ProcessingID
	row[2] = formatBool(r.Success)
	row[3] = r.Error
	row[4] = docType(r)
	row[5] = confidence(r)
	row[18] = strconv.Itoa(r.PageCount)
	row[19] = strconv.Itoa(r.BatchCount)
	row[20] = joinInts(r.DroppedBatches)
	row[21] = strconv.FormatInt(r.Duration.Milliseconds(), 10)

	if r.TypedDocument == nil {
		return row
	}
	s := summarize(r)
	row[6] = s.Number
	row[7] = s.Date
	row[8] = s.PartyName
	row[9] = s.PartyTaxID
	row[10] = s.CounterName
	row[11] = s.CounterTaxID
	row[12] = s.Amount
	row[13] = strconv.Itoa(s.ItemCount)
	if r.Validation != nil {
		row[14] = formatBool(s.Valid)
		row[15] = s.Score
		row[16] = strconv.Itoa(s.CriticalCount)
		row[17] = strconv.Itoa(s.WarningCount)
	}
	return row
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ";")
}
