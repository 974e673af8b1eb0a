// Package export serializes processing results as JSON lines, CSV or XLSX.
package export

import (
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// Format is an output format name.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	case "jsonl":
		return FormatJSON, nil
	}
	return "", errors.Newf("unknown output format %q (want json, csv or xlsx)", s)
}

// New returns the writer for f.
func New(f Format) (port.ResultWriter, error) {
	switch f {
	case FormatJSON:
		return JSONLines{}, nil
	case FormatCSV:
		return CSV{}, nil
	case FormatXLSX:
		return XLSX{}, nil
	}
	return nil, errors.Newf("unknown output format %q", f)
}

// ContentType is the MIME type used when uploading an export.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/x-ndjson"
}

// Extension is the file extension for the format, without the dot.
func (f Format) Extension() string {
	if f == FormatJSON {
		return "jsonl"
	}
	return string(f)
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	multiUnderscore = regexp.MustCompile(`_{2,}`)
)

// SanitizeFilename keeps alphanumerics, hyphens and underscores, collapses
// runs of underscores and truncates to 100 characters.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns {sanitized_prefix}_{YYYY-MM-DD}.{ext}.
func BuildFilename(prefix string, f Format, now time.Time) string {
	return SanitizeFilename(prefix) + "_" + now.Format("2006-01-02") + "." + f.Extension()
}

// summary is the flat view of one result shared by the CSV and XLSX writers.
type summary struct {
	Number        string
	Date          string
	PartyName     string
	PartyTaxID    string
	CounterName   string
	CounterTaxID  string
	Amount        string
	ItemCount     int
	CriticalCount int
	WarningCount  int
	Valid         bool
	Score         string
}

func summarize(r *domain.ProcessingResult) summary {
	var s summary
	if v := r.Validation; v != nil {
		s.Valid = v.Valid
		s.Score = decimal.NewFromFloat(v.QualityScore).StringFixed(2)
		s.CriticalCount = len(v.CriticalErrors)
		s.WarningCount = len(v.Warnings)
	}
	doc := r.TypedDocument
	switch {
	case doc == nil:
	case doc.ProductInvoice != nil:
		p := doc.ProductInvoice
		s.Number, s.Date = p.Number, p.IssueDate.String()
		s.PartyName, s.PartyTaxID = p.Issuer.Name, p.Issuer.TaxID
		s.CounterName, s.CounterTaxID = p.Recipient.Name, p.Recipient.TaxID
		s.Amount = formatMoney(p.Totals.Total)
		s.ItemCount = len(p.Items)
	case doc.ServiceInvoice != nil:
		v := doc.ServiceInvoice
		s.Number, s.Date = v.Number, v.IssueDate.String()
		s.PartyName, s.PartyTaxID = v.Provider.Name, v.Provider.TaxID
		s.CounterName, s.CounterTaxID = v.Client.Name, v.Client.TaxID
		s.Amount = formatMoney(v.NetValue)
		if s.Amount == "" {
			s.Amount = formatMoney(v.ServiceValue)
		}
	case doc.FinancialStatement != nil:
		st := doc.FinancialStatement
		s.Date = st.PeriodEnd.String()
		s.PartyName, s.PartyTaxID = st.Holder.Name, st.Holder.TaxID
		s.Amount = formatMoney(st.ClosingBalance)
		s.ItemCount = len(st.Entries)
	}
	return s
}

func docType(r *domain.ProcessingResult) string {
	if r.TypedDocument != nil {
		return string(r.TypedDocument.Type)
	}
	if r.Classification != nil {
		return string(r.Classification.Type)
	}
	return ""
}

func confidence(r *domain.ProcessingResult) string {
	if r.Classification == nil {
		return ""
	}
	return decimal.NewFromFloat(r.Classification.Confidence).StringFixed(2)
}

func formatMoney(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.StringFixed(2)
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
