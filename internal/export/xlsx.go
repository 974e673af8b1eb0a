package export

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"fiscaldoc/internal/domain"
)

const (
	sheetSummary = "Summary"
	sheetItems   = "Items"
	sheetEntries = "Entries"
)

var (
	itemColumns = []string{
		"Source", "Number", "Line", "Code", "Description", "NCM", "CFOP",
		"Unit", "Quantity", "Unit Price", "Total", "ICMS Rate", "IPI Rate",
	}
	entryColumns = []string{
		"Source", "Date", "Description", "Document", "Direction", "Amount", "Balance",
	}
)

// XLSX writes a workbook with a Summary sheet plus line items of product
// invoices and entries of financial statements.
type XLSX struct{}

func (XLSX) Write(w io.Writer, results []*domain.ProcessingResult) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// The default sheet becomes Summary.
	if err := f.SetSheetName(f.GetSheetName(0), sheetSummary); err != nil {
		return errors.Wrap(err, "naming summary sheet")
	}
	for _, name := range []string{sheetItems, sheetEntries} {
		if _, err := f.NewSheet(name); err != nil {
			return errors.Wrapf(err, "creating sheet %s", name)
		}
	}

	sw := sheetWriter{f: f}
	sw.header(sheetSummary, summaryColumns)
	sw.header(sheetItems, itemColumns)
	sw.header(sheetEntries, entryColumns)

	summaryRowNum, itemRow, entryRow := 2, 2, 2
	for _, r := range results {
		sw.row(sheetSummary, summaryRowNum, toAny(summaryRow(r)))
		summaryRowNum++

		doc := r.TypedDocument
		if doc == nil {
			continue
		}
		if p := doc.ProductInvoice; p != nil {
			for i, it := range p.Items {
				sw.row(sheetItems, itemRow, []any{
					r.SourceName, p.Number, i + 1, it.Code, it.Description, it.NCM, it.CFOP,
					it.Unit, formatMoney(it.Quantity), formatMoney(it.UnitPrice), formatMoney(it.Total),
					formatMoney(it.ICMSRate), formatMoney(it.IPIRate),
				})
				itemRow++
			}
		}
		if st := doc.FinancialStatement; st != nil {
			for _, e := range st.Entries {
				sw.row(sheetEntries, entryRow, []any{
					r.SourceName, e.Date.String(), e.Description, e.Document, string(e.Direction),
					e.Amount.StringFixed(2), formatMoney(e.Balance),
				})
				entryRow++
			}
		}
	}
	if sw.err != nil {
		return sw.err
	}

	_ = f.SetColWidth(sheetSummary, "A", "B", 36)
	_ = f.SetColWidth(sheetSummary, "I", "L", 24)
	_ = f.SetColWidth(sheetItems, "E", "E", 48)
	_ = f.SetColWidth(sheetEntries, "C", "C", 48)

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "xlsx write")
	}
	return nil
}

// sheetWriter keeps the first cell error so row loops stay flat.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (s *sheetWriter) header(sheet string, cols []string) {
	s.row(sheet, 1, toAny(cols))
}

func (s *sheetWriter) row(sheet string, row int, values []any) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		s.err = err
		return
	}
	if err := s.f.SetSheetRow(sheet, cell, &values); err != nil {
		s.err = errors.Wrapf(err, "writing %s row %d", sheet, row)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
