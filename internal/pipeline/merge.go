package pipeline

import (
	"strings"

	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/domain"
)

// Merge combines per-batch records of one document into a new record.
// Header fields come from the first batch. Inputs are not modified.
func Merge(docs []*domain.TypedDocument) (*domain.TypedDocument, error) {
	if len(docs) == 0 {
		return nil, errors.New("merge: no documents")
	}
	t := docs[0].Type
	for i, d := range docs {
		if err := d.Check(); err != nil {
			return nil, errors.Wrapf(err, "merge: batch %d", i)
		}
		if d.Type != t {
			return nil, errors.Newf("merge: batch %d is %s, expected %s", i, d.Type, t)
		}
	}

	switch t {
	case domain.DocumentTypeProductInvoice:
		invs := make([]*domain.ProductInvoice, len(docs))
		for i, d := range docs {
			invs[i] = d.ProductInvoice
		}
		return domain.NewProductInvoiceDocument(MergeProductInvoices(invs)), nil
	case domain.DocumentTypeServiceInvoice:
		invs := make([]*domain.ServiceInvoice, len(docs))
		for i, d := range docs {
			invs[i] = d.ServiceInvoice
		}
		return domain.NewServiceInvoiceDocument(MergeServiceInvoices(invs)), nil
	case domain.DocumentTypeFinancialStatement:
		sts := make([]*domain.FinancialStatement, len(docs))
		for i, d := range docs {
			sts[i] = d.FinancialStatement
		}
		return domain.NewFinancialStatementDocument(MergeStatements(sts)), nil
	}
	return nil, domain.NewUnsupportedDocumentTypeError(t)
}

// MergeProductInvoices concatenates line items in batch order.
func MergeProductInvoices(invs []*domain.ProductInvoice) *domain.ProductInvoice {
	out := *invs[0]
	n := 0
	for _, inv := range invs {
		n += len(inv.Items)
	}
	out.Items = make([]domain.LineItem, 0, n)
	for _, inv := range invs {
		out.Items = append(out.Items, inv.Items...)
	}
	return &out
}

// MergeServiceInvoices joins the non-empty descriptions with a blank line.
func MergeServiceInvoices(invs []*domain.ServiceInvoice) *domain.ServiceInvoice {
	out := *invs[0]
	parts := make([]string, 0, len(invs))
	for _, inv := range invs {
		if d := strings.TrimSpace(inv.Description); d != "" {
			parts = append(parts, d)
		}
	}
	out.Description = strings.Join(parts, "\n\n")
	return &out
}

// MergeStatements concatenates entries and recomputes the credit and debit
// totals from them. The closing balance is recomputed when an opening
// balance is known; otherwise the last batch's declared closing balance is kept.
func MergeStatements(sts []*domain.FinancialStatement) *domain.FinancialStatement {
	out := *sts[0]
	n := 0
	for _, st := range sts {
		n += len(st.Entries)
	}
	out.Entries = make([]domain.StatementEntry, 0, n)
	for _, st := range sts {
		out.Entries = append(out.Entries, st.Entries...)
	}

	credits, debits := out.EntryTotals()
	out.TotalCredits = domain.Money(credits)
	out.TotalDebits = domain.Money(debits)
	if out.OpeningBalance.Valid {
		out.ClosingBalance = domain.Money(out.OpeningBalance.Decimal.Add(credits).Sub(debits))
	} else {
		for i := len(sts) - 1; i >= 0; i-- {
			if sts[i].ClosingBalance.Valid {
				out.ClosingBalance = sts[i].ClosingBalance
				break
			}
		}
	}
	return &out
}
