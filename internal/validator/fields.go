package validator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fiscaldoc/internal/domain"
)

// field is one scored field of a document variant.
type field struct {
	path     string
	filled   bool
	required bool
}

func str(path, v string) field { return field{path: path, filled: v != ""} }
func req(path, v string) field { return field{path: path, filled: v != "", required: true} }
func date(path string, d domain.Date) field { return field{path: path, filled: d.IsSet()} }
func money(path string, n decimal.NullDecimal) field { return field{path: path, filled: n.Valid} }

// fields lists the scored fields of the populated variant.
// Product invoices score 15 fields, service invoices 20 and statements
// 8 plus 4 per entry.
func fields(doc *domain.TypedDocument) []field {
	switch {
	case doc.ProductInvoice != nil:
		p := doc.ProductInvoice
		return []field{
			req("number", p.Number),
			str("series", p.Series),
			req("access_key", p.AccessKey),
			date("issue_date", p.IssueDate),
			str("issuer.name", p.Issuer.Name),
			str("issuer.tax_id", p.Issuer.TaxID),
			str("issuer.state_registration", p.Issuer.StateRegistration),
			str("issuer.address", p.Issuer.Address),
			str("recipient.name", p.Recipient.Name),
			str("recipient.tax_id", p.Recipient.TaxID),
			str("recipient.address", p.Recipient.Address),
			{path: "items", filled: len(p.Items) > 0, required: true},
			money("totals.products", p.Totals.Products),
			money("totals.icms", p.Totals.ICMS),
			money("totals.total", p.Totals.Total),
		}
	case doc.ServiceInvoice != nil:
		s := doc.ServiceInvoice
		return []field{
			req("number", s.Number),
			req("verification_code", s.VerificationCode),
			date("issue_date", s.IssueDate),
			date("competence_date", s.CompetenceDate),
			str("provider.name", s.Provider.Name),
			str("provider.tax_id", s.Provider.TaxID),
			str("provider.address", s.Provider.Address),
			str("provider.city", s.Provider.City),
			str("client.name", s.Client.Name),
			str("client.tax_id", s.Client.TaxID),
			str("client.address", s.Client.Address),
			str("client.city", s.Client.City),
			req("description", s.Description),
			str("service_code", s.ServiceCode),
			str("cnae", s.CNAE),
			{path: "service_value", filled: s.ServiceValue.Valid, required: true},
			money("deductions", s.Deductions),
			money("withholdings.iss", s.Withholdings.ISS),
			money("iss_rate", s.ISSRate),
			money("net_value", s.NetValue),
		}
	case doc.FinancialStatement != nil:
		st := doc.FinancialStatement
		out := []field{
			date("period_start", st.PeriodStart),
			date("period_end", st.PeriodEnd),
			str("holder.name", st.Holder.Name),
			str("holder.tax_id", st.Holder.TaxID),
			money("opening_balance", st.OpeningBalance),
			money("closing_balance", st.ClosingBalance),
			money("total_credits", st.TotalCredits),
			money("total_debits", st.TotalDebits),
		}
		for i, e := range st.Entries {
			prefix := fmt.Sprintf("entries[%d].", i)
			out = append(out,
				date(prefix+"date", e.Date),
				str(prefix+"description", e.Description),
				field{path: prefix + "amount", filled: !e.Amount.IsZero()},
				str(prefix+"direction", string(e.Direction)),
			)
		}
		return out
	}
	return nil
}

// filledRatio returns the share of scored fields that carry a value.
func filledRatio(fs []field) float64 {
	if len(fs) == 0 {
		return 0
	}
	n := 0
	for _, f := range fs {
		if f.filled {
			n++
		}
	}
	return float64(n) / float64(len(fs))
}
