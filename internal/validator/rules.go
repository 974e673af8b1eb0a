package validator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fiscaldoc/internal/domain"
)

// Reconciliation tolerances.
var (
	ItemTolerance    = decimal.RequireFromString("0.02")
	TotalTolerance   = decimal.RequireFromString("0.05")
	BalanceTolerance = decimal.RequireFromString("0.10")
)

// LargeStatementEntries is the entry count above which splitting is suggested.
const LargeStatementEntries = 100

var (
	product   = []domain.DocumentType{domain.DocumentTypeProductInvoice}
	service   = []domain.DocumentType{domain.DocumentTypeServiceInvoice}
	statement = []domain.DocumentType{domain.DocumentTypeFinancialStatement}
)

func approxEqual(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

func fmtd(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func mismatch(path string, expected, actual decimal.Decimal, what string) Finding {
	return Finding{
		FieldPath:     path,
		ExpectedValue: fmtd(expected),
		ActualValue:   fmtd(actual),
		Message:       fmt.Sprintf("%s mismatch at %s (expected %s, got %s)", what, path, fmtd(expected), fmtd(actual)),
	}
}

// BuiltinRules returns every built-in rule.
func BuiltinRules() []*BuiltinRule {
	return []*BuiltinRule{
		{key: "required.fields", name: "Required: Mandatory Fields", sev: SeverityCritical, fn: checkRequired},
		{key: "required.issuer_tax_id", name: "Required: Issuer Tax ID", sev: SeverityWarning, types: product, fn: checkIssuerTaxID},
		{key: "format.access_key", name: "Format: Access Key", sev: SeverityCritical, types: product, fn: checkAccessKey},
		{key: "format.tax_id", name: "Format: CNPJ/CPF Check Digits", sev: SeverityWarning, fn: checkTaxIDs},
		{key: "math.item_totals", name: "Math: Line Item Total", sev: SeverityWarning, types: product, fn: checkItemTotals},
		{key: "math.items_sum", name: "Math: Items Sum", sev: SeverityWarning, types: product, fn: checkItemsSum},
		{key: "math.product_total", name: "Math: Invoice Grand Total", sev: SeverityWarning, types: product, fn: checkProductTotal},
		{key: "math.service_net", name: "Math: Service Net Value", sev: SeverityWarning, types: service, fn: checkServiceNet},
		{key: "math.statement_balance", name: "Math: Closing Balance", sev: SeverityWarning, types: statement, fn: checkStatementBalance},
		{key: "math.statement_totals", name: "Math: Credit/Debit Totals", sev: SeverityWarning, types: statement, fn: checkStatementTotals},
		{key: "logic.entry_fields", name: "Logic: Statement Entry Fields", sev: SeverityWarning, types: statement, fn: checkEntryFields},
		{key: "logic.entry_period", name: "Logic: Entry Within Period", sev: SeverityWarning, types: statement, fn: checkEntryPeriod},
		{key: "logic.negative_amounts", name: "Logic: Negative Amounts", sev: SeverityWarning, fn: checkNegativeAmounts},
		{key: "suggest.split_statement", name: "Suggestion: Split Large Statement", sev: SeveritySuggestion, types: statement, fn: suggestSplit},
		{key: "suggest.state_registration", name: "Suggestion: Issuer State Registration", sev: SeveritySuggestion, types: product, fn: suggestStateRegistration},
	}
}

func checkRequired(doc *domain.TypedDocument) []Finding {
	var out []Finding
	for _, f := range fields(doc) {
		if f.required && !f.filled {
			out = append(out, Finding{
				FieldPath:     f.path,
				ExpectedValue: "non-empty value",
				Message:       fmt.Sprintf("%s is missing", f.path),
			})
		}
	}
	if p := doc.ProductInvoice; p != nil && p.Issuer.IsEmpty() {
		out = append(out, Finding{
			FieldPath:     "issuer",
			ExpectedValue: "issuer name or tax ID",
			Message:       "issuer is missing",
		})
	}
	if st := doc.FinancialStatement; st != nil && len(st.Entries) == 0 {
		out = append(out, Finding{
			FieldPath:     "entries",
			ExpectedValue: "at least one entry",
			Message:       "statement has no entries",
		})
	}
	return out
}

// checkIssuerTaxID flags an identified issuer without a tax ID. A missing
// issuer altogether is reported by checkRequired.
func checkIssuerTaxID(doc *domain.TypedDocument) []Finding {
	issuer := doc.ProductInvoice.Issuer
	if issuer.IsEmpty() || issuer.TaxID != "" {
		return nil
	}
	return []Finding{{
		FieldPath:     "issuer.tax_id",
		ExpectedValue: "CNPJ or CPF",
		Message:       "issuer tax ID is missing",
	}}
}

func checkAccessKey(doc *domain.TypedDocument) []Finding {
	key := doc.ProductInvoice.AccessKey
	if key == "" {
		return nil
	}
	if d := digits(key); len(d) == 44 && d == key {
		return nil
	}
	return []Finding{{
		FieldPath:     "access_key",
		ExpectedValue: "44 digits",
		ActualValue:   key,
		Message:       fmt.Sprintf("access key must have exactly 44 digits, got %d characters", len(key)),
	}}
}

type namedParty struct {
	path  string
	party domain.Party
}

func parties(doc *domain.TypedDocument) []namedParty {
	switch {
	case doc.ProductInvoice != nil:
		return []namedParty{{"issuer", doc.ProductInvoice.Issuer}, {"recipient", doc.ProductInvoice.Recipient}}
	case doc.ServiceInvoice != nil:
		return []namedParty{{"provider", doc.ServiceInvoice.Provider}, {"client", doc.ServiceInvoice.Client}}
	case doc.FinancialStatement != nil:
		return []namedParty{{"holder", doc.FinancialStatement.Holder}}
	}
	return nil
}

func checkTaxIDs(doc *domain.TypedDocument) []Finding {
	var out []Finding
	for _, p := range parties(doc) {
		id := p.party.TaxID
		if id == "" || ValidTaxID(id) {
			continue
		}
		path := p.path + ".tax_id"
		out = append(out, Finding{
			FieldPath:     path,
			ExpectedValue: "valid CNPJ or CPF",
			ActualValue:   id,
			Message:       fmt.Sprintf("%s has invalid check digits", path),
		})
	}
	return out
}

func checkItemTotals(doc *domain.TypedDocument) []Finding {
	var out []Finding
	for i, item := range doc.ProductInvoice.Items {
		if !item.Quantity.Valid || !item.UnitPrice.Valid || !item.Total.Valid {
			continue
		}
		expected := item.Quantity.Decimal.Mul(item.UnitPrice.Decimal)
		if !approxEqual(expected, item.Total.Decimal, ItemTolerance) {
			out = append(out, mismatch(fmt.Sprintf("items[%d].total", i), expected, item.Total.Decimal, "line total"))
		}
	}
	return out
}

// checkItemsSum compares the item totals against the products subtotal,
// or against the grand total when no subtotal was extracted.
func checkItemsSum(doc *domain.TypedDocument) []Finding {
	p := doc.ProductInvoice
	if len(p.Items) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, item := range p.Items {
		if !item.Total.Valid {
			return nil
		}
		sum = sum.Add(item.Total.Decimal)
	}
	switch {
	case p.Totals.Products.Valid:
		if !approxEqual(sum, p.Totals.Products.Decimal, TotalTolerance) {
			return []Finding{mismatch("totals.products", sum, p.Totals.Products.Decimal, "items sum")}
		}
	case p.Totals.Total.Valid && !hasProductAdjustments(p.Totals):
		if !approxEqual(sum, p.Totals.Total.Decimal, TotalTolerance) {
			return []Finding{mismatch("totals.total", sum, p.Totals.Total.Decimal, "items sum")}
		}
	}
	return nil
}

func hasProductAdjustments(t domain.ProductTotals) bool {
	return t.Freight.Valid || t.Insurance.Valid || t.Discount.Valid || t.OtherCharges.Valid || t.IPI.Valid
}

func checkProductTotal(doc *domain.TypedDocument) []Finding {
	t := doc.ProductInvoice.Totals
	if !t.Total.Valid || !t.Products.Valid {
		return nil
	}
	expected := t.Products.Decimal.
		Add(domain.ValueOrZero(t.Freight)).
		Add(domain.ValueOrZero(t.Insurance)).
		Add(domain.ValueOrZero(t.OtherCharges)).
		Add(domain.ValueOrZero(t.IPI)).
		Sub(domain.ValueOrZero(t.Discount))
	if approxEqual(expected, t.Total.Decimal, TotalTolerance) {
		return nil
	}
	return []Finding{mismatch("totals.total", expected, t.Total.Decimal, "grand total")}
}

func checkServiceNet(doc *domain.TypedDocument) []Finding {
	s := doc.ServiceInvoice
	if !s.ServiceValue.Valid || !s.NetValue.Valid {
		return nil
	}
	expected := s.ServiceValue.Decimal.Sub(domain.ValueOrZero(s.Deductions)).Sub(s.Withholdings.Sum())
	if approxEqual(expected, s.NetValue.Decimal, TotalTolerance) {
		return nil
	}
	return []Finding{mismatch("net_value", expected, s.NetValue.Decimal, "net value")}
}

func checkStatementBalance(doc *domain.TypedDocument) []Finding {
	st := doc.FinancialStatement
	if !st.OpeningBalance.Valid || !st.ClosingBalance.Valid || len(st.Entries) == 0 {
		return nil
	}
	credits, debits := st.EntryTotals()
	expected := st.OpeningBalance.Decimal.Add(credits).Sub(debits)
	if approxEqual(expected, st.ClosingBalance.Decimal, BalanceTolerance) {
		return nil
	}
	return []Finding{mismatch("closing_balance", expected, st.ClosingBalance.Decimal, "closing balance")}
}

func checkStatementTotals(doc *domain.TypedDocument) []Finding {
	st := doc.FinancialStatement
	credits, debits := st.EntryTotals()
	var out []Finding
	if st.TotalCredits.Valid && !approxEqual(credits, st.TotalCredits.Decimal, TotalTolerance) {
		out = append(out, mismatch("total_credits", credits, st.TotalCredits.Decimal, "credit total"))
	}
	if st.TotalDebits.Valid && !approxEqual(debits, st.TotalDebits.Decimal, TotalTolerance) {
		out = append(out, mismatch("total_debits", debits, st.TotalDebits.Decimal, "debit total"))
	}
	return out
}

func checkEntryPeriod(doc *domain.TypedDocument) []Finding {
	st := doc.FinancialStatement
	if !st.PeriodStart.IsSet() || !st.PeriodEnd.IsSet() {
		return nil
	}
	var out []Finding
	for i, e := range st.Entries {
		if !e.Date.IsSet() {
			continue
		}
		if e.Date.Before(st.PeriodStart.Time) || e.Date.After(st.PeriodEnd.Time) {
			path := fmt.Sprintf("entries[%d].date", i)
			out = append(out, Finding{
				FieldPath:     path,
				ExpectedValue: st.PeriodStart.String() + ".." + st.PeriodEnd.String(),
				ActualValue:   e.Date.String(),
				Message:       fmt.Sprintf("%s falls outside the statement period", path),
			})
		}
	}
	return out
}

func checkNegativeAmounts(doc *domain.TypedDocument) []Finding {
	var out []Finding
	neg := func(path string, n decimal.NullDecimal) {
		if n.Valid && n.Decimal.IsNegative() {
			out = append(out, Finding{
				FieldPath:     path,
				ExpectedValue: ">= 0",
				ActualValue:   fmtd(n.Decimal),
				Message:       fmt.Sprintf("%s is negative", path),
			})
		}
	}
	switch {
	case doc.ProductInvoice != nil:
		p := doc.ProductInvoice
		for i, item := range p.Items {
			neg(fmt.Sprintf("items[%d].total", i), item.Total)
		}
		neg("totals.products", p.Totals.Products)
		neg("totals.total", p.Totals.Total)
	case doc.ServiceInvoice != nil:
		neg("service_value", doc.ServiceInvoice.ServiceValue)
		neg("net_value", doc.ServiceInvoice.NetValue)
	}
	return out
}

// checkEntryFields reports entries without a date or description and
// entries whose amount is not positive.
func checkEntryFields(doc *domain.TypedDocument) []Finding {
	var out []Finding
	for i, e := range doc.FinancialStatement.Entries {
		if !e.Date.IsSet() {
			path := fmt.Sprintf("entries[%d].date", i)
			out = append(out, Finding{FieldPath: path, ExpectedValue: "date", Message: path + " is missing"})
		}
		if strings.TrimSpace(e.Description) == "" {
			path := fmt.Sprintf("entries[%d].description", i)
			out = append(out, Finding{FieldPath: path, ExpectedValue: "description", Message: path + " is missing"})
		}
		if !e.Amount.IsPositive() {
			path := fmt.Sprintf("entries[%d].amount", i)
			out = append(out, Finding{
				FieldPath:     path,
				ExpectedValue: "> 0",
				ActualValue:   fmtd(e.Amount),
				Message:       fmt.Sprintf("%s must be positive (got %s)", path, fmtd(e.Amount)),
			})
		}
	}
	return out
}

func suggestSplit(doc *domain.TypedDocument) []Finding {
	n := len(doc.FinancialStatement.Entries)
	if n <= LargeStatementEntries {
		return nil
	}
	return []Finding{{
		FieldPath:   "entries",
		ActualValue: fmt.Sprintf("%d", n),
		Message:     fmt.Sprintf("statement has %d entries; consider splitting the statement by period", n),
	}}
}

func suggestStateRegistration(doc *domain.TypedDocument) []Finding {
	if doc.ProductInvoice.Issuer.StateRegistration != "" {
		return nil
	}
	return []Finding{{
		FieldPath: "issuer.state_registration",
		Message:   "include issuer state registration",
	}}
}
