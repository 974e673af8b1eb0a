package strategy

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"fiscaldoc/internal/domain"
)

var (
	numberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)NF-?e?\s*N[oº°]?\.?\s*(\d{1,9})`),
		regexp.MustCompile(`(?i)N[uú]mero\s*[:\-]?\s*(\d{1,9})`),
		regexp.MustCompile(`(?i)\bN[oº°]\.?\s*(\d{1,9})`),
	}
	taxIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)CNPJ\s*[:\-]?\s*(\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2})`),
		regexp.MustCompile(`\b(\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2})\b`),
		regexp.MustCompile(`\b(\d{14})\b`),
	}
	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Valor\s+total(?:\s+da\s+nota)?\s*[:\-]?\s*R?\$?\s*([\d.,]+)`),
		regexp.MustCompile(`(?i)Total\s+(?:da\s+)?NF-?e?\s*[:\-]?\s*R?\$?\s*([\d.,]+)`),
	}
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Data\s+(?:de\s+)?emiss[aã]o\s*[:\-]?\s*(\d{2}/\d{2}/\d{4})`),
		regexp.MustCompile(`(?i)Data\s+(?:de\s+)?sa[ií]da\s*[:\-]?\s*(\d{2}/\d{2}/\d{4})`),
		regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`),
	}
	issuerPattern    = regexp.MustCompile(`(?i)Emitente\s*[:\-]?\s*([^\n\r]+)`)
	recipientPattern = regexp.MustCompile(`(?i)Destinat[aá]rio\s*[:\-]?\s*([^\n\r]+)`)
)

// parseInvoiceText pulls the identifying fields of a product invoice out of
// free text. It returns nil when no invoice number is found.
func parseInvoiceText(text string) *domain.ProductInvoice {
	number := firstSubmatch(numberPatterns, text)
	if number == "" {
		return nil
	}
	inv := &domain.ProductInvoice{Number: number, Items: []domain.LineItem{}}

	// The first tax ID on the page is the issuer, the second the recipient.
	ids := allTaxIDs(text)
	if len(ids) > 0 {
		inv.Issuer.TaxID = ids[0]
	}
	if len(ids) > 1 {
		inv.Recipient.TaxID = ids[1]
	}
	inv.Issuer.Name = firstLine(issuerPattern, text)
	inv.Recipient.Name = firstLine(recipientPattern, text)

	if raw := firstSubmatch(totalPatterns, text); raw != "" {
		if d, ok := parseBRL(raw); ok {
			inv.Totals.Total = domain.Money(d)
		}
	}
	if raw := firstSubmatch(datePatterns, text); raw != "" {
		if d, err := domain.ParseDate(raw); err == nil {
			inv.IssueDate = d
		}
	}
	return inv
}

func firstSubmatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func firstLine(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func allTaxIDs(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, re := range taxIDPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if !seen[digitsOnly(m[1])] {
				seen[digitsOnly(m[1])] = true
				out = append(out, m[1])
			}
		}
		if len(out) >= 2 {
			break
		}
	}
	return out
}

// parseBRL parses amounts such as "1.234,56". When both separators appear
// the last one is the decimal separator, so "1,234.56" also parses.
func parseBRL(s string) (decimal.Decimal, bool) {
	s = strings.Trim(strings.TrimSpace(s), ".,")
	if s == "" {
		return decimal.Zero, false
	}
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
