package extractor

import (
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

func obj(required []string, props map[string]any) map[string]any {
	req := make([]any, len(required))
	for i, r := range required {
		req[i] = r
	}
	return map[string]any{"type": "object", "required": req, "properties": props}
}

func optString() map[string]any { return map[string]any{"type": []any{"string", "null"}} }
func optNumber() map[string]any { return map[string]any{"type": []any{"number", "string", "null"}} }

func party() map[string]any {
	return map[string]any{
		"type": []any{"object", "null"},
		"properties": map[string]any{
			"name":               optString(),
			"tax_id":             optString(),
			"state_registration": optString(),
			"address":            optString(),
			"city":               optString(),
			"state":              optString(),
			"postal_code":        optString(),
		},
	}
}

var productInvoiceSchema = port.StructuredSchema{
	Name: "product_invoice",
	Definition: obj([]string{"number", "items"}, map[string]any{
		"number":     optString(),
		"series":     optString(),
		"access_key": optString(),
		"issue_date": optString(),
		"issuer":     party(),
		"recipient":  party(),
		"items": map[string]any{
			"type": "array",
			"items": obj([]string{"description"}, map[string]any{
				"code":        optString(),
				"description": optString(),
				"ncm":         optString(),
				"cfop":        optString(),
				"unit":        optString(),
				"quantity":    optNumber(),
				"unit_price":  optNumber(),
				"total":       optNumber(),
				"icms_rate":   optNumber(),
				"ipi_rate":    optNumber(),
			}),
		},
		"totals": map[string]any{
			"type": []any{"object", "null"},
			"properties": map[string]any{
				"products":      optNumber(),
				"freight":       optNumber(),
				"insurance":     optNumber(),
				"discount":      optNumber(),
				"other_charges": optNumber(),
				"icms":          optNumber(),
				"ipi":           optNumber(),
				"total":         optNumber(),
			},
		},
	}),
}

var serviceInvoiceSchema = port.StructuredSchema{
	Name: "service_invoice",
	Definition: obj([]string{"number"}, map[string]any{
		"number":            optString(),
		"verification_code": optString(),
		"issue_date":        optString(),
		"competence_date":   optString(),
		"provider":          party(),
		"client":            party(),
		"description":       optString(),
		"service_code":      optString(),
		"cnae":              optString(),
		"service_value":     optNumber(),
		"deductions":        optNumber(),
		"withholdings": map[string]any{
			"type": []any{"object", "null"},
			"properties": map[string]any{
				"pis":    optNumber(),
				"cofins": optNumber(),
				"inss":   optNumber(),
				"ir":     optNumber(),
				"csll":   optNumber(),
				"iss":    optNumber(),
				"other":  optNumber(),
			},
		},
		"iss_rate":  optNumber(),
		"net_value": optNumber(),
	}),
}

var financialStatementSchema = port.StructuredSchema{
	Name: "financial_statement",
	Definition: obj([]string{"entries"}, map[string]any{
		"kind": map[string]any{
			"type": []any{"string", "null"},
			"enum": []any{
				string(domain.StatementSales),
				string(domain.StatementPurchases),
				string(domain.StatementBank),
				nil,
			},
		},
		"period_start": optString(),
		"period_end":   optString(),
		"holder":       party(),
		"entries": map[string]any{
			"type": "array",
			"items": obj([]string{"date", "amount"}, map[string]any{
				"date":        optString(),
				"description": optString(),
				"document":    optString(),
				"direction": map[string]any{
					"type": []any{"string", "null"},
					"enum": []any{string(domain.EntryCredit), string(domain.EntryDebit), nil},
				},
				"amount":  map[string]any{"type": []any{"number", "string"}},
				"balance": optNumber(),
			}),
		},
		"opening_balance": optNumber(),
		"closing_balance": optNumber(),
		"total_credits":   optNumber(),
		"total_debits":    optNumber(),
	}),
}

// Schema returns the structured schema used for a document type.
func Schema(t domain.DocumentType) (port.StructuredSchema, bool) {
	switch t {
	case domain.DocumentTypeProductInvoice:
		return productInvoiceSchema, true
	case domain.DocumentTypeServiceInvoice:
		return serviceInvoiceSchema, true
	case domain.DocumentTypeFinancialStatement:
		return financialStatementSchema, true
	}
	return port.StructuredSchema{}, false
}
