package domain

import (
	"github.com/shopspring/decimal"
)

// Money wraps a decimal as a present NullDecimal.
func Money(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// MustMoney parses s into a present NullDecimal and panics on malformed input.
// Intended for literals.
func MustMoney(s string) decimal.NullDecimal {
	return Money(decimal.RequireFromString(s))
}

// ValueOrZero returns the decimal carried by n, or zero when absent.
func ValueOrZero(n decimal.NullDecimal) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}

// Party is an issuer, recipient, provider, client or account holder.
type Party struct {
	Name              string `json:"name,omitempty"`
	TaxID             string `json:"tax_id,omitempty"`
	StateRegistration string `json:"state_registration,omitempty"`
	Address           string `json:"address,omitempty"`
	City              string `json:"city,omitempty"`
	State             string `json:"state,omitempty"`
	PostalCode        string `json:"postal_code,omitempty"`
}

// IsEmpty reports whether no identifying data is present.
func (p Party) IsEmpty() bool {
	return p.Name == "" && p.TaxID == ""
}

// LineItem is a single product line of a product invoice.
type LineItem struct {
	Code        string              `json:"code,omitempty"`
	Description string              `json:"description"`
	NCM         string              `json:"ncm,omitempty"`
	CFOP        string              `json:"cfop,omitempty"`
	Unit        string              `json:"unit,omitempty"`
	Quantity    decimal.NullDecimal `json:"quantity"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	Total       decimal.NullDecimal `json:"total"`
	ICMSRate    decimal.NullDecimal `json:"icms_rate"`
	IPIRate     decimal.NullDecimal `json:"ipi_rate"`
}

// ProductTotals holds the monetary summary of a product invoice.
type ProductTotals struct {
	Products     decimal.NullDecimal `json:"products"`
	Freight      decimal.NullDecimal `json:"freight"`
	Insurance    decimal.NullDecimal `json:"insurance"`
	Discount     decimal.NullDecimal `json:"discount"`
	OtherCharges decimal.NullDecimal `json:"other_charges"`
	ICMS         decimal.NullDecimal `json:"icms"`
	IPI          decimal.NullDecimal `json:"ipi"`
	Total        decimal.NullDecimal `json:"total"`
}

// ProductInvoice is a fiscal document recording the sale of goods.
type ProductInvoice struct {
	Number    string        `json:"number"`
	Series    string        `json:"series,omitempty"`
	AccessKey string        `json:"access_key,omitempty"`
	IssueDate Date          `json:"issue_date"`
	Issuer    Party         `json:"issuer"`
	Recipient Party         `json:"recipient"`
	Items     []LineItem    `json:"items"`
	Totals    ProductTotals `json:"totals"`
}

// Withholdings itemizes the taxes withheld on a service invoice.
type Withholdings struct {
	PIS    decimal.NullDecimal `json:"pis"`
	COFINS decimal.NullDecimal `json:"cofins"`
	INSS   decimal.NullDecimal `json:"inss"`
	IR     decimal.NullDecimal `json:"ir"`
	CSLL   decimal.NullDecimal `json:"csll"`
	ISS    decimal.NullDecimal `json:"iss"`
	Other  decimal.NullDecimal `json:"other"`
}

// Sum adds every present withholding.
func (w Withholdings) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range []decimal.NullDecimal{w.PIS, w.COFINS, w.INSS, w.IR, w.CSLL, w.ISS, w.Other} {
		sum = sum.Add(ValueOrZero(v))
	}
	return sum
}

// ServiceInvoice is a fiscal document recording a rendered service.
type ServiceInvoice struct {
	Number           string              `json:"number"`
	VerificationCode string              `json:"verification_code,omitempty"`
	IssueDate        Date                `json:"issue_date"`
	CompetenceDate   Date                `json:"competence_date"`
	Provider         Party               `json:"provider"`
	Client           Party               `json:"client"`
	Description      string              `json:"description,omitempty"`
	ServiceCode      string              `json:"service_code,omitempty"`
	CNAE             string              `json:"cnae,omitempty"`
	ServiceValue     decimal.NullDecimal `json:"service_value"`
	Deductions       decimal.NullDecimal `json:"deductions"`
	Withholdings     Withholdings        `json:"withholdings"`
	ISSRate          decimal.NullDecimal `json:"iss_rate"`
	NetValue         decimal.NullDecimal `json:"net_value"`
}

// StatementEntry is one dated movement of a financial statement.
type StatementEntry struct {
	Date        Date                `json:"date"`
	Description string              `json:"description"`
	Document    string              `json:"document,omitempty"`
	Direction   EntryDirection      `json:"direction"`
	Amount      decimal.Decimal     `json:"amount"`
	Balance     decimal.NullDecimal `json:"balance"`
}

// FinancialStatement lists dated credit/debit entries with period balances.
type FinancialStatement struct {
	Kind           StatementKind       `json:"kind,omitempty"`
	PeriodStart    Date                `json:"period_start"`
	PeriodEnd      Date                `json:"period_end"`
	Holder         Party               `json:"holder"`
	Entries        []StatementEntry    `json:"entries"`
	OpeningBalance decimal.NullDecimal `json:"opening_balance"`
	ClosingBalance decimal.NullDecimal `json:"closing_balance"`
	TotalCredits   decimal.NullDecimal `json:"total_credits"`
	TotalDebits    decimal.NullDecimal `json:"total_debits"`
}

// EntryTotals sums credit and debit entries by direction.
func (s *FinancialStatement) EntryTotals() (credits, debits decimal.Decimal) {
	credits, debits = decimal.Zero, decimal.Zero
	for _, e := range s.Entries {
		switch e.Direction {
		case EntryCredit:
			credits = credits.Add(e.Amount.Abs())
		case EntryDebit:
			debits = debits.Add(e.Amount.Abs())
		}
	}
	return credits, debits
}
