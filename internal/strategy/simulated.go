package strategy

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"fiscaldoc/internal/domain"
)

// Fixed parties of the simulated strategy.
const (
	SimulatedOwnTaxID      = "99.999.999/0001-99"
	SimulatedOwnName       = "Minha Empresa Inc"
	SimulatedSupplierTaxID = "11.222.333/0001-44"
	SimulatedSupplierName  = "Fornecedor Simulado LTDA"
	SimulatedClientTaxID   = "55.666.777/0001-88"
	SimulatedClientName    = "Cliente Simulado SA"
)

var filenameDigits = regexp.MustCompile(`\d+`)

// Simulated fabricates a deterministic product invoice from the filename.
// It must never be registered in production.
type Simulated struct{}

// NewSimulated creates the simulated strategy.
func NewSimulated() *Simulated { return &Simulated{} }

func (s *Simulated) Name() string { return "simulated" }

// Extract treats filenames containing "compra" as purchases from the
// supplier and everything else as sales to the client.
func (s *Simulated) Extract(_ context.Context, blob domain.DocumentBlob) (*domain.TypedDocument, error) {
	base := strings.ToLower(filepath.Base(blob.Filename))
	own := domain.Party{Name: SimulatedOwnName, TaxID: SimulatedOwnTaxID}

	inv := &domain.ProductInvoice{IssueDate: domain.NewDate(2025, time.October, 13)}
	var total string
	if strings.Contains(base, "compra") {
		inv.Number = "NF-COMPRA-SIM-" + suffix(base, "123")
		inv.Issuer = domain.Party{Name: SimulatedSupplierName, TaxID: SimulatedSupplierTaxID}
		inv.Recipient = own
		total = "750.00"
	} else {
		inv.Number = "NF-VENDA-SIM-" + suffix(base, "456")
		inv.Issuer = own
		inv.Recipient = domain.Party{Name: SimulatedClientName, TaxID: SimulatedClientTaxID}
		total = "1200.50"
	}
	inv.Items = []domain.LineItem{{
		Description: "Item simulado",
		Quantity:    domain.MustMoney("1"),
		UnitPrice:   domain.MustMoney(total),
		Total:       domain.MustMoney(total),
	}}
	inv.Totals = domain.ProductTotals{
		Products: domain.MustMoney(total),
		Total:    domain.MustMoney(total),
	}
	return domain.NewProductInvoiceDocument(inv), nil
}

func suffix(name, fallback string) string {
	if m := filenameDigits.FindString(name); m != "" {
		return m
	}
	return fallback
}
