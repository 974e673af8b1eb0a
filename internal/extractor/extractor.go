package extractor

import (
	"context"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/logger"
	"fiscaldoc/internal/port"
	"fiscaldoc/internal/prompt"
)

// Extractor recovers one document type through the inference gateway.
type Extractor struct {
	docType domain.DocumentType
	gateway port.Gateway
	prompts prompt.Set
	logger  *zap.Logger
}

func newExtractor(t domain.DocumentType, gateway port.Gateway, prompts prompt.Set, l *zap.Logger) *Extractor {
	if l == nil {
		l = zap.NewNop()
	}
	return &Extractor{docType: t, gateway: gateway, prompts: prompts, logger: l}
}

// NewProductInvoice creates the product invoice extractor.
func NewProductInvoice(gateway port.Gateway, prompts prompt.Set, l *zap.Logger) *Extractor {
	return newExtractor(domain.DocumentTypeProductInvoice, gateway, prompts, l)
}

// NewServiceInvoice creates the service invoice extractor.
func NewServiceInvoice(gateway port.Gateway, prompts prompt.Set, l *zap.Logger) *Extractor {
	return newExtractor(domain.DocumentTypeServiceInvoice, gateway, prompts, l)
}

// NewFinancialStatement creates the financial statement extractor.
func NewFinancialStatement(gateway port.Gateway, prompts prompt.Set, l *zap.Logger) *Extractor {
	return newExtractor(domain.DocumentTypeFinancialStatement, gateway, prompts, l)
}

func (e *Extractor) Type() domain.DocumentType { return e.docType }

// Extract returns the typed document, or nil when the identifying field
// (invoice number, or at least one statement entry) is absent.
func (e *Extractor) Extract(ctx context.Context, in domain.ExtractionInput) (*domain.TypedDocument, error) {
	if in.IsEmpty() {
		return nil, domain.NewInvalidInputError("", "extraction requires text or images")
	}
	schema, _ := Schema(e.docType)
	msgs := e.prompts.Messages(e.prompts.For(e.docType), in)
	l := logger.FromContext(ctx, e.logger).With(zap.String(logger.FieldDocType, string(e.docType)))

	var doc *domain.TypedDocument
	switch e.docType {
	case domain.DocumentTypeProductInvoice:
		var inv domain.ProductInvoice
		if err := e.gateway.GenerateStructured(ctx, msgs, schema, port.GenerateOptions{}, &inv); err != nil {
			return nil, errors.Wrap(err, "extracting product invoice")
		}
		if normalizeProductInvoice(&inv) {
			doc = domain.NewProductInvoiceDocument(&inv)
		}
	case domain.DocumentTypeServiceInvoice:
		var inv domain.ServiceInvoice
		if err := e.gateway.GenerateStructured(ctx, msgs, schema, port.GenerateOptions{}, &inv); err != nil {
			return nil, errors.Wrap(err, "extracting service invoice")
		}
		if normalizeServiceInvoice(&inv) {
			doc = domain.NewServiceInvoiceDocument(&inv)
		}
	case domain.DocumentTypeFinancialStatement:
		var st domain.FinancialStatement
		if err := e.gateway.GenerateStructured(ctx, msgs, schema, port.GenerateOptions{}, &st); err != nil {
			return nil, errors.Wrap(err, "extracting financial statement")
		}
		if normalizeStatement(&st) {
			doc = domain.NewFinancialStatementDocument(&st)
		}
	default:
		return nil, domain.NewUnsupportedDocumentTypeError(e.docType)
	}

	if doc == nil {
		l.Warn("extraction returned no identifying field")
		return nil, nil
	}
	l.Debug("document extracted", zap.String("number", doc.Number()))
	return doc, nil
}

func normalizeProductInvoice(inv *domain.ProductInvoice) bool {
	inv.Number = strings.TrimSpace(inv.Number)
	inv.Series = strings.TrimSpace(inv.Series)
	inv.AccessKey = digitsOnly(inv.AccessKey)
	if inv.Items == nil {
		inv.Items = []domain.LineItem{}
	}
	return inv.Number != ""
}

func normalizeServiceInvoice(inv *domain.ServiceInvoice) bool {
	inv.Number = strings.TrimSpace(inv.Number)
	inv.VerificationCode = strings.TrimSpace(inv.VerificationCode)
	inv.Description = strings.TrimSpace(inv.Description)
	return inv.Number != ""
}

func normalizeStatement(st *domain.FinancialStatement) bool {
	for i := range st.Entries {
		e := &st.Entries[i]
		e.Direction = domain.EntryDirection(strings.ToUpper(strings.TrimSpace(string(e.Direction))))
		// Without a direction the sign is the only hint.
		if e.Direction == "" {
			if e.Amount.IsNegative() {
				e.Direction = domain.EntryDebit
				e.Amount = e.Amount.Abs()
			} else {
				e.Direction = domain.EntryCredit
			}
		}
	}
	return len(st.Entries) > 0
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// Factory implements port.ExtractorProvider.
type Factory struct {
	extractors map[domain.DocumentType]port.Extractor
}

// NewFactory registers one extractor per supported document type.
func NewFactory(gateway port.Gateway, prompts prompt.Set, l *zap.Logger) *Factory {
	f := &Factory{extractors: make(map[domain.DocumentType]port.Extractor)}
	for _, e := range []port.Extractor{
		NewProductInvoice(gateway, prompts, l),
		NewServiceInvoice(gateway, prompts, l),
		NewFinancialStatement(gateway, prompts, l),
	} {
		f.extractors[e.Type()] = e
	}
	return f
}

// For returns the extractor for t.
func (f *Factory) For(t domain.DocumentType) (port.Extractor, error) {
	e, ok := f.extractors[t]
	if !ok {
		return nil, domain.NewUnsupportedDocumentTypeError(t)
	}
	return e, nil
}
