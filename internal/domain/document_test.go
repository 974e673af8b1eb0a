package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/domain"
)

func TestTypedDocument_Check(t *testing.T) {
	tests := []struct {
		name    string
		doc     *domain.TypedDocument
		wantErr bool
	}{
		{"product", domain.NewProductInvoiceDocument(&domain.ProductInvoice{Number: "1"}), false},
		{"service", domain.NewServiceInvoiceDocument(&domain.ServiceInvoice{Number: "1"}), false},
		{"statement", domain.NewFinancialStatementDocument(&domain.FinancialStatement{}), false},
		{"nil", nil, true},
		{"empty", &domain.TypedDocument{Type: domain.DocumentTypeProductInvoice}, true},
		{"mismatch", &domain.TypedDocument{
			Type:           domain.DocumentTypeServiceInvoice,
			ProductInvoice: &domain.ProductInvoice{},
		}, true},
		{"two variants", &domain.TypedDocument{
			Type:           domain.DocumentTypeProductInvoice,
			ProductInvoice: &domain.ProductInvoice{},
			ServiceInvoice: &domain.ServiceInvoice{},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Check()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseDocumentType(t *testing.T) {
	assert.Equal(t, domain.DocumentTypeProductInvoice, domain.ParseDocumentType(" Product_Invoice "))
	assert.Equal(t, domain.DocumentTypeFinancialStatement, domain.ParseDocumentType("financial_statement"))
	assert.Equal(t, domain.DocumentTypeUnsupported, domain.ParseDocumentType("receipt"))
	assert.False(t, domain.DocumentTypeUnsupported.IsSupported())
}

func TestFileTypeOf(t *testing.T) {
	ft, ok := domain.FileTypeOf("scan.JPEG")
	require.True(t, ok)
	assert.Equal(t, domain.FileTypeJPG, ft)
	assert.True(t, ft.IsImage())

	ft, ok = domain.FileTypeOf("nota.pdf")
	require.True(t, ok)
	assert.False(t, ft.IsImage())

	_, ok = domain.FileTypeOf("report.docx")
	assert.False(t, ok)
}

func TestExtractionInput_Form(t *testing.T) {
	assert.Equal(t, domain.InputFormText, domain.TextInput("abc").Form())
	assert.Equal(t, domain.InputFormImages, domain.ImageInput([]domain.Image{{Data: []byte{1}}}).Form())
	assert.True(t, domain.ExtractionInput{}.IsEmpty())
}

func TestDate_JSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"2024-03-15"`, "2024-03-15"},
		{`"15/03/2024"`, "2024-03-15"},
		{`"2024-03-15T10:20:00-03:00"`, "2024-03-15"},
		{`null`, ""},
		{`""`, ""},
		{`"sometime in march"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d domain.Date
			require.NoError(t, json.Unmarshal([]byte(tt.in), &d))
			assert.Equal(t, tt.want, d.String())
		})
	}

	out, err := json.Marshal(struct {
		D domain.Date `json:"d"`
		E domain.Date `json:"e"`
	}{D: domain.NewDate(2024, time.January, 2)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-01-02","e":null}`, string(out))
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := domain.ParseDate("31-31-2024x")
	assert.Error(t, err)
}

func TestFinancialStatement_EntryTotals(t *testing.T) {
	st := &domain.FinancialStatement{Entries: []domain.StatementEntry{
		{Direction: domain.EntryCredit, Amount: domain.MustMoney("100.10").Decimal},
		{Direction: domain.EntryDebit, Amount: domain.MustMoney("-40.05").Decimal},
		{Direction: domain.EntryCredit, Amount: domain.MustMoney("0.90").Decimal},
	}}

	credits, debits := st.EntryTotals()

	assert.Equal(t, "101", credits.String())
	assert.Equal(t, "40.05", debits.String())
}

func TestErrorTaxonomy(t *testing.T) {
	err := errors.Wrap(domain.NewInvalidInputError("a.docx", "unable to extract text or images"), "adapting")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.False(t, errors.Is(err, domain.ErrInferenceBackend))
	var iie *domain.InvalidInputError
	require.True(t, errors.As(err, &iie))
	assert.Equal(t, "a.docx", iie.Source)
	assert.Contains(t, err.Error(), "unable to extract text or images")

	backendErr := domain.NewInferenceBackendError("claude", domain.BackendErrorMalformed, true, errors.New("bad json"))
	assert.True(t, errors.Is(backendErr, domain.ErrInferenceBackend))
	var ibe *domain.InferenceBackendError
	require.True(t, errors.As(backendErr, &ibe))
	assert.True(t, ibe.Retryable)

	assert.True(t, errors.Is(domain.NewUnsupportedDocumentTypeError(domain.DocumentTypeUnsupported), domain.ErrUnsupportedDocumentType))
	assert.True(t, errors.Is(domain.NewExtractionIncompleteError(domain.DocumentTypeProductInvoice, 0), domain.ErrExtractionIncomplete))
}
