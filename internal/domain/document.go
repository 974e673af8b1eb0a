package domain

import (
	"time"

	"github.com/cockroachdb/errors"
)

// DocumentBlob is the raw content of a document together with its name.
type DocumentBlob struct {
	Filename string
	Data     []byte
}

// FileType returns the blob's file type derived from its filename.
func (b DocumentBlob) FileType() (FileType, bool) {
	return FileTypeOf(b.Filename)
}

// Image is an encoded raster image ready to be sent to an inference backend.
type Image struct {
	Data      []byte
	MediaType string
}

// ExtractionInput carries either extracted text or page images, never both.
type ExtractionInput struct {
	Text   string
	Images []Image
}

// TextInput builds a text-form ExtractionInput.
func TextInput(text string) ExtractionInput {
	return ExtractionInput{Text: text}
}

// ImageInput builds an image-form ExtractionInput.
func ImageInput(images []Image) ExtractionInput {
	return ExtractionInput{Images: images}
}

// Form reports which representation the input carries.
func (in ExtractionInput) Form() InputForm {
	switch {
	case in.Text != "":
		return InputFormText
	case len(in.Images) > 0:
		return InputFormImages
	default:
		return InputFormNone
	}
}

// IsEmpty reports whether the input carries no signal at all.
func (in ExtractionInput) IsEmpty() bool {
	return in.Form() == InputFormNone
}

// Signals are the observations that backed a classification decision.
type Signals struct {
	HasAccessKey          bool     `json:"has_access_key"`
	HasVerificationCode   bool     `json:"has_verification_code"`
	HasServiceDescription bool     `json:"has_service_description"`
	HasDatedEntries       bool     `json:"has_dated_entries"`
	HasRunningBalance     bool     `json:"has_running_balance"`
	Keywords              []string `json:"keywords,omitempty"`
}

// ClassificationResult labels a document with a type and confidence.
type ClassificationResult struct {
	Type       DocumentType `json:"type"`
	Confidence float64      `json:"confidence"`
	Signals    Signals      `json:"signals"`
	Rationale  []string     `json:"rationale"`
}

// TypedDocument is a tagged union: exactly one variant is populated and it
// matches Type.
type TypedDocument struct {
	Type               DocumentType        `json:"type"`
	ProductInvoice     *ProductInvoice     `json:"product_invoice,omitempty"`
	ServiceInvoice     *ServiceInvoice     `json:"service_invoice,omitempty"`
	FinancialStatement *FinancialStatement `json:"financial_statement,omitempty"`
}

// NewProductInvoiceDocument wraps a product invoice.
func NewProductInvoiceDocument(p *ProductInvoice) *TypedDocument {
	return &TypedDocument{Type: DocumentTypeProductInvoice, ProductInvoice: p}
}

// NewServiceInvoiceDocument wraps a service invoice.
func NewServiceInvoiceDocument(s *ServiceInvoice) *TypedDocument {
	return &TypedDocument{Type: DocumentTypeServiceInvoice, ServiceInvoice: s}
}

// NewFinancialStatementDocument wraps a financial statement.
func NewFinancialStatementDocument(s *FinancialStatement) *TypedDocument {
	return &TypedDocument{Type: DocumentTypeFinancialStatement, FinancialStatement: s}
}

// Check verifies that exactly one variant is populated and that it matches Type.
func (d *TypedDocument) Check() error {
	if d == nil {
		return errors.New("typed document is nil")
	}
	populated := 0
	var variant DocumentType
	if d.ProductInvoice != nil {
		populated++
		variant = DocumentTypeProductInvoice
	}
	if d.ServiceInvoice != nil {
		populated++
		variant = DocumentTypeServiceInvoice
	}
	if d.FinancialStatement != nil {
		populated++
		variant = DocumentTypeFinancialStatement
	}
	if populated != 1 {
		return errors.Newf("typed document must carry exactly one variant, has %d", populated)
	}
	if variant != d.Type {
		return errors.Newf("typed document variant %s does not match type %s", variant, d.Type)
	}
	return nil
}

// Number returns the identifying number of an invoice variant, or "".
func (d *TypedDocument) Number() string {
	switch {
	case d == nil:
		return ""
	case d.ProductInvoice != nil:
		return d.ProductInvoice.Number
	case d.ServiceInvoice != nil:
		return d.ServiceInvoice.Number
	}
	return ""
}

// IsInvoice reports whether the document is a product or service invoice.
func (d *TypedDocument) IsInvoice() bool {
	return d != nil && (d.Type == DocumentTypeProductInvoice || d.Type == DocumentTypeServiceInvoice)
}

// ValidationResult scores the completeness and consistency of a TypedDocument.
type ValidationResult struct {
	Valid          bool     `json:"valid"`
	QualityScore   float64  `json:"quality_score"`
	CriticalErrors []string `json:"critical_errors"`
	Warnings       []string `json:"warnings"`
	MissingFields  []string `json:"missing_fields"`
	Suggestions    []string `json:"suggestions"`
}

// ProcessingState is a node of the per-document processing state machine.
type ProcessingState string

const (
	StateStart       ProcessingState = "start"
	StateAdapting    ProcessingState = "adapting"
	StateSingleBatch ProcessingState = "single_batch"
	StateBatching    ProcessingState = "batching"
	StateClassified  ProcessingState = "classified"
	StateExtracted   ProcessingState = "extracted"
	StateValidated   ProcessingState = "validated"
	StateMerging     ProcessingState = "merging"
	StateDone        ProcessingState = "done"
	StateError       ProcessingState = "error"
)

// ProcessingResult is the pipeline's sole externally visible artifact.
type ProcessingResult struct {
	ProcessingID   string                `json:"processing_id"`
	SourceName     string                `json:"source_name"`
	Success        bool                  `json:"success"`
	Classification *ClassificationResult `json:"classification,omitempty"`
	TypedDocument  *TypedDocument        `json:"typed_document,omitempty"`
	Validation     *ValidationResult     `json:"validation,omitempty"`
	Error          string                `json:"error,omitempty"`
	// Err is the classified failure behind Error, for errors.Is matching.
	Err            error                 `json:"-"`
	InputForm      InputForm             `json:"input_form,omitempty"`
	PageCount      int                   `json:"page_count"`
	BatchCount     int                   `json:"batch_count"`
	DroppedBatches []int                 `json:"dropped_batches,omitempty"`
	FinalState     ProcessingState       `json:"final_state"`
	Duration       time.Duration         `json:"duration_ns"`
}
