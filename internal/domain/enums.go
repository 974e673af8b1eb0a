package domain

import (
	"path/filepath"
	"strings"
)

// FileType represents the source file formats the pipeline recognizes.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeJPG  FileType = "jpg"
	FileTypePNG  FileType = "png"
	FileTypeTIFF FileType = "tiff"
	FileTypeBMP  FileType = "bmp"
	FileTypeWEBP FileType = "webp"
	FileTypeXML  FileType = "xml"
)

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
	"tif":  FileTypeTIFF,
	"tiff": FileTypeTIFF,
	"bmp":  FileTypeBMP,
	"webp": FileTypeWEBP,
	"xml":  FileTypeXML,
}

// FileTypeOf returns the FileType for a filename's extension and whether it is known.
func FileTypeOf(filename string) (FileType, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	ft, ok := AllowedExtensions[ext]
	return ft, ok
}

// IsImage reports whether the file type is a raster image.
func (f FileType) IsImage() bool {
	switch f {
	case FileTypeJPG, FileTypePNG, FileTypeTIFF, FileTypeBMP, FileTypeWEBP:
		return true
	}
	return false
}

// DocumentType is the classification label assigned to a document.
type DocumentType string

const (
	DocumentTypeProductInvoice     DocumentType = "product_invoice"
	DocumentTypeServiceInvoice     DocumentType = "service_invoice"
	DocumentTypeFinancialStatement DocumentType = "financial_statement"
	DocumentTypeUnsupported        DocumentType = "unsupported"
)

// SupportedDocumentTypes lists the types that have an extractor.
var SupportedDocumentTypes = []DocumentType{
	DocumentTypeProductInvoice,
	DocumentTypeServiceInvoice,
	DocumentTypeFinancialStatement,
}

// IsSupported reports whether t is one of the three extractable types.
func (t DocumentType) IsSupported() bool {
	switch t {
	case DocumentTypeProductInvoice, DocumentTypeServiceInvoice, DocumentTypeFinancialStatement:
		return true
	}
	return false
}

// ParseDocumentType maps a label to a DocumentType. Unknown labels map to
// DocumentTypeUnsupported.
func ParseDocumentType(s string) DocumentType {
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	if t.IsSupported() {
		return t
	}
	return DocumentTypeUnsupported
}

// EntryDirection is the direction of a financial statement entry.
type EntryDirection string

const (
	EntryCredit EntryDirection = "CREDIT"
	EntryDebit  EntryDirection = "DEBIT"
)

// StatementKind distinguishes the financial statement flavors.
type StatementKind string

const (
	StatementSales     StatementKind = "sales"
	StatementPurchases StatementKind = "purchases"
	StatementBank      StatementKind = "bank"
)

// InputForm tells which representation an ExtractionInput carries.
type InputForm string

const (
	InputFormNone   InputForm = "none"
	InputFormText   InputForm = "text"
	InputFormImages InputForm = "images"
)
