package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel markers for the pipeline error taxonomy. Match with errors.Is.
var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrInferenceBackend        = errors.New("inference backend error")
	ErrUnsupportedDocumentType = errors.New("unsupported document type")
	ErrExtractionIncomplete    = errors.New("extraction incomplete")
	ErrNoStrategySucceeded     = errors.New("no extraction strategy produced a result")
)

// InvalidInputError reports a document with no usable text or images.
type InvalidInputError struct {
	Source string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Source == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input %s: %s", e.Source, e.Reason)
}

// NewInvalidInputError returns an InvalidInputError marked with ErrInvalidInput.
func NewInvalidInputError(source, reason string) error {
	return errors.Mark(&InvalidInputError{Source: source, Reason: reason}, ErrInvalidInput)
}

// BackendErrorKind classifies inference backend failures.
type BackendErrorKind string

const (
	BackendErrorTimeout   BackendErrorKind = "timeout"
	BackendErrorTransport BackendErrorKind = "transport"
	BackendErrorStatus    BackendErrorKind = "status"
	BackendErrorRateLimit BackendErrorKind = "rate_limit"
	BackendErrorMalformed BackendErrorKind = "malformed"
	BackendErrorSchema    BackendErrorKind = "schema"
	BackendErrorTruncated BackendErrorKind = "truncated"
)

// InferenceBackendError is a classified failure of an inference call.
type InferenceBackendError struct {
	Backend   string
	Kind      BackendErrorKind
	Retryable bool
	Err       error
}

func (e *InferenceBackendError) Error() string {
	return fmt.Sprintf("inference backend %s (%s): %v", e.Backend, e.Kind, e.Err)
}

func (e *InferenceBackendError) Unwrap() error { return e.Err }

// NewInferenceBackendError returns an InferenceBackendError marked with ErrInferenceBackend.
func NewInferenceBackendError(backend string, kind BackendErrorKind, retryable bool, err error) error {
	return errors.Mark(&InferenceBackendError{
		Backend:   backend,
		Kind:      kind,
		Retryable: retryable,
		Err:       err,
	}, ErrInferenceBackend)
}

// UnsupportedDocumentTypeError reports an explicit Unsupported classification.
type UnsupportedDocumentTypeError struct {
	Type DocumentType
}

func (e *UnsupportedDocumentTypeError) Error() string {
	return fmt.Sprintf("unsupported document type %q", string(e.Type))
}

// NewUnsupportedDocumentTypeError returns an error marked with ErrUnsupportedDocumentType.
func NewUnsupportedDocumentTypeError(t DocumentType) error {
	return errors.Mark(&UnsupportedDocumentTypeError{Type: t}, ErrUnsupportedDocumentType)
}

// ExtractionIncompleteError reports an extractor that produced no record for
// a supported type.
type ExtractionIncompleteError struct {
	Type  DocumentType
	Batch int
}

func (e *ExtractionIncompleteError) Error() string {
	return fmt.Sprintf("extraction incomplete for %s (batch %d): mandatory identifying field missing", e.Type, e.Batch)
}

// NewExtractionIncompleteError returns an error marked with ErrExtractionIncomplete.
func NewExtractionIncompleteError(t DocumentType, batch int) error {
	return errors.Mark(&ExtractionIncompleteError{Type: t, Batch: batch}, ErrExtractionIncomplete)
}
