package validator

import (
	"fiscaldoc/internal/domain"
)

// Severity decides where a finding lands in the ValidationResult.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// Finding is one failed check reported by a rule.
type Finding struct {
	FieldPath     string
	ExpectedValue string
	ActualValue   string
	Message       string
}

// Rule is a single built-in validation check.
type Rule interface {
	Key() string
	Name() string
	Severity() Severity
	Applies(t domain.DocumentType) bool
	// Check must not modify doc.
	Check(doc *domain.TypedDocument) []Finding
}

// BuiltinRule adapts a check function to the Rule interface.
type BuiltinRule struct {
	key   string
	name  string
	sev   Severity
	types []domain.DocumentType
	fn    func(*domain.TypedDocument) []Finding
}

func (r *BuiltinRule) Key() string        { return r.key }
func (r *BuiltinRule) Name() string       { return r.name }
func (r *BuiltinRule) Severity() Severity { return r.sev }

// Applies reports whether the rule runs for t. A rule without types runs for all.
func (r *BuiltinRule) Applies(t domain.DocumentType) bool {
	if len(r.types) == 0 {
		return true
	}
	for _, rt := range r.types {
		if rt == t {
			return true
		}
	}
	return false
}

func (r *BuiltinRule) Check(doc *domain.TypedDocument) []Finding { return r.fn(doc) }
