package validator

import (
	"fiscaldoc/internal/domain"
)

// Score penalties per finding.
const (
	CriticalPenalty = 0.2
	WarningPenalty  = 0.05
)

// Engine runs registered rules against typed documents. It implements
// port.DocumentValidator and holds no mutable state, so one Engine may be
// shared across goroutines.
type Engine struct {
	registry *Registry
}

// NewEngine creates a validation engine. A nil registry uses DefaultRegistry.
func NewEngine(registry *Registry) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Engine{registry: registry}
}

// Validate scores doc. Findings never become errors; a document is valid
// when no critical finding was raised.
func (e *Engine) Validate(doc *domain.TypedDocument) domain.ValidationResult {
	res := domain.ValidationResult{
		CriticalErrors: []string{},
		Warnings:       []string{},
		MissingFields:  []string{},
		Suggestions:    []string{},
	}
	if err := doc.Check(); err != nil {
		res.CriticalErrors = append(res.CriticalErrors, err.Error())
		return res
	}

	for _, rule := range e.registry.All() {
		if !rule.Applies(doc.Type) {
			continue
		}
		for _, f := range rule.Check(doc) {
			switch rule.Severity() {
			case SeverityCritical:
				res.CriticalErrors = append(res.CriticalErrors, f.Message)
			case SeverityWarning:
				res.Warnings = append(res.Warnings, f.Message)
			case SeveritySuggestion:
				res.Suggestions = append(res.Suggestions, f.Message)
			}
		}
	}

	fs := fields(doc)
	for _, f := range fs {
		if !f.filled && !f.required {
			res.MissingFields = append(res.MissingFields, f.path)
		}
	}

	res.Valid = len(res.CriticalErrors) == 0
	res.QualityScore = Score(filledRatio(fs), len(res.CriticalErrors), len(res.Warnings))
	return res
}

// Score combines completeness with finding penalties, clamped to [0,1].
func Score(filledRatio float64, critical, warnings int) float64 {
	s := filledRatio - CriticalPenalty*float64(critical) - WarningPenalty*float64(warnings)
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}
