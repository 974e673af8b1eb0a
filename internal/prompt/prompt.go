package prompt

import (
	_ "embed"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Set holds the instructions sent with every classification and extraction call.
type Set struct {
	System             string `yaml:"system"`
	Classifier         string `yaml:"classifier"`
	ProductInvoice     string `yaml:"product_invoice"`
	ServiceInvoice     string `yaml:"service_invoice"`
	FinancialStatement string `yaml:"financial_statement"`
}

// Default returns the embedded prompt set.
func Default() Set {
	var s Set
	if err := yaml.Unmarshal(defaultPrompts, &s); err != nil {
		panic("prompt: embedded prompts.yaml is invalid: " + err.Error())
	}
	return s
}

// Load returns the embedded prompt set overlaid with the file at path.
// An empty path returns the defaults.
func Load(path string) (Set, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Set{}, errors.Wrapf(err, "reading prompts file %s", path)
	}
	var override Set
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Set{}, errors.Wrapf(err, "parsing prompts file %s", path)
	}
	return s.merge(override), nil
}

func (s Set) merge(o Set) Set {
	pick := func(base, over string) string {
		if over != "" {
			return over
		}
		return base
	}
	return Set{
		System:             pick(s.System, o.System),
		Classifier:         pick(s.Classifier, o.Classifier),
		ProductInvoice:     pick(s.ProductInvoice, o.ProductInvoice),
		ServiceInvoice:     pick(s.ServiceInvoice, o.ServiceInvoice),
		FinancialStatement: pick(s.FinancialStatement, o.FinancialStatement),
	}
}

// For returns the extraction instruction for a document type.
func (s Set) For(t domain.DocumentType) string {
	switch t {
	case domain.DocumentTypeProductInvoice:
		return s.ProductInvoice
	case domain.DocumentTypeServiceInvoice:
		return s.ServiceInvoice
	case domain.DocumentTypeFinancialStatement:
		return s.FinancialStatement
	}
	return ""
}

// Messages builds the conversation for one classification or extraction
// call: the system prompt, then a user turn carrying the instruction and
// either the document text or its page images.
func (s Set) Messages(instruction string, in domain.ExtractionInput) []port.Message {
	user := port.Message{Role: port.RoleUser}
	switch in.Form() {
	case domain.InputFormText:
		user.Text = instruction + "\n\nDOCUMENT TEXT:\n" + in.Text
	case domain.InputFormImages:
		user.Text = instruction + "\n\nThe document pages are attached as images, in page order."
		user.Images = in.Images
	default:
		user.Text = instruction
	}
	return []port.Message{
		{Role: port.RoleSystem, Text: s.System},
		user,
	}
}
