package port

import (
	"context"

	"fiscaldoc/internal/domain"
)

// Role tags a message in a conversation with an inference backend.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a role-tagged prompt fragment, optionally carrying images.
type Message struct {
	Role   Role
	Text   string
	Images []domain.Image
}

// StructuredSchema names a JSON schema a structured response must satisfy.
// Name must be unique per Definition; gateways cache compiled schemas by it.
type StructuredSchema struct {
	Name       string
	Definition map[string]any
}

// CompletionRequest is a single call to an inference backend.
type CompletionRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// Schema is set only when the backend reports native structured output.
	Schema *StructuredSchema
}

// CompletionResponse is the raw text a backend produced.
type CompletionResponse struct {
	Text       string
	Model      string
	StopReason string
}

// InferenceBackend abstracts a generative language-model API.
type InferenceBackend interface {
	Name() string
	SupportsStructuredOutput() bool
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// GenerateOptions carries the sampling budget for a gateway call.
// A nil Temperature and a zero MaxTokens fall back to the gateway defaults.
type GenerateOptions struct {
	Temperature *float64
	MaxTokens   int
}

// Gateway is the uniform generation surface used by the classifier and extractors.
type Gateway interface {
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error)
	// GenerateStructured decodes a schema-valid JSON response into out.
	GenerateStructured(ctx context.Context, messages []Message, schema StructuredSchema, opts GenerateOptions, out any) error
}
