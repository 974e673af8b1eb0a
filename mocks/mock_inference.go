package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fiscaldoc/internal/port"
)

// MockInferenceBackend is a mock implementation of port.InferenceBackend.
type MockInferenceBackend struct {
	mock.Mock
}

func (m *MockInferenceBackend) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockInferenceBackend) SupportsStructuredOutput() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockInferenceBackend) Complete(ctx context.Context, req port.CompletionRequest) (*port.CompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.CompletionResponse), args.Error(1)
}

// MockGateway is a mock implementation of port.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Generate(ctx context.Context, messages []port.Message, opts port.GenerateOptions) (string, error) {
	args := m.Called(ctx, messages, opts)
	return args.String(0), args.Error(1)
}

// GenerateStructured records the call; tests fill out via mock.Run.
func (m *MockGateway) GenerateStructured(ctx context.Context, messages []port.Message, schema port.StructuredSchema, opts port.GenerateOptions, out any) error {
	args := m.Called(ctx, messages, schema, opts, out)
	return args.Error(0)
}
