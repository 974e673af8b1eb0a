package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// MockExtractionStrategy is a mock implementation of port.ExtractionStrategy.
type MockExtractionStrategy struct {
	mock.Mock
}

func (m *MockExtractionStrategy) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockExtractionStrategy) Extract(ctx context.Context, blob domain.DocumentBlob) (*domain.TypedDocument, error) {
	args := m.Called(ctx, blob)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TypedDocument), args.Error(1)
}

// MockObjectStorage is a mock implementation of port.ObjectStorage.
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStorage) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.UploadOutput), args.Error(1)
}
