package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/logger"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
	}{
		{"console debug", config.LogConfig{Level: "debug", Format: "console"}, false},
		{"json info", config.LogConfig{Level: "INFO", Format: "json"}, false},
		{"bad level", config.LogConfig{Level: "loud", Format: "json"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := logger.New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestFromContext_AttachesProcessingID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := logger.WithProcessingID(context.Background(), "abc-123")

	logger.FromContext(ctx, zap.New(core)).Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abc-123", logs.All()[0].ContextMap()[logger.FieldProcessingID])
}

func TestFromContext_NilLogger(t *testing.T) {
	l := logger.FromContext(context.Background(), nil)
	assert.NotNil(t, l)
	assert.Equal(t, "", logger.ProcessingID(context.Background()))
}
