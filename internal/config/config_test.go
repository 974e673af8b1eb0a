package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 100, cfg.Pipeline.MinTextChars)
	assert.Equal(t, 200, cfg.Pipeline.DPI)
	assert.Equal(t, 2048, cfg.Pipeline.MaxImageDimension)
	assert.Equal(t, 85, cfg.Pipeline.JPEGQuality)
	assert.Equal(t, 10, cfg.Pipeline.MaxPagesPerCall)
	assert.Equal(t, 5, cfg.Pipeline.BatchSize)
	assert.InDelta(t, 0.7, cfg.Pipeline.MinConfidence, 1e-9)
	assert.Equal(t, 3, cfg.Inference.MaxRetries)
	assert.Equal(t, 120, cfg.Inference.TimeoutSecs)
	assert.Equal(t, 8192, cfg.Inference.MaxTokens)
	assert.Equal(t, "claude", cfg.Inference.Primary.Provider)
	assert.Equal(t, "pdftotext", cfg.Tools.PDFToText)
	assert.Equal(t, "por", cfg.Tools.TesseractLang)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FISCALDOC_ENVIRONMENT", "production")
	t.Setenv("FISCALDOC_PIPELINE_BATCH_SIZE", "3")
	t.Setenv("FISCALDOC_INFERENCE_SECONDARY_PROVIDER", "gemini")
	t.Setenv("FISCALDOC_INFERENCE_SECONDARY_API_KEY", "g-key")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3, cfg.Pipeline.BatchSize)
	assert.Equal(t, "gemini", cfg.Inference.Secondary.Provider)
	assert.Equal(t, "g-key", cfg.Inference.Secondary.APIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fiscaldoc.yaml")
	content := []byte("pipeline:\n  max_pages_per_call: 20\n  batch_size: 8\nlog:\n  level: debug\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Pipeline.MaxPagesPerCall)
	assert.Equal(t, 8, cfg.Pipeline.BatchSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{Pipeline: config.PipelineConfig{
			MaxPagesPerCall: 10, BatchSize: 5, MinConfidence: 0.7, JPEGQuality: 85, MaxImageDimension: 2048,
		}}
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"zero batch size", func(c *config.Config) { c.Pipeline.BatchSize = 0 }},
		{"batch larger than page limit", func(c *config.Config) { c.Pipeline.BatchSize = 11 }},
		{"confidence above one", func(c *config.Config) { c.Pipeline.MinConfidence = 1.5 }},
		{"jpeg quality zero", func(c *config.Config) { c.Pipeline.JPEGQuality = 0 }},
		{"negative retries", func(c *config.Config) { c.Inference.MaxRetries = -1 }},
	}

	assert.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestInferenceConfig_Providers(t *testing.T) {
	cfg := config.InferenceConfig{
		Primary:  config.ProviderConfig{Provider: "claude"},
		Tertiary: config.ProviderConfig{Provider: "openai"},
	}

	providers := cfg.Providers()

	require.Len(t, providers, 2)
	assert.Equal(t, "claude", providers[0].Provider)
	assert.Equal(t, "openai", providers[1].Provider)
}
