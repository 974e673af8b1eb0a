package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Environment string
	Log         LogConfig
	Inference   InferenceConfig
	Pipeline    PipelineConfig
	Tools       ToolsConfig
	S3          S3Config
}

// IsProduction reports whether the configured environment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ProviderConfig holds settings for a single inference backend.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// InferenceConfig holds inference gateway settings with multi-provider support.
type InferenceConfig struct {
	Temperature       float64 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	MaxRetries        int     `mapstructure:"max_retries"`
	TimeoutSecs       int     `mapstructure:"timeout_secs"`
	BackoffBaseMS     int     `mapstructure:"backoff_base_ms"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`

	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`
}

// Providers returns the configured providers in priority order, skipping
// entries without a provider name.
func (c *InferenceConfig) Providers() []ProviderConfig {
	var out []ProviderConfig
	for _, p := range []ProviderConfig{c.Primary, c.Secondary, c.Tertiary} {
		if p.Provider != "" {
			out = append(out, p)
		}
	}
	return out
}

// PipelineConfig holds document pipeline settings.
type PipelineConfig struct {
	MinTextChars      int     `mapstructure:"min_text_chars"`
	DPI               int     `mapstructure:"dpi"`
	MaxImageDimension int     `mapstructure:"max_image_dimension"`
	JPEGQuality       int     `mapstructure:"jpeg_quality"`
	MaxPagesPerCall   int     `mapstructure:"max_pages_per_call"`
	BatchSize         int     `mapstructure:"batch_size"`
	MinConfidence     float64 `mapstructure:"min_confidence"`
	Concurrency       int     `mapstructure:"concurrency"`
	PromptsFile       string  `mapstructure:"prompts_file"`
}

// ToolsConfig holds paths to external executables.
type ToolsConfig struct {
	PDFToText     string `mapstructure:"pdftotext"`
	PDFToPPM      string `mapstructure:"pdftoppm"`
	PDFInfo       string `mapstructure:"pdfinfo"`
	Tesseract     string `mapstructure:"tesseract"`
	TesseractLang string `mapstructure:"tesseract_lang"`
}

// S3Config holds AWS S3 settings used for loading source documents.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the FISCALDOC_
// prefix and, when path is non-empty, from a YAML config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FISCALDOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Bind environment variables explicitly for nested keys
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key, "FISCALDOC_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
	}

	cfg := &Config{Environment: v.GetString("environment")}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Inference = InferenceConfig{
		Temperature:       v.GetFloat64("inference.temperature"),
		MaxTokens:         v.GetInt("inference.max_tokens"),
		MaxRetries:        v.GetInt("inference.max_retries"),
		TimeoutSecs:       v.GetInt("inference.timeout_secs"),
		BackoffBaseMS:     v.GetInt("inference.backoff_base_ms"),
		RequestsPerMinute: v.GetInt("inference.requests_per_minute"),
		Primary:           providerConfig(v, "inference.primary"),
		Secondary:         providerConfig(v, "inference.secondary"),
		Tertiary:          providerConfig(v, "inference.tertiary"),
	}
	cfg.Pipeline = PipelineConfig{
		MinTextChars:      v.GetInt("pipeline.min_text_chars"),
		DPI:               v.GetInt("pipeline.dpi"),
		MaxImageDimension: v.GetInt("pipeline.max_image_dimension"),
		JPEGQuality:       v.GetInt("pipeline.jpeg_quality"),
		MaxPagesPerCall:   v.GetInt("pipeline.max_pages_per_call"),
		BatchSize:         v.GetInt("pipeline.batch_size"),
		MinConfidence:     v.GetFloat64("pipeline.min_confidence"),
		Concurrency:       v.GetInt("pipeline.concurrency"),
		PromptsFile:       v.GetString("pipeline.prompts_file"),
	}
	cfg.Tools = ToolsConfig{
		PDFToText:     v.GetString("tools.pdftotext"),
		PDFToPPM:      v.GetString("tools.pdftoppm"),
		PDFInfo:       v.GetString("tools.pdfinfo"),
		Tesseract:     v.GetString("tools.tesseract"),
		TesseractLang: v.GetString("tools.tesseract_lang"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Inference defaults
	v.SetDefault("inference.temperature", 0.1)
	v.SetDefault("inference.max_tokens", 8192)
	v.SetDefault("inference.max_retries", 3)
	v.SetDefault("inference.timeout_secs", 120)
	v.SetDefault("inference.backoff_base_ms", 1000)
	v.SetDefault("inference.requests_per_minute", 0)
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("inference."+tier+".provider", "")
		v.SetDefault("inference."+tier+".api_key", "")
		v.SetDefault("inference."+tier+".default_model", "")
		v.SetDefault("inference."+tier+".max_retries", 3)
		v.SetDefault("inference."+tier+".timeout_secs", 120)
	}
	v.SetDefault("inference.primary.provider", "claude")

	// Pipeline defaults
	v.SetDefault("pipeline.min_text_chars", 100)
	v.SetDefault("pipeline.dpi", 200)
	v.SetDefault("pipeline.max_image_dimension", 2048)
	v.SetDefault("pipeline.jpeg_quality", 85)
	v.SetDefault("pipeline.max_pages_per_call", 10)
	v.SetDefault("pipeline.batch_size", 5)
	v.SetDefault("pipeline.min_confidence", 0.7)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.prompts_file", "")

	// External tools
	v.SetDefault("tools.pdftotext", "pdftotext")
	v.SetDefault("tools.pdftoppm", "pdftoppm")
	v.SetDefault("tools.pdfinfo", "pdfinfo")
	v.SetDefault("tools.tesseract", "tesseract")
	v.SetDefault("tools.tesseract_lang", "por")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
}

func providerConfig(v *viper.Viper, prefix string) ProviderConfig {
	return ProviderConfig{
		Provider:     v.GetString(prefix + ".provider"),
		APIKey:       v.GetString(prefix + ".api_key"),
		DefaultModel: v.GetString(prefix + ".default_model"),
		MaxRetries:   v.GetInt(prefix + ".max_retries"),
		TimeoutSecs:  v.GetInt(prefix + ".timeout_secs"),
	}
}

// Validate rejects pipeline settings the orchestrator cannot honor.
func (c *Config) Validate() error {
	p := c.Pipeline
	switch {
	case p.BatchSize < 1:
		return errors.Newf("pipeline.batch_size must be at least 1, got %d", p.BatchSize)
	case p.MaxPagesPerCall < p.BatchSize:
		return errors.Newf("pipeline.batch_size (%d) must not exceed pipeline.max_pages_per_call (%d)", p.BatchSize, p.MaxPagesPerCall)
	case p.MinConfidence < 0 || p.MinConfidence > 1:
		return errors.Newf("pipeline.min_confidence must be within [0,1], got %v", p.MinConfidence)
	case p.JPEGQuality < 1 || p.JPEGQuality > 100:
		return errors.Newf("pipeline.jpeg_quality must be within [1,100], got %d", p.JPEGQuality)
	case p.MaxImageDimension < 1:
		return errors.Newf("pipeline.max_image_dimension must be positive, got %d", p.MaxImageDimension)
	case c.Inference.MaxRetries < 0:
		return errors.Newf("inference.max_retries must not be negative, got %d", c.Inference.MaxRetries)
	}
	return nil
}
