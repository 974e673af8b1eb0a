package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"fiscaldoc/internal/classifier"
	"fiscaldoc/internal/config"
	"fiscaldoc/internal/extractor"
	"fiscaldoc/internal/inference"
	"fiscaldoc/internal/inference/claude"
	"fiscaldoc/internal/inference/gemini"
	"fiscaldoc/internal/inference/openai"
	"fiscaldoc/internal/multimodal"
	"fiscaldoc/internal/pipeline"
	"fiscaldoc/internal/port"
	"fiscaldoc/internal/prompt"
	"fiscaldoc/internal/source"
	s3storage "fiscaldoc/internal/storage/s3"
	"fiscaldoc/internal/strategy"
	"fiscaldoc/internal/validator"
)

// maxLocalFileBytes caps local source files at the same size as S3 objects.
const maxLocalFileBytes = s3storage.MaxObjectBytes

// app holds the wired pipeline for one CLI invocation.
type app struct {
	runner  *pipeline.Runner
	chain   *strategy.Chain
	loader  *source.Loader
	storage port.ObjectStorage
}

func registerProviders() {
	inference.RegisterProvider("claude", func(cfg *config.ProviderConfig) (port.InferenceBackend, error) {
		return claude.NewBackend(cfg), nil
	})
	inference.RegisterProvider("gemini", func(cfg *config.ProviderConfig) (port.InferenceBackend, error) {
		return gemini.NewBackend(cfg), nil
	})
	inference.RegisterProvider("openai", func(cfg *config.ProviderConfig) (port.InferenceBackend, error) {
		return openai.NewBackend(cfg), nil
	})
}

func newApp(ctx context.Context, cfg *config.Config, l *zap.Logger) (*app, error) {
	registerProviders()

	backend, err := inference.NewBackendChain(cfg.Inference.Providers(),
		inference.WithFallbackLogger(l.Named("fallback")))
	if err != nil {
		return nil, errors.Wrap(err, "initializing inference backends")
	}
	gateway := inference.NewGatewayFromConfig(backend, cfg.Inference, l.Named("gateway"))

	prompts, err := prompt.Load(cfg.Pipeline.PromptsFile)
	if err != nil {
		return nil, err
	}

	runner := multimodal.ExecRunner{Logger: l.Named("exec")}
	pdf := multimodal.NewPoppler(runner, cfg.Tools)
	ocr := multimodal.NewTesseract(runner, cfg.Tools)

	orch := pipeline.NewOrchestrator(
		multimodal.NewAdapter(pdf, multimodal.OptionsFromConfig(cfg.Pipeline), l.Named("adapter")),
		classifier.New(gateway, prompts, cfg.Pipeline.MinConfidence, l.Named("classifier")),
		extractor.NewFactory(gateway, prompts, l.Named("extractor")),
		validator.NewEngine(nil),
		pipeline.OptionsFromConfig(cfg.Pipeline),
		l.Named("pipeline"),
	)

	storage, err := s3storage.NewClient(ctx, cfg.S3)
	if err != nil {
		return nil, errors.Wrap(err, "initializing s3 client")
	}

	return &app{
		runner: pipeline.NewRunner(orch, pipeline.RunnerConfig{
			Concurrency: cfg.Pipeline.Concurrency,
		}, l.Named("runner")),
		chain: strategy.NewDefaultChain(strategy.Deps{
			Processor:  orch,
			PDF:        pdf,
			OCR:        ocr,
			Production: cfg.IsProduction(),
		}, l.Named("strategy")),
		loader:  source.NewLoader(storage, maxLocalFileBytes),
		storage: storage,
	}, nil
}
