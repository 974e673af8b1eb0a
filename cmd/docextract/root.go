package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "docextract",
		Short: "Classify, extract and validate fiscal documents",
		Long: `docextract turns PDFs, scans and NF-e XML files into typed, validated
records: product invoices, service invoices and financial statements.

Examples:
  docextract process nota.pdf extrato.pdf --format csv --out results.csv
  docextract process s3://docs/2024/nota.pdf --out s3://exports/run.jsonl
  docextract fallback nota.xml
  docextract validate record.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return opts.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(
		newProcessCmd(opts),
		newFallbackCmd(opts),
		newValidateCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	l, err := logger.New(cfg.Log)
	if err != nil {
		return errors.Wrap(err, "initializing logger")
	}
	o.cfg = cfg
	o.logger = l
	return nil
}
