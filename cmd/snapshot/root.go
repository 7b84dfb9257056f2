package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/worker-sdk/bundle"
	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/improbable"
	"github.com/wippyai/worker-sdk/native/local"
	"github.com/wippyai/worker-sdk/snapshot"
	"github.com/wippyai/worker-sdk/worker"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	reg      *component.Registry
	logger   *zap.Logger
	logLevel string
	bundle   string
	format   string
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "snapshot",
		Short:         "Generate and inspect worker snapshot files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.format, validFormats)
			}
			logger, err := newLogger(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logger
			local.SetLogger(logger.Named("runtime"))
			snapshot.SetLogger(logger.Named("snapshot"))
			worker.SetLogger(logger.Named("worker"))

			reg, err := loadRegistry(opts.bundle)
			if err != nil {
				return err
			}
			opts.reg = reg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.bundle, "bundle", "", "JSON schema bundle with extra components")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "output format (text|json)")

	cmd.AddCommand(newGenerateCommand(opts))
	cmd.AddCommand(newDumpCommand(opts))
	cmd.AddCommand(newBrowseCommand(opts))
	cmd.AddCommand(newConnectCommand(opts))

	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// loadRegistry returns the standard components plus those of the bundle
// at path, if any.
func loadRegistry(path string) (*component.Registry, error) {
	if path == "" {
		return improbable.Registry(), nil
	}
	s, err := bundle.Load(path)
	if err != nil {
		return nil, err
	}
	return s.Registry(improbable.Vtables()...)
}
