package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/sheetfed/internal/config"
	"github.com/rpattn/sheetfed/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigDir string
	Blueprint string
	LogLevel  string
	LogFormat string

	cfg    config.Config
	logger *zap.SugaredLogger
}

// NewRootCommand creates the root command for the sheetfed CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sheetfed",
		Short: "sheetfed - spreadsheet record federation",
		Long:  "Federates staging sheet records into target workbooks described by a YAML blueprint.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "directory holding sheetfed.yaml")
	cmd.PersistentFlags().StringVar(&opts.Blueprint, "blueprint", "", "blueprint file (overrides federation.blueprint)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (console|json)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewFederateCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewRevalidateCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func (o *RootOptions) load() error {
	cfg, err := config.Load(o.ConfigDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if o.Blueprint != "" {
		cfg.Federation.Blueprint = o.Blueprint
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Logging.Format = o.LogFormat
	}

	format := logging.Format(cfg.Logging.Format)
	if format != logging.FormatConsole && format != logging.FormatJSON {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid log format %q: must be console or json", cfg.Logging.Format))
	}

	o.cfg = cfg
	o.logger = logging.New(cfg.Logging.Level, format)
	if cfg.File != "" {
		o.logger.Debugw("loaded config", "file", cfg.File)
	} else {
		o.logger.Debug("no sheetfed.yaml found, using defaults and env vars")
	}
	return nil
}
