package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rpattn/sheetfed/internal/jobs"
	"github.com/rpattn/sheetfed/internal/listener"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Listen for job events and staging uploads",
		Long: `Start the HTTP listener. POST /events accepts job:ready events and launches
matching federation jobs in the background; POST /import and /revalidate
drive the staging ingestion.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := rootOpts.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			operation, err := cfg.Federation.OperationMatcher()
			if err != nil {
				return WrapExitError(ExitCommandError, "operation pattern", err)
			}

			a, err := openApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			federator, err := a.federator(rootOpts)
			if err != nil {
				return WrapExitError(ExitCommandError, "build federator", err)
			}
			runner := jobs.NewRunner(federator, a.jobs,
				jobs.WithJobTimeout(cfg.Federation.JobTimeout),
				jobs.WithRunnerLogger(a.logger),
			)
			defer runner.Wait()

			server := listener.NewServer(listener.Options{
				Addr:           cfg.Server.Addr,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Operation:      operation,
				Launcher:       runner,
				Importer:       a.ingestion(),
				Logger:         a.logger,
			})
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}
