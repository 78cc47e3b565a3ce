package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpattn/sheetfed/internal/domain"
)

type federateOptions struct {
	workbookID string
	spaceID    string
	operation  string
}

// NewFederateCommand creates the federate command.
func NewFederateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &federateOptions{}

	cmd := &cobra.Command{
		Use:   "federate",
		Short: "Run a federation job synchronously",
		Long: `Create a federation job for the given space and run it in the foreground.
The target workbook is rebuilt from the blueprint and filled from every
recognized source sheet of the source workbook.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFederate(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.workbookID, "workbook", "", "source workbook id")
	cmd.Flags().StringVar(&opts.spaceID, "space", "", "space id")
	cmd.Flags().StringVar(&opts.operation, "operation", "federate", "job operation name")
	_ = cmd.MarkFlagRequired("workbook")
	_ = cmd.MarkFlagRequired("space")

	return cmd
}

func runFederate(rootOpts *RootOptions, opts *federateOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, rootOpts)
	if err != nil {
		return err
	}
	defer a.Close()

	federator, err := a.federator(rootOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "build federator", err)
	}

	job, err := a.jobs.Create(ctx, domain.Job{
		Operation:  opts.operation,
		SpaceID:    opts.spaceID,
		WorkbookID: opts.workbookID,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "create job", err)
	}

	runErr := federator.Run(ctx, domain.JobContext{
		JobID:      job.ID,
		WorkbookID: opts.workbookID,
		SpaceID:    opts.spaceID,
	})

	final, err := a.jobs.GetByID(ctx, job.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "load job", err)
	}
	outcome := ""
	if final.OutcomeMessage != nil {
		outcome = *final.OutcomeMessage
	}
	fmt.Fprintf(cmd.OutOrStdout(), "job %s %s (%d%%): %s\n", final.ID, final.Status, final.Progress, outcome)

	if runErr != nil {
		return WrapExitError(ExitFailure, "federation failed", runErr)
	}
	return nil
}
