package cli

import (
	"github.com/spf13/cobra"
)

// NewRevalidateCommand creates the revalidate command.
func NewRevalidateCommand(rootOpts *RootOptions) *cobra.Command {
	var sheetID string

	cmd := &cobra.Command{
		Use:           "revalidate",
		Short:         "Re-run staging validation over a sheet",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.ingestion().Revalidate(ctx, sheetID)
			if err != nil {
				return WrapExitError(ExitFailure, "revalidation failed", err)
			}
			return printSummary(cmd, summary)
		},
	}

	cmd.Flags().StringVar(&sheetID, "sheet", "", "sheet id")
	_ = cmd.MarkFlagRequired("sheet")

	return cmd
}
