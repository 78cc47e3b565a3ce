package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpattn/sheetfed/internal/blueprint"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the blueprint without touching the database",
		Long: `Load the blueprint file and report every structural problem:
missing slugs, duplicate keys, unknown source sheets, broken unpivot groups
and invalid dedupe configs.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	path := opts.cfg.Federation.Blueprint

	bp, err := blueprint.LoadFile(path)
	if err != nil {
		var validationErr *blueprint.ValidationError
		if !errors.As(err, &validationErr) {
			fmt.Fprintf(out, "✗ %v\n", err)
			return WrapExitError(ExitCommandError, "load blueprint", err)
		}

		fmt.Fprintf(out, "✗ %s is invalid\n\n", path)
		for _, problem := range validationErr.Problems {
			fmt.Fprintf(out, "  %s\n", problem)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(validationErr.Problems)))
	}

	fmt.Fprintf(out, "✓ %s is valid: %d target sheet(s) fed by %v\n", path, len(bp.Sheets), blueprint.SourceSlugs(bp))
	return nil
}
