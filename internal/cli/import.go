package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rpattn/sheetfed/internal/ingestion"
)

type importOptions struct {
	workbookID string
	sheetSlug  string
	headerRow  int
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:           "import <file>",
		Short:         "Import a CSV or XLSX file into a staging sheet",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.workbookID, "workbook", "", "workbook id holding the staging sheet")
	cmd.Flags().StringVar(&opts.sheetSlug, "sheet", "all_data", "staging sheet slug")
	cmd.Flags().IntVar(&opts.headerRow, "header-row", -1, "0-based header row index (auto-detected when negative)")
	_ = cmd.MarkFlagRequired("workbook")

	return cmd
}

func runImport(rootOpts *RootOptions, opts *importOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()

	file, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "open file", err)
	}
	defer file.Close()

	a, err := openApp(ctx, rootOpts)
	if err != nil {
		return err
	}
	defer a.Close()

	req := ingestion.ImportRequest{
		WorkbookID: opts.workbookID,
		SheetSlug:  opts.sheetSlug,
		FileName:   filepath.Base(path),
		Data:       file,
	}
	if opts.headerRow >= 0 {
		req.HeaderRowIndex = &opts.headerRow
	}

	summary, err := a.ingestion().Import(ctx, req)
	if err != nil {
		return WrapExitError(ExitFailure, "import failed", err)
	}
	return printSummary(cmd, summary)
}

func printSummary(cmd *cobra.Command, summary ingestion.Summary) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
