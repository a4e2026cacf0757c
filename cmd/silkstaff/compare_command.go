package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"silkstaff/internal/jobs"
)

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var excelPath string
	var mediaDir string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Check spreadsheet file names against the media directory",
		Long: "Compare the track and cover file names in the spreadsheet with the files " +
			"in the media directory and save every mismatch, with its closest file, " +
			"to a workbook in the results directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			job := jobs.NewMediaComparison(cfg,
				jobs.WithLogger(logger),
				jobs.WithReport(cmd.OutOrStdout()),
			)
			result, err := job.Execute(ctx.runContext(cmd.Context()), jobs.CompareOptions{
				ExcelPath: excelPath,
				MediaDir:  mediaDir,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if n := len(result.Mismatches); n > 0 {
				fmt.Fprintf(out, "Found %d files with differences\n", n)
			} else {
				fmt.Fprintln(out, "All files match the spreadsheet")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&excelPath, "excel", "", "Spreadsheet with the release catalogue")
	cmd.Flags().StringVar(&mediaDir, "media-dir", "", "Directory holding audio and cover files")

	return cmd
}
