package main

import (
	"time"

	"github.com/spf13/cobra"

	"silkstaff/internal/jobs"
	"silkstaff/internal/notifications"
	"silkstaff/internal/tableapi"
	"silkstaff/internal/upload"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var excelPath string
	var mediaDir string
	var initial int
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload releases, tracks, and covers from a spreadsheet",
		Long: "Read releases from the spreadsheet, upload their audio and covers, " +
			"and create one table row per release. Interrupted runs resume at the " +
			"first release that did not complete.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, err := upload.OpenStore(cfg.Upload.StorePath)
			if err != nil {
				return err
			}
			defer store.Close()

			opts := jobs.ReleaseUploadOptions{
				ExcelPath:  excelPath,
				MediaDir:   mediaDir,
				StartIndex: optionalInt(cmd, "initial-iteration", initial),
			}
			if cmd.Flags().Changed("interval") {
				opts.Interval = &interval
			}

			job := jobs.NewReleaseUpload(cfg,
				tableapi.NewFromConfig(cfg, logger),
				upload.NewClientFromConfig(cfg, store, logger),
				jobs.WithLogger(logger),
				jobs.WithNotifier(notifications.NewService(cfg)),
				jobs.WithReport(cmd.OutOrStdout()),
			)
			_, err = job.Execute(ctx.runContext(cmd.Context()), opts)
			return err
		},
	}

	cmd.Flags().StringVar(&excelPath, "excel", "", "Spreadsheet with the release catalogue")
	cmd.Flags().StringVar(&mediaDir, "media-dir", "", "Directory holding audio and cover files")
	cmd.Flags().IntVar(&initial, "initial-iteration", 0, "Zero-based release index to start from (overrides the checkpoint)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Pause between releases (overrides release_upload.interval_ms)")

	return cmd
}
