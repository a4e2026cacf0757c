package main

import (
	"github.com/spf13/cobra"

	"silkstaff/internal/jobs"
	"silkstaff/internal/notifications"
	"silkstaff/internal/tableapi"
)

func newShipmentCommand(ctx *commandContext) *cobra.Command {
	var initial int

	cmd := &cobra.Command{
		Use:   "shipment",
		Short: "Move your new releases to moderation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			job := jobs.NewShipment(cfg,
				tableapi.NewFromConfig(cfg, logger),
				jobs.WithLogger(logger),
				jobs.WithNotifier(notifications.NewService(cfg)),
				jobs.WithReport(cmd.OutOrStdout()),
			)
			_, err = job.Execute(ctx.runContext(cmd.Context()), jobs.ShipmentOptions{
				StartIndex: optionalInt(cmd, "initial-iteration", initial),
			})
			return err
		},
	}

	cmd.Flags().IntVar(&initial, "initial-iteration", 0, "Zero-based row index to start from (overrides the checkpoint)")
	return cmd
}
