package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"silkstaff/internal/checkpoint"
	"silkstaff/internal/config"
	"silkstaff/internal/jobs"
	"silkstaff/internal/services"
)

func newCheckpointCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or reset job checkpoints",
	}
	cmd.AddCommand(newCheckpointShowCommand(ctx))
	cmd.AddCommand(newCheckpointClearCommand(ctx))
	return cmd
}

func checkpointPaths(cfg *config.Config, job string) ([][2]string, error) {
	all := [][2]string{
		{jobs.JobUpload, cfg.ReleaseUpload.CheckpointPath},
		{jobs.JobShipment, cfg.Shipment.CheckpointPath},
	}
	job = strings.ToLower(strings.TrimSpace(job))
	if job == "" {
		return all, nil
	}
	for _, entry := range all {
		if entry[0] == job {
			return [][2]string{entry}, nil
		}
	}
	return nil, services.Wrap(services.ErrValidation, "checkpoint", "select job",
		fmt.Sprintf("unknown job %q (expected %s or %s)", job, jobs.JobUpload, jobs.JobShipment), nil)
}

func newCheckpointShowCommand(ctx *commandContext) *cobra.Command {
	var job string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show saved checkpoint state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			targets, err := checkpointPaths(cfg, job)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(targets))
			for _, target := range targets {
				cp, err := checkpoint.NewStore(target[1]).Load()
				if err != nil {
					rows = append(rows, []string{target[0], "corrupt", "-", "-", "-", "-", target[1]})
					continue
				}
				rows = append(rows, checkpointRow(target[0], target[1], cp))
			}

			columns := []column{
				left("Job"), left("State"), right("Last Done"), right("Total"), right("Next"), left("Updated"), left("Path"),
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(columns, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&job, "job", "", "Limit to one job (upload or shipment)")
	return cmd
}

func checkpointRow(job, path string, cp *checkpoint.Checkpoint) []string {
	if cp == nil {
		return []string{job, "none", "-", "-", "-", "-", path}
	}
	updated := "-"
	if !cp.Timestamp.IsZero() {
		updated = cp.Timestamp.Local().Format(time.DateTime)
	}
	if !cp.Interrupted {
		return []string{job, "complete", "-", "-", "-", updated, path}
	}
	return []string{
		job,
		"interrupted",
		strconv.Itoa(cp.LastCompleted),
		strconv.Itoa(cp.Total),
		strconv.Itoa(checkpoint.ResolveStartIndex(cp, nil)),
		updated,
		path,
	}
}

func newCheckpointClearCommand(ctx *commandContext) *cobra.Command {
	var job string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Mark checkpoints complete so the next run starts over",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			targets, err := checkpointPaths(cfg, job)
			if err != nil {
				return err
			}
			for _, target := range targets {
				store := checkpoint.NewStore(target[1])
				if err := store.Lock(); err != nil {
					return err
				}
				err := store.Clear()
				if unlockErr := store.Unlock(); err == nil {
					err = unlockErr
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s checkpoint (%s)\n", target[0], target[1])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&job, "job", "", "Limit to one job (upload or shipment)")
	return cmd
}
