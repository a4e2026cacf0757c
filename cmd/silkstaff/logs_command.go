package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"silkstaff/internal/logging"
	"silkstaff/internal/logs"
	"silkstaff/internal/services"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		day    string
		job    string
		runID  string
		level  string
		raw    bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daily JSON log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			date := time.Now()
			if strings.TrimSpace(day) != "" {
				date, err = time.ParseInLocation(time.DateOnly, day, time.Local)
				if err != nil {
					return services.Wrap(services.ErrValidation, "logs", "parse date", "expected YYYY-MM-DD", err)
				}
			}
			filter := logs.Filter{Job: job, RunID: runID, MinLevel: slog.LevelDebug}
			if strings.TrimSpace(level) != "" {
				if err := filter.MinLevel.UnmarshalText([]byte(level)); err != nil {
					return services.Wrap(services.ErrValidation, "logs", "parse level", level, err)
				}
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName(date))
			out := cmd.OutOrStdout()

			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			printLogLines(out, result.Lines, filter, raw)
			offset := result.Offset
			for follow {
				result, err = logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: offset, Wait: time.Minute})
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				printLogLines(out, result.Lines, filter, raw)
				offset = result.Offset
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to read")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&day, "date", "", "Log day to read (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&job, "job", "", "Only lines from this job (upload or shipment)")
	cmd.Flags().StringVar(&runID, "run", "", "Only lines from runs whose id starts with this prefix")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the JSON lines unchanged")
	return cmd
}

func printLogLines(w io.Writer, lines []string, filter logs.Filter, raw bool) {
	for _, line := range lines {
		entry, ok := logs.ParseEntry(line)
		if !ok {
			continue
		}
		if !filter.Match(entry) {
			continue
		}
		if raw {
			fmt.Fprintln(w, entry.Raw)
			continue
		}
		fmt.Fprintln(w, logs.Format(entry))
	}
}
