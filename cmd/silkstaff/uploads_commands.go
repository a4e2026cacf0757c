package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"silkstaff/internal/upload"
)

func newUploadsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "Manage remembered in-flight media uploads",
	}
	cmd.AddCommand(newUploadsListCommand(ctx))
	cmd.AddCommand(newUploadsPruneCommand(ctx))
	return cmd
}

func openUploadStore(ctx *commandContext) (*upload.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return upload.OpenStore(cfg.Upload.StorePath)
}

func newUploadsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploads that can be resumed",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openUploadStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No uploads in progress")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					filepath.Base(entry.LocalPath),
					humanize.IBytes(uint64(max(entry.Size, 0))),
					humanize.Time(entry.UpdatedAt),
					entry.UploadURL,
				})
			}
			columns := []column{left("File"), right("Size"), left("Updated"), left("Upload URL")}
			fmt.Fprintln(out, renderTable(columns, rows))
			return nil
		},
	}
}

func newUploadsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Forget uploads the server has most likely expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openUploadStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.PruneBefore(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d upload(s) older than %s\n", removed, olderThan)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Age after which an entry is forgotten")
	return cmd
}
