package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPathsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show resolved directories and state files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			configPath := ctx.configPath
			if !ctx.configExists {
				configPath += " (not found, using defaults)"
			}
			pairs := [][2]string{
				{"Config file", configPath},
				{"Mode", cfg.Paths.Mode},
				{"Project root", cfg.Paths.ProjectRoot},
				{"Data dir", cfg.Paths.DataDir},
				{"Log dir", cfg.Paths.LogDir},
				{"Results dir", cfg.Paths.ResultsDir},
				{"Env file", cfg.Paths.EnvFile},
				{"Upload checkpoint", cfg.ReleaseUpload.CheckpointPath},
				{"Shipment checkpoint", cfg.Shipment.CheckpointPath},
				{"Upload store", cfg.Upload.StorePath},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues(pairs))
			return nil
		},
	}
}
