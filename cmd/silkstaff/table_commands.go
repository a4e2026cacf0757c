package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"silkstaff/internal/tableapi"
)

func newTableCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Query the remote table service",
	}
	cmd.AddCommand(newTableCountCommand(ctx))
	cmd.AddCommand(newTableRowsCommand(ctx))
	cmd.AddCommand(newTableColumnsCommand(ctx))
	cmd.AddCommand(newTableDeleteCommand(ctx))
	return cmd
}

type rowFilterFlags struct {
	status string
	mine   bool
}

func (f *rowFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "", "Only rows whose data.status equals this value")
	cmd.Flags().BoolVar(&f.mine, "mine", false, "Only rows owned by api.user_id")
}

func (f *rowFilterFlags) build(ctx *commandContext) (tableapi.Filter, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	var parts []tableapi.Filter
	if f.mine {
		parts = append(parts, tableapi.Eq("user", cfg.API.UserID))
	}
	if status := strings.TrimSpace(f.status); status != "" {
		parts = append(parts, tableapi.Eq("data.status", status))
	}
	if len(parts) == 0 {
		return tableapi.Filter{}, nil
	}
	return tableapi.And(parts...), nil
}

func newTableCountCommand(ctx *commandContext) *cobra.Command {
	var filters rowFilterFlags
	cmd := &cobra.Command{
		Use:   "count <table>",
		Short: "Count rows in a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.tableClient()
			if err != nil {
				return err
			}
			filter, err := filters.build(ctx)
			if err != nil {
				return err
			}
			count, err := client.Count(ctx.runContext(cmd.Context()), args[0], filter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", count)
			return nil
		},
	}
	filters.register(cmd)
	return cmd
}

func newTableRowsCommand(ctx *commandContext) *cobra.Command {
	var filters rowFilterFlags
	var page int
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "rows <table>",
		Short: "List one page of rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.tableClient()
			if err != nil {
				return err
			}
			filter, err := filters.build(ctx)
			if err != nil {
				return err
			}
			rows, err := client.Rows(ctx.runContext(cmd.Context()), args[0], tableapi.Query{
				Page:   page,
				Limit:  limit,
				Filter: filter,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No rows")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, row := range rows {
				table = append(table, []string{row.ID, row.User, row.Status(), row.Name()})
			}
			fmt.Fprintln(out, renderTable([]column{left("ID"), left("User"), left("Status"), left("Name")}, table))
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page number")
	cmd.Flags().IntVar(&limit, "limit", 50, "Rows per page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rows as returned by the service")
	return cmd
}

func newTableColumnsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table>",
		Short: "Print column definitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.tableClient()
			if err != nil {
				return err
			}
			raw, err := client.Columns(ctx.runContext(cmd.Context()), args[0])
			if err != nil {
				return err
			}
			var pretty any
			if err := json.Unmarshal(raw, &pretty); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return nil
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(pretty)
		},
	}
}

func newTableDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete one row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.tableClient()
			if err != nil {
				return err
			}
			if err := client.Delete(ctx.runContext(cmd.Context()), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from %s\n", args[1], args[0])
			return nil
		},
	}
}
