package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"ignite/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var operation string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent automation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.history
			if path == "" {
				path = history.DefaultPath()
			}
			store, err := history.Open(filepath.Clean(path))
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), operation, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintln(cmd.OutOrStdout(), formatRun(r))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "only show this operation, e.g. shutdown_system")
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "maximum runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func formatRun(r history.Run) string {
	line := fmt.Sprintf("%s  %-22s %-8s %-18s %s",
		r.StartedAt.Local().Format(time.DateTime), r.Operation, r.Trigger, r.Outcome,
		r.Duration().Round(100*time.Millisecond))
	if r.Detail != "" {
		line += "  " + r.Detail
	}
	return line
}
