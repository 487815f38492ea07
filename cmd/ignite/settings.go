package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ignite/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	get := &cobra.Command{
		Use:       "get [key]",
		Short:     "Print one setting, or all settings as JSON",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			snap := store.Snapshot()
			if len(args) == 0 {
				return printJSON(cmd, snap)
			}
			value, err := snap.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting (" + strings.Join(config.Keys(), ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := config.ParseUpdate(args[0], args[1])
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			if _, err := store.Apply(u); err != nil {
				return err
			}
			value, _ := store.Snapshot().Get(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], value)
			return nil
		},
	}

	cmd.AddCommand(get, set, newAppsCmd())
	return cmd
}

func newAppsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "List the apps launched on power connect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			apps := store.TargetApps()
			if len(apps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No apps configured")
				return nil
			}
			for i, app := range apps {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", i, app.Package, app.Label)
			}
			return nil
		},
	}

	var label string
	add := &cobra.Command{
		Use:   "add <package>",
		Short: "Append an app to the launch list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			app := config.TargetApp{Package: args[0], Label: label}
			if app.Label == "" {
				app.Label = app.Package
			}
			return store.AddTargetApp(app)
		},
	}
	add.Flags().StringVar(&label, "label", "", "display name (default: the package)")

	remove := &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the launch list entry at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			return store.RemoveTargetApp(index)
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
