package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ignite/internal/app"
	"ignite/internal/config"
	"ignite/internal/routine"
)

func newTriggerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Run one routine step now and wait until it finishes",
	}

	launch := &cobra.Command{
		Use:   "launch [package...]",
		Short: "Launch the given packages, or the configured list",
		RunE: func(cmd *cobra.Command, args []string) error {
			var apps []config.TargetApp
			for _, pkg := range args {
				apps = append(apps, config.TargetApp{Package: pkg, Label: pkg})
			}
			return trigger(cmd, routine.LaunchApps{Apps: apps})
		},
	}

	closeAll := &cobra.Command{
		Use:   "close-all",
		Short: "Open recents and press Close all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return trigger(cmd, routine.CloseAllApps{})
		},
	}

	var yes bool
	shutdown := &cobra.Command{
		Use:   "shutdown",
		Short: "Power the head unit off through the power menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("shutdown needs --yes")
			}
			return trigger(cmd, routine.ShutdownNow{})
		},
	}
	shutdown.Flags().BoolVar(&yes, "yes", false, "confirm the shutdown")

	airplane := &cobra.Command{
		Use:   "airplane",
		Short: "Toggle airplane mode from quick settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return trigger(cmd, routine.ToggleAirplane{})
		},
	}

	var appClose, final time.Duration
	var action string
	countdown := &cobra.Command{
		Use:   "countdown",
		Short: "Run the disconnect countdown in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var c routine.StartCountdown
			if cmd.Flags().Changed("app-close") {
				c.AppCloseDelay = routine.Delay(appClose)
			}
			if cmd.Flags().Changed("final") {
				c.FinalActionDelay = routine.Delay(final)
			}
			if action != "" {
				kind, err := config.ValidateActionType(action)
				if err != nil {
					return err
				}
				c.Action = kind
			}
			return trigger(cmd, c)
		},
	}
	countdown.Flags().DurationVar(&appClose, "app-close", 0, "delay before closing apps (default: configured)")
	countdown.Flags().DurationVar(&final, "final", 0, "delay before the final action (default: configured)")
	countdown.Flags().StringVar(&action, "action", "", "final action: shutdown, airplane or none (default: configured)")

	cmd.AddCommand(launch, closeAll, shutdown, airplane, countdown)
	return cmd
}

// trigger runs c on a private loop in this process
func trigger(cmd *cobra.Command, c routine.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(appOptions())
	if err != nil {
		return err
	}
	defer a.Shutdown()

	res, err := a.Trigger(ctx, c)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatResult(res))
	return nil
}

func formatResult(r routine.Result) string {
	out := r.Command + ": " + r.Outcome
	if r.Detail != "" {
		out += " (" + r.Detail + ")"
	}
	return out
}
