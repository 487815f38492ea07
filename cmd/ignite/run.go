package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ignite/internal/app"
	"ignite/internal/logger"
	"ignite/internal/mcp"
)

func newRunCmd() *cobra.Command {
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the charger and run the connect and disconnect routines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := appOptions()
			opts.PollInterval = poll
			opts.WatchConfig = true
			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			if err := a.Startup(ctx); err != nil {
				return err
			}
			if err := a.StartMonitoring(); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("cli").Msg("Signal received, stopping")
			return nil
		},
	}
	cmd.Flags().DurationVar(&poll, "poll", 0, "battery poll interval (default 5s)")
	return cmd
}

func newMCPCmd() *cobra.Command {
	var monitor bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the routine as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			opts := appOptions()
			opts.WatchConfig = true
			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			if err := a.Startup(ctx); err != nil {
				return err
			}
			if monitor {
				if err := a.StartMonitoring(); err != nil {
					return err
				}
			}

			return mcp.NewMCPServer(a).Start(ctx)
		},
	}
	cmd.Flags().BoolVar(&monitor, "monitor", false, "also react to charger events while serving")
	return cmd
}
