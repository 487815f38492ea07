package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"ignite/internal/config"
	"ignite/internal/routine"
)

// registerRoutineTools registers the manual trigger and countdown tools
func (s *MCPServer) registerRoutineTools() {
	// launch_apps - Launch the configured apps
	s.server.AddTool(
		mcp.NewTool("launch_apps",
			mcp.WithDescription("Launch the configured apps in order, 2 seconds apart. Pass packages to launch a specific list instead."),
			mcp.WithString("packages",
				mcp.Description("Comma-separated package names (optional, defaults to the configured list)"),
			),
		),
		s.handleLaunchApps,
	)

	// close_all_apps - Close every app from recents
	s.server.AddTool(
		mcp.NewTool("close_all_apps",
			mcp.WithDescription("Open recent apps, tap 'Close all' and return home"),
		),
		s.handleCloseAllApps,
	)

	// shutdown_now - Power off the head unit
	s.server.AddTool(
		mcp.NewTool("shutdown_now",
			mcp.WithDescription("Open the power dialog and tap power off. The device will shut down."),
			mcp.WithBoolean("confirm",
				mcp.Description("Set to true to skip the interactive confirmation"),
			),
		),
		s.handleShutdownNow,
	)

	// toggle_airplane_mode - Tap the airplane tile in quick settings
	s.server.AddTool(
		mcp.NewTool("toggle_airplane_mode",
			mcp.WithDescription("Open quick settings and tap the airplane mode tile, scrolling up to 3 times to find it"),
		),
		s.handleToggleAirplane,
	)

	// start_countdown - Start the disconnect countdown
	s.server.AddTool(
		mcp.NewTool("start_countdown",
			mcp.WithDescription("Start the two-stage countdown as if power was disconnected. Omitted values use the settings."),
			mcp.WithNumber("app_close_delay_seconds",
				mcp.Description("Seconds until all apps are closed; 0 closes them right away"),
			),
			mcp.WithNumber("final_action_delay_minutes",
				mcp.Description("Minutes until the final action"),
			),
			mcp.WithString("action_type",
				mcp.Description("Final action: shutdown, airplane or none"),
			),
		),
		s.handleStartCountdown,
	)

	// cancel_countdown - Cancel the pending countdown
	s.server.AddTool(
		mcp.NewTool("cancel_countdown",
			mcp.WithDescription("Cancel the pending countdown, if any"),
		),
		s.handleCancelCountdown,
	)

	// routine_status - Report monitor and countdown state
	s.server.AddTool(
		mcp.NewTool("routine_status",
			mcp.WithDescription("Get power monitoring state, the last power event and the pending countdown"),
		),
		s.handleRoutineStatus,
	)
}

// Tool handlers

func (s *MCPServer) handleLaunchApps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	cmd := routine.LaunchApps{}
	if raw, ok := args["packages"].(string); ok && strings.TrimSpace(raw) != "" {
		for _, pkg := range strings.Split(raw, ",") {
			if pkg = strings.TrimSpace(pkg); pkg != "" {
				cmd.Apps = append(cmd.Apps, config.TargetApp{Package: pkg, Label: pkg})
			}
		}
		if len(cmd.Apps) == 0 {
			return nil, fmt.Errorf("packages contains no package names")
		}
	}

	return s.dispatch(ctx, cmd)
}

func (s *MCPServer) handleCloseAllApps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, routine.CloseAllApps{})
}

func (s *MCPServer) handleShutdownNow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	if confirmed, _ := args["confirm"].(bool); !confirmed {
		ok, err := s.requestConfirmation(ctx, "Shut down head unit",
			"The device will power off and stay off until it is started again.")
		if err != nil {
			return nil, err
		}
		if !ok {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Shutdown cancelled by user"),
				},
			}, nil
		}
	}

	return s.dispatch(ctx, routine.ShutdownNow{})
}

func (s *MCPServer) handleToggleAirplane(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, routine.ToggleAirplane{})
}

func (s *MCPServer) handleStartCountdown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	cmd := routine.StartCountdown{}
	if v, ok := args["app_close_delay_seconds"].(float64); ok {
		d, err := durationArg("app_close_delay_seconds", v, time.Second)
		if err != nil {
			return nil, err
		}
		cmd.AppCloseDelay = &d
	}
	if v, ok := args["final_action_delay_minutes"].(float64); ok {
		d, err := durationArg("final_action_delay_minutes", v, time.Minute)
		if err != nil {
			return nil, err
		}
		cmd.FinalActionDelay = &d
	}
	if v, ok := args["action_type"].(string); ok && v != "" {
		action, err := config.ValidateActionType(v)
		if err != nil {
			return nil, err
		}
		cmd.Action = action
	}

	return s.dispatch(ctx, cmd)
}

func (s *MCPServer) handleCancelCountdown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, routine.CancelCountdown{})
}

func (s *MCPServer) handleRoutineStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := s.app.Status()

	jsonData, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize status: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(jsonData)),
		},
	}, nil
}

// durationArg converts a tool argument counted in unit to a Duration
func durationArg(name string, v float64, unit time.Duration) (time.Duration, error) {
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	if v*float64(unit) >= math.MaxInt64 {
		return 0, fmt.Errorf("%s: %w", name, config.ErrDelayOutOfRange)
	}
	return time.Duration(v * float64(unit)), nil
}

// dispatch runs cmd on the daemon and renders its result
func (s *MCPServer) dispatch(ctx context.Context, cmd routine.Command) (*mcp.CallToolResult, error) {
	name := routine.CommandName(cmd)
	res, err := s.app.Dispatch(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}

	text := fmt.Sprintf("%s: %s", name, res.Outcome)
	if res.Detail != "" {
		text += fmt.Sprintf(" (%s)", res.Detail)
	}
	if res.Countdown != nil {
		text += fmt.Sprintf("\nApps close at %s", res.Countdown.AppCloseAt.Format(time.RFC3339))
		if res.Countdown.FinalAction.Valid() {
			text += fmt.Sprintf("\nFinal action %s at %s", res.Countdown.FinalKind, res.Countdown.FinalActionAt.Format(time.RFC3339))
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}, nil
}
