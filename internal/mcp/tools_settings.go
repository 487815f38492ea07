package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"ignite/internal/config"
)

// registerSettingsTools registers the settings tools
func (s *MCPServer) registerSettingsTools() {
	// get_settings - Read all settings
	s.server.AddTool(
		mcp.NewTool("get_settings",
			mcp.WithDescription("Get the master switch, delays, final action and launch list"),
		),
		s.handleGetSettings,
	)

	// update_settings - Change scalar settings
	s.server.AddTool(
		mcp.NewTool("update_settings",
			mcp.WithDescription("Change one or more settings. Omitted values are left unchanged."),
			mcp.WithBoolean("master_enabled",
				mcp.Description("React to power events"),
			),
			mcp.WithNumber("app_close_delay_seconds",
				mcp.Description("Seconds after disconnect until apps are closed"),
			),
			mcp.WithNumber("final_action_delay_minutes",
				mcp.Description("Minutes after disconnect until the final action"),
			),
			mcp.WithString("action_type",
				mcp.Description("Final action: shutdown, airplane or none"),
			),
		),
		s.handleUpdateSettings,
	)

	// add_target_app - Append to the launch list
	s.server.AddTool(
		mcp.NewTool("add_target_app",
			mcp.WithDescription("Append an app to the end of the launch list"),
			mcp.WithString("package",
				mcp.Required(),
				mcp.Description("Package name (e.g., com.skt.tmap.ku)"),
			),
			mcp.WithString("label",
				mcp.Description("Display label"),
			),
		),
		s.handleAddTargetApp,
	)

	// remove_target_app - Remove from the launch list
	s.server.AddTool(
		mcp.NewTool("remove_target_app",
			mcp.WithDescription("Remove the app at a position of the launch list"),
			mcp.WithNumber("index",
				mcp.Required(),
				mcp.Description("Zero-based position in the launch list"),
			),
		),
		s.handleRemoveTargetApp,
	)
}

func (s *MCPServer) handleGetSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return settingsResult(s.app.Settings())
}

func (s *MCPServer) handleUpdateSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	var u config.Update
	if v, ok := args["master_enabled"].(bool); ok {
		u.MasterEnabled = &v
	}
	if v, ok := args["app_close_delay_seconds"].(float64); ok {
		n, err := delayArg("app_close_delay_seconds", v, config.MaxAppCloseDelaySeconds)
		if err != nil {
			return nil, err
		}
		u.AppCloseDelaySeconds = &n
	}
	if v, ok := args["final_action_delay_minutes"].(float64); ok {
		n, err := delayArg("final_action_delay_minutes", v, config.MaxFinalActionDelayMinutes)
		if err != nil {
			return nil, err
		}
		u.FinalActionDelayMinutes = &n
	}
	if v, ok := args["action_type"].(string); ok && v != "" {
		u.ActionType = &v
	}
	if u.Empty() {
		return nil, fmt.Errorf("no settings given")
	}

	snap, err := s.app.UpdateSettings(u)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return settingsResult(snap)
}

func (s *MCPServer) handleAddTargetApp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	pkg, ok := args["package"].(string)
	if !ok || pkg == "" {
		return nil, fmt.Errorf("package is required")
	}
	label, _ := args["label"].(string)

	if err := s.app.AddTargetApp(config.TargetApp{Package: pkg, Label: label}); err != nil {
		return nil, fmt.Errorf("failed to add app: %w", err)
	}
	return settingsResult(s.app.Settings())
}

func (s *MCPServer) handleRemoveTargetApp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	v, ok := args["index"].(float64)
	if !ok {
		return nil, fmt.Errorf("index is required")
	}

	if err := s.app.RemoveTargetApp(int(v)); err != nil {
		return nil, fmt.Errorf("failed to remove app: %w", err)
	}
	return settingsResult(s.app.Settings())
}

func delayArg(name string, v float64, limit uint64) (uint, error) {
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	if v > float64(limit) || v > float64(^uint(0)) {
		return 0, fmt.Errorf("%s: %w", name, config.ErrDelayOutOfRange)
	}
	return uint(v), nil
}

func settingsResult(snap config.Snapshot) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize settings: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(jsonData)),
		},
	}, nil
}
