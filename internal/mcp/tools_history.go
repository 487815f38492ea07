package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerHistoryTools registers run history tools
func (s *MCPServer) registerHistoryTools() {
	s.server.AddTool(
		mcp.NewTool("run_history",
			mcp.WithDescription("List recent automation runs, newest first"),
			mcp.WithString("operation",
				mcp.Description("Only runs of this operation (launch_app, close_all_apps, shutdown_system, toggle_airplane_mode)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of runs (default: 50)"),
			),
		),
		s.handleRunHistory,
	)
}

func (s *MCPServer) handleRunHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	operation, _ := args["operation"].(string)
	limit := 0
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	runs, err := s.app.ListRuns(ctx, operation, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent("No runs recorded"),
			},
		}, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d runs:\n", len(runs)))
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("- %s %s [%s] %s", r.StartedAt.Format(time.RFC3339), r.Operation, r.Trigger, r.Outcome))
		if d := r.Duration(); d > 0 {
			sb.WriteString(fmt.Sprintf(" in %s", d.Round(time.Millisecond)))
		}
		if r.Detail != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", r.Detail))
		}
		sb.WriteString("\n")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(sb.String()),
		},
	}, nil
}
