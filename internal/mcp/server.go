// Package mcp exposes the routine to MCP clients over stdio: manual
// triggers, countdown control, settings and run history.
package mcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ignite/internal/config"
	"ignite/internal/history"
	"ignite/internal/logger"
	"ignite/internal/routine"
)

// IgniteApp is what the MCP server needs from the daemon
type IgniteApp interface {
	GetAppVersion() string

	// Routine
	Dispatch(ctx context.Context, cmd routine.Command) (routine.Result, error)
	Status() routine.Status

	// Settings
	Settings() config.Snapshot
	UpdateSettings(u config.Update) (config.Snapshot, error)
	AddTargetApp(app config.TargetApp) error
	RemoveTargetApp(index int) error

	// History
	ListRuns(ctx context.Context, operation string, limit int) ([]history.Run, error)
}

// MCPServer wraps the MCP server
type MCPServer struct {
	app       IgniteApp
	server    *server.MCPServer
	stdio     *server.StdioServer
	mu        sync.Mutex
	isRunning bool
}

// NewMCPServer creates a new MCP server for the daemon
func NewMCPServer(app IgniteApp) *MCPServer {
	mcpServer := server.NewMCPServer(
		"ignite",
		app.GetAppVersion(),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithElicitation(),
		server.WithLogging(),
	)

	s := &MCPServer{
		app:    app,
		server: mcpServer,
	}

	s.registerTools()
	s.registerResources()

	return s
}

func (s *MCPServer) registerTools() {
	// Manual triggers and countdown
	s.registerRoutineTools()

	// Settings
	s.registerSettingsTools()

	// Run history
	s.registerHistoryTools()
}

func (s *MCPServer) registerResources() {
	s.server.AddResource(
		mcp.NewResource(
			"ignite://status",
			"Routine status and pending countdown",
			mcp.WithMIMEType("application/json"),
		),
		s.handleStatusResource,
	)

	s.server.AddResource(
		mcp.NewResource(
			"ignite://settings",
			"Current settings",
			mcp.WithMIMEType("application/json"),
		),
		s.handleSettingsResource,
	)
}

// Start serves stdin/stdout and blocks until the client goes away
func (s *MCPServer) Start(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve serves MCP over the given streams until ctx ends or in closes
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("MCP server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.stdio = server.NewStdioServer(s.server)
	logger.Info("mcp").Msg("MCP server started")
	err := s.stdio.Listen(ctx, in, out)
	if err != nil && ctx.Err() == nil {
		logger.Error("mcp").Err(err).Msg("MCP server error")
		return err
	}
	logger.Info("mcp").Msg("MCP server stopped")
	return nil
}

// IsRunning returns whether the MCP server is serving
func (s *MCPServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// requestConfirmation asks the client to confirm a disruptive operation
func (s *MCPServer) requestConfirmation(ctx context.Context, operation, details string) (bool, error) {
	elicitationRequest := mcp.ElicitationRequest{
		Params: mcp.ElicitationParams{
			Message: fmt.Sprintf("Confirm: %s\n\n%s\n\nDo you want to proceed?", operation, details),
			RequestedSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"confirm": map[string]any{
						"type":        "boolean",
						"description": "Confirm to proceed with this operation",
					},
				},
				"required": []string{"confirm"},
			},
		},
	}

	result, err := s.server.RequestElicitation(ctx, elicitationRequest)
	if err != nil {
		return false, fmt.Errorf("failed to request confirmation: %w", err)
	}

	if result.Action != mcp.ElicitationResponseActionAccept {
		return false, nil
	}

	data, ok := result.Content.(map[string]any)
	if !ok {
		return false, fmt.Errorf("unexpected response format")
	}

	confirm, ok := data["confirm"].(bool)
	if !ok {
		return false, fmt.Errorf("invalid confirmation response")
	}

	return confirm, nil
}
