// Package app assembles the daemon: settings, history, the adb device, the
// event loop and the routine monitor.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ignite/internal/adb"
	"ignite/internal/config"
	"ignite/internal/history"
	"ignite/internal/logger"
	"ignite/internal/mcp"
	"ignite/internal/routine"
	"ignite/internal/scheduler"
)

// DefaultRetention is how long run history is kept
const DefaultRetention = 30 * 24 * time.Hour

// Options configure an App. Empty paths use the defaults under the user config dir.
type Options struct {
	Version      string
	ADBPath      string
	DeviceID     string
	ConfigPath   string
	HistoryPath  string
	PollInterval time.Duration
	Retention    time.Duration
	// WatchConfig reloads settings when the file changes on disk
	WatchConfig bool
	// Executor replaces the adb process runner
	Executor adb.Executor
	// Clock drives the event loop; nil means the wall clock
	Clock scheduler.Clock
}

// App owns every long-lived component
type App struct {
	version string
	opts    Options

	store   *config.Store
	watcher *config.Watcher
	history *history.Store

	client  *adb.Client
	power   *adb.PowerMonitor
	loop    *scheduler.Loop
	monitor *routine.Monitor

	mu         sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

var _ mcp.IgniteApp = (*App)(nil)

// New opens the stores and builds the routine. Nothing runs until Startup.
func New(opts Options) (*App, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultPath()
	}
	if opts.HistoryPath == "" {
		opts.HistoryPath = history.DefaultPath()
	}
	if opts.Retention == 0 {
		opts.Retention = DefaultRetention
	}

	store, err := config.Open(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	runs, err := history.Open(opts.HistoryPath)
	if err != nil {
		return nil, err
	}

	var clientOpts []adb.Option
	if opts.Executor != nil {
		clientOpts = append(clientOpts, adb.WithExecutor(opts.Executor))
	}
	client, err := adb.NewClient(opts.ADBPath, opts.DeviceID, clientOpts...)
	if err != nil {
		runs.Close()
		return nil, err
	}

	a := &App{
		version: opts.Version,
		opts:    opts,
		store:   store,
		history: runs,
		client:  client,
		power:   adb.NewPowerMonitor(client, opts.PollInterval),
		loop:    scheduler.New(opts.Clock),
	}
	a.monitor = routine.New(routine.Deps{
		Loop:     a.loop,
		Config:   store,
		Device:   client,
		Notifier: adb.NewNotifier(client),
		Power:    a.power,
		Recorder: runs,
	})

	store.OnChange(func(s config.Snapshot) {
		logger.Info("app").
			Bool("masterEnabled", s.MasterEnabled).
			Str("actionType", string(s.ActionType)).
			Int("apps", len(s.TargetApps)).
			Msg("Settings changed")
	})

	return a, nil
}

// Startup runs the event loop in the background and starts watching the
// settings file when enabled. It does not subscribe to power events.
func (a *App) Startup(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loopCancel != nil {
		return fmt.Errorf("app already started")
	}

	logger.LogAppState(logger.StateStarting, map[string]interface{}{
		"version": a.version,
		"device":  a.client.DeviceID(),
		"config":  a.store.Path(),
	})

	if a.opts.WatchConfig {
		a.watcher = config.NewWatcher(a.store)
		if err := a.watcher.Start(); err != nil {
			logger.Warn("app").Err(err).Msg("Settings watcher unavailable, edits need a restart")
			a.watcher = nil
		}
	}

	if removed, err := a.history.Prune(ctx, time.Now().Add(-a.opts.Retention)); err != nil {
		logger.Warn("app").Err(err).Msg("Failed to prune run history")
	} else if removed > 0 {
		logger.Info("app").Int64("removed", removed).Msg("Pruned run history")
	}
	if n, err := a.history.Count(ctx); err == nil {
		logger.Info("app").Int("runs", n).Str("path", a.history.Path()).Msg("Run history ready")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	a.loopCancel = cancel
	a.loopDone = make(chan struct{})
	go func() {
		defer close(a.loopDone)
		a.loop.Run(loopCtx)
	}()

	logger.LogAppState(logger.StateReady, nil)
	return nil
}

// StartMonitoring subscribes the routine to power events
func (a *App) StartMonitoring() error {
	return a.monitor.Start()
}

// Shutdown stops monitoring, the loop and the watcher and closes the stores.
// A pending countdown dies with the loop.
func (a *App) Shutdown() {
	logger.LogAppState(logger.StateShuttingDown, nil)
	a.monitor.Stop()

	a.mu.Lock()
	cancel, done := a.loopCancel, a.loopDone
	a.loopCancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	if a.watcher != nil {
		a.watcher.Stop()
	}
	if err := a.history.Close(); err != nil {
		logger.Warn("app").Err(err).Msg("Error closing run history")
	}
	logger.LogAppState(logger.StateStopped, nil)
}

// Trigger runs cmd to completion on the calling goroutine, including every
// step it schedules. Use it only when the loop is not running in the background.
func (a *App) Trigger(ctx context.Context, cmd routine.Command) (routine.Result, error) {
	var res routine.Result
	a.monitor.Dispatch(cmd, func(r routine.Result) { res = r })
	if err := a.loop.RunUntilIdle(ctx); err != nil {
		return res, fmt.Errorf("%s: %w", routine.CommandName(cmd), err)
	}
	return res, nil
}

// ========================================
// MCP surface
// ========================================

// GetAppVersion returns the application version
func (a *App) GetAppVersion() string {
	return a.version
}

// Dispatch runs cmd on the background loop and waits for its result
func (a *App) Dispatch(ctx context.Context, cmd routine.Command) (routine.Result, error) {
	return a.monitor.DispatchWait(ctx, cmd)
}

// Status returns the routine status
func (a *App) Status() routine.Status {
	return a.monitor.Status()
}

// Settings returns the current settings
func (a *App) Settings() config.Snapshot {
	return a.store.Snapshot()
}

// UpdateSettings applies u
func (a *App) UpdateSettings(u config.Update) (config.Snapshot, error) {
	return a.store.Apply(u)
}

// AddTargetApp appends to the launch list
func (a *App) AddTargetApp(app config.TargetApp) error {
	return a.store.AddTargetApp(app)
}

// RemoveTargetApp removes the launch list entry at index
func (a *App) RemoveTargetApp(index int) error {
	return a.store.RemoveTargetApp(index)
}

// ListRuns returns recent runs, newest first
func (a *App) ListRuns(ctx context.Context, operation string, limit int) ([]history.Run, error) {
	return a.history.List(ctx, operation, limit)
}
