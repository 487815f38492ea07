// Package routine ties power events and manual commands to the launcher,
// the countdown and the UI automation engine.
package routine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ignite/internal/automation"
	"ignite/internal/config"
	"ignite/internal/countdown"
	"ignite/internal/history"
	"ignite/internal/launcher"
	"ignite/internal/logger"
	"ignite/internal/platform"
	"ignite/internal/scheduler"
)

// ConnectSettle is the wait between turning airplane mode off and launching apps
const ConnectSettle = 4000 * time.Millisecond

// Operation names stored in the run history
const (
	OpLaunchApp      = "launch_app"
	OpCloseAllApps   = "close_all_apps"
	OpShutdownSystem = "shutdown_system"
	OpToggleAirplane = "toggle_airplane_mode"
)

// Recorder stores finished runs
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Deps are the collaborators a Monitor is built from. Recorder and Notifier may be nil.
type Deps struct {
	Loop     scheduler.Scheduler
	Config   config.Reader
	Device   platform.Device
	Notifier platform.Notifier
	Power    platform.PowerSource
	Recorder Recorder
}

// Status is a snapshot of the routine for reporting
type Status struct {
	Monitoring    bool                 `json:"monitoring"`
	MasterEnabled bool                 `json:"masterEnabled"`
	ActionType    config.ActionType    `json:"actionType"`
	Countdown     countdown.TimerState `json:"countdown"`
	CountdownOn   bool                 `json:"countdownActive"`
	LastEvent     string               `json:"lastEvent,omitempty"`
	LastEventAt   time.Time            `json:"lastEventAt,omitempty"`
	TargetApps    []config.TargetApp   `json:"targetApps"`
}

// Monitor reacts to power events. All handling runs on the loop.
type Monitor struct {
	loop     scheduler.Scheduler
	cfg      config.Reader
	device   platform.Device
	notifier platform.Notifier
	power    platform.PowerSource
	recorder Recorder

	engine    *automation.Engine
	launcher  *launcher.Launcher
	countdown *countdown.Orchestrator

	mu          sync.Mutex
	unsubscribe func()
	lastEvent   string
	lastEventAt time.Time

	// Trigger of the most recent launch batch and countdown. Loop-owned.
	launchTrigger    string
	countdownTrigger string
}

// New builds a monitor and the components it drives
func New(deps Deps) *Monitor {
	m := &Monitor{
		loop:             deps.Loop,
		cfg:              deps.Config,
		device:           deps.Device,
		notifier:         deps.Notifier,
		power:            deps.Power,
		recorder:         deps.Recorder,
		launchTrigger:    history.TriggerPower,
		countdownTrigger: history.TriggerPower,
	}
	m.engine = automation.New(deps.Loop, deps.Device, deps.Notifier)
	m.launcher = launcher.New(deps.Loop, deps.Device, deps.Notifier)
	m.launcher.OnResult = m.onLaunchResult
	m.countdown = countdown.New(deps.Loop, m.engine, deps.Device)
	m.countdown.OnStage = m.onStage
	return m
}

// Start subscribes to the power source. Calling it again while started does nothing.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		return nil
	}

	unsubscribe, err := m.power.Subscribe(m.onPowerEvent)
	if err != nil {
		return fmt.Errorf("subscribe to power events: %w", err)
	}
	m.unsubscribe = unsubscribe
	logger.LogAppState(logger.StateReady, map[string]interface{}{"component": "routine"})
	return nil
}

// Stop unsubscribes from the power source. It is idempotent and leaves a
// pending countdown in place.
func (m *Monitor) Stop() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe == nil {
		return
	}
	unsubscribe()
	logger.LogAppState(logger.StateStopped, map[string]interface{}{"component": "routine"})
}

// Status returns the current state. Safe from any goroutine.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	st := Status{
		Monitoring:  m.unsubscribe != nil,
		LastEvent:   m.lastEvent,
		LastEventAt: m.lastEventAt,
	}
	m.mu.Unlock()

	st.Countdown = m.countdown.State()
	st.CountdownOn = st.Countdown.Active()
	if m.cfg != nil {
		st.MasterEnabled = m.cfg.MasterEnabled()
		st.ActionType = m.cfg.ActionType()
		st.TargetApps = m.cfg.TargetApps()
	}
	return st
}

// onPowerEvent runs on the power source's goroutine and hands the event to the loop
func (m *Monitor) onPowerEvent(e platform.PowerEvent) {
	m.mu.Lock()
	m.lastEvent = e.String()
	m.lastEventAt = m.loop.Now()
	m.mu.Unlock()

	logger.Info("routine").Str("event", e.String()).Msg("Power event received")
	m.loop.Post(0, "power."+e.String(), func(ctx context.Context) {
		switch e {
		case platform.PowerConnected:
			m.handleConnected(ctx)
		case platform.PowerDisconnected:
			m.handleDisconnected(ctx)
		}
	})
}

func (m *Monitor) handleConnected(ctx context.Context) {
	m.countdown.Cancel()

	if !m.cfg.MasterEnabled() {
		logger.Info("routine").Msg("Master switch off, ignoring connect")
		return
	}

	on, err := m.device.IsAirplaneModeOn(ctx)
	if err != nil {
		logger.Warn("routine").Err(err).Msg("Airplane state unknown, treating as off")
		on = false
	}
	if !on {
		m.launchConfigured(history.TriggerPower)
		return
	}

	logger.Info("routine").Msg("Airplane mode on, turning it off before launch")
	m.runAutomation(ctx, OpToggleAirplane, history.TriggerPower, m.engine.ToggleAirplaneMode, nil)
	m.loop.Post(ConnectSettle, "routine.launch_after_airplane", func(ctx context.Context) {
		m.launchConfigured(history.TriggerPower)
	})
}

func (m *Monitor) handleDisconnected(ctx context.Context) {
	if !m.cfg.MasterEnabled() {
		logger.Info("routine").Msg("Master switch off, ignoring disconnect")
		return
	}

	appDelay := m.cfg.AppCloseDelay()
	finalDelay := m.cfg.FinalActionDelay()
	action := m.cfg.ActionType()

	m.notify(ctx, DisconnectSummary(appDelay, finalDelay, action))
	m.startCountdown(appDelay, finalDelay, action, history.TriggerPower)
}

// DisconnectSummary is the notification shown when the countdown starts
func DisconnectSummary(appDelay, finalDelay time.Duration, action config.ActionType) string {
	return "Power disconnected: " + CountdownSummary(appDelay, finalDelay, action)
}

// CountdownSummary describes what the countdown will do and when
func CountdownSummary(appDelay, finalDelay time.Duration, action config.ActionType) string {
	msg := fmt.Sprintf("closing apps in %ds", int64(appDelay/time.Second))
	minutes := int64(finalDelay / time.Minute)
	switch action {
	case config.ActionNone:
		return msg
	case config.ActionAirplane:
		return fmt.Sprintf("%s, enabling airplane mode in %dm", msg, minutes)
	default:
		return fmt.Sprintf("%s, shutting down in %dm", msg, minutes)
	}
}

func (m *Monitor) launchConfigured(trigger string) []scheduler.Handle {
	return m.launch(m.cfg.TargetApps(), trigger)
}

func (m *Monitor) launch(apps []config.TargetApp, trigger string) []scheduler.Handle {
	m.launchTrigger = trigger
	return m.launcher.Launch(apps)
}

func (m *Monitor) startCountdown(appDelay, finalDelay time.Duration, action config.ActionType, trigger string) countdown.TimerState {
	m.countdownTrigger = trigger
	return m.countdown.StartCountdown(appDelay, finalDelay, action)
}

// runAutomation runs op and records its outcome. done may be nil.
func (m *Monitor) runAutomation(ctx context.Context, op, trigger string, fn func(context.Context, func(automation.Outcome)), done func(automation.Outcome)) {
	started := m.loop.Now()
	fn(ctx, func(outcome automation.Outcome) {
		m.record(ctx, history.Run{
			Operation:  op,
			Trigger:    trigger,
			Outcome:    outcome.String(),
			StartedAt:  started,
			FinishedAt: m.loop.Now(),
		})
		if done != nil {
			done(outcome)
		}
	})
}

func (m *Monitor) onLaunchResult(r launcher.Result) {
	run := history.Run{
		Operation:  OpLaunchApp,
		Trigger:    m.launchTrigger,
		Outcome:    "done",
		Detail:     r.Package,
		StartedAt:  m.loop.Now(),
		FinishedAt: m.loop.Now(),
	}
	if r.Err != nil {
		run.Outcome = "failed"
		run.Detail = r.Err.Error()
	}
	m.record(context.Background(), run)
}

func (m *Monitor) onStage(r countdown.StageReport) {
	run := history.Run{
		Operation:  r.Action,
		Trigger:    m.countdownTrigger,
		Outcome:    r.Outcome.String(),
		Detail:     r.Stage,
		StartedAt:  r.StartedAt,
		FinishedAt: m.loop.Now(),
	}
	if r.Skipped {
		run.Outcome = "skipped"
	}
	m.record(context.Background(), run)
}

func (m *Monitor) record(ctx context.Context, run history.Run) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Record(ctx, run); err != nil {
		logger.Warn("routine").Err(err).Str("operation", run.Operation).Msg("Failed to record run")
	}
}

func (m *Monitor) notify(ctx context.Context, msg string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, msg); err != nil {
		logger.Warn("routine").Err(err).Msg("Notification failed")
	}
}
