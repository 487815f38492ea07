package routine

import (
	"context"
	"fmt"
	"time"

	"ignite/internal/automation"
	"ignite/internal/config"
	"ignite/internal/countdown"
	"ignite/internal/history"
	"ignite/internal/logger"
	"ignite/internal/scheduler"
)

// Command is a manual request. The set of commands is closed.
type Command interface {
	commandName() string
}

// LaunchApps launches Apps, or the configured list when Apps is nil
type LaunchApps struct {
	Apps []config.TargetApp
}

// CloseAllApps runs the close-all automation now
type CloseAllApps struct{}

// ShutdownNow runs the shutdown automation now
type ShutdownNow struct{}

// ToggleAirplane runs the airplane toggle automation now
type ToggleAirplane struct{}

// StartCountdown starts the two-stage countdown. Nil delays and an empty
// Action take the configured values; a zero delay fires on the next loop turn.
type StartCountdown struct {
	AppCloseDelay    *time.Duration
	FinalActionDelay *time.Duration
	Action           config.ActionType
}

// Delay returns a pointer to d for the StartCountdown delay fields
func Delay(d time.Duration) *time.Duration {
	return &d
}

// CancelCountdown drops any pending countdown
type CancelCountdown struct{}

func (LaunchApps) commandName() string      { return "launch_apps" }
func (CloseAllApps) commandName() string    { return "close_all_apps" }
func (ShutdownNow) commandName() string     { return "shutdown_now" }
func (ToggleAirplane) commandName() string  { return "toggle_airplane_mode" }
func (StartCountdown) commandName() string  { return "start_countdown" }
func (CancelCountdown) commandName() string { return "cancel_countdown" }

// CommandName returns the wire name of cmd
func CommandName(cmd Command) string {
	return cmd.commandName()
}

// Result reports how a command ended
type Result struct {
	Command   string                `json:"command"`
	Outcome   string                `json:"outcome"`
	Detail    string                `json:"detail,omitempty"`
	Countdown *countdown.TimerState `json:"countdown,omitempty"`
}

// Dispatch posts cmd onto the loop. done, when set, is called on the loop
// once the command finishes; automation commands finish when their last step
// runs. Manual commands ignore the master switch.
func (m *Monitor) Dispatch(cmd Command, done func(Result)) scheduler.Handle {
	name := cmd.commandName()
	logger.Info("routine").Str("command", name).Msg("Command dispatched")
	return m.loop.Post(0, "command."+name, func(ctx context.Context) {
		m.handle(ctx, cmd, func(r Result) {
			r.Command = name
			if done != nil {
				done(r)
			}
		})
	})
}

// DispatchWait dispatches cmd and blocks until it finishes or ctx ends.
// The loop must be running on another goroutine.
func (m *Monitor) DispatchWait(ctx context.Context, cmd Command) (Result, error) {
	ch := make(chan Result, 1)
	h := m.Dispatch(cmd, func(r Result) { ch <- r })
	select {
	case r := <-ch:
		return r, nil
	case <-ctx.Done():
		m.loop.Cancel(h)
		return Result{}, fmt.Errorf("%s: %w", cmd.commandName(), ctx.Err())
	}
}

func (m *Monitor) handle(ctx context.Context, cmd Command, done func(Result)) {
	automationDone := func(outcome automation.Outcome) {
		done(Result{Outcome: outcome.String()})
	}

	switch c := cmd.(type) {
	case LaunchApps:
		apps := c.Apps
		if apps == nil {
			apps = m.cfg.TargetApps()
		}
		handles := m.launch(apps, history.TriggerManual)
		done(Result{Outcome: "scheduled", Detail: fmt.Sprintf("%d launches scheduled", len(handles))})
	case CloseAllApps:
		m.runAutomation(ctx, OpCloseAllApps, history.TriggerManual, m.engine.CloseAllApps, automationDone)
	case ShutdownNow:
		m.runAutomation(ctx, OpShutdownSystem, history.TriggerManual, m.engine.ShutdownSystem, automationDone)
	case ToggleAirplane:
		m.runAutomation(ctx, OpToggleAirplane, history.TriggerManual, m.engine.ToggleAirplaneMode, automationDone)
	case StartCountdown:
		appDelay := m.cfg.AppCloseDelay()
		if c.AppCloseDelay != nil {
			appDelay = *c.AppCloseDelay
		}
		finalDelay := m.cfg.FinalActionDelay()
		if c.FinalActionDelay != nil {
			finalDelay = *c.FinalActionDelay
		}
		action := c.Action
		if action == "" {
			action = m.cfg.ActionType()
		}
		state := m.startCountdown(appDelay, finalDelay, action, history.TriggerManual)
		done(Result{Outcome: "started", Detail: CountdownSummary(appDelay, finalDelay, action), Countdown: &state})
	case CancelCountdown:
		active := m.countdown.State().Active()
		m.countdown.Cancel()
		if active {
			done(Result{Outcome: "cancelled"})
		} else {
			done(Result{Outcome: "idle"})
		}
	default:
		logger.Error("routine").Str("command", fmt.Sprintf("%T", cmd)).Msg("Unknown command")
		done(Result{Outcome: "unknown_command"})
	}
}
