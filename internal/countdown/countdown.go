// Package countdown owns the two-stage timer started when power is lost:
// stage one closes every app, stage two runs the final action.
package countdown

import (
	"context"
	"sync"
	"time"

	"ignite/internal/automation"
	"ignite/internal/config"
	"ignite/internal/logger"
	"ignite/internal/platform"
	"ignite/internal/scheduler"
)

// Stage names used in logs and reports
const (
	StageAppClose    = "app_close"
	StageFinalAction = "final_action"
)

// Actions is the automation the stages run
type Actions interface {
	CloseAllApps(ctx context.Context, done func(automation.Outcome))
	ShutdownSystem(ctx context.Context, done func(automation.Outcome))
	ToggleAirplaneMode(ctx context.Context, done func(automation.Outcome))
}

// TimerState is the single pending countdown. The zero value is idle.
type TimerState struct {
	AppClose      scheduler.Handle  `json:"-"`
	FinalAction   scheduler.Handle  `json:"-"`
	FinalKind     config.ActionType `json:"finalKind,omitempty"`
	StartedAt     time.Time         `json:"startedAt"`
	AppCloseAt    time.Time         `json:"appCloseAt"`
	FinalActionAt time.Time         `json:"finalActionAt"`
}

// Active reports whether either stage is still pending
func (s TimerState) Active() bool {
	return s.AppClose.Valid() || s.FinalAction.Valid()
}

// StageReport describes a stage that ran
type StageReport struct {
	Stage     string
	Action    string
	Outcome   automation.Outcome
	Skipped   bool
	StartedAt time.Time
}

// Orchestrator schedules and cancels the countdown
type Orchestrator struct {
	loop    scheduler.Scheduler
	actions Actions
	device  platform.Device

	mu    sync.Mutex
	state TimerState

	// OnStage, when set, is called on the loop when a stage finishes
	OnStage func(StageReport)
}

// New creates an orchestrator. device is consulted for the airplane state
// when the airplane final action fires.
func New(loop scheduler.Scheduler, actions Actions, device platform.Device) *Orchestrator {
	return &Orchestrator{loop: loop, actions: actions, device: device}
}

// StartCountdown replaces any pending countdown. Stage one fires after
// appCloseDelay and stage two after finalActionDelay, both measured from now.
// ActionNone schedules no stage two.
func (o *Orchestrator) StartCountdown(appCloseDelay, finalActionDelay time.Duration, action config.ActionType) TimerState {
	o.Cancel()

	now := o.loop.Now()
	next := TimerState{
		StartedAt:  now,
		AppCloseAt: now.Add(appCloseDelay),
	}

	// Posted under the lock so a firing stage never sees a partial state
	o.mu.Lock()
	next.AppClose = o.loop.Post(appCloseDelay, "countdown."+StageAppClose, o.fireAppClose)
	if action != config.ActionNone {
		next.FinalKind = action
		next.FinalActionAt = now.Add(finalActionDelay)
		next.FinalAction = o.loop.Post(finalActionDelay, "countdown."+StageFinalAction, o.fireFinalAction)
	}
	o.state = next
	o.mu.Unlock()

	logger.Info("countdown").
		Dur("appCloseDelay", appCloseDelay).
		Dur("finalActionDelay", finalActionDelay).
		Str("action", string(action)).
		Msg("Countdown started")
	return next
}

// Cancel drops both stages. It is a no-op when idle.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	prev := o.state
	o.state = TimerState{}
	o.mu.Unlock()

	if !prev.Active() {
		return
	}
	o.loop.Cancel(prev.AppClose)
	o.loop.Cancel(prev.FinalAction)
	logger.Info("countdown").Msg("Countdown cancelled")
}

// State returns a copy of the current timer state
func (o *Orchestrator) State() TimerState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) clear(stage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch stage {
	case StageAppClose:
		o.state.AppClose = 0
	case StageFinalAction:
		o.state.FinalAction = 0
	}
	if !o.state.Active() {
		o.state = TimerState{}
	}
}

func (o *Orchestrator) fireAppClose(ctx context.Context) {
	o.clear(StageAppClose)
	started := o.loop.Now()
	logger.Info("countdown").Str("stage", StageAppClose).Msg("Stage fired")
	o.actions.CloseAllApps(ctx, func(outcome automation.Outcome) {
		o.report(StageReport{Stage: StageAppClose, Action: "close_all_apps", Outcome: outcome, StartedAt: started})
	})
}

func (o *Orchestrator) fireFinalAction(ctx context.Context) {
	o.mu.Lock()
	kind := o.state.FinalKind
	o.mu.Unlock()
	o.clear(StageFinalAction)
	started := o.loop.Now()
	logger.Info("countdown").Str("stage", StageFinalAction).Str("action", string(kind)).Msg("Stage fired")

	switch kind {
	case config.ActionAirplane:
		on, err := o.device.IsAirplaneModeOn(ctx)
		if err != nil {
			logger.Warn("countdown").Err(err).Msg("Airplane state unknown, treating as off")
		}
		if on {
			logger.Info("countdown").Msg("Airplane mode already on, skipping toggle")
			o.report(StageReport{Stage: StageFinalAction, Action: "toggle_airplane_mode", Skipped: true, StartedAt: started})
			return
		}
		o.actions.ToggleAirplaneMode(ctx, func(outcome automation.Outcome) {
			o.report(StageReport{Stage: StageFinalAction, Action: "toggle_airplane_mode", Outcome: outcome, StartedAt: started})
		})
	case config.ActionNone:
	default:
		o.actions.ShutdownSystem(ctx, func(outcome automation.Outcome) {
			o.report(StageReport{Stage: StageFinalAction, Action: "shutdown_system", Outcome: outcome, StartedAt: started})
		})
	}
}

func (o *Orchestrator) report(r StageReport) {
	if o.OnStage != nil {
		o.OnStage(r)
	}
}
