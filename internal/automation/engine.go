// Package automation drives system UI by reading the node tree, finding
// buttons by their visible text and tapping them. Every step is a callback
// posted on the scheduler loop; nothing here blocks or sleeps.
package automation

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"ignite/internal/logger"
	"ignite/internal/platform"
	"ignite/internal/scheduler"
	"ignite/internal/uitree"
)

// Outcome is how an automation operation ended
type Outcome int

const (
	// Done means the target control was found and clicked
	Done Outcome = iota
	// NotFound means the control was missing and the fallback path ran
	NotFound
	// ExhaustedRetries means every search round failed
	ExhaustedRetries
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case NotFound:
		return "not_found"
	case ExhaustedRetries:
		return "exhausted_retries"
	default:
		return "unknown"
	}
}

// Button texts, tried in order. Korean first, then English.
var (
	CloseAllTexts = []string{"모두 닫기", "Close all", "모두 지우기", "Clear all"}
	PowerOffTexts = []string{"전원 끄기", "종료", "Power off", "Shut down"}
	AirplaneTexts = []string{"비행기", "Airplane", "Flight", "비행기 탑승 모드"}
)

// Fixed timings
const (
	RecentsSettle       = 2000 * time.Millisecond
	HomeAfterCloseAll   = 500 * time.Millisecond
	PowerDialogSettle   = 1500 * time.Millisecond
	ConfirmDelay        = 1000 * time.Millisecond
	AirplaneRoundDelay  = 2000 * time.Millisecond
	BackAfterToggle     = 1000 * time.Millisecond
	AirplaneRetryBudget = 3
	FallbackSwipe       = 500 * time.Millisecond
)

// Notification texts
const (
	MsgAirplaneToggled  = "Airplane mode toggled"
	MsgAirplaneNotFound = "Airplane mode button not found"
)

// Engine performs the UI automation operations
type Engine struct {
	loop     scheduler.Scheduler
	device   platform.Device
	notifier platform.Notifier
}

// New creates an engine posting its steps on loop
func New(loop scheduler.Scheduler, device platform.Device, notifier platform.Notifier) *Engine {
	return &Engine{loop: loop, device: device, notifier: notifier}
}

// FindNodeByText returns the first clickable target for candidates under root
func FindNodeByText(root *uitree.Node, candidates []string) *uitree.Node {
	return uitree.FindNodeByText(root, candidates)
}

// operation tracks one running automation until it reports an outcome
type operation struct {
	name     string
	timer    *logger.OperationTimer
	done     func(Outcome)
	fallback func(ctx context.Context)
	finished bool
}

func (e *Engine) begin(name string, fallback func(ctx context.Context), done func(Outcome)) *operation {
	return &operation{
		name:     name,
		timer:    logger.StartOperation("automation", name),
		done:     done,
		fallback: fallback,
	}
}

func (op *operation) complete(outcome Outcome) {
	if op.finished {
		return
	}
	op.finished = true
	op.timer.AddDetail("outcome", outcome.String()).End()
	if op.done != nil {
		op.done(outcome)
	}
}

// run calls fn now inside the operation's panic boundary
func (e *Engine) run(ctx context.Context, op *operation, fn scheduler.Task) {
	defer e.recoverStep(ctx, op)
	fn(ctx)
}

// post schedules a step of op. A panic in the step runs the fallback and
// ends op with NotFound.
func (e *Engine) post(op *operation, delay time.Duration, step string, fn scheduler.Task) {
	e.loop.Post(delay, op.name+"."+step, func(ctx context.Context) {
		e.run(ctx, op, fn)
	})
}

func (e *Engine) recoverStep(ctx context.Context, op *operation) {
	r := recover()
	if r == nil {
		return
	}
	logger.LogPanic("automation", r, string(debug.Stack()))
	if op.finished {
		return
	}
	e.runFallback(ctx, op)
	op.finished = true
	op.timer.AddDetail("outcome", NotFound.String()).EndWithError(fmt.Errorf("panic: %v", r))
	if op.done != nil {
		op.done(NotFound)
	}
}

func (e *Engine) runFallback(ctx context.Context, op *operation) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("automation").Str("operation", op.name).Interface("panic", r).Msg("Fallback failed")
		}
	}()
	op.fallback(ctx)
}

// CloseAllApps opens recents and taps "close all", then returns home.
// It never fails; a missing button only skips the tap.
func (e *Engine) CloseAllApps(ctx context.Context, done func(Outcome)) {
	op := e.begin("close_all_apps", e.goHome, done)
	e.run(ctx, op, func(ctx context.Context) {
		if err := e.device.TriggerSystemView(ctx, platform.RecentApps); err != nil {
			logger.Warn("automation").Err(err).Msg("Failed to open recents")
		}
		e.post(op, RecentsSettle, "search", func(ctx context.Context) {
			node := uitree.FindNodeByText(e.searchRoot(ctx, true), CloseAllTexts)
			if node == nil {
				logger.Warn("automation").Msg("Close all button not found")
				e.goHome(ctx)
				op.complete(NotFound)
				return
			}
			if !e.click(ctx, node) {
				e.goHome(ctx)
				op.complete(NotFound)
				return
			}
			e.post(op, HomeAfterCloseAll, "home", func(ctx context.Context) {
				e.goHome(ctx)
				op.complete(Done)
			})
		})
	})
}

// ShutdownSystem opens the power dialog, taps power off and then the
// confirmation button if one appears.
func (e *Engine) ShutdownSystem(ctx context.Context, done func(Outcome)) {
	op := e.begin("shutdown_system", e.goHome, done)
	e.run(ctx, op, func(ctx context.Context) {
		if err := e.device.TriggerSystemView(ctx, platform.PowerDialog); err != nil {
			logger.Warn("automation").Err(err).Msg("Failed to open power dialog")
		}
		e.post(op, PowerDialogSettle, "search", func(ctx context.Context) {
			node := uitree.FindNodeByText(e.searchRoot(ctx, false), PowerOffTexts)
			if node == nil || !e.click(ctx, node) {
				logger.Warn("automation").Msg("Power off button not found")
				e.goHome(ctx)
				op.complete(NotFound)
				return
			}

			e.post(op, ConfirmDelay, "confirm", func(ctx context.Context) {
				if confirm := uitree.FindNodeByText(e.searchRoot(ctx, false), PowerOffTexts); confirm != nil {
					e.click(ctx, confirm)
				} else {
					logger.Debug("automation").Msg("No shutdown confirmation shown")
				}
				op.complete(Done)
			})
		})
	})
}

// ToggleAirplaneMode opens quick settings and looks for the airplane tile,
// scrolling or swiping between rounds.
func (e *Engine) ToggleAirplaneMode(ctx context.Context, done func(Outcome)) {
	op := e.begin("toggle_airplane_mode", e.goBack, done)
	e.run(ctx, op, func(ctx context.Context) {
		if err := e.device.TriggerSystemView(ctx, platform.QuickSettings); err != nil {
			logger.Warn("automation").Err(err).Msg("Failed to open quick settings")
		}
		e.airplaneRound(op, AirplaneRetryBudget)
	})
}

func (e *Engine) airplaneRound(op *operation, budget int) {
	e.post(op, AirplaneRoundDelay, "search", func(ctx context.Context) {
		if budget <= 0 {
			logger.Warn("automation").Int("budget", AirplaneRetryBudget).Msg("Airplane mode button not found")
			e.notify(ctx, MsgAirplaneNotFound)
			e.goBack(ctx)
			op.complete(ExhaustedRetries)
			return
		}

		root := e.searchRoot(ctx, false)
		node := uitree.FindNodeByText(root, AirplaneTexts)
		if node != nil && e.click(ctx, node) {
			e.notify(ctx, MsgAirplaneToggled)
			e.post(op, BackAfterToggle, "back", func(ctx context.Context) {
				e.goBack(ctx)
				op.complete(Done)
			})
			return
		}

		if !e.scrollForward(ctx, root) {
			e.swipeAcross(ctx)
		}
		op.timer.AddDetail("rounds", AirplaneRetryBudget-budget+1)
		e.airplaneRound(op, budget-1)
	})
}

// searchRoot returns the active window's root. With fallback set, the last
// listed window is used when the active window is unavailable.
func (e *Engine) searchRoot(ctx context.Context, fallback bool) *uitree.Node {
	root, err := e.device.ActiveWindow(ctx)
	if err == nil && root != nil {
		return root
	}
	if err != nil {
		logger.Warn("automation").Err(err).Msg("Active window unavailable")
	}
	if !fallback {
		return nil
	}

	windows, err := e.device.Windows(ctx)
	if err != nil {
		logger.Warn("automation").Err(err).Msg("Window list unavailable")
		return nil
	}
	if len(windows) == 0 {
		return nil
	}
	return windows[len(windows)-1]
}

// scrollForward tries each scrollable node in depth-first order until one accepts
func (e *Engine) scrollForward(ctx context.Context, root *uitree.Node) bool {
	for _, node := range uitree.CollectScrollable(root) {
		ok, err := e.device.ScrollForward(ctx, node)
		if err != nil {
			logger.Warn("automation").Err(err).Str("node", node.String()).Msg("Scroll failed")
			continue
		}
		if ok {
			logger.Debug("automation").Str("node", node.String()).Msg("Scrolled")
			return true
		}
	}
	return false
}

// swipeAcross swipes right to left across the screen at mid height
func (e *Engine) swipeAcross(ctx context.Context) {
	w, h, err := e.device.ScreenSize(ctx)
	if err != nil {
		logger.Warn("automation").Err(err).Msg("Screen size unavailable, skipping swipe")
		return
	}
	path := platform.Path{
		From: platform.Point{X: w * 8 / 10, Y: h / 2},
		To:   platform.Point{X: w / 10, Y: h / 2},
	}
	if err := e.device.Swipe(ctx, path, FallbackSwipe); err != nil {
		logger.Warn("automation").Err(err).Msg("Swipe failed")
	}
}

func (e *Engine) click(ctx context.Context, node *uitree.Node) bool {
	if err := e.device.Click(ctx, node); err != nil {
		logger.Warn("automation").Err(err).Str("node", node.String()).Msg("Click failed")
		return false
	}
	logger.Info("automation").Str("node", node.String()).Msg("Clicked")
	return true
}

func (e *Engine) goHome(ctx context.Context) {
	if err := e.device.GoHome(ctx); err != nil {
		logger.Warn("automation").Err(err).Msg("Home failed")
	}
}

func (e *Engine) goBack(ctx context.Context) {
	if err := e.device.GoBack(ctx); err != nil {
		logger.Warn("automation").Err(err).Msg("Back failed")
	}
}

func (e *Engine) notify(ctx context.Context, msg string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, msg); err != nil {
		logger.Warn("automation").Err(err).Msg("Notification failed")
	}
}
