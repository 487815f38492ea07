// Package launcher starts the configured apps one after another.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ignite/internal/config"
	"ignite/internal/logger"
	"ignite/internal/platform"
	"ignite/internal/scheduler"
)

// Stagger is the gap between consecutive list positions
const Stagger = 2000 * time.Millisecond

// ErrNotInstalled is reported for packages without a launcher entry
var ErrNotInstalled = errors.New("app not installed")

// Result reports one launch attempt
type Result struct {
	Package string
	Label   string
	Entry   string
	Err     error
}

// Launcher schedules app launches on the loop
type Launcher struct {
	loop     scheduler.Scheduler
	device   platform.Device
	notifier platform.Notifier

	// OnResult, when set, is called on the loop after each attempt
	OnResult func(Result)
}

// New creates a launcher
func New(loop scheduler.Scheduler, device platform.Device, notifier platform.Notifier) *Launcher {
	return &Launcher{loop: loop, device: device, notifier: notifier}
}

// Launch posts one launch per entry with a package, at index*Stagger. Entries
// with an empty package are skipped but still occupy their slot. An empty list
// launches the legacy navigation app immediately. Each launch is independent;
// a missing app does not affect the others.
func (l *Launcher) Launch(apps []config.TargetApp) []scheduler.Handle {
	if len(apps) == 0 {
		legacy := config.TargetApp{Package: config.LegacyPackage, Label: config.LegacyLabel}
		logger.Info("launcher").Str("package", legacy.Package).Msg("Launch list empty, using legacy app")
		return []scheduler.Handle{l.post(0, legacy)}
	}

	var handles []scheduler.Handle
	for i, app := range apps {
		if app.Package == "" {
			logger.Debug("launcher").Int("index", i).Msg("Skipping empty entry")
			continue
		}
		handles = append(handles, l.post(time.Duration(i)*Stagger, app))
	}
	logger.Info("launcher").Int("apps", len(apps)).Int("scheduled", len(handles)).Msg("Launches scheduled")
	return handles
}

func (l *Launcher) post(delay time.Duration, app config.TargetApp) scheduler.Handle {
	return l.loop.Post(delay, "launch:"+app.Package, func(ctx context.Context) {
		res := l.launchOne(ctx, app)
		if l.OnResult != nil {
			l.OnResult(res)
		}
	})
}

func (l *Launcher) launchOne(ctx context.Context, app config.TargetApp) Result {
	res := Result{Package: app.Package, Label: app.Label}

	entry, err := l.device.ResolveLaunchEntry(ctx, app.Package)
	if err != nil {
		logger.Error("launcher").Err(err).Str("package", app.Package).Msg("Launch failed")
		res.Err = err
		return res
	}
	if entry == "" {
		logger.Warn("launcher").Str("package", app.Package).Msg("App not installed")
		res.Err = fmt.Errorf("%s: %w", app.Package, ErrNotInstalled)
		return res
	}
	res.Entry = entry

	if err := l.device.StartApp(ctx, entry); err != nil {
		logger.Error("launcher").Err(err).Str("package", app.Package).Msg("Launch failed")
		res.Err = err
		return res
	}

	logger.Info("launcher").Str("package", app.Package).Str("entry", entry).Msg("App launched")
	if l.notifier != nil {
		label := app.Label
		if label == "" {
			label = app.Package
		}
		if err := l.notifier.Notify(ctx, label+" launched"); err != nil {
			logger.Warn("launcher").Err(err).Msg("Notification failed")
		}
	}
	return res
}
