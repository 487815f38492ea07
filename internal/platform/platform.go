// Package platform defines what the automation routine needs from the head unit.
package platform

import (
	"context"
	"time"

	"ignite/internal/uitree"
)

// SystemView is a system surface that can be opened programmatically
type SystemView int

const (
	RecentApps SystemView = iota
	PowerDialog
	QuickSettings
)

func (v SystemView) String() string {
	switch v {
	case RecentApps:
		return "recent_apps"
	case PowerDialog:
		return "power_dialog"
	case QuickSettings:
		return "quick_settings"
	default:
		return "unknown"
	}
}

// Point is a screen coordinate in pixels
type Point struct {
	X, Y int
}

// Path is a straight gesture stroke
type Path struct {
	From, To Point
}

// Device is the set of actions performed on the head unit
type Device interface {
	// ResolveLaunchEntry returns the launcher component for pkg, or "" if the
	// package has no launcher entry (not installed).
	ResolveLaunchEntry(ctx context.Context, pkg string) (string, error)
	StartApp(ctx context.Context, entry string) error
	TriggerSystemView(ctx context.Context, view SystemView) error
	GoHome(ctx context.Context) error
	GoBack(ctx context.Context) error
	// ActiveWindow returns the root of the focused window's tree
	ActiveWindow(ctx context.Context) (*uitree.Node, error)
	// Windows returns the root of every on-screen window in z-order
	Windows(ctx context.Context) ([]*uitree.Node, error)
	Click(ctx context.Context, node *uitree.Node) error
	// ScrollForward reports whether the node accepted the scroll
	ScrollForward(ctx context.Context, node *uitree.Node) (bool, error)
	Swipe(ctx context.Context, path Path, duration time.Duration) error
	ScreenSize(ctx context.Context) (width, height int, err error)
	IsAirplaneModeOn(ctx context.Context) (bool, error)
}

// Notifier shows a short message to the driver
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// PowerEvent is a change of the charging cable state
type PowerEvent int

const (
	PowerConnected PowerEvent = iota
	PowerDisconnected
)

func (e PowerEvent) String() string {
	if e == PowerConnected {
		return "connected"
	}
	return "disconnected"
}

// PowerSource delivers power events. The handler may be called from any goroutine.
type PowerSource interface {
	Subscribe(handler func(PowerEvent)) (unsubscribe func(), err error)
}
