package adb

import (
	"context"
	"fmt"
	"time"

	"ignite/internal/platform"
	"ignite/internal/uitree"
)

// Android key codes
const (
	keyHome      = 3
	keyBack      = 4
	keyPower     = 26
	keyAppSwitch = 187
)

const scrollGestureDuration = 300 * time.Millisecond

func (c *Client) keyEvent(ctx context.Context, code int, longPress bool) error {
	cmd := fmt.Sprintf("input keyevent %d", code)
	if longPress {
		cmd = fmt.Sprintf("input keyevent --longpress %d", code)
	}
	_, err := c.Shell(ctx, cmd)
	return err
}

// GoHome presses HOME
func (c *Client) GoHome(ctx context.Context) error {
	return c.keyEvent(ctx, keyHome, false)
}

// GoBack presses BACK
func (c *Client) GoBack(ctx context.Context) error {
	return c.keyEvent(ctx, keyBack, false)
}

// TriggerSystemView opens recents, the power dialog or quick settings
func (c *Client) TriggerSystemView(ctx context.Context, view platform.SystemView) error {
	var err error
	switch view {
	case platform.RecentApps:
		err = c.keyEvent(ctx, keyAppSwitch, false)
	case platform.PowerDialog:
		err = c.keyEvent(ctx, keyPower, true)
	case platform.QuickSettings:
		_, err = c.Shell(ctx, "cmd statusbar expand-settings")
	default:
		return fmt.Errorf("unsupported system view: %d", view)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", view, err)
	}
	return nil
}

// Click taps the center of the node's bounds
func (c *Client) Click(ctx context.Context, node *uitree.Node) error {
	r, err := node.Rect()
	if err != nil || r.Empty() {
		return fmt.Errorf("click %s: %w", node, ErrNoBounds)
	}
	x, y := r.Center()
	_, err = c.Shell(ctx, fmt.Sprintf("input tap %d %d", x, y))
	return err
}

// Swipe performs a straight stroke
func (c *Client) Swipe(ctx context.Context, path platform.Path, duration time.Duration) error {
	_, err := c.Shell(ctx, fmt.Sprintf("input swipe %d %d %d %d %d",
		path.From.X, path.From.Y, path.To.X, path.To.Y, duration.Milliseconds()))
	return err
}

// ScrollForward swipes inside a scrollable node: upward for tall containers,
// leftward for wide ones. Nodes that are not scrollable or have no area
// decline the scroll.
func (c *Client) ScrollForward(ctx context.Context, node *uitree.Node) (bool, error) {
	if !node.Scrollable {
		return false, nil
	}
	r, err := node.Rect()
	if err != nil || r.Empty() {
		return false, nil
	}

	path := scrollPath(r)
	if err := c.Swipe(ctx, path, scrollGestureDuration); err != nil {
		return false, err
	}
	return true, nil
}

func scrollPath(r uitree.Rect) platform.Path {
	cx, cy := r.Center()
	if r.Height() >= r.Width() {
		return platform.Path{
			From: platform.Point{X: cx, Y: r.Y2 - r.Height()/5},
			To:   platform.Point{X: cx, Y: r.Y1 + r.Height()/5},
		}
	}
	return platform.Path{
		From: platform.Point{X: r.X2 - r.Width()/5, Y: cy},
		To:   platform.Point{X: r.X1 + r.Width()/5, Y: cy},
	}
}
