package adb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ignite/internal/logger"
	"ignite/internal/uitree"
)

const dumpRetries = 3

// Dump captures the current node tree. uiautomator is flaky, so the dump is
// retried after killing any stuck instance.
func (c *Client) Dump(ctx context.Context) (*uitree.Hierarchy, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var output string
	var err error
	command := fmt.Sprintf("uiautomator dump %s && cat %s", c.dumpPath, c.dumpPath)

	for i := 0; i < dumpRetries; i++ {
		if i > 0 {
			_, _ = c.Shell(ctx, "pkill uiautomator")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}

		output, err = c.Shell(ctx, command)
		if err == nil && strings.Contains(output, "<hierarchy") {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Debug("adb").Int("retry", i+1).Int("maxRetries", dumpRetries).Err(err).Msg("UI dump retry")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to dump UI after %d attempts: %w", dumpRetries, err)
	}
	return uitree.Parse(output)
}

// ActiveWindow returns the focused window of a fresh dump, or every window
// merged when none reports focus
func (c *Client) ActiveWindow(ctx context.Context) (*uitree.Node, error) {
	h, err := c.Dump(ctx)
	if err != nil {
		return nil, err
	}
	root := h.ActiveWindow()
	if root == nil {
		return nil, fmt.Errorf("empty hierarchy")
	}
	return root, nil
}

// Windows returns every top-level node of the dump
func (c *Client) Windows(ctx context.Context) ([]*uitree.Node, error) {
	h, err := c.Dump(ctx)
	if err != nil {
		return nil, err
	}
	return h.Windows(), nil
}
