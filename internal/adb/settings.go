package adb

import (
	"context"
	"fmt"
	"strings"
)

// IsAirplaneModeOn reads the global airplane_mode_on setting
func (c *Client) IsAirplaneModeOn(ctx context.Context) (bool, error) {
	out, err := c.Shell(ctx, "settings get global airplane_mode_on")
	if err != nil {
		return false, fmt.Errorf("read airplane mode: %w", err)
	}
	switch strings.TrimSpace(out) {
	case "1":
		return true, nil
	case "0", "null", "":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected airplane_mode_on value: %q", out)
	}
}

// ScreenSize returns the effective display size, cached after the first read
func (c *Client) ScreenSize(ctx context.Context) (int, int, error) {
	c.sizeMu.Lock()
	defer c.sizeMu.Unlock()
	if c.width > 0 && c.height > 0 {
		return c.width, c.height, nil
	}

	out, err := c.Shell(ctx, "wm size")
	if err != nil {
		return 0, 0, fmt.Errorf("read screen size: %w", err)
	}
	w, h, err := parseWmSize(out)
	if err != nil {
		return 0, 0, err
	}
	c.width, c.height = w, h
	return w, h, nil
}

// parseWmSize prefers the override size over the physical one
func parseWmSize(output string) (int, int, error) {
	var physW, physH, overW, overH int
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Physical size:") {
			fmt.Sscanf(strings.TrimSpace(strings.TrimPrefix(line, "Physical size:")), "%dx%d", &physW, &physH)
		} else if strings.HasPrefix(line, "Override size:") {
			fmt.Sscanf(strings.TrimSpace(strings.TrimPrefix(line, "Override size:")), "%dx%d", &overW, &overH)
		}
	}
	if overW > 0 && overH > 0 {
		return overW, overH, nil
	}
	if physW > 0 && physH > 0 {
		return physW, physH, nil
	}
	return 0, 0, fmt.Errorf("cannot parse screen size from %q", output)
}
