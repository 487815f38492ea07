package adb

import (
	"context"
	"fmt"
	"strings"
)

// ResolveLaunchEntry returns the launcher component of pkg, or "" when the
// package has none.
func (c *Client) ResolveLaunchEntry(ctx context.Context, pkg string) (string, error) {
	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		return "", nil
	}
	out, err := c.Shell(ctx, "cmd package resolve-activity --brief -c android.intent.category.LAUNCHER "+shellQuote(pkg))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", pkg, err)
	}
	return parseResolvedComponent(out, pkg), nil
}

// parseResolvedComponent picks the "pkg/.Activity" line from resolve-activity output
func parseResolvedComponent(output, pkg string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, pkg+"/") && !strings.ContainsAny(line, " \t") {
			return line
		}
	}
	return ""
}

// StartApp starts a resolved launcher component
func (c *Client) StartApp(ctx context.Context, entry string) error {
	if entry == "" {
		return ErrNotInstalled
	}
	out, err := c.Shell(ctx, "am start -n "+shellQuote(entry))
	if err != nil {
		return fmt.Errorf("failed to start activity: %w", err)
	}
	if strings.Contains(out, "Error:") || strings.Contains(out, "Exception") {
		return fmt.Errorf("failed to start activity: %s", out)
	}
	return nil
}
