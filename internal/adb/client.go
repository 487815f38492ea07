// Package adb drives the head unit over the Android Debug Bridge.
package adb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ignite/internal/logger"
	"ignite/internal/platform"
)

var deviceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._:\-]+$`)

var (
	// ErrNotInstalled is returned when a package has no launcher entry
	ErrNotInstalled = errors.New("package not installed")
	// ErrNoBounds is returned when a node cannot be located on screen
	ErrNoBounds = errors.New("node has no usable bounds")
)

// Executor runs a host command and returns its combined output
type Executor interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execExecutor struct{}

func (execExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = withoutProxyEnv(os.Environ())
	return cmd.CombinedOutput()
}

// adb talks to its local server; proxy variables only get in the way
func withoutProxyEnv(env []string) []string {
	proxyVars := []string{"HTTP_PROXY", "HTTPS_PROXY", "ALL_PROXY", "NO_PROXY", "http_proxy", "https_proxy", "all_proxy", "no_proxy"}
	out := make([]string, 0, len(env))
	for _, e := range env {
		isProxy := false
		for _, v := range proxyVars {
			if strings.HasPrefix(e, v+"=") {
				isProxy = true
				break
			}
		}
		if !isProxy {
			out = append(out, e)
		}
	}
	return out
}

// Client is a platform.Device backed by adb shell commands
type Client struct {
	adbPath  string
	deviceID string
	exec     Executor
	limiter  *rate.Limiter

	commandTimeout time.Duration
	dumpPath       string

	sizeMu sync.Mutex
	width  int
	height int
}

var _ platform.Device = (*Client)(nil)

// Option customizes a Client
type Option func(*Client)

// WithExecutor replaces the process runner
func WithExecutor(e Executor) Option {
	return func(c *Client) { c.exec = e }
}

// WithDumpRate limits how often the node tree is dumped
func WithDumpRate(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// WithCommandTimeout bounds each adb invocation
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Client) { c.commandTimeout = d }
}

// NewClient creates a client for deviceID. An empty deviceID targets the only
// attached device; an empty adbPath means "adb" from PATH.
func NewClient(adbPath, deviceID string, opts ...Option) (*Client, error) {
	if deviceID != "" {
		if err := ValidateDeviceID(deviceID); err != nil {
			return nil, fmt.Errorf("invalid device ID: %w", err)
		}
	}
	if adbPath == "" {
		adbPath = "adb"
	}

	c := &Client{
		adbPath:        adbPath,
		deviceID:       deviceID,
		exec:           execExecutor{},
		limiter:        rate.NewLimiter(rate.Every(250*time.Millisecond), 2),
		commandTimeout: 15 * time.Second,
		dumpPath:       "/data/local/tmp/ignite_view.xml",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DeviceID returns the target serial, or "" for the default device
func (c *Client) DeviceID() string {
	return c.deviceID
}

// ValidateDeviceID rejects serials that could smuggle shell syntax
func ValidateDeviceID(deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("device ID cannot be empty")
	}
	if len(deviceID) > 256 {
		return fmt.Errorf("device ID too long (max 256 characters)")
	}
	if !deviceIDPattern.MatchString(deviceID) {
		return fmt.Errorf("invalid device ID format: contains illegal characters")
	}
	return nil
}

// Shell runs command through `adb shell` and returns trimmed output
func (c *Client) Shell(ctx context.Context, command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", nil
	}

	var args []string
	if c.deviceID != "" {
		args = append(args, "-s", c.deviceID)
	}
	args = append(args, "shell", command)

	if c.commandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.commandTimeout)
		defer cancel()
	}

	logger.Debug("adb").Str("command", command).Msg("adb shell")
	output, err := c.exec.Run(ctx, c.adbPath, args...)
	res := string(output)
	if err != nil {
		return res, fmt.Errorf("adb shell %q failed: %w, output: %s", command, err, strings.TrimSpace(res))
	}
	return strings.TrimSpace(res), nil
}

// shellQuote wraps s in single quotes for the device shell
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
