package adb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ignite/internal/logger"
	"ignite/internal/platform"
)

// BatteryState is the parsed output of `dumpsys battery`
type BatteryState struct {
	Level   int    `json:"level"`
	Status  string `json:"status"`
	Plugged string `json:"plugged"` // ac, usb, wireless, dock, none
}

// Powered reports whether any charger is attached
func (s *BatteryState) Powered() bool {
	return s.Plugged != "none"
}

// PowerMonitor is a platform.PowerSource that polls the battery service and
// reports charger attach and detach.
type PowerMonitor struct {
	client   *Client
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	last    *BatteryState
	running bool
}

var _ platform.PowerSource = (*PowerMonitor)(nil)

// NewPowerMonitor polls every interval (5s when zero)
func NewPowerMonitor(client *Client, interval time.Duration) *PowerMonitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PowerMonitor{client: client, interval: interval}
}

// Subscribe starts polling and delivers events to handler from the polling
// goroutine. A charger already attached at the first poll is reported as
// PowerConnected; a detached one is not reported. Only one subscriber is
// supported, and unsubscribe must not be called from inside handler.
func (m *PowerMonitor) Subscribe(handler func(platform.PowerEvent)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil, fmt.Errorf("power monitor already has a subscriber")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.last = nil
	m.running = true

	go m.poll(ctx, handler, m.done)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			cancel := m.cancel
			done := m.done
			m.running = false
			m.mu.Unlock()
			cancel()
			<-done
		})
	}
	return unsubscribe, nil
}

func (m *PowerMonitor) poll(ctx context.Context, handler func(platform.PowerEvent), done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx, handler)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx, handler)
		}
	}
}

func (m *PowerMonitor) check(ctx context.Context, handler func(platform.PowerEvent)) {
	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out, err := m.client.Shell(checkCtx, "dumpsys battery")
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("power").Err(err).Msg("Battery poll failed")
		}
		return
	}
	state := parseBatteryDump(out)

	m.mu.Lock()
	prev := m.last
	m.last = state
	m.mu.Unlock()

	event, ok := powerTransition(prev, state)
	if !ok {
		return
	}
	logger.Info("power").
		Str("event", event.String()).
		Str("plugged", state.Plugged).
		Int("level", state.Level).
		Msg("Power state changed")
	handler(event)
}

// powerTransition decides which event, if any, a new reading produces
func powerTransition(prev, cur *BatteryState) (platform.PowerEvent, bool) {
	if prev == nil {
		return platform.PowerConnected, cur.Powered()
	}
	if prev.Powered() == cur.Powered() {
		return 0, false
	}
	if cur.Powered() {
		return platform.PowerConnected, true
	}
	return platform.PowerDisconnected, true
}

func parseBatteryDump(output string) *BatteryState {
	state := &BatteryState{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "level:"):
			fmt.Sscanf(line, "level: %d", &state.Level)
		case strings.HasPrefix(line, "status:"):
			var status int
			fmt.Sscanf(line, "status: %d", &status)
			switch status {
			case 2:
				state.Status = "charging"
			case 3:
				state.Status = "discharging"
			case 4:
				state.Status = "not_charging"
			case 5:
				state.Status = "full"
			default:
				state.Status = "unknown"
			}
		case strings.HasPrefix(line, "AC powered:") && strings.Contains(line, "true"):
			state.Plugged = "ac"
		case strings.HasPrefix(line, "USB powered:") && strings.Contains(line, "true"):
			if state.Plugged == "" {
				state.Plugged = "usb"
			}
		case strings.HasPrefix(line, "Wireless powered:") && strings.Contains(line, "true"):
			if state.Plugged == "" {
				state.Plugged = "wireless"
			}
		case strings.HasPrefix(line, "Dock powered:") && strings.Contains(line, "true"):
			if state.Plugged == "" {
				state.Plugged = "dock"
			}
		}
	}
	if state.Plugged == "" {
		state.Plugged = "none"
	}
	return state
}
