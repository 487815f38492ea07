// Package platformtest provides recording fakes of the platform interfaces.
package platformtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ignite/internal/platform"
	"ignite/internal/uitree"
)

// Call is one recorded method invocation
type Call struct {
	Method string
	Arg    string
	At     time.Time
}

// Clock stamps recorded calls
type Clock interface {
	Now() time.Time
}

// Device is a platform.Device that records every call
type Device struct {
	mu    sync.Mutex
	calls []Call

	Clock Clock

	// Launch entries by package; a missing package resolves to ""
	Entries    map[string]string
	ResolveErr error
	StartErr   error

	// ActiveWindowFunc, when set, answers ActiveWindow; n counts calls from 0
	ActiveWindowFunc func(n int) (*uitree.Node, error)
	Active           *uitree.Node
	ActiveErr        error
	WindowList       []*uitree.Node
	WindowsErr       error
	activeCalls      int

	ClickErr      error
	ScrollAccepts bool
	Width, Height int
	ScreenErr     error

	AirplaneOn  bool
	AirplaneErr error
}

var _ platform.Device = (*Device)(nil)

// NewDevice returns a device with a 1080x1920 screen
func NewDevice() *Device {
	return &Device{
		Entries: make(map[string]string),
		Width:   1080,
		Height:  1920,
	}
}

func (d *Device) record(method, arg string) {
	var at time.Time
	if d.Clock != nil {
		at = d.Clock.Now()
	}
	d.mu.Lock()
	d.calls = append(d.calls, Call{Method: method, Arg: arg, At: at})
	d.mu.Unlock()
}

// Calls returns a copy of the recorded calls
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// CallsTo returns the calls of one method
func (d *Device) CallsTo(method string) []Call {
	var out []Call
	for _, c := range d.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// CallCount counts calls of one method
func (d *Device) CallCount(method string) int {
	return len(d.CallsTo(method))
}

// Methods returns the method names in call order, for sequence assertions
func (d *Device) Methods() []string {
	var out []string
	for _, c := range d.Calls() {
		out = append(out, c.Method)
	}
	return out
}

// Reset forgets recorded calls
func (d *Device) Reset() {
	d.mu.Lock()
	d.calls = nil
	d.activeCalls = 0
	d.mu.Unlock()
}

func (d *Device) ResolveLaunchEntry(ctx context.Context, pkg string) (string, error) {
	d.record("ResolveLaunchEntry", pkg)
	if d.ResolveErr != nil {
		return "", d.ResolveErr
	}
	return d.Entries[pkg], nil
}

func (d *Device) StartApp(ctx context.Context, entry string) error {
	d.record("StartApp", entry)
	return d.StartErr
}

func (d *Device) TriggerSystemView(ctx context.Context, view platform.SystemView) error {
	d.record("TriggerSystemView", view.String())
	return nil
}

func (d *Device) GoHome(ctx context.Context) error {
	d.record("GoHome", "")
	return nil
}

func (d *Device) GoBack(ctx context.Context) error {
	d.record("GoBack", "")
	return nil
}

func (d *Device) ActiveWindow(ctx context.Context) (*uitree.Node, error) {
	d.mu.Lock()
	n := d.activeCalls
	d.activeCalls++
	d.mu.Unlock()
	d.record("ActiveWindow", "")
	if d.ActiveWindowFunc != nil {
		return d.ActiveWindowFunc(n)
	}
	return d.Active, d.ActiveErr
}

func (d *Device) Windows(ctx context.Context) ([]*uitree.Node, error) {
	d.record("Windows", "")
	return d.WindowList, d.WindowsErr
}

func (d *Device) Click(ctx context.Context, node *uitree.Node) error {
	d.record("Click", node.Label()+node.ResourceID)
	return d.ClickErr
}

func (d *Device) ScrollForward(ctx context.Context, node *uitree.Node) (bool, error) {
	d.record("ScrollForward", node.ResourceID)
	return d.ScrollAccepts, nil
}

func (d *Device) Swipe(ctx context.Context, path platform.Path, duration time.Duration) error {
	d.record("Swipe", fmt.Sprintf("%d,%d->%d,%d/%s", path.From.X, path.From.Y, path.To.X, path.To.Y, duration))
	return nil
}

func (d *Device) ScreenSize(ctx context.Context) (int, int, error) {
	d.record("ScreenSize", "")
	return d.Width, d.Height, d.ScreenErr
}

func (d *Device) IsAirplaneModeOn(ctx context.Context) (bool, error) {
	d.record("IsAirplaneModeOn", "")
	return d.AirplaneOn, d.AirplaneErr
}

// Notifier records messages
type Notifier struct {
	mu       sync.Mutex
	messages []string
	Err      error
}

var _ platform.Notifier = (*Notifier)(nil)

func (n *Notifier) Notify(ctx context.Context, message string) error {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
	return n.Err
}

// Messages returns a copy of the posted messages
func (n *Notifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// PowerSource lets tests emit power events by hand
type PowerSource struct {
	mu           sync.Mutex
	handler      func(platform.PowerEvent)
	Subscribes   int
	Unsubscribes int
	SubscribeErr error
}

var _ platform.PowerSource = (*PowerSource)(nil)

func (p *PowerSource) Subscribe(handler func(platform.PowerEvent)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SubscribeErr != nil {
		return nil, p.SubscribeErr
	}
	p.Subscribes++
	p.handler = handler
	return func() {
		p.mu.Lock()
		p.Unsubscribes++
		p.handler = nil
		p.mu.Unlock()
	}, nil
}

// Emit delivers e to the current subscriber, if any
func (p *PowerSource) Emit(e platform.PowerEvent) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h(e)
	}
}

// Tree parses a uiautomator XML fragment and returns its root. It panics on
// malformed input, which only test fixtures supply.
func Tree(xml string) *uitree.Node {
	if !strings.Contains(xml, "<hierarchy") {
		xml = "<hierarchy>" + xml + "</hierarchy>"
	}
	h, err := uitree.Parse(xml)
	if err != nil {
		panic(err)
	}
	return h.Root()
}
