package adb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"ignite/internal/platform"
	"ignite/internal/uitree"
)

// fakeExecutor answers shell commands by prefix and records every call
type fakeExecutor struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	calls     []string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		responses: make(map[string]string),
		failures:  make(map[string]error),
	}
}

func (f *fakeExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	command := args[len(args)-1]
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, command)
	for prefix, err := range f.failures {
		if strings.HasPrefix(command, prefix) {
			return []byte("error: device offline"), err
		}
	}
	for prefix, out := range f.responses {
		if strings.HasPrefix(command, prefix) {
			return []byte(out), nil
		}
	}
	return nil, nil
}

func (f *fakeExecutor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeExecutor) set(prefix, output string) {
	f.mu.Lock()
	f.responses[prefix] = output
	f.mu.Unlock()
}

func newTestClient(t *testing.T, exec *fakeExecutor) *Client {
	t.Helper()
	c, err := NewClient("adb", "emulator-5554", WithExecutor(exec), WithDumpRate(rate.Inf, 1))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestValidateDeviceID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"emulator-5554", false},
		{"192.168.1.20:5555", false},
		{"R58M123ABC", false},
		{"", true},
		{"abc;rm -rf /", true},
		{"abc$(id)", true},
		{strings.Repeat("a", 300), true},
	}
	for _, tt := range tests {
		err := ValidateDeviceID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateDeviceID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}

func TestNewClientRejectsBadDeviceID(t *testing.T) {
	if _, err := NewClient("adb", "bad|id"); err == nil {
		t.Error("Expected error for invalid device ID")
	}
}

func TestShellWrapsErrors(t *testing.T) {
	exec := newFakeExecutor()
	exec.failures["input tap"] = errors.New("exit status 1")
	c := newTestClient(t, exec)

	_, err := c.Shell(context.Background(), "input tap 1 2")
	if err == nil || !strings.Contains(err.Error(), "device offline") {
		t.Errorf("Expected wrapped error with output, got %v", err)
	}
}

func TestKeyEventsAndSystemViews(t *testing.T) {
	exec := newFakeExecutor()
	c := newTestClient(t, exec)
	ctx := context.Background()

	_ = c.GoHome(ctx)
	_ = c.GoBack(ctx)
	_ = c.TriggerSystemView(ctx, platform.RecentApps)
	_ = c.TriggerSystemView(ctx, platform.PowerDialog)
	_ = c.TriggerSystemView(ctx, platform.QuickSettings)

	expected := []string{
		"input keyevent 3",
		"input keyevent 4",
		"input keyevent 187",
		"input keyevent --longpress 26",
		"cmd statusbar expand-settings",
	}
	calls := exec.Calls()
	if len(calls) != len(expected) {
		t.Fatalf("Expected %d calls, got %v", len(expected), calls)
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("Call %d: expected %q, got %q", i, expected[i], calls[i])
		}
	}
}

func TestClickTapsCenter(t *testing.T) {
	exec := newFakeExecutor()
	c := newTestClient(t, exec)

	node := &uitree.Node{Bounds: "[390,1700][690,1800]", Clickable: true}
	if err := c.Click(context.Background(), node); err != nil {
		t.Fatalf("Click failed: %v", err)
	}
	if calls := exec.Calls(); len(calls) != 1 || calls[0] != "input tap 540 1750" {
		t.Errorf("Expected tap at center, got %v", calls)
	}

	err := c.Click(context.Background(), &uitree.Node{Bounds: "[0,0][0,0]"})
	if !errors.Is(err, ErrNoBounds) {
		t.Errorf("Expected ErrNoBounds, got %v", err)
	}
}

func TestScrollForward(t *testing.T) {
	exec := newFakeExecutor()
	c := newTestClient(t, exec)
	ctx := context.Background()

	tall := &uitree.Node{Scrollable: true, Bounds: "[0,0][100,500]"}
	ok, err := c.ScrollForward(ctx, tall)
	if err != nil || !ok {
		t.Fatalf("Expected tall node to scroll, got ok=%v err=%v", ok, err)
	}

	wide := &uitree.Node{Scrollable: true, Bounds: "[0,0][1000,200]"}
	if ok, _ := c.ScrollForward(ctx, wide); !ok {
		t.Fatal("Expected wide node to scroll")
	}

	if ok, _ := c.ScrollForward(ctx, &uitree.Node{Bounds: "[0,0][100,100]"}); ok {
		t.Error("Expected non-scrollable node to decline")
	}

	calls := exec.Calls()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 swipes, got %v", calls)
	}
	if calls[0] != "input swipe 50 400 50 100 300" {
		t.Errorf("Unexpected vertical scroll: %q", calls[0])
	}
	if calls[1] != "input swipe 800 100 200 100 300" {
		t.Errorf("Unexpected horizontal scroll: %q", calls[1])
	}
}

func TestSwipe(t *testing.T) {
	exec := newFakeExecutor()
	c := newTestClient(t, exec)

	path := platform.Path{From: platform.Point{X: 864, Y: 960}, To: platform.Point{X: 108, Y: 960}}
	if err := c.Swipe(context.Background(), path, 500*time.Millisecond); err != nil {
		t.Fatalf("Swipe failed: %v", err)
	}
	if calls := exec.Calls(); calls[0] != "input swipe 864 960 108 960 500" {
		t.Errorf("Unexpected swipe: %q", calls[0])
	}
}

func TestResolveLaunchEntry(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("cmd package resolve-activity", "priority=0 preferredOrder=0 match=0x108000 specificIndex=-1 isDefault=true\ncom.skt.tmap.ku/com.skt.tmap.activity.TmapIntroActivity")
	c := newTestClient(t, exec)

	entry, err := c.ResolveLaunchEntry(context.Background(), "com.skt.tmap.ku")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if entry != "com.skt.tmap.ku/com.skt.tmap.activity.TmapIntroActivity" {
		t.Errorf("Unexpected entry %q", entry)
	}
	if calls := exec.Calls(); calls[0] != "cmd package resolve-activity --brief -c android.intent.category.LAUNCHER 'com.skt.tmap.ku'" {
		t.Errorf("Unexpected command %q", calls[0])
	}
}

func TestResolveLaunchEntryNotInstalled(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("cmd package resolve-activity", "No activity found")
	c := newTestClient(t, exec)

	entry, err := c.ResolveLaunchEntry(context.Background(), "com.missing")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if entry != "" {
		t.Errorf("Expected empty entry, got %q", entry)
	}
	if err := c.StartApp(context.Background(), entry); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("Expected ErrNotInstalled, got %v", err)
	}
}

func TestStartAppDetectsErrorOutput(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("am start", "Starting: Intent { cmp=com.x/.Main }\nError: Activity class {com.x/.Main} does not exist.")
	c := newTestClient(t, exec)

	if err := c.StartApp(context.Background(), "com.x/.Main"); err == nil {
		t.Error("Expected error when am start reports one")
	}
}

func TestIsAirplaneModeOn(t *testing.T) {
	tests := []struct {
		output  string
		want    bool
		wantErr bool
	}{
		{"1", true, false},
		{"0", false, false},
		{"null", false, false},
		{"garbage", false, true},
	}
	for _, tt := range tests {
		exec := newFakeExecutor()
		exec.set("settings get global airplane_mode_on", tt.output)
		c := newTestClient(t, exec)

		got, err := c.IsAirplaneModeOn(context.Background())
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("output %q: got %v, %v", tt.output, got, err)
		}
	}
}

func TestScreenSizeCached(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("wm size", "Physical size: 1080x2340\nOverride size: 720x1560")
	c := newTestClient(t, exec)

	for i := 0; i < 2; i++ {
		w, h, err := c.ScreenSize(context.Background())
		if err != nil || w != 720 || h != 1560 {
			t.Fatalf("Expected override size 720x1560, got %dx%d (%v)", w, h, err)
		}
	}
	if n := len(exec.Calls()); n != 1 {
		t.Errorf("Expected one wm size call, got %d", n)
	}
}

func TestParseWmSize(t *testing.T) {
	w, h, err := parseWmSize("Physical size: 1920x720")
	if err != nil || w != 1920 || h != 720 {
		t.Errorf("Expected 1920x720, got %dx%d (%v)", w, h, err)
	}
	if _, _, err := parseWmSize("nothing"); err == nil {
		t.Error("Expected error for unparseable output")
	}
}

func TestActiveWindowAndWindows(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("uiautomator dump", `UI hierchary dumped to: /data/local/tmp/ignite_view.xml
<?xml version='1.0' encoding='UTF-8' standalone='yes' ?><hierarchy rotation="0"><node text="Clear all" clickable="true" bounds="[0,0][100,100]" /><node text="status" bounds="[0,0][100,10]" /></hierarchy>`)
	c := newTestClient(t, exec)
	ctx := context.Background()

	root, err := c.ActiveWindow(ctx)
	if err != nil {
		t.Fatalf("ActiveWindow failed: %v", err)
	}
	if uitree.FindNodeByText(root, []string{"clear all"}) == nil {
		t.Error("Expected to find Clear all in merged root")
	}

	windows, err := c.Windows(ctx)
	if err != nil {
		t.Fatalf("Windows failed: %v", err)
	}
	if len(windows) != 2 {
		t.Errorf("Expected 2 windows, got %d", len(windows))
	}
}

func TestActiveWindowReturnsFocusedWindow(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("uiautomator dump", `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?><hierarchy rotation="0"><node text="status" bounds="[0,0][100,10]" /><node text="Recents" bounds="[0,10][100,100]"><node text="Clear all" clickable="true" focused="true" bounds="[0,50][100,100]" /></node></hierarchy>`)
	c := newTestClient(t, exec)

	root, err := c.ActiveWindow(context.Background())
	if err != nil {
		t.Fatalf("ActiveWindow failed: %v", err)
	}
	if root.Text != "Recents" {
		t.Errorf("Expected the focused window, got %v", root)
	}
}

func TestDumpRetriesThenFails(t *testing.T) {
	exec := newFakeExecutor()
	exec.failures["uiautomator dump"] = errors.New("exit status 137")
	c := newTestClient(t, exec)

	_, err := c.ActiveWindow(context.Background())
	if err == nil {
		t.Fatal("Expected dump error")
	}
	dumps := 0
	for _, call := range exec.Calls() {
		if strings.HasPrefix(call, "uiautomator dump") {
			dumps++
		}
	}
	if dumps != dumpRetries {
		t.Errorf("Expected %d dump attempts, got %d", dumpRetries, dumps)
	}
}

func TestNotifierQuotesMessage(t *testing.T) {
	exec := newFakeExecutor()
	c := newTestClient(t, exec)
	n := NewNotifier(c)

	if err := n.Notify(context.Background(), "Tmap launched, it's ready"); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	want := `cmd notification post -S bigtext -t 'Ignite' 'ignite' 'Tmap launched, it'\''s ready'`
	if calls := exec.Calls(); calls[0] != want {
		t.Errorf("Expected %q, got %q", want, calls[0])
	}
}

const batteryPlugged = `Current Battery Service state:
  AC powered: false
  USB powered: true
  Wireless powered: false
  status: 2
  level: 87
`

const batteryUnplugged = `Current Battery Service state:
  AC powered: false
  USB powered: false
  Wireless powered: false
  status: 3
  level: 86
`

func TestParseBatteryDump(t *testing.T) {
	state := parseBatteryDump(batteryPlugged)
	if state.Plugged != "usb" || state.Level != 87 || state.Status != "charging" {
		t.Errorf("Unexpected plugged state: %+v", state)
	}
	state = parseBatteryDump(batteryUnplugged)
	if state.Plugged != "none" || state.Powered() {
		t.Errorf("Unexpected unplugged state: %+v", state)
	}
}

func TestPowerTransition(t *testing.T) {
	plugged := &BatteryState{Plugged: "ac"}
	unplugged := &BatteryState{Plugged: "none"}

	if ev, ok := powerTransition(nil, plugged); !ok || ev != platform.PowerConnected {
		t.Error("Expected initial plugged reading to report connected")
	}
	if _, ok := powerTransition(nil, unplugged); ok {
		t.Error("Expected initial unplugged reading to report nothing")
	}
	if ev, ok := powerTransition(plugged, unplugged); !ok || ev != platform.PowerDisconnected {
		t.Error("Expected disconnect")
	}
	if _, ok := powerTransition(plugged, &BatteryState{Plugged: "usb"}); ok {
		t.Error("Expected no event when switching charger type")
	}
}

func TestPowerMonitorEmitsTransitions(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("dumpsys battery", batteryPlugged)
	c := newTestClient(t, exec)
	m := NewPowerMonitor(c, 10*time.Millisecond)

	events := make(chan platform.PowerEvent, 4)
	unsubscribe, err := m.Subscribe(func(e platform.PowerEvent) { events <- e })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsubscribe()

	if _, err := m.Subscribe(func(platform.PowerEvent) {}); err == nil {
		t.Error("Expected second subscribe to fail")
	}

	select {
	case e := <-events:
		if e != platform.PowerConnected {
			t.Fatalf("Expected connected first, got %v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for connected")
	}

	exec.set("dumpsys battery", batteryUnplugged)
	select {
	case e := <-events:
		if e != platform.PowerDisconnected {
			t.Fatalf("Expected disconnected, got %v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for disconnected")
	}

	unsubscribe()
	unsubscribe()
}
