package routine

import (
	"context"
	"testing"
	"time"

	"ignite/internal/config"
	"ignite/internal/history"
	"ignite/internal/uitree"
)

// dispatch runs cmd to completion on the fake clock
func (f *fixture) dispatch(cmd Command) Result {
	var res Result
	f.monitor.Dispatch(cmd, func(r Result) { res = r })
	f.clock.Advance(f.loop, 30*time.Second)
	return res
}

func TestCommandNames(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{LaunchApps{}, "launch_apps"},
		{CloseAllApps{}, "close_all_apps"},
		{ShutdownNow{}, "shutdown_now"},
		{ToggleAirplane{}, "toggle_airplane_mode"},
		{StartCountdown{}, "start_countdown"},
		{CancelCountdown{}, "cancel_countdown"},
	}
	for _, tt := range tests {
		if got := CommandName(tt.cmd); got != tt.want {
			t.Errorf("Expected %s, got %s", tt.want, got)
		}
	}
}

func TestDispatchRunsOnLoop(t *testing.T) {
	f := newFixture(t)

	called := false
	f.monitor.Dispatch(CloseAllApps{}, func(Result) { called = true })
	if f.device.CallCount("TriggerSystemView") != 0 {
		t.Fatal("Expected nothing to run before the loop does")
	}
	f.clock.Advance(f.loop, 5*time.Second)
	if !called {
		t.Error("Expected done callback after the loop ran")
	}
}

func TestDispatchLaunchApps(t *testing.T) {
	f := newFixture(t)

	res := f.dispatch(LaunchApps{})
	if res.Command != "launch_apps" || res.Outcome != "scheduled" {
		t.Errorf("Unexpected result %+v", res)
	}
	if n := f.device.CallCount("StartApp"); n != 2 {
		t.Errorf("Expected configured apps launched, got %d", n)
	}

	f.device.Reset()
	f.dispatch(LaunchApps{Apps: []config.TargetApp{{Package: "com.b"}}})
	starts := f.device.CallsTo("StartApp")
	if len(starts) != 1 || starts[0].Arg != "com.b/.Main" {
		t.Errorf("Expected explicit list used, got %+v", starts)
	}

	var manual int
	for _, run := range f.recorder.runs {
		if run.Operation == OpLaunchApp && run.Trigger == history.TriggerManual {
			manual++
		}
	}
	if manual != 3 {
		t.Errorf("Expected 3 manual launch runs, got %d", manual)
	}
}

func TestDispatchIgnoresMasterSwitch(t *testing.T) {
	f := newFixture(t)
	f.cfg.master = false

	res := f.dispatch(CloseAllApps{})
	if res.Outcome != "not_found" {
		t.Errorf("Expected close-all to run with master off, got %+v", res)
	}
	views := f.device.CallsTo("TriggerSystemView")
	if len(views) != 1 || views[0].Arg != "recent_apps" {
		t.Errorf("Expected recents opened, got %+v", views)
	}
}

func TestDispatchShutdownNow(t *testing.T) {
	f := newFixture(t)

	res := f.dispatch(ShutdownNow{})
	if res.Command != "shutdown_now" || res.Outcome != "not_found" {
		t.Errorf("Unexpected result %+v", res)
	}
	ops := f.recorder.operations()
	if len(ops) != 1 || ops[0] != OpShutdownSystem {
		t.Errorf("Expected shutdown run recorded, got %v", ops)
	}
	if f.recorder.runs[0].Trigger != history.TriggerManual {
		t.Errorf("Expected manual trigger, got %s", f.recorder.runs[0].Trigger)
	}
}

func TestDispatchToggleAirplaneExhausts(t *testing.T) {
	f := newFixture(t)

	res := f.dispatch(ToggleAirplane{})
	if res.Outcome != "exhausted_retries" {
		t.Errorf("Expected exhausted retries, got %+v", res)
	}
	if n := f.device.CallCount("GoBack"); n != 1 {
		t.Errorf("Expected exactly one Back, got %d", n)
	}
}

func TestDispatchStartCountdownDefaults(t *testing.T) {
	f := newFixture(t)

	var res Result
	f.monitor.Dispatch(StartCountdown{}, func(r Result) { res = r })
	f.clock.Advance(f.loop, 0)

	if res.Outcome != "started" || res.Countdown == nil {
		t.Fatalf("Unexpected result %+v", res)
	}
	if res.Detail != "closing apps in 60s, shutting down in 90m" {
		t.Errorf("Unexpected detail %q", res.Detail)
	}
	if res.Countdown.FinalKind != config.ActionShutdown {
		t.Errorf("Expected configured action, got %s", res.Countdown.FinalKind)
	}
	if !res.Countdown.AppCloseAt.Equal(f.clock.Now().Add(60 * time.Second)) {
		t.Errorf("Expected configured app delay, got %v", res.Countdown.AppCloseAt)
	}
}

func TestDispatchStartCountdownOverrides(t *testing.T) {
	f := newFixture(t)

	var res Result
	f.monitor.Dispatch(StartCountdown{AppCloseDelay: Delay(5 * time.Second), Action: config.ActionNone}, func(r Result) { res = r })
	f.clock.Advance(f.loop, 0)

	if res.Countdown == nil || res.Countdown.FinalAction.Valid() {
		t.Fatalf("Expected no stage two for none, got %+v", res.Countdown)
	}
	if res.Detail != "closing apps in 5s" {
		t.Errorf("Unexpected detail %q", res.Detail)
	}

	f.clock.Advance(f.loop, 3*time.Hour)
	if n := f.device.CallCount("TriggerSystemView"); n != 1 {
		t.Errorf("Expected only close-all to run, got %d views", n)
	}
	if f.recorder.runs[0].Trigger != history.TriggerManual {
		t.Errorf("Expected manual trigger for manual countdown, got %s", f.recorder.runs[0].Trigger)
	}
}

func TestDispatchStartCountdownZeroDelayClosesAtOnce(t *testing.T) {
	f := newFixture(t)

	var res Result
	f.monitor.Dispatch(StartCountdown{AppCloseDelay: Delay(0), Action: config.ActionNone}, func(r Result) { res = r })
	f.clock.Advance(f.loop, 0)

	if res.Detail != "closing apps in 0s" {
		t.Errorf("Unexpected detail %q", res.Detail)
	}
	views := f.device.CallsTo("TriggerSystemView")
	if len(views) != 1 || views[0].Arg != "recent_apps" || !views[0].At.Equal(f.clock.Now()) {
		t.Errorf("Expected recents opened immediately, got %+v", views)
	}
}

func TestDispatchCancelCountdown(t *testing.T) {
	f := newFixture(t)

	res := f.dispatch(CancelCountdown{})
	if res.Outcome != "idle" {
		t.Errorf("Expected idle when nothing pending, got %+v", res)
	}

	f.monitor.Dispatch(StartCountdown{}, nil)
	f.clock.Advance(f.loop, 0)
	res = f.dispatch(CancelCountdown{})
	if res.Outcome != "cancelled" {
		t.Errorf("Expected cancelled, got %+v", res)
	}
	if f.monitor.Status().CountdownOn {
		t.Error("Expected idle countdown")
	}
}

func TestDispatchWait(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for ctx.Err() == nil {
			f.clock.Advance(f.loop, time.Second)
			time.Sleep(time.Millisecond)
		}
	}()

	res, err := f.monitor.DispatchWait(ctx, CancelCountdown{})
	if err != nil {
		t.Fatalf("DispatchWait failed: %v", err)
	}
	if res.Command != "cancel_countdown" {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestDispatchWaitHonoursContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.monitor.DispatchWait(ctx, CloseAllApps{}); err == nil {
		t.Error("Expected context error")
	}
	if f.loop.Len() != 0 {
		t.Errorf("Expected the command to be cancelled, got %d queued", f.loop.Len())
	}
}

func TestDispatchCompletesWhenDevicePanics(t *testing.T) {
	f := newFixture(t)
	f.device.ActiveWindowFunc = func(n int) (*uitree.Node, error) {
		panic("uiautomator went away")
	}

	res := f.dispatch(CloseAllApps{})
	if res.Command != "close_all_apps" || res.Outcome != "not_found" {
		t.Errorf("Unexpected result %+v", res)
	}
	if f.device.CallCount("GoHome") != 1 {
		t.Errorf("Expected Home pressed, got %v", f.device.Methods())
	}
	if len(f.recorder.runs) != 1 || f.recorder.runs[0].Outcome != "not_found" {
		t.Errorf("Expected the run recorded, got %+v", f.recorder.runs)
	}
}
