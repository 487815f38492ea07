package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ignite/internal/config"
	"ignite/internal/history"
	"ignite/internal/routine"
)

var errDeviceOffline = errors.New("device offline")

// MockCall records a method call for verification
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockIgniteApp is a mock implementation of IgniteApp for testing
type MockIgniteApp struct {
	mu    sync.Mutex
	Calls []MockCall

	AppVersion string

	DispatchResult routine.Result
	DispatchError  error
	StatusResult   routine.Status

	SettingsResult  config.Snapshot
	UpdateError     error
	AddAppError     error
	RemoveAppError  error
	ListRunsResult  []history.Run
	ListRunsError   error
	dispatchedCalls []routine.Command
}

// NewMockIgniteApp creates a mock with default results
func NewMockIgniteApp() *MockIgniteApp {
	return &MockIgniteApp{
		AppVersion: "1.0.0-test",
		SettingsResult: config.Snapshot{
			MasterEnabled:           true,
			AppCloseDelaySeconds:    60,
			FinalActionDelayMinutes: 90,
			ActionType:              config.ActionShutdown,
			TargetApps:              []config.TargetApp{{Package: config.LegacyPackage, Label: config.LegacyLabel}},
		},
	}
}

func (m *MockIgniteApp) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// WasMethodCalled checks if a method was called
func (m *MockIgniteApp) WasMethodCalled(method string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.Calls {
		if call.Method == method {
			return true
		}
	}
	return false
}

// GetLastCallByMethod returns the last call to a specific method
func (m *MockIgniteApp) GetLastCallByMethod(method string) *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == method {
			call := m.Calls[i]
			return &call
		}
	}
	return nil
}

// Dispatched returns the commands passed to Dispatch
func (m *MockIgniteApp) Dispatched() []routine.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]routine.Command(nil), m.dispatchedCalls...)
}

func (m *MockIgniteApp) GetAppVersion() string {
	m.recordCall("GetAppVersion")
	return m.AppVersion
}

func (m *MockIgniteApp) Dispatch(ctx context.Context, cmd routine.Command) (routine.Result, error) {
	m.recordCall("Dispatch", cmd)
	m.mu.Lock()
	m.dispatchedCalls = append(m.dispatchedCalls, cmd)
	m.mu.Unlock()
	if m.DispatchError != nil {
		return routine.Result{}, m.DispatchError
	}
	res := m.DispatchResult
	if res.Command == "" {
		res.Command = routine.CommandName(cmd)
	}
	return res, nil
}

func (m *MockIgniteApp) Status() routine.Status {
	m.recordCall("Status")
	return m.StatusResult
}

func (m *MockIgniteApp) Settings() config.Snapshot {
	m.recordCall("Settings")
	return m.SettingsResult
}

func (m *MockIgniteApp) UpdateSettings(u config.Update) (config.Snapshot, error) {
	m.recordCall("UpdateSettings", u)
	if m.UpdateError != nil {
		return config.Snapshot{}, m.UpdateError
	}
	if u.ActionType != nil {
		a, err := config.ValidateActionType(*u.ActionType)
		if err != nil {
			return config.Snapshot{}, err
		}
		m.SettingsResult.ActionType = a
	}
	if u.MasterEnabled != nil {
		m.SettingsResult.MasterEnabled = *u.MasterEnabled
	}
	if u.AppCloseDelaySeconds != nil {
		m.SettingsResult.AppCloseDelaySeconds = *u.AppCloseDelaySeconds
	}
	if u.FinalActionDelayMinutes != nil {
		m.SettingsResult.FinalActionDelayMinutes = *u.FinalActionDelayMinutes
	}
	return m.SettingsResult, nil
}

func (m *MockIgniteApp) AddTargetApp(app config.TargetApp) error {
	m.recordCall("AddTargetApp", app)
	if m.AddAppError != nil {
		return m.AddAppError
	}
	m.SettingsResult.TargetApps = append(m.SettingsResult.TargetApps, app)
	return nil
}

func (m *MockIgniteApp) RemoveTargetApp(index int) error {
	m.recordCall("RemoveTargetApp", index)
	if m.RemoveAppError != nil {
		return m.RemoveAppError
	}
	apps := m.SettingsResult.TargetApps
	if index < 0 || index >= len(apps) {
		return fmt.Errorf("app index %d out of range", index)
	}
	m.SettingsResult.TargetApps = append(apps[:index:index], apps[index+1:]...)
	return nil
}

func (m *MockIgniteApp) ListRuns(ctx context.Context, operation string, limit int) ([]history.Run, error) {
	m.recordCall("ListRuns", operation, limit)
	return m.ListRunsResult, m.ListRunsError
}
