package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ignite/internal/logger"
)

// fileData is the on-disk layout of settings.json
type fileData struct {
	MasterEnabled           *bool       `json:"is_master_enabled,omitempty"`
	AppCloseDelaySeconds    *uint       `json:"app_shutdown_delay_seconds,omitempty"`
	FinalActionDelayMinutes *uint       `json:"system_shutdown_delay_minutes,omitempty"`
	ActionType              string      `json:"action_type,omitempty"`
	TargetApps              []TargetApp `json:"target_apps"`
	LegacyMigrated          bool        `json:"legacy_migrated"`
}

// Store is a JSON-file backed settings store. Reads take a shared lock;
// every setter persists immediately.
type Store struct {
	path string

	mu   sync.RWMutex
	data fileData

	listenersMu sync.Mutex
	listeners   []func(Snapshot)
}

var _ Reader = (*Store)(nil)

// DefaultPath returns <user config dir>/Ignite/settings.json
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "Ignite", "settings.json")
}

// Open loads the store at path, creating its directory. A missing file yields
// defaults. Legacy keys are migrated and removed on first load.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the settings file location
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read settings: %w", err)
	}

	var data fileData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parse settings %s: %w", s.path, err)
		}
	}

	migrated := migrateLegacy(raw, &data)

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()

	if migrated {
		logger.Info("config").
			Int("apps", len(data.TargetApps)).
			Msg("Migrated legacy launch target")
		return s.save()
	}
	return nil
}

// Reload re-reads the file and notifies listeners
func (s *Store) Reload() error {
	if err := s.load(); err != nil {
		return err
	}
	s.notify()
	return nil
}

// OnChange registers fn to be called with a snapshot after every change
func (s *Store) OnChange(fn func(Snapshot)) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

func (s *Store) notify() {
	snap := s.Snapshot()
	s.listenersMu.Lock()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// save writes the file atomically via rename
func (s *Store) save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.json")
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *Store) update(fn func(d *fileData)) error {
	s.mu.Lock()
	fn(&s.data)
	s.mu.Unlock()
	if err := s.save(); err != nil {
		return err
	}
	s.notify()
	return nil
}

// ========================================
// Getters
// ========================================

// MasterEnabled reports whether the routine reacts to power events (default true)
func (s *Store) MasterEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.MasterEnabled == nil {
		return true
	}
	return *s.data.MasterEnabled
}

// AppCloseDelay is the delay before stage one (default 60s). Values too
// large for a Duration saturate.
func (s *Store) AppCloseDelay() time.Duration {
	return delayOf(s.appCloseSeconds(), time.Second)
}

func (s *Store) appCloseSeconds() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.AppCloseDelaySeconds == nil {
		return DefaultAppCloseDelaySeconds
	}
	return *s.data.AppCloseDelaySeconds
}

// FinalActionDelay is the delay before stage two (default 90m). Values too
// large for a Duration saturate.
func (s *Store) FinalActionDelay() time.Duration {
	return delayOf(s.finalActionMinutes(), time.Minute)
}

func (s *Store) finalActionMinutes() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.FinalActionDelayMinutes == nil {
		return DefaultFinalActionDelayMinutes
	}
	return *s.data.FinalActionDelayMinutes
}

// ActionType returns the configured final action
func (s *Store) ActionType() ActionType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ParseActionType(s.data.ActionType)
}

// TargetApps returns a copy of the launch list in launch order
func (s *Store) TargetApps() []TargetApp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TargetApp(nil), s.data.TargetApps...)
}

// Snapshot copies every setting
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		MasterEnabled:           s.MasterEnabled(),
		AppCloseDelaySeconds:    s.appCloseSeconds(),
		FinalActionDelayMinutes: s.finalActionMinutes(),
		ActionType:              s.ActionType(),
		TargetApps:              s.TargetApps(),
	}
}

// ========================================
// Setters
// ========================================

func (s *Store) SetMasterEnabled(enabled bool) error {
	return s.update(func(d *fileData) { d.MasterEnabled = &enabled })
}

func (s *Store) SetAppCloseDelaySeconds(seconds uint) error {
	if err := ValidateAppCloseDelaySeconds(seconds); err != nil {
		return err
	}
	return s.update(func(d *fileData) { d.AppCloseDelaySeconds = &seconds })
}

func (s *Store) SetFinalActionDelayMinutes(minutes uint) error {
	if err := ValidateFinalActionDelayMinutes(minutes); err != nil {
		return err
	}
	return s.update(func(d *fileData) { d.FinalActionDelayMinutes = &minutes })
}

// SetActionType rejects anything other than shutdown, airplane or none
func (s *Store) SetActionType(action string) error {
	a, err := ValidateActionType(action)
	if err != nil {
		return err
	}
	return s.update(func(d *fileData) { d.ActionType = string(a) })
}

// SetTargetApps replaces the whole list
func (s *Store) SetTargetApps(apps []TargetApp) error {
	copied := append([]TargetApp(nil), apps...)
	return s.update(func(d *fileData) { d.TargetApps = copied })
}

// AddTargetApp appends an entry. An empty label becomes the placeholder.
func (s *Store) AddTargetApp(app TargetApp) error {
	if app.Label == "" {
		app.Label = PlaceholderLabel
	}
	return s.update(func(d *fileData) { d.TargetApps = append(d.TargetApps, app) })
}

// SetTargetApp replaces the entry at index, appending when index is one past the end
func (s *Store) SetTargetApp(index int, app TargetApp) error {
	s.mu.RLock()
	n := len(s.data.TargetApps)
	s.mu.RUnlock()
	if index < 0 || index > n {
		return fmt.Errorf("app index %d out of range [0,%d]", index, n)
	}
	return s.update(func(d *fileData) {
		if index < len(d.TargetApps) {
			d.TargetApps[index] = app
		} else {
			d.TargetApps = append(d.TargetApps, app)
		}
	})
}

// RemoveTargetApp deletes the entry at index, keeping the order of the rest
func (s *Store) RemoveTargetApp(index int) error {
	s.mu.RLock()
	n := len(s.data.TargetApps)
	s.mu.RUnlock()
	if index < 0 || index >= n {
		return fmt.Errorf("app index %d out of range [0,%d)", index, n)
	}
	return s.update(func(d *fileData) {
		d.TargetApps = append(d.TargetApps[:index:index], d.TargetApps[index+1:]...)
	})
}
