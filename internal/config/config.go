// Package config stores the routine settings: master switch, delays, final
// action and the ordered list of apps to launch.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ActionType is what happens when the final countdown stage fires
type ActionType string

const (
	ActionShutdown ActionType = "shutdown"
	ActionAirplane ActionType = "airplane"
	ActionNone     ActionType = "none"
)

// ErrInvalidActionType is returned by setters given an unknown action
var ErrInvalidActionType = errors.New("invalid action type")

// ParseActionType reads a stored value. Unknown values read as shutdown.
func ParseActionType(s string) ActionType {
	switch ActionType(strings.ToLower(strings.TrimSpace(s))) {
	case ActionAirplane:
		return ActionAirplane
	case ActionNone:
		return ActionNone
	default:
		return ActionShutdown
	}
}

// ValidateActionType accepts only the three known actions
func ValidateActionType(s string) (ActionType, error) {
	switch a := ActionType(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionShutdown, ActionAirplane, ActionNone:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q (want shutdown, airplane or none)", ErrInvalidActionType, s)
	}
}

// TargetApp is one entry of the launch list. An empty Package is a placeholder
// that is kept but skipped when launching.
type TargetApp struct {
	Package string `json:"package"`
	Label   string `json:"label"`
}

// Legacy single-app defaults
const (
	LegacyPackage = "com.skt.tmap.ku"
	LegacyLabel   = "Tmap"
)

// PlaceholderLabel labels an entry added without a package
const PlaceholderLabel = "눌러서 앱 선택"

// Defaults
const (
	DefaultAppCloseDelaySeconds    = 60
	DefaultFinalActionDelayMinutes = 90
)

// Largest delays that still fit in a time.Duration
const (
	MaxAppCloseDelaySeconds    uint64 = math.MaxInt64 / uint64(time.Second)
	MaxFinalActionDelayMinutes uint64 = math.MaxInt64 / uint64(time.Minute)
)

// ErrDelayOutOfRange is returned for delays too long to schedule
var ErrDelayOutOfRange = errors.New("delay out of range")

// ValidateAppCloseDelaySeconds rejects delays above MaxAppCloseDelaySeconds
func ValidateAppCloseDelaySeconds(seconds uint) error {
	if uint64(seconds) > MaxAppCloseDelaySeconds {
		return fmt.Errorf("%w: %d seconds (max %d)", ErrDelayOutOfRange, seconds, MaxAppCloseDelaySeconds)
	}
	return nil
}

// ValidateFinalActionDelayMinutes rejects delays above MaxFinalActionDelayMinutes
func ValidateFinalActionDelayMinutes(minutes uint) error {
	if uint64(minutes) > MaxFinalActionDelayMinutes {
		return fmt.Errorf("%w: %d minutes (max %d)", ErrDelayOutOfRange, minutes, MaxFinalActionDelayMinutes)
	}
	return nil
}

// delayOf converts n units to a Duration, saturating instead of overflowing
func delayOf(n uint, unit time.Duration) time.Duration {
	if uint64(n) > uint64(math.MaxInt64/int64(unit)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(n) * unit
}

// Reader is the read side used by the routine
type Reader interface {
	MasterEnabled() bool
	AppCloseDelay() time.Duration
	FinalActionDelay() time.Duration
	ActionType() ActionType
	TargetApps() []TargetApp
}

// Snapshot is a point-in-time copy of every setting
type Snapshot struct {
	MasterEnabled           bool        `json:"masterEnabled"`
	AppCloseDelaySeconds    uint        `json:"appCloseDelaySeconds"`
	FinalActionDelayMinutes uint        `json:"finalActionDelayMinutes"`
	ActionType              ActionType  `json:"actionType"`
	TargetApps              []TargetApp `json:"targetApps"`
}
