package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownKey is returned by Set for keys it does not know
var ErrUnknownKey = errors.New("unknown setting")

// Update changes several settings at once. Nil fields are left unchanged.
type Update struct {
	MasterEnabled           *bool       `json:"masterEnabled,omitempty"`
	AppCloseDelaySeconds    *uint       `json:"appCloseDelaySeconds,omitempty"`
	FinalActionDelayMinutes *uint       `json:"finalActionDelayMinutes,omitempty"`
	ActionType              *string     `json:"actionType,omitempty"`
	TargetApps              []TargetApp `json:"targetApps,omitempty"`
}

// Empty reports whether u changes nothing
func (u Update) Empty() bool {
	return u.MasterEnabled == nil && u.AppCloseDelaySeconds == nil &&
		u.FinalActionDelayMinutes == nil && u.ActionType == nil && u.TargetApps == nil
}

// Apply validates u and writes it in one save
func (s *Store) Apply(u Update) (Snapshot, error) {
	var action ActionType
	if u.ActionType != nil {
		a, err := ValidateActionType(*u.ActionType)
		if err != nil {
			return Snapshot{}, err
		}
		action = a
	}
	if u.AppCloseDelaySeconds != nil {
		if err := ValidateAppCloseDelaySeconds(*u.AppCloseDelaySeconds); err != nil {
			return Snapshot{}, err
		}
	}
	if u.FinalActionDelayMinutes != nil {
		if err := ValidateFinalActionDelayMinutes(*u.FinalActionDelayMinutes); err != nil {
			return Snapshot{}, err
		}
	}
	if u.Empty() {
		return s.Snapshot(), nil
	}

	err := s.update(func(d *fileData) {
		if u.MasterEnabled != nil {
			v := *u.MasterEnabled
			d.MasterEnabled = &v
		}
		if u.AppCloseDelaySeconds != nil {
			v := *u.AppCloseDelaySeconds
			d.AppCloseDelaySeconds = &v
		}
		if u.FinalActionDelayMinutes != nil {
			v := *u.FinalActionDelayMinutes
			d.FinalActionDelayMinutes = &v
		}
		if u.ActionType != nil {
			d.ActionType = string(action)
		}
		if u.TargetApps != nil {
			d.TargetApps = append([]TargetApp(nil), u.TargetApps...)
		}
	})
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// Setting keys accepted by Set and Get
const (
	KeyMasterEnabled    = "master_enabled"
	KeyAppCloseDelay    = "app_close_delay_seconds"
	KeyFinalActionDelay = "final_action_delay_minutes"
	KeyActionType       = "action_type"
)

// Keys lists the scalar settings
func Keys() []string {
	keys := []string{KeyMasterEnabled, KeyAppCloseDelay, KeyFinalActionDelay, KeyActionType}
	sort.Strings(keys)
	return keys
}

// ParseUpdate turns a key and its text value into an Update
func ParseUpdate(key, value string) (Update, error) {
	value = strings.TrimSpace(value)
	switch key {
	case KeyMasterEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return Update{}, fmt.Errorf("%s: %w", key, err)
		}
		return Update{MasterEnabled: &b}, nil
	case KeyAppCloseDelay, KeyFinalActionDelay:
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return Update{}, fmt.Errorf("%s: %w", key, err)
		}
		v := uint(n)
		if key == KeyAppCloseDelay {
			if err := ValidateAppCloseDelaySeconds(v); err != nil {
				return Update{}, err
			}
			return Update{AppCloseDelaySeconds: &v}, nil
		}
		if err := ValidateFinalActionDelayMinutes(v); err != nil {
			return Update{}, err
		}
		return Update{FinalActionDelayMinutes: &v}, nil
	case KeyActionType:
		if _, err := ValidateActionType(value); err != nil {
			return Update{}, err
		}
		return Update{ActionType: &value}, nil
	default:
		return Update{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// Get returns the text value of a scalar setting
func (s Snapshot) Get(key string) (string, error) {
	switch key {
	case KeyMasterEnabled:
		return strconv.FormatBool(s.MasterEnabled), nil
	case KeyAppCloseDelay:
		return strconv.FormatUint(uint64(s.AppCloseDelaySeconds), 10), nil
	case KeyFinalActionDelay:
		return strconv.FormatUint(uint64(s.FinalActionDelayMinutes), 10), nil
	case KeyActionType:
		return string(s.ActionType), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}
