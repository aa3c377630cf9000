package configs

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Preferences are user-tunable settings stored alongside the server state.
// Every field has a default; config.toml only needs to carry overrides.
type Preferences struct {
	TimeoutSeconds             int     `toml:"timeout_seconds"`
	DeviceType                 string  `toml:"device_type"`
	DeviceName                 string  `toml:"device_name"`
	UseSSL                     bool    `toml:"use_ssl"`
	FnConnectCookie            string  `toml:"fn_connect_cookie"`
	EntryTokenExpireHours      int     `toml:"entry_token_expire_hours"`
	FnosTokenExpireHours       int     `toml:"fnos_token_expire_hours"`
	LongTokenExpireDays        int     `toml:"long_token_expire_days"`
	TokenRefreshThresholdHours float64 `toml:"token_refresh_threshold_hours"`
	AutoSaveCredentials        bool    `toml:"auto_save_credentials"`
}

// DefaultPreferences returns the preference set used when config.toml is
// absent or silent. The expiry durations mirror what the server actually
// grants; the server's own expiry is never trusted.
func DefaultPreferences() Preferences {
	return Preferences{
		TimeoutSeconds:             30,
		DeviceType:                 "Browser",
		DeviceName:                 "fnauth",
		UseSSL:                     true,
		FnConnectCookie:            "mode=relay; language=zh",
		EntryTokenExpireHours:      8,
		FnosTokenExpireHours:       8,
		LongTokenExpireDays:        25,
		TokenRefreshThresholdHours: 1.0,
		AutoSaveCredentials:        true,
	}
}

// Timeout returns the request timeout as a duration.
func (p Preferences) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// RefreshThreshold returns how long before expiry a token counts as
// needing refresh.
func (p Preferences) RefreshThreshold() time.Duration {
	return time.Duration(p.TokenRefreshThresholdHours * float64(time.Hour))
}

// prefField maps a CLI-visible preference key to its accessor pair so the
// config command can get and set preferences generically.
type prefField struct {
	get func(*Preferences) string
	set func(*Preferences, string) error
}

var prefFields = map[string]prefField{
	"timeout_seconds": {
		get: func(p *Preferences) string { return strconv.Itoa(p.TimeoutSeconds) },
		set: func(p *Preferences, v string) error { return setInt(&p.TimeoutSeconds, v) },
	},
	"device_type": {
		get: func(p *Preferences) string { return p.DeviceType },
		set: func(p *Preferences, v string) error { p.DeviceType = v; return nil },
	},
	"device_name": {
		get: func(p *Preferences) string { return p.DeviceName },
		set: func(p *Preferences, v string) error { p.DeviceName = v; return nil },
	},
	"use_ssl": {
		get: func(p *Preferences) string { return strconv.FormatBool(p.UseSSL) },
		set: func(p *Preferences, v string) error { return setBool(&p.UseSSL, v) },
	},
	"fn_connect_cookie": {
		get: func(p *Preferences) string { return p.FnConnectCookie },
		set: func(p *Preferences, v string) error { p.FnConnectCookie = v; return nil },
	},
	"entry_token_expire_hours": {
		get: func(p *Preferences) string { return strconv.Itoa(p.EntryTokenExpireHours) },
		set: func(p *Preferences, v string) error { return setInt(&p.EntryTokenExpireHours, v) },
	},
	"fnos_token_expire_hours": {
		get: func(p *Preferences) string { return strconv.Itoa(p.FnosTokenExpireHours) },
		set: func(p *Preferences, v string) error { return setInt(&p.FnosTokenExpireHours, v) },
	},
	"long_token_expire_days": {
		get: func(p *Preferences) string { return strconv.Itoa(p.LongTokenExpireDays) },
		set: func(p *Preferences, v string) error { return setInt(&p.LongTokenExpireDays, v) },
	},
	"token_refresh_threshold_hours": {
		get: func(p *Preferences) string {
			return strconv.FormatFloat(p.TokenRefreshThresholdHours, 'g', -1, 64)
		},
		set: func(p *Preferences, v string) error { return setFloat(&p.TokenRefreshThresholdHours, v) },
	},
	"auto_save_credentials": {
		get: func(p *Preferences) string { return strconv.FormatBool(p.AutoSaveCredentials) },
		set: func(p *Preferences, v string) error { return setBool(&p.AutoSaveCredentials, v) },
	},
}

// PreferenceKeys returns the CLI-settable preference keys, sorted.
func PreferenceKeys() []string {
	keys := make([]string, 0, len(prefFields))
	for k := range prefFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetPreference returns the string form of a preference value.
func (p *Preferences) GetPreference(key string) (string, bool) {
	field, ok := prefFields[key]
	if !ok {
		return "", false
	}
	return field.get(p), true
}

// SetPreference parses and sets a preference value by key.
func (p *Preferences) SetPreference(key, value string) error {
	field, ok := prefFields[key]
	if !ok {
		return fmt.Errorf("unknown preference: %s", key)
	}
	return field.set(p, value)
}

// IsDefault reports whether a preference currently holds its default value.
func (p *Preferences) IsDefault(key string) bool {
	field, ok := prefFields[key]
	if !ok {
		return false
	}
	defaults := DefaultPreferences()
	return field.get(p) == field.get(&defaults)
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("expected an integer, got %q", v)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %q", v)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, v string) error {
	switch v {
	case "true", "1", "yes", "on":
		*dst = true
	case "false", "0", "no", "off":
		*dst = false
	default:
		return fmt.Errorf("expected a boolean, got %q", v)
	}
	return nil
}
