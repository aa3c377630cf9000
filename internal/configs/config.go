package configs

import (
	"fmt"
	"os"
	"time"
)

// Config is the root of config.toml: one server record plus user preferences.
// The tool authenticates a single user against a single server; switching
// servers replaces the record.
type Config struct {
	Server      ServerState `toml:"server"`
	Preferences Preferences `toml:"preferences"`
}

// ServerState holds the persisted token chain and user identity for the
// configured server. Expiry fields are RFC 3339 local timestamps computed by
// this client at issuance time; a missing or unparsable value means expired.
type ServerState struct {
	URL      string `toml:"url,omitempty"`
	Username string `toml:"username,omitempty"`

	// Session token, validates an active login on the socket protocol.
	FnosToken          string `toml:"fnos_token,omitempty"`
	FnosTokenExpiresAt string `toml:"fnos_token_expires_at,omitempty"`

	// Refresh token, exchanged for a new session token without a password.
	LongToken          string `toml:"long_token,omitempty"`
	LongTokenExpiresAt string `toml:"long_token_expires_at,omitempty"`

	// Bearer credential handed to git over HTTPS. The only token that
	// leaves this tool.
	EntryToken          string `toml:"entry_token,omitempty"`
	EntryTokenExpiresAt string `toml:"entry_token_expires_at,omitempty"`

	// HMAC key for signing socket requests, base64.
	SignKey string `toml:"sign_key,omitempty"`

	UID       int64  `toml:"uid,omitempty"`
	Admin     bool   `toml:"admin,omitempty"`
	BackID    string `toml:"back_id,omitempty"`
	LastLogin string `toml:"last_login,omitempty"`
}

// LoadConfig loads config.toml, returning defaults when the file does not
// exist. Preference keys absent from the file keep their default values.
func LoadConfig() (*Config, error) {
	config := &Config{
		Preferences: DefaultPreferences(),
	}

	configPath := ConfigFilePath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to config.toml.
func SaveConfig(config *Config) error {
	if err := SaveTOML(ConfigFilePath(), config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// LoggedIn reports whether any usable token state exists.
func (s *ServerState) LoggedIn() bool {
	return s.FnosToken != "" || s.LongToken != ""
}

// ClearTokens removes all token state and user identity but keeps the
// server URL so the next login does not have to ask for it again.
func (s *ServerState) ClearTokens() {
	*s = ServerState{URL: s.URL}
}

// TouchLastLogin records the current time as the last successful login.
func (s *ServerState) TouchLastLogin() {
	s.LastLogin = time.Now().Format(time.RFC3339)
}
