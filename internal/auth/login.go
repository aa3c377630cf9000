package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/fnos-tools/fnauth/internal/configs"
	"github.com/fnos-tools/fnauth/internal/gitcfg"
)

// LoginResult reports the outcome of a full login.
type LoginResult struct {
	UID   int64
	Admin bool

	// Degraded is set when the entry-token exchange failed and the raw
	// session token was persisted in its place. Git pushes may be
	// rejected with 403 in this mode.
	Degraded bool
}

// Login performs a full password login against the server and persists the
// complete token chain: connect, fetch the public key, log in with
// stay=true so a refresh token is issued, exchange the entry token, compute
// all three expiries anchored at now, save, and install the git
// integration. The connection is closed on every path.
func (m *Manager) Login(ctx context.Context, server, username, password string) (*LoginResult, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, err
	}
	prefs := config.Preferences

	client := m.dial(prefs)
	defer client.Close()

	m.log.Infof("connecting to %s", server)
	if err := client.Connect(ctx, server); err != nil {
		return nil, err
	}

	m.log.Debugf("fetching server public key")
	if _, err := client.GetRSAPub(ctx); err != nil {
		return nil, err
	}

	m.log.Debugf("logging in as %s", username)
	ident, err := client.Login(ctx, username, password, true, prefs.DeviceType, prefs.DeviceName)
	if err != nil {
		return nil, err
	}

	entryToken := ""
	degraded := false
	entryToken, err = client.ExchangeEntryToken(ctx)
	if err != nil {
		// Degraded mode: the session token sometimes passes HTTP auth,
		// so losing the exchange is a warning, not a login failure.
		m.log.WarnfUser("entry token exchange failed (%v); falling back to the session token, git may reject pushes", err)
		entryToken = ident.Token
		degraded = true
	}

	now := time.Now()
	state := configs.ServerState{
		URL:      server,
		Username: username,

		FnosToken:          ident.Token,
		FnosTokenExpiresAt: configs.ExpiryFrom(now, time.Duration(prefs.FnosTokenExpireHours)*time.Hour),

		EntryToken:          entryToken,
		EntryTokenExpiresAt: configs.ExpiryFrom(now, time.Duration(prefs.EntryTokenExpireHours)*time.Hour),

		SignKey: ident.SignKey,
		UID:     ident.UID,
		Admin:   ident.Admin,
		BackID:  ident.BackID,
	}
	if ident.LongToken != "" {
		state.LongToken = ident.LongToken
		state.LongTokenExpiresAt = configs.ExpiryFrom(now, time.Duration(prefs.LongTokenExpireDays)*24*time.Hour)
	}

	config.Server = state
	config.Server.TouchLastLogin()
	if err := configs.SaveConfig(config); err != nil {
		return nil, err
	}

	if err := m.setHeader(server, entryToken); err != nil {
		m.log.WarnfUser("git extraHeader configuration failed: %v", err)
	}
	if previous, err := m.installHooks(); err != nil {
		m.log.WarnfUser("automatic refresh hooks could not be installed: %v; run %s manually after token expiry", err, "fnauth refresh")
	} else if previous != "" {
		m.log.WarnfUser("replaced existing git core.hooksPath (%s)", previous)
	}

	return &LoginResult{UID: ident.UID, Admin: ident.Admin, Degraded: degraded}, nil
}

// Logout clears the persisted token state and removes the git
// integration. The server URL and any saved credentials are kept so the
// next login is quick. Returns false when there was no login to clear.
func (m *Manager) Logout() (bool, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return false, err
	}
	if config.Server.FnosToken == "" && config.Server.EntryToken == "" {
		return false, nil
	}

	if server := config.Server.URL; server != "" {
		gitcfg.RemoveExtraHeader(server)
	}
	if err := gitcfg.RemoveHooks(); err != nil {
		m.log.Warnf("failed to remove git hooks: %v", err)
	}

	config.Server.ClearTokens()
	if err := configs.SaveConfig(config); err != nil {
		return false, fmt.Errorf("failed to persist logout: %w", err)
	}
	return true, nil
}
