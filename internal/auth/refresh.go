package auth

import (
	"context"
	"errors"
	"time"

	"github.com/fnos-tools/fnauth/internal/configs"
	kerrors "github.com/fnos-tools/fnauth/internal/errors"
)

// strategy is one rung of the refresh cascade. applies is a cheap local
// check; run opens its own connection and persists its own results, so a
// failed strategy leaves previously persisted state untouched.
type strategy struct {
	name    string
	applies func(config *configs.Config) bool
	run     func(ctx context.Context, config *configs.Config) error
}

// Refresh drives the strategy cascade in fixed priority order and stops at
// the first success. Strategies run strictly sequentially; two competing
// logins for the same identity must never be in flight at once.
//
// Transport, timeout, and auth failures fall through to the next strategy
// (a token the server rejects and a server we cannot reach look the same
// from here; the next rung covers both). Crypto failures do not fall
// through: they mean persisted state is corrupt and retrying with the same
// state cannot help.
func (m *Manager) Refresh(ctx context.Context) error {
	config, err := configs.LoadConfig()
	if err != nil {
		return err
	}
	if config.Server.URL == "" {
		return kerrors.ErrNotLoggedIn
	}
	if !config.Server.LoggedIn() {
		if creds, _ := m.loadCreds(); creds == nil {
			return kerrors.ErrNotLoggedIn
		}
	}

	strategies := []strategy{
		{
			name: "session token",
			applies: func(c *configs.Config) bool {
				return c.Server.FnosToken != "" && c.Server.SignKey != "" && !c.FnosTokenExpired()
			},
			run: m.refreshWithSessionToken,
		},
		{
			name: "long token",
			applies: func(c *configs.Config) bool {
				return c.Server.LongToken != "" && !c.LongTokenExpired()
			},
			run: m.refreshWithLongToken,
		},
		{
			name: "saved credentials",
			applies: func(c *configs.Config) bool {
				creds, err := m.loadCreds()
				return err == nil && creds != nil
			},
			run: m.refreshWithCredentials,
		},
	}

	// Each strategy gets its own deadline. A rung that hangs until timeout
	// must not leave the rungs behind it with an already-dead context.
	budget := config.Preferences.Timeout()

	for _, s := range strategies {
		if !s.applies(config) {
			m.log.Debugf("refresh strategy %q not applicable", s.name)
			continue
		}
		m.log.Infof("trying refresh strategy: %s", s.name)
		sctx, cancel := context.WithTimeout(ctx, budget)
		err := s.run(sctx, config)
		cancel()
		if err == nil {
			m.log.Infof("refresh succeeded via %s", s.name)
			return nil
		}
		if errors.Is(err, kerrors.ErrCrypto) {
			return err
		}
		m.log.Warnf("refresh via %s failed: %v", s.name, err)
	}

	return kerrors.ErrRefreshExhausted
}

// refreshWithSessionToken is the fast path: validate the stored session
// token on a fresh connection and exchange a new entry token. Only the
// entry token and its expiry are persisted.
func (m *Manager) refreshWithSessionToken(ctx context.Context, config *configs.Config) error {
	prefs := config.Preferences

	client := m.dial(prefs)
	defer client.Close()

	if err := client.Connect(ctx, config.Server.URL); err != nil {
		return err
	}
	client.Resume(config.Server.FnosToken, config.Server.SignKey)

	if _, err := client.AuthToken(ctx, true); err != nil {
		return err
	}
	entryToken, err := client.ExchangeEntryToken(ctx)
	if err != nil {
		return err
	}

	return m.persistEntryToken(config.Server.URL, entryToken)
}

// refreshWithLongToken exchanges the long-lived refresh token for a new
// session token, then a new entry token. The long token row itself is left
// untouched.
func (m *Manager) refreshWithLongToken(ctx context.Context, config *configs.Config) error {
	prefs := config.Preferences

	client := m.dial(prefs)
	defer client.Close()

	if err := client.Connect(ctx, config.Server.URL); err != nil {
		return err
	}
	if _, err := client.GetRSAPub(ctx); err != nil {
		return err
	}

	ident, err := client.TokenLogin(ctx, config.Server.LongToken, prefs.DeviceType, prefs.DeviceName)
	if err != nil {
		return err
	}
	entryToken, err := client.ExchangeEntryToken(ctx)
	if err != nil {
		return err
	}

	// Re-read before writing so a concurrent preference edit is not lost;
	// the write itself is one atomic save of the full record.
	fresh, err := configs.LoadConfig()
	if err != nil {
		return err
	}
	now := time.Now()
	fresh.Server.FnosToken = ident.Token
	fresh.Server.FnosTokenExpiresAt = configs.ExpiryFrom(now, time.Duration(prefs.FnosTokenExpireHours)*time.Hour)
	fresh.Server.EntryToken = entryToken
	fresh.Server.EntryTokenExpiresAt = configs.ExpiryFrom(now, time.Duration(prefs.EntryTokenExpireHours)*time.Hour)
	fresh.Server.SignKey = ident.SignKey
	if ident.UID != 0 {
		fresh.Server.UID = ident.UID
	}
	if ident.Admin {
		fresh.Server.Admin = true
	}
	if ident.BackID != "" {
		fresh.Server.BackID = ident.BackID
	}
	if err := configs.SaveConfig(fresh); err != nil {
		return err
	}

	if err := m.setHeader(fresh.Server.URL, entryToken); err != nil {
		m.log.Warnf("failed to update git extraHeader: %v", err)
	}
	return nil
}

// refreshWithCredentials re-runs the full login with the saved username
// and password. This is the only strategy that re-derives the long token.
func (m *Manager) refreshWithCredentials(ctx context.Context, config *configs.Config) error {
	creds, err := m.loadCreds()
	if err != nil {
		return err
	}
	if creds == nil {
		return kerrors.ErrNotLoggedIn
	}

	m.log.Infof("tokens invalid, re-authenticating with saved credentials")
	_, err = m.Login(ctx, config.Server.URL, creds.Username, creds.Password)
	return err
}

// persistEntryToken writes only the entry token and its expiry, leaving
// every other field of the server record as currently persisted.
func (m *Manager) persistEntryToken(server, entryToken string) error {
	config, err := configs.LoadConfig()
	if err != nil {
		return err
	}
	config.Server.EntryToken = entryToken
	config.Server.EntryTokenExpiresAt = configs.ExpiryFrom(time.Now(),
		time.Duration(config.Preferences.EntryTokenExpireHours)*time.Hour)
	if err := configs.SaveConfig(config); err != nil {
		return err
	}

	if err := m.setHeader(server, entryToken); err != nil {
		m.log.Warnf("failed to update git extraHeader: %v", err)
	}
	return nil
}
