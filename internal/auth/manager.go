package auth

import (
	"context"

	"github.com/fnos-tools/fnauth/internal/configs"
	"github.com/fnos-tools/fnauth/internal/credentials"
	"github.com/fnos-tools/fnauth/internal/gitcfg"
	logger "github.com/fnos-tools/fnauth/internal/logging"
	"github.com/fnos-tools/fnauth/internal/protocol"
)

// Conn is the protocol client surface the lifecycle manager drives. One
// Conn is one connection; the manager opens a fresh one per strategy
// attempt and always closes it.
type Conn interface {
	Connect(ctx context.Context, server string) error
	Close()
	Resume(token, signKey string)
	GetRSAPub(ctx context.Context) (*protocol.PublicKey, error)
	Login(ctx context.Context, username, password string, stay bool, deviceType, deviceName string) (*protocol.SessionIdentity, error)
	AuthToken(ctx context.Context, main bool) (*protocol.SessionIdentity, error)
	ExchangeEntryToken(ctx context.Context) (string, error)
	TokenLogin(ctx context.Context, longToken, deviceType, deviceName string) (*protocol.SessionIdentity, error)
}

// Manager orchestrates the token lifecycle: interactive login, the
// three-tier refresh cascade, and logout. It owns no connection state;
// every operation opens and closes its own.
type Manager struct {
	log logger.Logger

	// Seams for tests. Production values are set by NewManager.
	dial         func(prefs configs.Preferences) Conn
	loadCreds    func() (*credentials.Saved, error)
	setHeader    func(server, token string) error
	installHooks func() (string, error)
}

// NewManager creates a manager wired to the real protocol client, the
// credential store, and the git integration.
func NewManager(log logger.Logger) *Manager {
	return &Manager{
		log: log,
		dial: func(prefs configs.Preferences) Conn {
			return protocol.NewClient(protocol.Options{
				Timeout: prefs.Timeout(),
				UseSSL:  prefs.UseSSL,
				Cookie:  prefs.FnConnectCookie,
				Logger:  log,
			})
		},
		loadCreds:    func() (*credentials.Saved, error) { return credentials.Load(log) },
		setHeader:    gitcfg.SetExtraHeader,
		installHooks: gitcfg.InstallHooks,
	}
}

// CurrentEntryToken returns the persisted entry token for the HTTP
// integration, or false when none is stored.
func CurrentEntryToken() (string, bool) {
	config, err := configs.LoadConfig()
	if err != nil || config.Server.EntryToken == "" {
		return "", false
	}
	return config.Server.EntryToken, true
}

// EntryTokenExpired reports whether the persisted entry token is missing
// or past its locally computed expiry.
func EntryTokenExpired() bool {
	config, err := configs.LoadConfig()
	if err != nil {
		return true
	}
	return config.EntryTokenExpired()
}
