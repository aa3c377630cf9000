package configs

import "time"

// Expired reports whether an RFC 3339 expiry timestamp has passed. An empty
// or unparsable value is treated as already expired: a token whose expiry we
// cannot establish must never be presented to the server.
func Expired(expiresAt string) bool {
	return expiredAt(expiresAt, time.Now())
}

func expiredAt(expiresAt string, now time.Time) bool {
	if expiresAt == "" {
		return true
	}
	t, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return true
	}
	return now.After(t)
}

// ExpiryFrom computes an expiry timestamp anchored at now.
func ExpiryFrom(now time.Time, d time.Duration) string {
	return now.Add(d).Format(time.RFC3339)
}

// EntryTokenExpired reports whether the persisted entry token is expired.
func (c *Config) EntryTokenExpired() bool {
	return Expired(c.Server.EntryTokenExpiresAt)
}

// FnosTokenExpired reports whether the persisted session token is expired.
func (c *Config) FnosTokenExpired() bool {
	return Expired(c.Server.FnosTokenExpiresAt)
}

// LongTokenExpired reports whether the persisted refresh token is expired.
func (c *Config) LongTokenExpired() bool {
	return Expired(c.Server.LongTokenExpiresAt)
}

// EntryTokenNeedsRefresh reports whether the entry token is inside the
// refresh threshold window (or already expired). Returns false when no
// expiry is recorded at all, matching the status display semantics: an
// absent token is "not logged in", not "needs refresh".
func (c *Config) EntryTokenNeedsRefresh() bool {
	if c.Server.EntryTokenExpiresAt == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339, c.Server.EntryTokenExpiresAt)
	if err != nil {
		return false
	}
	return time.Now().After(t.Add(-c.Preferences.RefreshThreshold()))
}
