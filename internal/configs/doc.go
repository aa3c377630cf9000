// Package configs manages fnauth's persisted configuration.
//
// Everything lives in a single TOML file under the user config directory
// (overridable with FNAUTH_CONFIG_DIR): the server record with its three-tier
// token chain, and user preferences with defaults for anything unset.
//
// Token expiries are computed by this client when a token is issued and
// stored as RFC 3339 timestamps; the server's own expiry claims are never
// consulted. A missing or unparsable expiry counts as already expired.
package configs
