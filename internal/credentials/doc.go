// Package credentials stores an optional saved username and password for
// the last-resort refresh strategy. The password is sealed with
// nacl/secretbox under a locally generated key; both the key file and the
// credential file are owner-readable only. A credential that cannot be
// decrypted is treated as absent, never as a fatal error.
package credentials
