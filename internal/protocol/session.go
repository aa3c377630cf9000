package protocol

// SessionIdentity is the outcome of a successful login, token login, or
// token validation: everything subsequent operations need to act as the
// authenticated user. Values are immutable snapshots; the token lifecycle
// manager copies them into persisted state.
type SessionIdentity struct {
	// Token is the opaque session token (fnos_token).
	Token string

	// SignKey is the base64 HMAC key obtained by decrypting the server's
	// secret with the connection's session AES key.
	SignKey string

	UID   int64
	Admin bool

	// BackID is the server-assigned session correlation id embedded in
	// every request id after login.
	BackID string

	// LongToken is the long-lived refresh token, present only when login
	// was requested with stay=true.
	LongToken string
}
