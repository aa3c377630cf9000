package errors

import "errors"

// Transport errors indicate the socket connection to the server failed.
var (
	// ErrConnection indicates the WebSocket connection could not be established.
	ErrConnection = errors.New("failed to connect to server")

	// ErrConnectionClosed indicates the connection closed while requests were pending.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrNotConnected indicates an operation was attempted on a closed client.
	ErrNotConnected = errors.New("not connected to server")

	// ErrTimeout indicates the server did not respond within the deadline.
	ErrTimeout = errors.New("request timed out")
)

// Protocol errors indicate the server sent something unexpected.
var (
	// ErrProtocol indicates a malformed or unexpected response shape.
	ErrProtocol = errors.New("unexpected server response")

	// ErrAuth indicates a server-reported authentication failure.
	ErrAuth = errors.New("authentication failed")
)

// Cryptographic errors indicate malformed key material or corrupted ciphertext.
var (
	// ErrCrypto indicates key parsing or padding failed. Persisted state
	// carrying this error is corrupt and cannot be recovered by retrying.
	ErrCrypto = errors.New("cryptographic operation failed")
)

// Token lifecycle errors indicate a refresh could not be completed.
var (
	// ErrNotLoggedIn indicates no token state exists for any server.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrRefreshExhausted indicates every refresh strategy failed and the
	// user must re-authenticate interactively.
	ErrRefreshExhausted = errors.New("all refresh strategies failed, please run 'fnauth login'")
)

// Environment errors indicate a missing external dependency.
var (
	// ErrGitNotFound indicates git is not installed or not on PATH.
	ErrGitNotFound = errors.New("git is not installed or not in PATH")
)
