// Package protocol implements the fnOS WebSocket protocol client.
//
// One Client owns one connection. Requests are compact JSON frames carrying
// a unique request id; a single receive loop correlates inbound frames to
// suspended callers strictly by that id, so responses may arrive in any
// order and concurrent requests on one connection are safe. Login payloads
// travel inside a hybrid RSA/AES envelope, and authenticated requests are
// HMAC-signed with a key the server delivers encrypted at login.
//
// The client performs no retries; retry policy belongs to the token
// lifecycle manager in the auth package.
package protocol
