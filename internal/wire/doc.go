// Package wire implements the cryptographic primitives of the fnOS socket
// protocol: the hybrid RSA/AES envelope used for login requests, AES-CBC
// encryption of payloads and the server-issued sign secret, and HMAC-SHA256
// request signing.
//
// Signing covers the exact serialized bytes of a request. Callers marshal a
// request once with MarshalCompact and pass those same bytes to Frame; the
// server verifies the signature against everything after the first 44
// characters of the frame.
package wire
