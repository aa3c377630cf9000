// Package auth implements the token lifecycle manager.
//
// The fnOS protocol issues a three-tier token chain: a short-lived session
// token (fnos_token), a long-lived refresh token (long_token), and the
// entry token that git-over-HTTPS actually presents. This package keeps
// that chain valid with an ordered cascade of refresh strategies, each
// cheaper than the next, falling back to a full password login only when
// everything else is exhausted:
//
//  1. Validate the stored session token and exchange a new entry token.
//  2. Trade the long token for a fresh session token, then exchange.
//  3. Re-login with saved credentials (re-derives the long token too).
//  4. Give up and ask the user to log in interactively.
//
// Each strategy opens its own connection and persists its results
// atomically, so a failed attempt never corrupts previously saved state.
package auth
