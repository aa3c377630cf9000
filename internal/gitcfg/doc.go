// Package gitcfg wires fnauth into git: it installs the entry token as a
// per-host http.extraHeader so git-over-HTTPS authenticates transparently,
// and manages the global hooks that refresh the token before remote
// operations.
package gitcfg
