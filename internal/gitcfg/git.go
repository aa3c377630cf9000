package gitcfg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	kerrors "github.com/fnos-tools/fnauth/internal/errors"
)

const gitTimeout = 10 * time.Second

// RunGit runs a git command with a bounded timeout. On success it returns
// the trimmed stdout; on failure it returns git's stderr, which is where
// git writes its diagnostics.
func RunGit(args ...string) (bool, string) {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return false, strings.TrimSpace(string(exitErr.Stderr))
		}
		return false, strings.TrimSpace(err.Error())
	}
	return true, strings.TrimSpace(string(out))
}

// Installed checks that git is available on PATH and runs.
func Installed() (bool, string) {
	if _, err := exec.LookPath("git"); err != nil {
		return false, ""
	}
	ok, out := RunGit("--version")
	if !ok {
		return false, out
	}
	return true, out
}

// Version returns the bare git version number ("2.43.0"), or empty when
// git is unavailable.
func Version() string {
	ok, out := Installed()
	if !ok {
		return ""
	}
	// "git version 2.43.0" -> "2.43.0"
	parts := strings.Fields(out)
	if len(parts) >= 3 {
		return parts[2]
	}
	return out
}

// Require returns ErrGitNotFound when git is not usable. Commands that
// touch git configuration call this first.
func Require() error {
	if ok, _ := Installed(); !ok {
		return kerrors.ErrGitNotFound
	}
	return nil
}

func headerKey(server string) string {
	return fmt.Sprintf("http.https://%s.extraHeader", server)
}

// Wildcard variant so subdomains of the server resolve the same header
// (Git 2.13+ URL matching).
func wildcardHeaderKey(server string) string {
	return fmt.Sprintf("http.https://*.%s/.extraHeader", server)
}

func headerValue(token string) string {
	return fmt.Sprintf("Cookie: entry-token=%s", token)
}

// SetExtraHeader installs the entry token as a global git extraHeader for
// the server, plus a wildcard entry covering its subdomains. Failure of
// the wildcard entry alone is not fatal: older git versions reject
// wildcard URL keys.
func SetExtraHeader(server, token string) error {
	ok, out := RunGit("config", "--global", headerKey(server), headerValue(token))
	if !ok {
		return fmt.Errorf("failed to set git extraHeader for %s: %s", server, out)
	}

	// Best effort; see above.
	RunGit("config", "--global", wildcardHeaderKey(server), headerValue(token))
	return nil
}

// RemoveExtraHeader removes the extraHeader entries for the server.
func RemoveExtraHeader(server string) bool {
	ok, _ := RunGit("config", "--global", "--unset", headerKey(server))
	RunGit("config", "--global", "--unset", wildcardHeaderKey(server))
	return ok
}

// HasExtraHeader reports whether an extraHeader is configured for the server.
func HasExtraHeader(server string) bool {
	ok, _ := RunGit("config", "--global", "--get", headerKey(server))
	return ok
}

// ListExtraHeaders returns every configured extraHeader line from the
// global git config, token values included; callers redact as needed.
func ListExtraHeaders() []string {
	ok, out := RunGit("config", "--global", "--list")
	if !ok {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(strings.ToLower(line), "extraheader") {
			lines = append(lines, line)
		}
	}
	return lines
}

// ClearExtraHeaders removes every extraHeader entry from the global git
// config and returns the keys it cleared.
func ClearExtraHeaders() []string {
	var cleared []string
	for _, line := range ListExtraHeaders() {
		key, _, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		if ok, _ := RunGit("config", "--global", "--unset", key); ok {
			cleared = append(cleared, key)
		}
	}
	return cleared
}

// SetCredentialCacheTimeout configures git's credential cache helper, or
// disables it when seconds is zero.
func SetCredentialCacheTimeout(seconds int) error {
	if seconds == 0 {
		RunGit("config", "--global", "--unset", "credential.helper")
		return nil
	}
	ok, out := RunGit("config", "--global", "credential.helper", fmt.Sprintf("cache --timeout=%d", seconds))
	if !ok {
		return fmt.Errorf("failed to set credential cache: %s", out)
	}
	return nil
}
