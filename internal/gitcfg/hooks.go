package gitcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fnos-tools/fnauth/internal/configs"
)

// hookScript runs before remote git operations and refreshes the entry
// token when needed. It must never block the git operation: a missing
// binary or a failed refresh exits zero.
//
// Git for Windows runs hooks under Git Bash, so a POSIX script works on
// every platform.
const hookScript = `#!/bin/sh
# Installed by fnauth. Refreshes the fnOS entry token before remote
# operations; never blocks git.

FNAUTH=""
if command -v fnauth >/dev/null 2>&1; then
    FNAUTH="fnauth"
elif [ -x "$HOME/.local/bin/fnauth" ]; then
    FNAUTH="$HOME/.local/bin/fnauth"
elif [ -x "/usr/local/bin/fnauth" ]; then
    FNAUTH="/usr/local/bin/fnauth"
fi

if [ -z "$FNAUTH" ]; then
    exit 0
fi

if ! $FNAUTH refresh 2>/dev/null; then
    echo "[fnauth] token refresh failed, check login status" >&2
fi

exit 0
`

// Hooks covering the remote operations that need a fresh entry token.
var hookNames = []string{"pre-push", "pre-auto-gc"}

// normalizePath canonicalizes a path for comparison: forward slashes, no
// trailing slash, case-folded (Windows paths compare case-insensitively).
func normalizePath(path string) string {
	return strings.ToLower(strings.TrimRight(strings.ReplaceAll(path, "\\", "/"), "/"))
}

func currentHooksPath() string {
	_, out := RunGit("config", "--global", "--get", "core.hooksPath")
	return out
}

// InstallHooks writes the refresh hook scripts and points git's global
// core.hooksPath at them. An existing user hooksPath is overwritten; the
// returned previous path lets the caller warn about it.
func InstallHooks() (previous string, err error) {
	hooksDir := configs.HooksDir()

	previous = currentHooksPath()
	if previous != "" && normalizePath(previous) == normalizePath(hooksDir) {
		previous = ""
	}

	if err := os.MkdirAll(hooksDir, 0700); err != nil {
		return previous, fmt.Errorf("failed to create hooks directory: %w", err)
	}

	for _, name := range hookNames {
		hookPath := filepath.Join(hooksDir, name)
		if err := os.WriteFile(hookPath, []byte(hookScript), 0755); err != nil {
			return previous, fmt.Errorf("failed to write %s hook: %w", name, err)
		}
	}

	if ok, out := RunGit("config", "--global", "core.hooksPath", hooksDir); !ok {
		return previous, fmt.Errorf("failed to set core.hooksPath: %s", out)
	}
	return previous, nil
}

// RemoveHooks unsets core.hooksPath only when it points at our hooks
// directory, then deletes the directory. A user's own hooksPath is never
// touched.
func RemoveHooks() error {
	hooksDir := configs.HooksDir()

	if current := currentHooksPath(); current != "" && normalizePath(current) == normalizePath(hooksDir) {
		RunGit("config", "--global", "--unset", "core.hooksPath")
	}

	if err := os.RemoveAll(hooksDir); err != nil {
		return fmt.Errorf("failed to remove hooks directory: %w", err)
	}
	return nil
}

// HooksInstalled reports whether git's global hooksPath points at our
// hooks directory.
func HooksInstalled() bool {
	current := currentHooksPath()
	return current != "" && normalizePath(current) == normalizePath(configs.HooksDir())
}

// InstalledHookNames lists the hook scripts present in our hooks
// directory, for status display.
func InstalledHookNames() []string {
	entries, err := os.ReadDir(configs.HooksDir())
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names
}
