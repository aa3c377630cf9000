package diagnostic

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/fnos-tools/fnauth/internal/configs"
	"github.com/fnos-tools/fnauth/internal/gitcfg"
)

// Keys whose values are masked anywhere they appear in collected data.
var sensitiveKeys = []string{"token", "password", "secret", "sign_key", "cookie", "key"}

const minMaskLength = 8

// Info is the full diagnostic report. Everything in it is already
// redacted; it is safe to attach to a public issue.
type Info struct {
	GeneratedAt string                 `json:"generated_at"`
	BundleID    string                 `json:"bundle_id"`
	Version     string                 `json:"version"`
	System      map[string]string      `json:"system"`
	Git         map[string]interface{} `json:"git"`
	Config      map[string]interface{} `json:"config"`
	Environment map[string]string      `json:"environment"`
	ConfigFiles []FileEntry            `json:"config_files"`
}

// FileEntry describes a file under the config directory by name and size
// only; contents are never included.
type FileEntry struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// MaskValue redacts a sensitive string, keeping the first and last four
// characters when long enough to stay identifiable.
func MaskValue(value string) string {
	if len(value) <= minMaskLength {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Sanitize recursively masks sensitive string values in a map.
func Sanitize(data map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case map[string]interface{}:
			result[key] = Sanitize(v)
		case string:
			if isSensitiveKey(key) {
				result[key] = MaskValue(v)
			} else {
				result[key] = v
			}
		default:
			result[key] = v
		}
	}
	return result
}

func systemInfo() map[string]string {
	return map[string]string{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"go_version": runtime.Version(),
	}
}

var entryTokenPattern = regexp.MustCompile(`(entry-token=)([A-Za-z0-9]+)`)

func gitInfo() map[string]interface{} {
	info := map[string]interface{}{"installed": false}

	installed, version := gitcfg.Installed()
	if !installed {
		return info
	}
	info["installed"] = true
	info["version"] = version

	headers := gitcfg.ListExtraHeaders()
	masked := make([]string, 0, len(headers))
	for _, line := range headers {
		masked = append(masked, entryTokenPattern.ReplaceAllStringFunc(line, func(m string) string {
			sub := entryTokenPattern.FindStringSubmatch(m)
			return sub[1] + MaskValue(sub[2])
		}))
	}
	info["extra_headers"] = masked
	info["hooks_installed"] = gitcfg.HooksInstalled()
	return info
}

func configInfo() map[string]interface{} {
	config, err := configs.LoadConfig()
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	// Round-trip through JSON to get a generic map for redaction.
	raw, err := json.Marshal(map[string]interface{}{
		"server": map[string]interface{}{
			"url":                    config.Server.URL,
			"username":               config.Server.Username,
			"fnos_token":             config.Server.FnosToken,
			"fnos_token_expires_at":  config.Server.FnosTokenExpiresAt,
			"long_token":             config.Server.LongToken,
			"long_token_expires_at":  config.Server.LongTokenExpiresAt,
			"entry_token":            config.Server.EntryToken,
			"entry_token_expires_at": config.Server.EntryTokenExpiresAt,
			"sign_key":               config.Server.SignKey,
			"uid":                    config.Server.UID,
			"admin":                  config.Server.Admin,
			"back_id":                config.Server.BackID,
			"last_login":             config.Server.LastLogin,
		},
		"preferences": config.Preferences,
	})
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return Sanitize(generic)
}

var homePattern = regexp.MustCompile(`(/home/|/Users/)[^/:]+`)

func environmentInfo() map[string]string {
	relevant := []string{"SHELL", "LANG", "TERM", "FNAUTH_CONFIG_DIR", "PATH"}
	env := make(map[string]string)
	for _, name := range relevant {
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		if name == "PATH" {
			value = homePattern.ReplaceAllString(value, "${1}****")
		}
		env[name] = value
	}
	return env
}

func configFiles() []FileEntry {
	dir := configs.FnauthSettings.ConfigDir
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*")
	if err != nil {
		return nil
	}
	var files []FileEntry
	for _, match := range matches {
		info, err := os.Stat(filepath.Join(dir, match))
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileEntry{Path: match, Size: info.Size()})
	}
	return files
}

// Collect assembles the full redacted diagnostic report.
func Collect(version string) *Info {
	return &Info{
		GeneratedAt: time.Now().Format(time.RFC3339),
		BundleID:    uuid.New().String(),
		Version:     version,
		System:      systemInfo(),
		Git:         gitInfo(),
		Config:      configInfo(),
		Environment: environmentInfo(),
		ConfigFiles: configFiles(),
	}
}

const readme = `fnauth diagnostic bundle
========================

This archive contains system and configuration information collected to
help troubleshoot fnauth issues. All sensitive values (tokens, passwords,
keys) have been redacted. It is safe to attach to a GitHub issue.
`

// CreateBundle writes a tar.gz diagnostic bundle into outputDir (the
// working directory when empty) and returns its path.
func CreateBundle(version, outputDir string) (string, error) {
	info := Collect(version)

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode diagnostic info: %w", err)
	}

	if outputDir == "" {
		outputDir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	name := fmt.Sprintf("fnauth-diagnostic-%s.tar.gz", time.Now().Format("20060102_150405"))
	bundlePath := filepath.Join(outputDir, name)

	file, err := os.Create(bundlePath)
	if err != nil {
		return "", fmt.Errorf("failed to create bundle: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	if err := addFile(tw, "diagnostic_info.json", data); err != nil {
		return "", err
	}
	if err := addFile(tw, "README.txt", []byte(readme)); err != nil {
		return "", err
	}
	return bundlePath, nil
}

func addFile(tw *tar.Writer, name string, data []byte) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Print dumps the redacted report as indented JSON to stdout.
func Print(version string) error {
	data, err := json.MarshalIndent(Collect(version), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
