package diagnostic

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/fnos-tools/fnauth/internal/configs"
)

func withTempConfigDir(t *testing.T) {
	t.Helper()
	original := configs.FnauthSettings
	configs.FnauthSettings = &configs.Settings{ConfigDir: t.TempDir()}
	t.Cleanup(func() { configs.FnauthSettings = original })
}

func TestMaskValue(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "*****"},
		// At or under eight characters everything is hidden; keeping the
		// first and last four would reveal the whole value.
		{"abcdefgh", "********"},
		{"abcdefghijkl", "abcd****ijkl"},
	}
	for _, c := range cases {
		if got := MaskValue(c.in); got != c.want {
			t.Errorf("MaskValue(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMaskValueNeverLeaksMiddle(t *testing.T) {
	secret := "this-is-a-very-secret-token-value"
	masked := MaskValue(secret)
	if strings.Contains(masked, "very-secret") {
		t.Errorf("masked value leaks content: %q", masked)
	}
	if len(masked) != len(secret) {
		t.Errorf("mask changed length: %d != %d", len(masked), len(secret))
	}
}

func TestSanitizeRedactsSensitiveKeys(t *testing.T) {
	data := map[string]interface{}{
		"url":        "nas.local:5666",
		"fnos_token": "abcdefghijklmnop",
		"sign_key":   "0123456789abcdef",
		"nested": map[string]interface{}{
			"password": "hunter2hunter2",
			"uid":      float64(1000),
		},
	}

	clean := Sanitize(data)

	if clean["url"] != "nas.local:5666" {
		t.Error("non-sensitive value was altered")
	}
	if clean["fnos_token"] == "abcdefghijklmnop" {
		t.Error("token was not redacted")
	}
	nested := clean["nested"].(map[string]interface{})
	if nested["password"] == "hunter2hunter2" {
		t.Error("nested password was not redacted")
	}
	if nested["uid"] != float64(1000) {
		t.Error("non-string value was altered")
	}
}

func TestCollectRedactsConfigTokens(t *testing.T) {
	withTempConfigDir(t)

	config, _ := configs.LoadConfig()
	config.Server.URL = "nas.local:5666"
	config.Server.FnosToken = "super-secret-session-token"
	config.Server.SignKey = "super-secret-sign-key-value"
	if err := configs.SaveConfig(config); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info := Collect("1.0.0-test")

	raw, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("report is not serializable: %v", err)
	}
	report := string(raw)
	if strings.Contains(report, "super-secret-session-token") {
		t.Error("session token leaked into the report")
	}
	if strings.Contains(report, "super-secret-sign-key-value") {
		t.Error("sign key leaked into the report")
	}
	if !strings.Contains(report, "nas.local:5666") {
		t.Error("server URL should remain readable")
	}
	if info.BundleID == "" {
		t.Error("missing bundle id")
	}

	// config.toml must be listed by name and size, never by content.
	found := false
	for _, f := range info.ConfigFiles {
		if f.Path == "config.toml" {
			found = true
		}
	}
	if !found {
		t.Errorf("config.toml not listed in %v", info.ConfigFiles)
	}
}

func TestCreateBundle(t *testing.T) {
	withTempConfigDir(t)
	outDir := t.TempDir()

	path, err := CreateBundle("1.0.0-test", outDir)
	if err != nil {
		t.Fatalf("CreateBundle failed: %v", err)
	}
	if !strings.HasSuffix(path, ".tar.gz") {
		t.Errorf("unexpected bundle name %q", path)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("bundle missing: %v", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		t.Fatalf("bundle is not gzip: %v", err)
	}
	tr := tar.NewReader(gz)

	members := map[string]bool{}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("bundle is not a tar archive: %v", err)
		}
		members[header.Name] = true
		if header.Name == "diagnostic_info.json" {
			var info Info
			if err := json.NewDecoder(tr).Decode(&info); err != nil {
				t.Errorf("diagnostic_info.json is not valid JSON: %v", err)
			}
		}
	}

	if !members["diagnostic_info.json"] || !members["README.txt"] {
		t.Errorf("bundle members incomplete: %v", members)
	}
}
