package update

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
)

func TestIsNewer(t *testing.T) {
	cases := []struct {
		current, latest string
		want            bool
	}{
		{"1.2.0", "1.2.1", true},
		{"1.2.0", "v1.3.0", true},
		{"v1.2.0", "1.2.0", false},
		{"1.2.0", "1.1.9", false},
		{"1.2.0", "2.0.0", true},
		{"1.2.0", "1.2.0-beta.1", false},
		{"1.2.0-beta.1", "1.2.0", true},
		{"not-a-version", "1.0.0", false},
		{"1.0.0", "not-a-version", false},
	}
	for _, c := range cases {
		if got := IsNewer(c.current, c.latest); got != c.want {
			t.Errorf("IsNewer(%q, %q) = %v, want %v", c.current, c.latest, got, c.want)
		}
	}
}

func TestAssetNamePerPlatform(t *testing.T) {
	cases := []struct {
		goos, goarch, want string
	}{
		{"linux", "amd64", "fnauth-linux-amd64"},
		{"linux", "arm64", "fnauth-linux-arm64"},
		{"darwin", "amd64", "fnauth-darwin-amd64"},
		{"darwin", "arm64", "fnauth-darwin-arm64"},
		{"windows", "amd64", "fnauth-windows-amd64.exe"},
		{"linux", "mips", ""},
		{"plan9", "amd64", ""},
	}
	for _, c := range cases {
		if got := assetName(c.goos, c.goarch); got != c.want {
			t.Errorf("assetName(%s, %s) = %q, want %q", c.goos, c.goarch, got, c.want)
		}
	}
}

func TestCheckFindsNewRelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/vnd.github.v3+json" {
			t.Errorf("missing Accept header")
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"tag_name":     "v9.9.9",
			"body":         "big release",
			"html_url":     "https://example.com/releases/v9.9.9",
			"published_at": "2026-08-01T00:00:00Z",
			"assets": []map[string]string{
				{
					"name":                 assetName(runtime.GOOS, runtime.GOARCH),
					"browser_download_url": "https://example.com/download/fnauth",
				},
				{"name": "fnauth-other-platform", "browser_download_url": "https://example.com/other"},
			},
		})
	}))
	defer server.Close()

	original := latestReleaseURL
	latestReleaseURL = server.URL
	defer func() { latestReleaseURL = original }()

	result, err := Check("1.0.0")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !result.HasUpdate {
		t.Error("expected an update to be reported")
	}
	if result.Latest.Version != "v9.9.9" {
		t.Errorf("unexpected version %q", result.Latest.Version)
	}
	if AssetName() != "" && result.Latest.DownloadURL != "https://example.com/download/fnauth" {
		t.Errorf("platform asset not selected: %q", result.Latest.DownloadURL)
	}
	if result.Latest.Notes != "big release" {
		t.Errorf("release notes missing: %q", result.Latest.Notes)
	}
}

func TestCheckAlreadyCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"tag_name": "v1.0.0"})
	}))
	defer server.Close()

	original := latestReleaseURL
	latestReleaseURL = server.URL
	defer func() { latestReleaseURL = original }()

	result, err := Check("1.0.0")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.HasUpdate {
		t.Error("same version must not report an update")
	}
}

func TestCheckServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer server.Close()

	original := latestReleaseURL
	latestReleaseURL = server.URL
	defer func() { latestReleaseURL = original }()

	if _, err := Check("1.0.0"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
