package update

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Masterminds/semver/v3"
)

const githubRepo = "fnos-tools/fnauth"

// latestReleaseURL is a variable so tests can point the checker at a
// local server.
var latestReleaseURL = fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", githubRepo)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Release describes the latest published release relevant to this build.
type Release struct {
	Version     string
	DownloadURL string
	Notes       string
	ReleaseURL  string
	PublishedAt string
}

// CheckResult reports whether a newer release is available.
type CheckResult struct {
	HasUpdate      bool
	CurrentVersion string
	Latest         *Release
}

type releaseResponse struct {
	TagName     string `json:"tag_name"`
	Body        string `json:"body"`
	HTMLURL     string `json:"html_url"`
	PublishedAt string `json:"published_at"`
	Assets      []struct {
		Name        string `json:"name"`
		DownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// AssetName returns the release asset filename for the current platform,
// or empty when no prebuilt binary is published for it.
func AssetName() string {
	return assetName(runtime.GOOS, runtime.GOARCH)
}

func assetName(goos, goarch string) string {
	switch goos {
	case "linux", "darwin":
		switch goarch {
		case "amd64", "arm64":
			return fmt.Sprintf("fnauth-%s-%s", goos, goarch)
		}
	case "windows":
		if goarch == "amd64" {
			return "fnauth-windows-amd64.exe"
		}
	}
	return ""
}

// IsNewer reports whether latest is a strictly newer semantic version
// than current. Unparsable versions compare as not newer.
func IsNewer(current, latest string) bool {
	currentVersion, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	latestVersion, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	return latestVersion.GreaterThan(currentVersion)
}

func fetchLatestRelease(currentVersion string) (*Release, error) {
	req, err := http.NewRequest(http.MethodGet, latestReleaseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "fnauth/"+currentVersion)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach release API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release API returned %s", resp.Status)
	}

	var release releaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release response: %w", err)
	}

	result := &Release{
		Version:     release.TagName,
		Notes:       release.Body,
		ReleaseURL:  release.HTMLURL,
		PublishedAt: release.PublishedAt,
	}
	wanted := AssetName()
	for _, asset := range release.Assets {
		if asset.Name == wanted {
			result.DownloadURL = asset.DownloadURL
			break
		}
	}
	return result, nil
}

// Check queries GitHub for the latest release and compares it against
// the running version.
func Check(currentVersion string) (*CheckResult, error) {
	latest, err := fetchLatestRelease(currentVersion)
	if err != nil {
		return nil, err
	}
	return &CheckResult{
		HasUpdate:      IsNewer(currentVersion, latest.Version),
		CurrentVersion: currentVersion,
		Latest:         latest,
	}, nil
}

func download(url, currentVersion string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "fnauth/"+currentVersion)

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned %s", resp.Status)
	}

	tempDir, err := os.MkdirTemp("", "fnauth-update-")
	if err != nil {
		return "", err
	}
	tempFile := filepath.Join(tempDir, filepath.Base(url))

	file, err := os.Create(tempFile)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		os.RemoveAll(tempDir)
		return "", fmt.Errorf("download failed: %w", err)
	}
	return tempFile, nil
}

// Apply downloads the release binary and replaces the running
// executable, keeping a .backup copy of the old one.
func Apply(release *Release, currentVersion string) error {
	if release.DownloadURL == "" {
		return fmt.Errorf("no prebuilt binary for %s/%s, see %s", runtime.GOOS, runtime.GOARCH, release.ReleaseURL)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate current executable: %w", err)
	}
	executable, err = filepath.EvalSymlinks(executable)
	if err != nil {
		return fmt.Errorf("failed to resolve current executable: %w", err)
	}

	downloaded, err := download(release.DownloadURL, currentVersion)
	if err != nil {
		return err
	}
	defer os.RemoveAll(filepath.Dir(downloaded))

	backup := executable + ".backup"
	if err := copyFile(executable, backup); err != nil {
		return fmt.Errorf("failed to back up current binary: %w", err)
	}

	// Rename over the running binary; fall back to copy when the temp
	// dir is on a different filesystem.
	if err := os.Rename(downloaded, executable); err != nil {
		if err := copyFile(downloaded, executable); err != nil {
			return fmt.Errorf("failed to install new binary: %w", err)
		}
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(executable, 0755); err != nil {
			return fmt.Errorf("failed to mark new binary executable: %w", err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	info, err := in.Stat()
	if err != nil {
		return err
	}
	return out.Chmod(info.Mode())
}
