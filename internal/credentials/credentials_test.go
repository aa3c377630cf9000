package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fnos-tools/fnauth/internal/configs"
	logger "github.com/fnos-tools/fnauth/internal/logging"
)

func withTempConfigDir(t *testing.T) {
	t.Helper()
	original := configs.FnauthSettings
	configs.FnauthSettings = &configs.Settings{ConfigDir: t.TempDir()}
	t.Cleanup(func() { configs.FnauthSettings = original })
}

func TestSaveAndLoad(t *testing.T) {
	withTempConfigDir(t)
	log := logger.Logger{}

	if err := Save(log, "anna", "s3cret-password"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	saved, err := Load(log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if saved == nil {
		t.Fatal("expected saved credentials")
	}
	if saved.Username != "anna" || saved.Password != "s3cret-password" {
		t.Errorf("unexpected credentials: %+v", saved)
	}
}

func TestPasswordIsNotStoredInPlaintext(t *testing.T) {
	withTempConfigDir(t)
	log := logger.Logger{}

	if err := Save(log, "anna", "s3cret-password"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(credentialsPath())
	if err != nil {
		t.Fatalf("failed to read credential file: %v", err)
	}
	if strings.Contains(string(data), "s3cret-password") {
		t.Error("password appears in plaintext on disk")
	}
}

func TestLoadAbsent(t *testing.T) {
	withTempConfigDir(t)

	saved, err := Load(logger.Logger{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if saved != nil {
		t.Errorf("expected nil for absent credentials, got %+v", saved)
	}
}

func TestLoadUndecryptableReturnsAbsent(t *testing.T) {
	withTempConfigDir(t)
	log := logger.Logger{}

	if err := Save(log, "anna", "s3cret-password"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Losing the key makes the stored password undecryptable; the cascade
	// must see that as "no credentials", not an error.
	if err := os.Remove(keyPath()); err != nil {
		t.Fatalf("failed to remove key: %v", err)
	}

	saved, err := Load(log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if saved != nil {
		t.Errorf("expected nil for undecryptable credentials, got %+v", saved)
	}
}

func TestCorruptKeyRegenerated(t *testing.T) {
	withTempConfigDir(t)
	log := logger.Logger{}

	if err := os.MkdirAll(configs.FnauthSettings.ConfigDir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath(), []byte("short"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := Save(log, "anna", "pw"); err != nil {
		t.Fatalf("Save failed with corrupt key: %v", err)
	}
	info, err := os.Stat(keyPath())
	if err != nil {
		t.Fatalf("key file missing: %v", err)
	}
	if info.Size() != 32 {
		t.Errorf("expected regenerated 32-byte key, got %d bytes", info.Size())
	}
}

func TestDelete(t *testing.T) {
	withTempConfigDir(t)
	log := logger.Logger{}

	if err := Save(log, "anna", "pw"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(configs.FnauthSettings.ConfigDir, "credentials.toml")); !os.IsNotExist(err) {
		t.Error("credential file still exists after Delete")
	}

	// Deleting again is not an error.
	if err := Delete(); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
}
