package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/fnos-tools/fnauth/internal/configs"
	logger "github.com/fnos-tools/fnauth/internal/logging"
)

// Saved is a decrypted credential pair.
type Saved struct {
	Username string
	Password string
}

type credentialsFile struct {
	Username string `toml:"username"`
	// Password is the secretbox-sealed password, base64, nonce prepended.
	Password string `toml:"password"`
}

func credentialsPath() string {
	return filepath.Join(configs.FnauthSettings.ConfigDir, "credentials.toml")
}

func keyPath() string {
	return filepath.Join(configs.FnauthSettings.ConfigDir, ".key")
}

// getOrCreateKey loads the 32-byte at-rest key, generating it on first use.
// A key file of the wrong size is treated as corrupt and regenerated, which
// makes previously saved credentials unreadable; they are simply absent on
// the next Load.
func getOrCreateKey(log logger.Logger) ([32]byte, error) {
	var key [32]byte

	if err := os.MkdirAll(configs.FnauthSettings.ConfigDir, 0700); err != nil {
		return key, fmt.Errorf("failed to create config directory: %w", err)
	}

	if data, err := os.ReadFile(keyPath()); err == nil {
		if len(data) == 32 {
			copy(key[:], data)
			return key, nil
		}
		log.Warnf("credential key file is corrupt, regenerating")
	}

	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return key, fmt.Errorf("failed to generate credential key: %w", err)
	}
	if err := os.WriteFile(keyPath(), key[:], 0600); err != nil {
		return key, fmt.Errorf("failed to save credential key: %w", err)
	}
	return key, nil
}

// Save encrypts the password at rest and writes the credential file with
// owner-only permissions.
func Save(log logger.Logger, username, password string) error {
	key, err := getOrCreateKey(log)
	if err != nil {
		return err
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(password), &nonce, &key)

	file := credentialsFile{
		Username: username,
		Password: base64.StdEncoding.EncodeToString(sealed),
	}
	if err := configs.SaveTOML(credentialsPath(), file); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	if err := os.Chmod(credentialsPath(), 0600); err != nil {
		log.Debugf("failed to restrict credential file permissions: %v", err)
	}
	return nil
}

// Load returns the saved credentials, or nil when none exist or the stored
// password cannot be decrypted. Decryption failure is not an error to the
// caller: the refresh cascade treats it the same as having no credentials.
func Load(log logger.Logger) (*Saved, error) {
	if _, err := os.Stat(credentialsPath()); os.IsNotExist(err) {
		return nil, nil
	}

	var file credentialsFile
	if err := configs.LoadTOML(credentialsPath(), &file); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if file.Username == "" || file.Password == "" {
		return nil, nil
	}

	key, err := getOrCreateKey(log)
	if err != nil {
		return nil, err
	}

	sealed, err := base64.StdEncoding.DecodeString(file.Password)
	if err != nil || len(sealed) < 24 {
		log.Debugf("saved password is malformed, ignoring")
		return nil, nil
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &key)
	if !ok {
		log.Debugf("saved password failed to decrypt, ignoring")
		return nil, nil
	}

	return &Saved{Username: file.Username, Password: string(plaintext)}, nil
}

// Delete removes the saved credentials. Missing files are not an error.
func Delete() error {
	if err := os.Remove(credentialsPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
