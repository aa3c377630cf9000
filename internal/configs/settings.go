package configs

import (
	"log"
	"os"
	"path/filepath"
)

type Settings struct {
	// ConfigDir holds config.toml, credentials.toml, the credential key
	// file, and the global git hooks directory.
	ConfigDir string
}

var FnauthSettings *Settings

func init() {
	if dir := os.Getenv("FNAUTH_CONFIG_DIR"); dir != "" {
		FnauthSettings = &Settings{ConfigDir: dir}
		return
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	FnauthSettings = &Settings{
		ConfigDir: filepath.Join(configDir, "fnauth"),
	}
}

// ConfigFilePath returns the path of the main config file.
func ConfigFilePath() string {
	return filepath.Join(FnauthSettings.ConfigDir, "config.toml")
}

// HooksDir returns the directory holding the global git hook scripts.
func HooksDir() string {
	return filepath.Join(FnauthSettings.ConfigDir, "hooks")
}
