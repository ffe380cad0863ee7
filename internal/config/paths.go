package config

import (
	"os"
	"path/filepath"
)

const appDir = "arvochat"

// ARVOCHAT_CONFIG_DIR relocates both the config and the secrets file, which
// is how container deployments point at a mounted volume.
func configDir() string {
	if dir := os.Getenv("ARVOCHAT_CONFIG_DIR"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDir)
	}
	return "."
}

func configFilePath() string  { return filepath.Join(configDir(), "config.json") }
func secretsFilePath() string { return filepath.Join(configDir(), "secrets.json") }

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", appDir)
	}
	return appDir + "-data"
}

func defaultBackupPath(dataDir string) string {
	return filepath.Join(dataDir, "contact-submissions.xlsx")
}
