package config

import (
	"os"
	"path/filepath"
)

const appName = "ytmp"

// Dir returns the directory holding settings, history, the queue snapshot
// and the debug log.
func Dir() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// DefaultCacheDir returns where fetched audio is kept.
func DefaultCacheDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, appName, "audio")
	}
	return filepath.Join(os.TempDir(), appName+"-audio")
}
