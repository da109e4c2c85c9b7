package config

import (
	"os"
	"path/filepath"
)

// appDir is the per-user directory under the home directory.
const appDir = ".bt-inspector"

// GetConfigPath returns BTI_CONFIG if set, otherwise ~/.bt-inspector/config.
func GetConfigPath() (string, error) {
	if p := os.Getenv("BTI_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDir, "config"), nil
}

// DefaultStoreDir is where behavior files live when store.dir is unset.
func DefaultStoreDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDir, "files"), nil
}

// StoreDir resolves store.dir, falling back to DefaultStoreDir.
func StoreDir(c *Config) (string, error) {
	if dir := DefaultSchema().Resolve(c, "store.dir"); dir != "" {
		return dir, nil
	}
	return DefaultStoreDir()
}
