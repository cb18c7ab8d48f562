package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const appDataFolderName = "resonance-relay-sniffer"

// resolveAppDataDir returns the per-user application data directory this
// binary shares with its UI collaborator, creating it if absent.
func resolveAppDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve user config directory")
	}
	dir := filepath.Join(base, appDataFolderName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create app data directory")
	}
	return dir, nil
}
