// Package store persists game records and the append-only event log in
// BadgerDB.
package store

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "chess-on-chain"

// DefaultDataDir returns the platform-specific data directory used when no
// explicit directory is configured.
// - macOS: ~/Library/Application Support/chess-on-chain/
// - Linux: $XDG_DATA_HOME/chess-on-chain/ or ~/.local/share/chess-on-chain/
// - Windows: %APPDATA%/chess-on-chain/
func DefaultDataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, "AppData", "Roaming")
		}

	default:
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	return filepath.Join(baseDir, appName, "db"), nil
}
