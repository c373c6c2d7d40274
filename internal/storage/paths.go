// Package storage persists analysis results and engine preferences.
package storage

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
)

const appName = "nnsearch"

// GetDataDir returns the platform-specific data directory for the application.
// - macOS: ~/Library/Application Support/nnsearch/
// - Linux: $XDG_DATA_HOME/nnsearch/ or ~/.local/share/nnsearch/
// - Windows: %APPDATA%/nnsearch/
func GetDataDir() (string, error) {
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

	return ensureDir(filepath.Join(baseDir, appName))
}

// GetNetworkDir returns the directory searched for network files.
func GetNetworkDir() (string, error) {
	return subDir("nets")
}

// GetDatabaseDir returns the directory of the analysis database.
func GetDatabaseDir() (string, error) {
	return subDir("db")
}

func subDir(name string) (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	dir, err := ensureDir(filepath.Join(dataDir, name))
	if err != nil {
		return "", err
	}
	log.Debug().Str("dir", dir).Msg("data directory")
	return dir, nil
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// DefaultNetworkPath returns where a network file named name is expected.
func DefaultNetworkPath(name string) (string, error) {
	dir, err := GetNetworkDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
