// Package xdg resolves the XDG config directory for vendorbridge.
// It falls back to the traditional ~/.config location when XDG variables
// are unset and keeps the directory private, since it may hold resource
// profiles with connection details.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name under the XDG base.
const AppName = "vendorbridge"

// ConfigDir returns the XDG config directory for vendorbridge.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/vendorbridge when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
