package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns the lascheck config directory path.
// Uses $XDG_CONFIG_HOME/lascheck if set, otherwise ~/.config/lascheck.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lascheck")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "lascheck")
}

// WriteDefault writes a default config.toml.
// Returns the config file path. Skips if config.toml already exists.
func WriteDefault() (string, error) {
	dir := ConfigDir()
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); err == nil {
		return path, nil // already exists
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	content := `[checks]
counts = true
bounds = true
resolution = true
fluff = true
gps_time = true

[report]
suppress_warnings = false
verbose = false

[index]
path = "~/.local/share/lascheck/index.db"

[watch]
settle_seconds = 2
`

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	return path, nil
}

// CompressHome replaces $HOME prefix with ~/ for portable display values.
func CompressHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home+"/") {
		return "~/" + path[len(home)+1:]
	}
	if path == home {
		return "~"
	}
	return path
}
