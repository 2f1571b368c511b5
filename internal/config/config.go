package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all lascheck configuration.
type Config struct {
	Checks ChecksConfig `toml:"checks"`
	Report ReportConfig `toml:"report"`
	Index  IndexConfig  `toml:"index"`
	Watch  WatchConfig  `toml:"watch"`
}

// ChecksConfig selects which consistency rule groups run.
type ChecksConfig struct {
	Counts     bool `toml:"counts"`
	Bounds     bool `toml:"bounds"`
	Resolution bool `toml:"resolution"`
	Fluff      bool `toml:"fluff"`
	GPSTime    bool `toml:"gps_time"`
}

// ReportConfig controls warning and verbose output.
type ReportConfig struct {
	SuppressWarnings bool `toml:"suppress_warnings"`
	Verbose          bool `toml:"verbose"`
}

// IndexConfig locates the batch-run results database.
type IndexConfig struct {
	Path string `toml:"path"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	SettleSeconds int `toml:"settle_seconds"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Checks: ChecksConfig{
			Counts:     true,
			Bounds:     true,
			Resolution: true,
			Fluff:      true,
			GPSTime:    true,
		},
		Index: IndexConfig{
			Path: "~/.local/share/lascheck/index.db",
		},
		Watch: WatchConfig{
			SettleSeconds: 2,
		},
	}
}

// Load reads config from the standard path, falling back to defaults.
func Load() (Config, error) {
	cfg := DefaultConfig()

	paths := configPaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}

	cfg.Index.Path = expandHome(cfg.Index.Path)

	return cfg, nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "lascheck", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "lascheck", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
