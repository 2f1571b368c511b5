package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	c := cfg.Checks
	if !c.Counts || !c.Bounds || !c.Resolution || !c.Fluff || !c.GPSTime {
		t.Errorf("all checks should default on, got %+v", c)
	}
	if cfg.Report.SuppressWarnings || cfg.Report.Verbose {
		t.Errorf("report defaults = %+v", cfg.Report)
	}
	if cfg.Index.Path != "~/.local/share/lascheck/index.db" {
		t.Errorf("index path = %q", cfg.Index.Path)
	}
	if cfg.Watch.SettleSeconds != 2 {
		t.Errorf("settle = %d, want 2", cfg.Watch.SettleSeconds)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Checks.Counts {
		t.Error("missing file should yield defaults")
	}
}

func TestLoad_FromXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	content := `[checks]
fluff = false

[report]
verbose = true

[watch]
settle_seconds = 9
`
	cfgDir := filepath.Join(dir, "lascheck")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Checks.Fluff {
		t.Error("fluff check should be off")
	}
	if !cfg.Checks.Counts {
		t.Error("unset keys keep their defaults")
	}
	if !cfg.Report.Verbose {
		t.Error("verbose should be on")
	}
	if cfg.Watch.SettleSeconds != 9 {
		t.Errorf("settle = %d, want 9", cfg.Watch.SettleSeconds)
	}
}

func TestLoad_BadTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfgDir := filepath.Join(dir, "lascheck")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte("[checks\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}

	got := expandHome("~/data/index.db")
	want := filepath.Join(home, "data", "index.db")
	if got != want {
		t.Errorf("expandHome = %q, want %q", got, want)
	}

	if got := expandHome("/abs/path.db"); got != "/abs/path.db" {
		t.Errorf("absolute path changed: %q", got)
	}
}

func TestWriteDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load after WriteDefault: %v", err)
	}
	if cfg.Watch.SettleSeconds != 2 || !cfg.Checks.GPSTime {
		t.Errorf("written defaults did not round-trip: %+v", cfg)
	}

	// A second call must leave an existing file alone.
	if err := os.WriteFile(path, []byte("[watch]\nsettle_seconds = 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteDefault(); err != nil {
		t.Fatalf("second WriteDefault: %v", err)
	}
	cfg, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.SettleSeconds != 5 {
		t.Error("WriteDefault overwrote an existing config")
	}
}

func TestCompressHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}

	if got := CompressHome(filepath.Join(home, "x.las")); got != "~/x.las" {
		t.Errorf("CompressHome = %q", got)
	}
	if got := CompressHome("/tmp/x.las"); got != "/tmp/x.las" {
		t.Errorf("path outside home changed: %q", got)
	}
}
