package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFrom(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `[search]
prefix = 85.0
fuzzy_threshold = 0.6

[log]
level = "debug"
file = "logs/nv.log"

[telemetry]
enabled = true

[plugins]
dir = "/opt/nv/plugins"
disabled = ["Legacy"]

[ui]
accent = "39"
code_theme = "dracula"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Search.Prefix != 85 {
		t.Errorf("expected search.prefix 85, got %v", cfg.Search.Prefix)
	}
	if cfg.Search.Exact != 100 {
		t.Errorf("expected search.exact to keep its default, got %v", cfg.Search.Exact)
	}
	if cfg.Search.FuzzyThreshold != 0.6 {
		t.Errorf("expected fuzzy_threshold 0.6, got %v", cfg.Search.FuzzyThreshold)
	}
	if cfg.Search.SuggestLimit != 3 {
		t.Errorf("expected suggest_limit default 3, got %d", cfg.Search.SuggestLimit)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log.level 'debug', got %q", cfg.Log.Level)
	}
	if cfg.UI.Accent != "39" {
		t.Errorf("expected ui.accent '39', got %q", cfg.UI.Accent)
	}
	if cfg.UI.CodeTheme != "dracula" {
		t.Errorf("expected ui.code_theme 'dracula', got %q", cfg.UI.CodeTheme)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("expected telemetry enabled")
	}
	if got, want := cfg.TelemetryPath(), filepath.Join(tmpDir, "telemetry.db"); got != want {
		t.Errorf("expected telemetry path %q, got %q", want, got)
	}
	if got, want := cfg.Resolve(cfg.Log.File), filepath.Join(tmpDir, "logs", "nv.log"); got != want {
		t.Errorf("expected log file %q, got %q", want, got)
	}
	if got := cfg.PluginDir(); got != filepath.Clean("/opt/nv/plugins") {
		t.Errorf("expected absolute plugin dir, got %q", got)
	}
	if !cfg.PluginDisabled("legacy") {
		t.Error("expected legacy plugins to be disabled")
	}
	if cfg.Path() != configPath {
		t.Errorf("expected path %q, got %q", configPath, cfg.Path())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoadFromInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	// Invalid TOML
	content := `this is not valid toml {{{{`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadFrom(configPath)
	if err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestLoadFromUnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[search]\nexcat = 99.0\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadFrom(configPath)
	if err == nil || !strings.Contains(err.Error(), "search.excat") {
		t.Fatalf("expected unknown key error naming search.excat, got %v", err)
	}
}

func TestLoadPathMissing(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "missing", "config.toml")
	cfg, err := LoadPath(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Search.Prefix != 90 || cfg.Log.Level != "warn" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.Path() != configPath {
		t.Errorf("expected path %q, got %q", configPath, cfg.Path())
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	cfg.Search.Category = 0
	cfg.Search.FuzzyThreshold = 1.5
	cfg.Search.SuggestLimit = -1
	cfg.Log.Level = "loud"
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Path = " "

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"search.category", "search.fuzzy_threshold", "search.suggest_limit", "log.level", "telemetry.path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got: %v", want, err)
		}
	}
}

func TestCreateDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.toml")

	written, err := CreateDefault(configPath, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !written {
		t.Fatal("expected the file to be written")
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("default config must parse: %v", err)
	}
	if cfg.Search.Exact != 100 {
		t.Errorf("expected defaults from commented template, got %v", cfg.Search.Exact)
	}

	if err := os.WriteFile(configPath, []byte("[ui]\naccent = \"39\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	written, err = CreateDefault(configPath, false)
	if err != nil || written {
		t.Fatalf("expected existing file to be kept, written=%v err=%v", written, err)
	}
	written, err = CreateDefault(configPath, true)
	if err != nil || !written {
		t.Fatalf("expected forced overwrite, written=%v err=%v", written, err)
	}
}

func TestResolveConfigPath(t *testing.T) {
	if got := ResolveConfigPath("/tmp/custom.toml"); got != "/tmp/custom.toml" {
		t.Errorf("expected explicit path, got %q", got)
	}
	if got := ResolveConfigPath("  "); got != DefaultPath() {
		t.Errorf("expected default path, got %q", got)
	}
}

func TestXDGPath(t *testing.T) {
	path, err := XDGPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should end with nounverb/config.toml
	if filepath.Base(path) != "config.toml" || filepath.Base(filepath.Dir(path)) != AppName {
		t.Errorf("expected %s/config.toml, got %s", AppName, path)
	}
}
