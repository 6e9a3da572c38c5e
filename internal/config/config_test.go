package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scout/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Worker.Binary != "scout-worker" {
		t.Fatalf("unexpected worker binary: %q", cfg.Worker.Binary)
	}
	if cfg.Workflow.MaxSessions != 10 {
		t.Fatalf("unexpected max sessions: %d", cfg.Workflow.MaxSessions)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scout.toml")
	content := strings.Join([]string{
		"[paths]",
		`sessions_dir = "` + filepath.Join(dir, "sessions") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"[worker]",
		`binary = "  fake-worker  "`,
		"primary_timeout = 120",
		"fast_match_timeout = 30",
		"[logging]",
		`format = "JSON"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Worker.Binary != "fake-worker" {
		t.Fatalf("binary not trimmed: %q", cfg.Worker.Binary)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format not lowercased: %q", cfg.Logging.Format)
	}
	if cfg.Worker.SecondaryTimeout != 600 {
		t.Fatalf("default not applied: %d", cfg.Worker.SecondaryTimeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.Worker.FastMatchTimeout = 500
	cfg.Worker.PrimaryTimeout = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when fast-match timeout exceeds primary timeout")
	}

	cfg = config.Default()
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SessionsDir = filepath.Join(dir, "sessions")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, p := range []string{cfg.Paths.SessionsDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Fatalf("expected directory at %s", p)
		}
	}
}

func TestSessionDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.SessionsDir = "/tmp/scout-sessions"
	got := cfg.SessionDir("s20260830T120000-abcd1234")
	want := filepath.Join("/tmp/scout-sessions", "s20260830T120000-abcd1234")
	if got != want {
		t.Fatalf("SessionDir = %q, want %q", got, want)
	}
}
