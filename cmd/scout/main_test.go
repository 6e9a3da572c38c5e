package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"scout/internal/session"
)

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	requireContains(t, stdout, "Running")
	requireContains(t, stdout, "yes")
}

func TestStatusCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, "status", "--json")
	if err != nil {
		t.Fatalf("status --json failed: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("decode status JSON: %v", err)
	}
	if payload["running"] != true {
		t.Fatalf("expected running=true, got %v", payload["running"])
	}
}

func TestSessionsCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, "sessions")
	if err != nil {
		t.Fatalf("sessions failed: %v", err)
	}
	requireContains(t, stdout, "No sessions")
}

func TestSearchAndSessionLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, "search", "Ada", "Lovelace", "--json")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	var snap session.Snapshot
	if err := json.Unmarshal([]byte(stdout), &snap); err != nil {
		t.Fatalf("decode search JSON: %v", err)
	}
	if snap.ID == "" {
		t.Fatal("expected session id from search")
	}
	if snap.Request.Name != "Ada Lovelace" {
		t.Fatalf("expected joined name, got %q", snap.Request.Name)
	}

	stdout, _, err = runCLI(t, env, "sessions")
	if err != nil {
		t.Fatalf("sessions failed: %v", err)
	}
	requireContains(t, stdout, snap.ID)
	requireContains(t, stdout, "Ada Lovelace")

	stdout, _, err = runCLI(t, env, "show", snap.ID)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	requireContains(t, stdout, snap.ID)
	requireContains(t, stdout, "scraping_profiles")

	// Selection is invalid while the primary stage is still running.
	if _, _, err := runCLI(t, env, "select", snap.ID, "0"); err == nil {
		t.Fatal("expected select on scraping session to fail")
	}

	stdout, _, err = runCLI(t, env, "cancel", snap.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	requireContains(t, stdout, "cancelled")

	if _, _, err := runCLI(t, env, "show", snap.ID); err == nil {
		t.Fatal("expected show after cancel to fail")
	}
}

func TestSelectCommandRejectsBadIndex(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "select", "s-any", "not-a-number")
	if err == nil || !strings.Contains(err.Error(), "invalid profile index") {
		t.Fatalf("expected index parse error, got %v", err)
	}
}

func TestConfigInitCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "scout.toml")
	stdout, _, err := runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	requireContains(t, stdout, target)

	// Second init without --overwrite must refuse.
	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init over existing file to fail")
	}
	if _, _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite failed: %v", err)
	}
}

func TestStopCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, "stop")
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	requireContains(t, stdout, "Daemon stopped")
	if env.daemon.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}
