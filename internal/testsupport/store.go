package testsupport

import (
	"testing"

	"scout/internal/config"
	"scout/internal/session"
)

// MustOpenStore opens a session journal for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *session.Store {
	t.Helper()

	store, err := session.OpenStore(cfg)
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
