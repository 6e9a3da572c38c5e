package testsupport

import (
	"path/filepath"
	"testing"

	"scout/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SessionsDir = filepath.Join(base, "sessions")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = filepath.Join(base, "scoutd.sock")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Workflow.SweepInterval = 1
	cfgVal.Workflow.DebounceMillis = 20
	cfgVal.Stream.HeartbeatInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkerBinary overrides the scraping worker binary path.
func WithWorkerBinary(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.Binary = path
	}
}

// WithMaxSessions overrides the concurrent session cap.
func WithMaxSessions(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.MaxSessions = n
	}
}

// WithStubWorker writes an executable shell script to the temp dir and points
// the worker binary at it. The script body is supplied by the test.
func WithStubWorker(script string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.Binary = WriteScript(b.t, filepath.Join(b.baseDir, "bin", "scout-worker"), script)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SessionsDir)
}
