package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"scout/internal/config"
	"scout/internal/logging"
	"scout/internal/scrape"
	"scout/internal/services"
)

// Stage names accepted by the worker binary's --mode flag.
const (
	StageProfiles      = "profiles"
	StageCollaborators = "collaborators"
)

// Job describes one worker invocation. The worker writes its artifacts into
// OutputDir and signals completion with a done marker.
type Job struct {
	SessionID  string
	Stage      string
	OutputDir  string
	Request    scrape.Request
	ProfileURL string
}

// Option configures the supervisor.
type Option func(*Supervisor)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(s *Supervisor) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// Supervisor launches and supervises the out-of-process scraping worker.
// One Run call per stage; the orchestrator enforces the single worker slot
// per session.
type Supervisor struct {
	binary string
	exec   Executor
	logger *slog.Logger
}

// NewSupervisor constructs a supervisor from worker configuration.
func NewSupervisor(cfg config.Worker, logger *slog.Logger, opts ...Option) (*Supervisor, error) {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		return nil, errors.New("worker binary required")
	}
	s := &Supervisor{
		binary: binary,
		exec:   commandExecutor{grace: cfg.Grace()},
		logger: logging.WithComponent(logger, "worker"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run launches the worker for the job and blocks until it exits or the
// context ends. Worker output is forwarded into the daemon log with the
// worker's own severity tags honored.
func (s *Supervisor) Run(ctx context.Context, job Job) error {
	if job.OutputDir == "" {
		return services.Wrap(services.ErrWorkerLaunch, job.Stage, "launch", "output directory required", nil)
	}
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrWorkerLaunch, job.Stage, "launch", "create output directory", err)
	}
	args, err := Arguments(job)
	if err != nil {
		return err
	}

	log := s.logger.With(
		logging.String(logging.FieldSessionID, job.SessionID),
		logging.String(logging.FieldStage, job.Stage),
	)
	log.Info("launching worker", logging.String("binary", s.binary))

	forward := func(line string) {
		s.forwardLine(log, line)
	}
	runErr := s.exec.Run(ctx, s.binary, args, forward, forward)
	if runErr == nil {
		log.Info("worker exited cleanly")
		return nil
	}

	var launch *launchError
	switch {
	case errors.As(runErr, &launch):
		return services.Wrap(services.ErrWorkerLaunch, job.Stage, "launch", s.binary, launch.Unwrap())
	case ctx.Err() != nil:
		// Deadline or cancellation; the caller decides between timeout and
		// plain cancel.
		return ctx.Err()
	default:
		return services.Wrap(services.ErrWorkerExit, job.Stage, "wait", "worker failed", runErr)
	}
}

// forwardLine mirrors one line of worker output into the daemon log,
// promoting lines the worker tagged as errors or warnings.
func (s *Supervisor) forwardLine(log *slog.Logger, line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	switch {
	case strings.Contains(trimmed, "[ERROR]"):
		log.Error(trimmed)
	case strings.Contains(trimmed, "[WARNING]"), strings.Contains(trimmed, "[WARN]"):
		log.Warn(trimmed)
	default:
		log.Info(trimmed)
	}
}

// Arguments builds the worker command line for a job.
//
// Contract: <binary> --mode <stage> --output <dir> [mode flags] <term>
func Arguments(job Job) ([]string, error) {
	switch job.Stage {
	case StageProfiles, StageCollaborators:
	default:
		return nil, services.Wrap(services.ErrWorkerLaunch, job.Stage, "launch", "unknown stage", nil)
	}

	args := []string{"--mode", job.Stage, "--output", job.OutputDir}

	if job.Stage == StageCollaborators {
		if job.ProfileURL == "" {
			return nil, services.Wrap(services.ErrWorkerLaunch, job.Stage, "launch", "profile url required", nil)
		}
		args = append(args, "--profile-url", job.ProfileURL)
		args = append(args, job.Request.Name)
		return args, nil
	}

	switch job.Request.Mode {
	case scrape.ModeEmail:
		args = append(args, "--email", job.Request.Email)
	case scrape.ModeField:
		args = append(args, "--field", job.Request.Field)
		for _, specialty := range job.Request.Specialties {
			args = append(args, "--specialties", specialty)
		}
	}
	args = append(args, job.Request.Name)
	return args, nil
}
