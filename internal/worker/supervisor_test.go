package worker_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"scout/internal/scrape"
	"scout/internal/services"
	"scout/internal/testsupport"
	"scout/internal/worker"
)

func mustRequest(t *testing.T, name, email, field string, specialties []string) scrape.Request {
	t.Helper()
	req, err := scrape.New(name, email, field, specialties)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return req
}

func TestArguments(t *testing.T) {
	cases := []struct {
		name string
		job  worker.Job
		want []string
	}{
		{
			name: "name mode",
			job: worker.Job{
				Stage:     worker.StageProfiles,
				OutputDir: "/tmp/s1",
				Request:   mustRequest(t, "Ada Lovelace", "", "", nil),
			},
			want: []string{"--mode", "profiles", "--output", "/tmp/s1", "Ada Lovelace"},
		},
		{
			name: "email fast match",
			job: worker.Job{
				Stage:     worker.StageProfiles,
				OutputDir: "/tmp/s2",
				Request:   mustRequest(t, "Ada Lovelace", "ada@lovelace.dev", "", nil),
			},
			want: []string{"--mode", "profiles", "--output", "/tmp/s2", "--email", "ada@lovelace.dev", "Ada Lovelace"},
		},
		{
			name: "field filter",
			job: worker.Job{
				Stage:     worker.StageProfiles,
				OutputDir: "/tmp/s3",
				Request:   mustRequest(t, "Ada Lovelace", "", "Mathematics", []string{"Analysis", "Logic"}),
			},
			want: []string{
				"--mode", "profiles", "--output", "/tmp/s3",
				"--field", "Mathematics", "--specialties", "Analysis", "--specialties", "Logic",
				"Ada Lovelace",
			},
		},
		{
			name: "collaborators",
			job: worker.Job{
				Stage:      worker.StageCollaborators,
				OutputDir:  "/tmp/s4",
				Request:    mustRequest(t, "Ada Lovelace", "", "", nil),
				ProfileURL: "https://example.org/profile/42",
			},
			want: []string{
				"--mode", "collaborators", "--output", "/tmp/s4",
				"--profile-url", "https://example.org/profile/42",
				"Ada Lovelace",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := worker.Arguments(tc.job)
			if err != nil {
				t.Fatalf("Arguments: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("args = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestArgumentsRejectsBadJobs(t *testing.T) {
	req := mustRequest(t, "Ada Lovelace", "", "", nil)

	if _, err := worker.Arguments(worker.Job{Stage: "ripping", OutputDir: "/tmp/x", Request: req}); !errors.Is(err, services.ErrWorkerLaunch) {
		t.Fatalf("unknown stage: %v", err)
	}
	if _, err := worker.Arguments(worker.Job{Stage: worker.StageCollaborators, OutputDir: "/tmp/x", Request: req}); !errors.Is(err, services.ErrWorkerLaunch) {
		t.Fatalf("missing profile url: %v", err)
	}
}

type stubExecutor struct {
	binary string
	args   []string
	lines  []string
	err    error
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	s.binary = binary
	s.args = args
	for _, line := range s.lines {
		onStdout(line)
	}
	return s.err
}

func TestRunUsesExecutor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stub := &stubExecutor{lines: []string{"[INFO] scraping page 1", "[ERROR] captcha wall"}}
	sup, err := worker.NewSupervisor(cfg.Worker, nil, worker.WithExecutor(stub))
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}

	job := worker.Job{
		SessionID: "s1",
		Stage:     worker.StageProfiles,
		OutputDir: filepath.Join(testsupport.BaseDir(cfg), "sessions", "s1"),
		Request:   mustRequest(t, "Ada Lovelace", "", "", nil),
	}
	if err := sup.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stub.binary != cfg.Worker.Binary {
		t.Fatalf("binary = %q", stub.binary)
	}
	if len(stub.args) == 0 || stub.args[0] != "--mode" {
		t.Fatalf("args = %v", stub.args)
	}
}

func TestRunClassifiesFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubWorker("exit 3\n"))
	sup, err := worker.NewSupervisor(cfg.Worker, nil)
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	job := worker.Job{
		SessionID: "s1",
		Stage:     worker.StageProfiles,
		OutputDir: filepath.Join(testsupport.BaseDir(cfg), "sessions", "s1"),
		Request:   mustRequest(t, "Ada Lovelace", "", "", nil),
	}
	if err := sup.Run(context.Background(), job); !errors.Is(err, services.ErrWorkerExit) {
		t.Fatalf("nonzero exit: %v", err)
	}

	missing := testsupport.NewConfig(t, testsupport.WithWorkerBinary(filepath.Join(t.TempDir(), "absent")))
	sup, err = worker.NewSupervisor(missing.Worker, nil)
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	job.OutputDir = filepath.Join(testsupport.BaseDir(missing), "sessions", "s1")
	if err := sup.Run(context.Background(), job); !errors.Is(err, services.ErrWorkerLaunch) {
		t.Fatalf("missing binary: %v", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubWorker("sleep 30\n"))
	cfg.Worker.GracePeriod = 1
	sup, err := worker.NewSupervisor(cfg.Worker, nil)
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sup.Run(ctx, worker.Job{
			SessionID: "s1",
			Stage:     worker.StageProfiles,
			OutputDir: filepath.Join(testsupport.BaseDir(cfg), "sessions", "s1"),
			Request:   mustRequest(t, "Ada Lovelace", "", "", nil),
		})
	}()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled run: %v", err)
	}
}
