package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error
}

// commandExecutor runs the worker binary, streaming output line by line.
// Context cancellation delivers SIGTERM; the process gets the grace period
// to flush artifacts before SIGKILL.
type commandExecutor struct {
	grace time.Duration
}

func (e commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Cancel = func() error {
		return cmd.Process.Signal(unix.SIGTERM)
	}
	cmd.WaitDelay = e.grace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return &launchError{err: err}
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wrap := func(fn func(string)) func(string) {
		if fn != nil {
			return fn
		}
		return func(line string) {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	wg.Add(2)
	go scan(stdout, wrap(onStdout))
	go scan(stderr, wrap(onStderr))

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

// launchError distinguishes a binary that never started from one that ran
// and exited nonzero.
type launchError struct {
	err error
}

func (e *launchError) Error() string {
	return fmt.Sprintf("start command: %v", e.err)
}

func (e *launchError) Unwrap() error {
	return e.err
}
