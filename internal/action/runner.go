package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Result describes a finished command.
type Result struct {
	Command  string
	ExitCode int
	Output   string
	Duration time.Duration
}

// CommandError reports a command that ran but exited unsuccessfully, or
// could not be started at all.
type CommandError struct {
	Result *Result
	Err    error
}

func (e *CommandError) Error() string {
	if e.Result != nil && e.Result.ExitCode > 0 {
		return fmt.Sprintf("command %q exited with code %d", e.Result.Command, e.Result.ExitCode)
	}

	return fmt.Sprintf("command %q failed: %v", e.commandLine(), e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

func (e *CommandError) commandLine() string {
	if e.Result == nil {
		return ""
	}

	return e.Result.Command
}

// Runner executes a command line and waits for it to finish.
type Runner interface {
	Run(ctx context.Context, cmdline string) (*Result, error)
}

// ExecRunner runs command lines through the platform shell.
type ExecRunner struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
}

// Run executes cmdline and returns its captured combined output. A
// non-zero exit status or spawn failure is returned as *CommandError
// together with the partial result.
func (r *ExecRunner) Run(ctx context.Context, cmdline string) (*Result, error) {
	cmdline = strings.TrimSpace(cmdline)
	if cmdline == "" {
		return nil, fmt.Errorf("empty command")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	name, args := shellCommand(cmdline)

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = r.Dir
	// Grandchildren may hold the output pipe open after the shell is killed.
	cmd.WaitDelay = time.Second

	var out lockedBuffer

	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()

	res := &Result{
		Command:  cmdline,
		ExitCode: cmd.ProcessState.ExitCode(),
		Output:   out.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", r.Timeout, ctxErr)
		}

		return res, &CommandError{Result: res, Err: err}
	}

	return res, nil
}

func shellCommand(cmdline string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", cmdline}
	}

	return "sh", []string{"-c", cmdline}
}

// lockedBuffer lets stdout and stderr share one buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
