package compose

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// Executor runs external commands on behalf of the compose runner. It exists
// so tests can intercept process execution without touching a real runtime.
type Executor interface {
	// LookPath resolves a binary on PATH
	LookPath(bin string) (string, error)
	// Run executes a command in dir, streaming stdout/stderr to the writers
	Run(ctx context.Context, dir string, stdout, stderr io.Writer, name string, args ...string) error
	// Output executes a command in dir and returns its stdout
	Output(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// SystemExecutor executes commands with os/exec
type SystemExecutor struct{}

// LookPath resolves a binary on PATH
func (SystemExecutor) LookPath(bin string) (string, error) {
	return exec.LookPath(bin)
}

// Run executes a command in dir, streaming output to the given writers
func (SystemExecutor) Run(ctx context.Context, dir string, stdout, stderr io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Output executes a command in dir and returns its stdout; stderr goes to
// the process stderr so runtime diagnostics stay visible
func (SystemExecutor) Output(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	return cmd.Output()
}
