package tools

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
)

// Command describes one child process. A nil Env inherits the parent environment.
type Command struct {
	Name string
	Args []string
	Env  []string
	Dir  string
}

// CommandRunner abstracts command execution with captured output.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) ([]byte, []byte, int32, error)
}

// StreamRunner executes a command attached to the given streams.
type StreamRunner interface {
	Stream(ctx context.Context, cmd Command, stdin io.Reader, stdout io.Writer, stderr io.Writer) (int32, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// Run executes cmd and captures stdout and stderr.
func (r ExecRunner) Run(ctx context.Context, cmd Command) ([]byte, []byte, int32, error) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	exitCode, err := r.Stream(ctx, cmd, nil, &stdout, &stderr)
	return stdout.Bytes(), stderr.Bytes(), exitCode, err
}

// Stream executes cmd with the given stdio.
func (r ExecRunner) Stream(ctx context.Context, cmd Command, stdin io.Reader, stdout io.Writer, stderr io.Writer) (int32, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	c.Stdin = stdin
	c.Stdout = stdout
	c.Stderr = stderr

	err := c.Run()
	if err == nil {
		return 0, nil
	}
	return ExitCode(err), err
}

// ExitCode maps a command error to a process exit code; 127 means the binary
// could not be started.
func ExitCode(err error) int32 {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return int32(exitErr.ExitCode())
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return 127
	}
	return 1
}
