package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/danmuck/venvctl/internal/testutil/testlog"
	"github.com/danmuck/venvctl/internal/tools"
	"github.com/danmuck/venvctl/internal/venv"
)

type fakeRunner struct {
	commands []tools.Command
	stdout   []byte
	exitCode int32
	err      error
}

func (r *fakeRunner) Run(ctx context.Context, cmd tools.Command) ([]byte, []byte, int32, error) {
	r.commands = append(r.commands, cmd)
	return r.stdout, nil, r.exitCode, r.err
}

func (r *fakeRunner) Stream(ctx context.Context, cmd tools.Command, stdin io.Reader, stdout io.Writer, stderr io.Writer) (int32, error) {
	r.commands = append(r.commands, cmd)
	_, _ = stdout.Write(r.stdout)
	return r.exitCode, r.err
}

func makeEnvRoot(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("posix layout only")
	}
	root := filepath.Join(t.TempDir(), "myenv")
	for _, dir := range []string{
		filepath.Join(root, "lib", "python3.11", "site-packages"),
		filepath.Join(root, "bin"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "bin", "python"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write python: %v", err)
	}
	return root
}

func runCLI(t *testing.T, runner *fakeRunner, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if runner == nil {
		runner = &fakeRunner{}
	}
	cmd := buildRootCmd(&rootOptions{
		stdin:  strings.NewReader(""),
		stdout: &stdout,
		stderr: &stderr,
		runner: runner,
		baseEnv: func() []string {
			return []string{"PATH=/usr/bin", "PYTHONPATH=.:/opt/shared"}
		},
	})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestActivateCommandReportsSearchState(t *testing.T) {
	testlog.Start(t)
	root := makeEnvRoot(t)

	out, err := runCLI(t, nil, "activate", root, "--python-version", "3.11", "--platform", "posix")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	site := filepath.Join(root, "lib", "python3.11", "site-packages")
	for _, want := range []string{
		"root: " + root,
		"prompt: myenv",
		"lib_dir: " + site,
		"search_path:\n  " + site + "\n  /opt/shared\n",
		"exec_path:\n  " + filepath.Join(root, "bin") + "\n  /usr/bin\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPathsCommandUsesConfiguredVenv(t *testing.T) {
	testlog.Start(t)
	root := makeEnvRoot(t)
	cfgPath := filepath.Join(t.TempDir(), "venvctl.toml")
	content := "venv = \"" + root + "\"\npython_version = \"3.11\"\nplatform = \"posix\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runCLI(t, nil, "paths", "--config", cfgPath)
	if err != nil {
		t.Fatalf("paths: %v", err)
	}
	want := filepath.Join(root, "lib", "python3.11", "site-packages") + "\n/opt/shared\n"
	if out != want {
		t.Fatalf("unexpected output:\n%q\nwant\n%q", out, want)
	}
}

func TestActivateCommandMissingEnvironment(t *testing.T) {
	testlog.Start(t)
	_, err := runCLI(t, nil, "activate", "/nonexistent/path", "--python-version", "3.11", "--platform", "posix")
	if !errors.Is(err, venv.ErrEnvironmentNotFound) {
		t.Fatalf("expected ErrEnvironmentNotFound, got %v", err)
	}
	var stderr bytes.Buffer
	if code := exitCode(err, &stderr); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if !strings.Contains(stderr.String(), `"/nonexistent/path"`) {
		t.Fatalf("root not reported verbatim: %q", stderr.String())
	}
}

func TestActivateCommandRequiresRoot(t *testing.T) {
	testlog.Start(t)
	t.Setenv("VENVCTL_VENV", "")
	_, err := runCLI(t, nil, "activate", "--config", filepath.Join(t.TempDir(), "none.toml"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, err := runCLI(t, nil, "activate"); !errors.Is(err, errMissingRoot) {
		t.Fatalf("expected errMissingRoot, got %v", err)
	}
}

func TestLayoutCommandWindows(t *testing.T) {
	testlog.Start(t)
	out, err := runCLI(t, nil, "layout", `C:\envs\myenv`, "--platform", "windows")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if !strings.Contains(out, `lib_dir: C:\envs\myenv\Lib\site-packages`) ||
		!strings.Contains(out, `bin_dir: C:\envs\myenv\Scripts`) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestFreezeCommandListsPackages(t *testing.T) {
	testlog.Start(t)
	root := makeEnvRoot(t)
	runner := &fakeRunner{stdout: []byte("numpy==1.26.4\n")}

	out, err := runCLI(t, runner, "freeze", root, "--python-version", "3.11", "--platform", "posix")
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if out != "numpy==1.26.4\n" {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(runner.commands) != 1 || runner.commands[0].Name != filepath.Join(root, "bin", "python") {
		t.Fatalf("unexpected commands: %+v", runner.commands)
	}
}

func TestExecCommandRunsWithActivatedEnvironment(t *testing.T) {
	testlog.Start(t)
	root := makeEnvRoot(t)
	runner := &fakeRunner{stdout: []byte("ok\n")}

	out, err := runCLI(t, runner, "exec", root, "--python-version", "3.11", "--platform", "posix", "--", "python", "-V")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if out != "ok\n" {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(runner.commands) != 1 {
		t.Fatalf("expected one command, got %d", len(runner.commands))
	}
	cmd := runner.commands[0]
	if cmd.Name != filepath.Join(root, "bin", "python") || strings.Join(cmd.Args, " ") != "-V" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	env := venv.NewMapEnv(cmd.Env)
	if env[venv.VirtualEnvKey] != root {
		t.Fatalf("unexpected VIRTUAL_ENV: %q", env[venv.VirtualEnvKey])
	}
	if env[venv.OldPathKey] != "/usr/bin" {
		t.Fatalf("unexpected saved PATH: %q", env[venv.OldPathKey])
	}
}

func TestExecCommandPropagatesChildExitCode(t *testing.T) {
	testlog.Start(t)
	root := makeEnvRoot(t)
	runner := &fakeRunner{exitCode: 3, err: errors.New("exit status 3")}

	_, err := runCLI(t, runner, "exec", root, "--python-version", "3.11", "--platform", "posix", "--", "python")
	if err == nil {
		t.Fatalf("expected error")
	}
	var stderr bytes.Buffer
	if code := exitCode(err, &stderr); code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
	if stderr.Len() != 0 {
		t.Fatalf("child failures should not be reprinted: %q", stderr.String())
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "venvctl.toml")
	if _, err := runCLI(t, nil, "config", "init", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	out, err := runCLI(t, nil, "config", "validate", "--config", path)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, `venv=".venv"`) {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestExecCommandRequiresDashBeforeCommand(t *testing.T) {
	testlog.Start(t)
	root := makeEnvRoot(t)
	runner := &fakeRunner{}

	_, err := runCLI(t, runner, "exec", root, "python", "--python-version", "3.11", "--platform", "posix")
	if err == nil || !strings.Contains(err.Error(), "--") {
		t.Fatalf("expected a missing -- error, got %v", err)
	}
	if len(runner.commands) != 0 {
		t.Fatalf("no command should run: %+v", runner.commands)
	}
}
