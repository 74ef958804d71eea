package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/venvctl/internal/logging"
	"github.com/danmuck/venvctl/internal/venv"
)

func main() {
	logging.ConfigureRuntime()
	cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

// exitCode reports err and maps it to the process exit status.
func exitCode(err error, stderr io.Writer) int {
	var exitErr *childExitError
	if errors.As(err, &exitErr) {
		// The child reports its own failures; only a failed start is ours to print.
		if exitErr.code == 127 {
			fmt.Fprintf(stderr, "venvctl: %v\n", err)
		}
		return exitErr.code
	}
	if errors.Is(err, venv.ErrEnvironmentNotFound) {
		fmt.Fprintf(stderr, "venvctl: virtualenv not found: %v\n", err)
		return 2
	}
	fmt.Fprintf(stderr, "venvctl: %v\n", err)
	return 1
}
