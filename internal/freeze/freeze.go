// Package freeze lists the packages installed in an activated environment.
package freeze

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/venvctl/internal/tools"
	"github.com/danmuck/venvctl/internal/venv"
	"github.com/rs/zerolog"
)

var (
	ErrNotActive = errors.New("freeze: no active environment")
	ErrPip       = errors.New("freeze: pip freeze failed")
)

// Package is one line of pip freeze output.
type Package struct {
	Name     string
	Version  string
	Location string
	Editable bool
	// Arbitrary marks a "===" pin, compared as a plain string by pip.
	Arbitrary bool
}

func (p Package) String() string {
	switch {
	case p.Editable:
		return "-e " + p.Location
	case p.Location != "":
		return p.Name + " @ " + p.Location
	case p.Arbitrary:
		return p.Name + "===" + p.Version
	default:
		return p.Name + "==" + p.Version
	}
}

// Config configures a Lister.
type Config struct {
	// Python is the interpreter name resolved through the activated PATH.
	Python  string
	Timeout time.Duration
	Runner  tools.CommandRunner
	Logger  *zerolog.Logger
}

// Lister runs pip freeze with the interpreter of the active environment.
type Lister struct {
	python  string
	timeout time.Duration
	runner  tools.CommandRunner
	log     zerolog.Logger
}

func NewLister(cfg Config) *Lister {
	python := strings.TrimSpace(cfg.Python)
	if python == "" {
		python = "python"
	}
	runner := cfg.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Lister{
		python:  python,
		timeout: cfg.Timeout,
		runner:  runner,
		log:     log.With().Str("component", "freeze").Logger(),
	}
}

// List returns the packages installed in the environment active on a.
func (l *Lister) List(ctx context.Context, a *venv.Activator) ([]Package, error) {
	desc, ok := a.Active()
	if !ok {
		return nil, ErrNotActive
	}
	python, err := a.LookPath(l.python)
	if err != nil {
		return nil, err
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	cmd := tools.Command{
		Name: python,
		Args: []string{"-m", "pip", "freeze", "--all"},
		Env:  a.Environ(),
	}
	l.log.Debug().Str("root", desc.Root).Str("python", python).Msg("freeze exec")
	stdout, stderr, exitCode, err := l.runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: cmd=%s exit=%d stderr=%q: %v",
			ErrPip,
			python,
			exitCode,
			strings.TrimSpace(string(stderr)),
			err,
		)
	}
	return Parse(stdout)
}

// Parse reads pip freeze output. Comment lines and pip options other than -e
// are skipped.
func Parse(out []byte) ([]Package, error) {
	var pkgs []Package
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if loc, ok := cutEditable(line); ok {
			pkgs = append(pkgs, Package{Location: loc, Editable: true})
			continue
		}
		if strings.HasPrefix(line, "-") {
			continue
		}
		if name, loc, ok := strings.Cut(line, " @ "); ok {
			pkgs = append(pkgs, Package{Name: strings.TrimSpace(name), Location: strings.TrimSpace(loc)})
			continue
		}
		if name, version, ok := strings.Cut(line, "==="); ok {
			pkgs = append(pkgs, Package{Name: strings.TrimSpace(name), Version: strings.TrimSpace(version), Arbitrary: true})
			continue
		}
		name, version, ok := strings.Cut(line, "==")
		if !ok {
			return nil, fmt.Errorf("freeze: unrecognized line %q", line)
		}
		pkgs = append(pkgs, Package{Name: strings.TrimSpace(name), Version: strings.TrimSpace(version)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pkgs, nil
}

func cutEditable(line string) (string, bool) {
	for _, prefix := range []string{"-e ", "--editable ", "--editable="} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}
