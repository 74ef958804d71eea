package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/venvctl/internal/config"
	"github.com/danmuck/venvctl/internal/freeze"
	"github.com/danmuck/venvctl/internal/tools"
	"github.com/danmuck/venvctl/internal/venv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errMissingRoot = errors.New("no environment root given and no venv configured")

// childExitError carries the exit status of a command run by exec.
type childExitError struct {
	code int
	err  error
}

func (e *childExitError) Error() string { return e.err.Error() }
func (e *childExitError) Unwrap() error { return e.err }

type rootOptions struct {
	configPath    string
	pythonVersion string
	platform      string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg     config.Config
	runner  commandRunner
	baseEnv func() []string
}

type commandRunner interface {
	tools.CommandRunner
	tools.StreamRunner
}

func newRootCmd(stdin io.Reader, stdout io.Writer, stderr io.Writer) *cobra.Command {
	return buildRootCmd(&rootOptions{
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		runner:  tools.ExecRunner{},
		baseEnv: os.Environ,
	})
}

func buildRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "venvctl",
		Short:         "Activate Python virtual environments without a shell",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.loadConfig(cmd)
		},
	}
	cmd.SetIn(opts.stdin)
	cmd.SetOut(opts.stdout)
	cmd.SetErr(opts.stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ./"+config.DefaultPath+" when present)")
	flags.StringVar(&opts.pythonVersion, "python-version", "", "runtime major.minor for POSIX layouts")
	flags.StringVar(&opts.platform, "platform", "", "layout family: host | posix | windows")

	cmd.AddCommand(
		newActivateCmd(opts),
		newPathsCmd(opts),
		newLayoutCmd(opts),
		newFreezeCmd(opts),
		newExecCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

func (o *rootOptions) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("python-version") {
		cfg.PythonVersion = strings.TrimSpace(o.pythonVersion)
	}
	if cmd.Flags().Changed("platform") {
		cfg.Platform = strings.ToLower(strings.TrimSpace(o.platform))
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

// activate builds an activator over a copy of the process environment and
// activates root, falling back to the configured venv.
func (o *rootOptions) activate(args []string) (*venv.Activator, error) {
	root := o.cfg.Venv
	if len(args) > 0 {
		root = args[0]
	}
	if strings.TrimSpace(root) == "" {
		return nil, errMissingRoot
	}

	activatorOpts, err := o.cfg.ActivatorOptions()
	if err != nil {
		return nil, err
	}
	logger := log.Logger
	activatorOpts.Env = venv.NewMapEnv(o.baseEnv())
	activatorOpts.Logger = &logger

	a := venv.New(activatorOpts)
	if _, err := a.Activate(root); err != nil {
		return nil, err
	}
	return a, nil
}

func newActivateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "activate [root]",
		Short: "Activate an environment and report the resulting search state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.activate(args)
			if err != nil {
				return err
			}
			desc, _ := a.Active()
			layout, _ := a.Layout()
			env := venv.NewMapEnv(a.Environ())

			out := opts.stdout
			fmt.Fprintf(out, "root: %s\n", desc.Root)
			fmt.Fprintf(out, "prompt: %s\n", env[venv.PromptKey])
			fmt.Fprintf(out, "lib_dir: %s\n", layout.LibDir)
			fmt.Fprintf(out, "bin_dir: %s\n", layout.BinDir)
			fmt.Fprintln(out, "search_path:")
			for _, p := range a.CurrentSearchPaths() {
				fmt.Fprintf(out, "  %s\n", p)
			}
			fmt.Fprintln(out, "exec_path:")
			for _, p := range a.ExecSearchPaths() {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return nil
		},
	}
}

func newPathsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths [root]",
		Short: "Print the module search path after activation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.activate(args)
			if err != nil {
				return err
			}
			for _, p := range a.CurrentSearchPaths() {
				fmt.Fprintln(opts.stdout, p)
			}
			return nil
		},
	}
}

func newLayoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "layout <root>",
		Short: "Print the directories derived from a root without checking them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := venv.ParsePlatform(opts.cfg.Platform)
			if err != nil {
				return err
			}
			layout, err := venv.ResolveLayout(args[0], opts.cfg.PythonVersion, platform)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "platform: %s\n", platform)
			fmt.Fprintf(opts.stdout, "lib_dir: %s\n", layout.LibDir)
			fmt.Fprintf(opts.stdout, "bin_dir: %s\n", layout.BinDir)
			return nil
		},
	}
}

func newFreezeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "freeze [root]",
		Short: "List packages installed in an environment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.activate(args)
			if err != nil {
				return err
			}
			logger := log.Logger
			lister := freeze.NewLister(freeze.Config{
				Python:  opts.cfg.Freeze.Python,
				Timeout: opts.cfg.Freeze.Timeout,
				Runner:  opts.runner,
				Logger:  &logger,
			})
			pkgs, err := lister.List(commandContext(cmd), a)
			if err != nil {
				return err
			}
			for _, pkg := range pkgs {
				fmt.Fprintln(opts.stdout, pkg.String())
			}
			return nil
		},
	}
}

func newExecCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exec [root] -- command [args...]",
		Short: "Run a command inside an activated environment",
		Long:  "Run a command inside an activated environment. The command follows --; a single argument without -- is the command and the configured venv is used.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var envArgs, command []string
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				envArgs, command = args[:dash], args[dash:]
			} else if len(args) > 1 {
				return errors.New("exec: separate the root from the command with --")
			} else {
				command = args
			}
			if len(envArgs) > 1 {
				return fmt.Errorf("exec: expected at most one root before --, got %d", len(envArgs))
			}
			if len(command) == 0 {
				return errors.New("exec: missing command")
			}

			a, err := opts.activate(envArgs)
			if err != nil {
				return err
			}
			name, err := a.LookPath(command[0])
			if err != nil {
				return err
			}
			log.Debug().Str("cmd", name).Strs("args", command[1:]).Msg("venvctl exec")
			code, err := opts.runner.Stream(commandContext(cmd), tools.Command{
				Name: name,
				Args: command[1:],
				Env:  a.Environ(),
			}, opts.stdin, opts.stdout, opts.stderr)
			if err != nil {
				return &childExitError{code: int(code), err: fmt.Errorf("exec %s: %w", command[0], err)}
			}
			return nil
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage venvctl configuration files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := config.DefaultPath
			if len(args) > 0 {
				target = args[0]
			}
			if err := config.WriteTemplate(target, force); err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "wrote config template to %s\n", target)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(opts.stdout, "config ok: venv=%q platform=%s python_version=%q\n",
				opts.cfg.Venv, opts.cfg.Platform, opts.cfg.PythonVersion)
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
