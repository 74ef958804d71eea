package venv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Descriptor identifies an environment by its absolute, cleaned root.
type Descriptor struct {
	Root string
}

// NewDescriptor normalizes root into a Descriptor.
func NewDescriptor(root string) (Descriptor, error) {
	if strings.TrimSpace(root) == "" {
		return Descriptor{}, fmt.Errorf("%w: empty root", ErrEnvironmentNotFound)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: root=%q: %v", ErrEnvironmentNotFound, root, err)
	}
	return Descriptor{Root: filepath.Clean(abs)}, nil
}

// Name is the final path segment of the root.
func (d Descriptor) Name() string {
	return filepath.Base(d.Root)
}

// Options configures an Activator.
type Options struct {
	// Platform is PlatformPOSIX when left zero; callers pass HostPlatform()
	// or a parsed override.
	Platform Platform
	// PythonVersion is the runtime major.minor used for POSIX layouts. When
	// empty it is read from pyvenv.cfg or discovered under lib/.
	PythonVersion string
	// Env receives PATH and the activation markers. Defaults to ProcessEnv.
	Env Environ
	// SearchPaths seeds the module search path. When nil it is read from
	// PYTHONPATH in Env.
	SearchPaths []string
	// ExportSearchPath writes the module search path to PYTHONPATH on activation.
	ExportSearchPath bool
	Logger           *zerolog.Logger
}

// Activator holds the module search path, the executable search path (through
// Env) and the currently active environment.
type Activator struct {
	mu sync.Mutex

	platform         Platform
	version          string
	env              Environ
	exportSearchPath bool
	log              zerolog.Logger

	searchPaths []string
	active      *Descriptor
	layout      Layout
}

// New returns an inactive Activator.
func New(opts Options) *Activator {
	env := opts.Env
	if env == nil {
		env = ProcessEnv{}
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	paths := opts.SearchPaths
	if paths == nil {
		value, _ := env.LookupEnv(PythonPathKey)
		paths = splitList(value, opts.Platform.ListSeparator())
	}

	return &Activator{
		platform:         opts.Platform,
		version:          strings.TrimSpace(opts.PythonVersion),
		env:              env,
		exportSearchPath: opts.ExportSearchPath,
		log:              log.With().Str("component", "venv").Logger(),
		searchPaths:      append([]string(nil), paths...),
	}
}

// Activate makes root the active environment. Activating the active root again
// returns true without side effects. On failure nothing is modified.
func (a *Activator) Activate(root string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	desc, err := NewDescriptor(root)
	if err != nil {
		return false, err
	}
	if a.active != nil && a.active.Root == desc.Root {
		a.log.Debug().Str("root", desc.Root).Msg("venv already active")
		return true, nil
	}

	cfg, err := ReadPyvenvConfig(desc.Root)
	if err != nil {
		a.log.Warn().Err(err).Str("root", desc.Root).Msg("venv pyvenv.cfg unreadable")
	}

	layout, err := a.layoutFor(desc, cfg)
	if err != nil {
		return false, fmt.Errorf("%w: root=%q", err, root)
	}
	if !isDir(layout.LibDir) {
		return false, fmt.Errorf("%w: root=%q", ErrEnvironmentNotFound, root)
	}
	if !isDir(layout.BinDir) {
		a.log.Warn().Str("bin_dir", layout.BinDir).Msg("venv scripts directory missing")
	}

	paths := prependUnique(a.searchPaths, layout.LibDir)
	paths = appendMissing(paths, pthDirs(layout.LibDir, a.log))
	paths = excludeWorkingDir(paths)

	sep := a.platform.ListSeparator()
	prevPath, _ := a.env.LookupEnv(PathKey)
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = desc.Name()
	}

	updates := make([]envUpdate, 0, 5)
	if _, saved := a.env.LookupEnv(OldPathKey); !saved {
		updates = append(updates, envUpdate{key: OldPathKey, value: prevPath})
	}
	updates = append(updates,
		envUpdate{key: PathKey, value: strings.Join(prependUnique(splitList(prevPath, sep), layout.BinDir), sep)},
		envUpdate{key: VirtualEnvKey, value: desc.Root},
		envUpdate{key: PromptKey, value: prompt},
	)
	if a.exportSearchPath {
		updates = append(updates, envUpdate{key: PythonPathKey, value: strings.Join(paths, sep)})
	}
	if err := applyEnv(a.env, updates); err != nil {
		return false, fmt.Errorf("venv: update environment root=%q: %w", root, err)
	}

	a.searchPaths = paths
	a.active = &desc
	a.layout = layout
	a.log.Info().
		Str("root", desc.Root).
		Str("lib_dir", layout.LibDir).
		Str("bin_dir", layout.BinDir).
		Msg("venv activated")
	return true, nil
}

// CurrentSearchPaths returns a copy of the module search path.
func (a *Activator) CurrentSearchPaths() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.searchPaths...)
}

// ExecSearchPaths returns the executable search path as currently set in Env.
func (a *Activator) ExecSearchPaths() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.execSearchPaths()
}

func (a *Activator) execSearchPaths() []string {
	value, _ := a.env.LookupEnv(PathKey)
	return splitList(value, a.platform.ListSeparator())
}

// Active reports the active environment, if any.
func (a *Activator) Active() (Descriptor, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active == nil {
		return Descriptor{}, false
	}
	return *a.active, true
}

// Layout returns the directories derived for the active environment.
func (a *Activator) Layout() (Layout, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active == nil {
		return Layout{}, false
	}
	return a.layout, true
}

// Environ returns the variables of Env as "KEY=value" pairs.
func (a *Activator) Environ() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.env.Environ()
}

func (a *Activator) layoutFor(desc Descriptor, cfg PyvenvConfig) (Layout, error) {
	version := a.version
	if a.platform == PlatformPOSIX && version == "" {
		version = cfg.Version
		if _, ok := ShortVersion(version); !ok {
			discovered, found := discoverVersion(desc.Root)
			if !found {
				// Nothing that looks like a library directory exists.
				return Layout{}, ErrEnvironmentNotFound
			}
			version = discovered
		}
	}
	return ResolveLayout(desc.Root, version, a.platform)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// prependUnique returns a new slice with entry first and any later copy removed.
func prependUnique(in []string, entry string) []string {
	out := make([]string, 0, len(in)+1)
	out = append(out, entry)
	for _, v := range in {
		if v == entry {
			continue
		}
		out = append(out, v)
	}
	return out
}

func appendMissing(in []string, entries []string) []string {
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		seen[v] = struct{}{}
	}
	out := in
	for _, e := range entries {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func excludeWorkingDir(in []string) []string {
	out := in[:0:0]
	for _, v := range in {
		if v == "" || v == "." {
			continue
		}
		out = append(out, v)
	}
	return out
}
