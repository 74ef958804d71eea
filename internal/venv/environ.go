package venv

import (
	"os"
	"sort"
	"strings"
)

const (
	PathKey       = "PATH"
	PythonPathKey = "PYTHONPATH"
	VirtualEnvKey = "VIRTUAL_ENV"
	PromptKey     = "VIRTUAL_ENV_PROMPT"
	OldPathKey    = "_OLD_VIRTUAL_PATH"
)

// Environ is the variable set an Activator reads and writes.
type Environ interface {
	LookupEnv(key string) (string, bool)
	Setenv(key string, value string) error
	Unsetenv(key string) error
	Environ() []string
}

// ProcessEnv writes through to the environment of the current process.
type ProcessEnv struct{}

func (ProcessEnv) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

func (ProcessEnv) Setenv(key string, value string) error { return os.Setenv(key, value) }

func (ProcessEnv) Unsetenv(key string) error { return os.Unsetenv(key) }

func (ProcessEnv) Environ() []string { return os.Environ() }

// MapEnv is an in-memory variable set, used for child process environments and tests.
type MapEnv map[string]string

// NewMapEnv builds a MapEnv from "KEY=value" pairs as returned by os.Environ.
func NewMapEnv(pairs []string) MapEnv {
	env := make(MapEnv, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

func (m MapEnv) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MapEnv) Setenv(key string, value string) error {
	m[key] = value
	return nil
}

func (m MapEnv) Unsetenv(key string) error {
	delete(m, key)
	return nil
}

// Environ returns "KEY=value" pairs sorted by key.
func (m MapEnv) Environ() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+m[k])
	}
	return out
}

type envUpdate struct {
	key   string
	value string
}

type envPrior struct {
	key     string
	value   string
	present bool
}

// applyEnv writes all updates or none: on a failed write the keys already
// written are restored to their prior values.
func applyEnv(env Environ, updates []envUpdate) error {
	priors := make([]envPrior, 0, len(updates))
	for _, u := range updates {
		value, present := env.LookupEnv(u.key)
		if err := env.Setenv(u.key, u.value); err != nil {
			restoreEnv(env, priors)
			return err
		}
		priors = append(priors, envPrior{key: u.key, value: value, present: present})
	}
	return nil
}

func restoreEnv(env Environ, priors []envPrior) {
	for i := len(priors) - 1; i >= 0; i-- {
		p := priors[i]
		if p.present {
			_ = env.Setenv(p.key, p.value)
			continue
		}
		_ = env.Unsetenv(p.key)
	}
}

func splitList(value string, sep string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, sep)
}
