package venv

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PyvenvConfigName is the marker file written at the root of every environment.
const PyvenvConfigName = "pyvenv.cfg"

// PyvenvConfig is the subset of pyvenv.cfg the activator uses.
type PyvenvConfig struct {
	Home                      string
	Version                   string
	Prompt                    string
	IncludeSystemSitePackages bool
}

// ReadPyvenvConfig parses root/pyvenv.cfg. A missing file yields a zero config
// and no error.
func ReadPyvenvConfig(root string) (PyvenvConfig, error) {
	f, err := os.Open(filepath.Join(root, PyvenvConfigName))
	if errors.Is(err, fs.ErrNotExist) {
		return PyvenvConfig{}, nil
	}
	if err != nil {
		return PyvenvConfig{}, err
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return PyvenvConfig{}, err
	}

	cfg := PyvenvConfig{
		Home:                      values["home"],
		Prompt:                    unquote(values["prompt"]),
		IncludeSystemSitePackages: strings.EqualFold(values["include-system-site-packages"], "true"),
	}
	// virtualenv writes version_info, venv writes version.
	cfg.Version = values["version_info"]
	if cfg.Version == "" {
		cfg.Version = values["version"]
	}
	return cfg, nil
}

// discoverVersion finds the single lib/pythonX.Y/site-packages directory of a
// POSIX root when no version is configured.
func discoverVersion(root string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(root, "lib", "python*", "site-packages"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	versions := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(filepath.Dir(m))
		if short, ok := ShortVersion(strings.TrimPrefix(name, "python")); ok {
			versions = append(versions, short)
		}
	}
	if len(versions) != 1 {
		return "", false
	}
	return versions[0], true
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '\'' || first == '"') && first == last {
			return value[1 : len(value)-1]
		}
	}
	return value
}
