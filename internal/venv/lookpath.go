package venv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultPathExt = ".COM;.EXE;.BAT;.CMD"

// LookPath resolves a bare executable name against the executable search path
// held in Env. Names containing a separator are checked as given.
func (a *Activator) LookPath(name string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if strings.ContainsAny(name, `/\`) {
		if path, ok := a.executable(name); ok {
			return path, nil
		}
		return "", fmt.Errorf("%w: %q", ErrExecutableNotFound, name)
	}
	for _, dir := range a.execSearchPaths() {
		if dir == "" {
			continue
		}
		if path, ok := a.executable(filepath.Join(dir, name)); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrExecutableNotFound, name)
}

func (a *Activator) executable(path string) (string, bool) {
	if a.platform != PlatformWindows {
		return path, isExecutable(path)
	}
	if filepath.Ext(path) != "" && isRegular(path) {
		return path, true
	}
	exts, ok := a.env.LookupEnv("PATHEXT")
	if !ok || exts == "" {
		exts = defaultPathExt
	}
	for _, ext := range strings.Split(exts, ";") {
		if ext == "" {
			continue
		}
		candidate := path + strings.ToLower(ext)
		if isRegular(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
