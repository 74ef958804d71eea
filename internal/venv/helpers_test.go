package venv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// makeEnv creates a POSIX environment layout under a temp dir and returns its root.
func makeEnv(t *testing.T, name string, version string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), name)
	for _, dir := range []string{
		filepath.Join(root, "lib", "python"+version, "site-packages"),
		filepath.Join(root, "bin"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return root
}

func siteDir(root string, version string) string {
	return filepath.Join(root, "lib", "python"+version, "site-packages")
}

func writeFile(t *testing.T, path string, content string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func copyMap(in MapEnv) MapEnv {
	out := make(MapEnv, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// failingEnv fails every Setenv for one key.
type failingEnv struct {
	MapEnv
	failKey string
}

func (f failingEnv) Setenv(key string, value string) error {
	if key == f.failKey {
		return errors.New("setenv refused")
	}
	return f.MapEnv.Setenv(key, value)
}
