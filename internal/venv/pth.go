package venv

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// pthDirs returns the directories named by the .pth files in siteDir, in file
// name order. Lines starting with "import" are executable hooks and are skipped.
func pthDirs(siteDir string, log zerolog.Logger) []string {
	entries, err := os.ReadDir(siteDir)
	if err != nil {
		log.Debug().Err(err).Str("site_dir", siteDir).Msg("venv pth scan skipped")
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".pth") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		dirs, err := readPth(siteDir, filepath.Join(siteDir, name))
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("venv pth file unreadable")
			continue
		}
		out = append(out, dirs...)
	}
	return out
}

func readPth(siteDir string, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "import\t") {
			continue
		}
		dir := line
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(siteDir, dir)
		}
		dir = filepath.Clean(dir)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		out = append(out, dir)
	}
	return out, scanner.Err()
}
