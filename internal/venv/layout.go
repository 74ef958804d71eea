package venv

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Platform selects the directory layout of an environment.
type Platform int

const (
	PlatformPOSIX Platform = iota
	PlatformWindows
)

// HostPlatform returns the layout family of the running binary.
func HostPlatform() Platform {
	if runtime.GOOS == "windows" {
		return PlatformWindows
	}
	return PlatformPOSIX
}

// ParsePlatform maps a config or flag value to a Platform. Empty and "host"
// select the running platform.
func ParsePlatform(raw string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "host":
		return HostPlatform(), nil
	case "posix", "linux", "darwin", "unix":
		return PlatformPOSIX, nil
	case "windows", "win32", "win64", "cygwin":
		return PlatformWindows, nil
	default:
		return PlatformPOSIX, fmt.Errorf("%w: %q", ErrUnknownPlatform, raw)
	}
}

func (p Platform) String() string {
	switch p {
	case PlatformWindows:
		return "windows"
	default:
		return "posix"
	}
}

// Separator is the path element separator of the platform.
func (p Platform) Separator() string {
	if p == PlatformWindows {
		return `\`
	}
	return "/"
}

// ListSeparator separates entries of PATH-like variables.
func (p Platform) ListSeparator() string {
	if p == PlatformWindows {
		return ";"
	}
	return ":"
}

// Layout holds the directories derived from an environment root.
type Layout struct {
	LibDir string
	BinDir string
}

// ResolveLayout derives the package-library and scripts directories of root.
// POSIX layouts embed the runtime major.minor version; Windows layouts ignore it.
func ResolveLayout(root string, version string, platform Platform) (Layout, error) {
	switch platform {
	case PlatformWindows:
		return Layout{
			LibDir: joinFor(platform, root, "Lib", "site-packages"),
			BinDir: joinFor(platform, root, "Scripts"),
		}, nil
	case PlatformPOSIX:
		short, ok := ShortVersion(version)
		if !ok {
			return Layout{}, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
		}
		return Layout{
			LibDir: joinFor(platform, root, "lib", "python"+short, "site-packages"),
			BinDir: joinFor(platform, root, "bin"),
		}, nil
	default:
		return Layout{}, fmt.Errorf("%w: %d", ErrUnknownPlatform, int(platform))
	}
}

// ShortVersion reduces "3.11.4" (or "3.11") to "3.11".
func ShortVersion(version string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(version), ".")
	if len(parts) < 2 {
		return "", false
	}
	for _, part := range parts[:2] {
		if _, err := strconv.Atoi(part); err != nil {
			return "", false
		}
	}
	return parts[0] + "." + parts[1], true
}

func joinFor(platform Platform, root string, elems ...string) string {
	sep := platform.Separator()
	trimmed := strings.TrimRight(root, sep)
	if platform == PlatformWindows {
		trimmed = strings.TrimRight(trimmed, "/")
	}
	return trimmed + sep + strings.Join(elems, sep)
}
