package config

import (
	"fmt"
	"os"
)

// Template returns a commented starter configuration.
func Template() string {
	return defaultTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o644)
}

const defaultTemplate = `# Environment root activated when no path argument is given.
venv = ".venv"

# major.minor runtime version for lib/pythonX.Y; read from pyvenv.cfg when empty.
python_version = ""

# host | posix | windows
platform = "host"

# Export the module search path as PYTHONPATH to child processes.
export_pythonpath = false

[freeze]
python = "python"
timeout = "2m"
`
