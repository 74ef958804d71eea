package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/danmuck/venvctl/internal/venv"
	"github.com/go-playground/validator/v10"
)

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "venvctl.toml"

// Config is the resolved venvctl configuration: defaults, then the TOML file,
// then VENVCTL_* environment variables.
type Config struct {
	Venv             string `env:"VENVCTL_VENV"`
	PythonVersion    string `env:"VENVCTL_PYTHON_VERSION"    validate:"omitempty,pyversion"`
	Platform         string `env:"VENVCTL_PLATFORM"          validate:"omitempty,oneof=host posix linux darwin unix windows win32 win64 cygwin"`
	ExportSearchPath bool   `env:"VENVCTL_EXPORT_PYTHONPATH"`
	Freeze           FreezeConfig
}

type FreezeConfig struct {
	Python  string        `env:"VENVCTL_FREEZE_PYTHON"  validate:"required"`
	Timeout time.Duration `env:"VENVCTL_FREEZE_TIMEOUT" validate:"gte=0"`
}

type fileConfig struct {
	Venv             string     `toml:"venv"`
	PythonVersion    string     `toml:"python_version"`
	Platform         string     `toml:"platform"`
	ExportSearchPath bool       `toml:"export_pythonpath"`
	Freeze           fileFreeze `toml:"freeze"`
}

type fileFreeze struct {
	Python  string `toml:"python"`
	Timeout string `toml:"timeout"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("pyversion", func(fl validator.FieldLevel) bool {
		_, ok := venv.ShortVersion(fl.Field().String())
		return ok
	})
	return v
}

func DefaultConfig() Config {
	return Config{
		Platform: "host",
		Freeze: FreezeConfig{
			Python:  "python",
			Timeout: 2 * time.Minute,
		},
	}
}

// Load resolves configuration. An empty path reads DefaultPath when present.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config env parse failed: %w", err)
	}
	cfg.Venv = strings.TrimSpace(cfg.Venv)
	cfg.PythonVersion = strings.TrimSpace(cfg.PythonVersion)
	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config load failed (%s): %w", path, err)
		}
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	if meta.IsDefined("venv") {
		cfg.Venv = raw.Venv
	}
	if meta.IsDefined("python_version") {
		cfg.PythonVersion = raw.PythonVersion
	}
	if meta.IsDefined("platform") {
		cfg.Platform = raw.Platform
	}
	if meta.IsDefined("export_pythonpath") {
		cfg.ExportSearchPath = raw.ExportSearchPath
	}
	if meta.IsDefined("freeze", "python") {
		cfg.Freeze.Python = strings.TrimSpace(raw.Freeze.Python)
	}
	if meta.IsDefined("freeze", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Freeze.Timeout))
		if err != nil {
			return fmt.Errorf("parse freeze.timeout: %w", err)
		}
		cfg.Freeze.Timeout = d
	}
	return nil
}

func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// ActivatorOptions maps the configuration onto venv.Options.
func (c Config) ActivatorOptions() (venv.Options, error) {
	platform, err := venv.ParsePlatform(c.Platform)
	if err != nil {
		return venv.Options{}, err
	}
	return venv.Options{
		Platform:         platform,
		PythonVersion:    c.PythonVersion,
		ExportSearchPath: c.ExportSearchPath,
	}, nil
}
