package venv

import "errors"

var (
	ErrEnvironmentNotFound = errors.New("venv: environment not found")
	ErrUnknownVersion      = errors.New("venv: unknown runtime version")
	ErrUnknownPlatform     = errors.New("venv: unknown platform")
	ErrExecutableNotFound  = errors.New("venv: executable not found")
)
