// Package venv owns virtual environment activation for the current process.
//
// Ownership boundary:
// - environment layout resolution (library and script directories)
//
// - module search path and executable search path mutation
//
// - activation markers (VIRTUAL_ENV, VIRTUAL_ENV_PROMPT, _OLD_VIRTUAL_PATH)
//
// Lifecycle order:
// - inactive -> active(root)
//
// - re-activating the active root is a no-op success.
//
// - there is no transition back to inactive; the saved PATH is kept for one.
//
// venv does not install, resolve, or list packages.
package venv
