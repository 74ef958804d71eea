// Package tools provides reusable runtime helpers shared by venvctl commands.
//
// Ownership boundary:
// - command execution helpers
// - child process exit code mapping
package tools
