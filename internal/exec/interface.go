// Package exec runs the shell commands behind command-backed agents.
package exec

import (
	"context"
)

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// RunPiped executes a shell command with stdin attached and returns stdout
	// only. On a non-zero exit the returned error carries the stderr text.
	RunPiped(ctx context.Context, req PipedRequest) (stdout []byte, err error)
}

// PipedRequest describes a shell command fed through stdin.
type PipedRequest struct {
	// Command is run through "sh -c".
	Command string
	// WorkDir is the working directory, if non-empty.
	WorkDir string
	// Stdin is written to the process before stdin is closed.
	Stdin []byte
	// Env is appended to the current process environment.
	Env []string
}
