// Package spec describes a single subprocess invocation.
package spec

import "time"

const (
	DefaultTimeout = 10 * time.Second
	MinTimeout     = 1 * time.Second
	MaxTimeout     = 30 * time.Second
)

// Command describes one process to run.
// Args is an argument vector; it is never interpreted by a shell.
type Command struct {
	Args    []string
	WorkDir string
	Env     []string
	// Stdin is fed to the process verbatim; empty means /dev/null.
	Stdin   string
	Timeout time.Duration
}

// ClampTimeout bounds a requested timeout to [MinTimeout, MaxTimeout].
// Zero or negative selects DefaultTimeout.
func ClampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultTimeout
	case d < MinTimeout:
		return MinTimeout
	case d > MaxTimeout:
		return MaxTimeout
	default:
		return d
	}
}
