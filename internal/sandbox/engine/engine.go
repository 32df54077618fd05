// Package engine spawns a single argv-only process and captures its outcome.
package engine

import (
	"bytes"
	"context"

	"codesandbox/internal/sandbox/result"
	"codesandbox/internal/sandbox/spec"
)

const defaultMaxOutputBytes int64 = 64 * 1024

// The hardening helper exits with HelperSetupExitCode and a HelperErrorPrefix
// line on stderr when it fails before running the target.
const (
	HelperSetupExitCode = 126
	HelperErrorPrefix   = "sandbox-init: "
)

// Engine runs one command to completion.
type Engine interface {
	Run(ctx context.Context, cmd spec.Command) result.CommandOutcome
}

// Config controls engine behavior.
type Config struct {
	// MaxOutputBytes bounds the captured size of stdout and stderr, each.
	MaxOutputBytes int64 `yaml:"maxOutputBytes"`
	// HelperPath, when set, prefixes every argv with the hardening helper.
	HelperPath string   `yaml:"helperPath"`
	HelperArgs []string `yaml:"helperArgs"`
}

func (c Config) withDefaults() Config {
	if c.MaxOutputBytes <= 0 {
		c.MaxOutputBytes = defaultMaxOutputBytes
	}
	return c
}

// wrapArgs prefixes args with the hardening helper: helper [flags...] -- args...
func (c Config) wrapArgs(args []string) []string {
	if c.HelperPath == "" {
		return args
	}
	out := make([]string, 0, len(args)+len(c.HelperArgs)+2)
	out = append(out, c.HelperPath)
	out = append(out, c.HelperArgs...)
	out = append(out, "--")
	return append(out, args...)
}

// limitedBuffer keeps the first limit bytes and silently drops the rest.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - int64(b.buf.Len())
	if remaining <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
