// Package sandbox compiles and runs untrusted source code in disposable workspaces.
package sandbox

import (
	"context"
	"regexp"

	"codesandbox/internal/sandbox/result"
	appErr "codesandbox/pkg/errors"
)

// GenericFailure is the caller-facing message for every infrastructure failure.
const GenericFailure = "execution failed"

// TruncationMarker ends any output or diagnostic that hit the capture limit.
const TruncationMarker = "\n[output truncated]"

// Service is the entrypoint used by the HTTP layer and the remote executor.
type Service interface {
	Execute(ctx context.Context, req ExecutionRequest) result.ExecutionResult
}

// ExecutionRequest is one submission of source code.
type ExecutionRequest struct {
	SourceCode string `json:"code"`
	Language   string `json:"language"`
	// EntryPoint names the main class for languages that need one. Empty selects the profile default.
	EntryPoint string `json:"entryPoint,omitempty"`
}

var entryPointPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ValidateEntryPoint checks that entry is usable as a Java class and file name.
func ValidateEntryPoint(entry string) error {
	if entry == "" {
		return nil
	}
	if len(entry) > 128 || !entryPointPattern.MatchString(entry) {
		return appErr.New(appErr.InvalidEntryPoint).
			WithMessagef("invalid entry point: %s", entry).
			WithDetail("entryPoint", entry)
	}
	return nil
}
