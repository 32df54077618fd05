//go:build !linux

package engine

import (
	"context"

	"codesandbox/internal/sandbox/result"
	"codesandbox/internal/sandbox/spec"
	appErr "codesandbox/pkg/errors"
)

type stubEngine struct{}

func NewEngine(cfg Config) Engine {
	return &stubEngine{}
}

func (s *stubEngine) Run(ctx context.Context, command spec.Command) result.CommandOutcome {
	return result.CommandOutcome{
		ExitCode:     -1,
		ProcessError: appErr.New(appErr.ProcessSpawnError).WithMessage("process engine is only supported on linux"),
	}
}
