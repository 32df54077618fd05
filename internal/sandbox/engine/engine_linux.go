//go:build linux

package engine

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"codesandbox/internal/sandbox/result"
	"codesandbox/internal/sandbox/spec"
	appErr "codesandbox/pkg/errors"
	"codesandbox/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// pipeDrainDelay bounds how long Wait keeps reading pipes after the process group is gone.
// Only a descendant that left the group (setsid) can hold them that long.
const pipeDrainDelay = 2 * time.Second

type watchdogEvent int

const (
	leaderExited watchdogEvent = iota
	limitReached
	callerCancelled
)

type linuxEngine struct {
	cfg Config
}

// NewEngine creates a Linux process engine.
func NewEngine(cfg Config) Engine {
	return &linuxEngine{cfg: cfg.withDefaults()}
}

func (e *linuxEngine) Run(ctx context.Context, command spec.Command) result.CommandOutcome {
	if len(command.Args) == 0 || command.Args[0] == "" {
		return result.CommandOutcome{
			ExitCode:     -1,
			ProcessError: appErr.New(appErr.ProcessSpawnError).WithMessage("command is required"),
		}
	}
	timeout := spec.ClampTimeout(command.Timeout)
	argv := e.cfg.wrapArgs(command.Args)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = command.WorkDir
	if len(command.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Env...)
	}
	if command.Stdin != "" {
		cmd.Stdin = strings.NewReader(command.Stdin)
	}
	stdout := &limitedBuffer{limit: e.cfg.MaxOutputBytes}
	stderr := &limitedBuffer{limit: e.cfg.MaxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	cmd.WaitDelay = pipeDrainDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return result.CommandOutcome{
			ExitCode:     -1,
			ProcessError: appErr.Wrapf(err, appErr.ProcessSpawnError, "start %s failed", argv[0]),
		}
	}
	pid := cmd.Process.Pid

	exited := make(chan struct{})
	events := make(chan watchdogEvent, 1)
	go watch(ctx, pid, timeout, exited, events)

	// The leader stays a zombie until cmd.Wait, so its pid cannot be reused
	// and the group can be killed safely after it exits.
	var waitErr error
	reaped := false
	if err := waitForExit(pid); err != nil {
		logger.Warn(ctx, "wait for process exit failed", zap.Int("pid", pid), zap.Error(err))
		waitErr = cmd.Wait()
		reaped = true
	}
	elapsed := time.Since(start)
	close(exited)
	event := <-events
	if !reaped {
		// Background descendants never outlive the leader.
		killProcessGroup(pid)
		waitErr = cmd.Wait()
	}

	outcome := result.CommandOutcome{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		ExitCode:        exitCodeFromErr(waitErr, cmd.ProcessState),
		TimedOut:        event == limitReached,
		Duration:        elapsed,
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
	}
	if outcome.TimedOut && outcome.ExitCode == 0 {
		outcome.ExitCode = -1
	}

	switch {
	case event == callerCancelled:
		outcome.ProcessError = appErr.Wrapf(ctx.Err(), appErr.ProcessSpawnError, "%s cancelled", argv[0])
	case outcome.TimedOut:
		// reported through TimedOut
	case waitErr != nil && !isExitError(waitErr) && !errors.Is(waitErr, exec.ErrWaitDelay):
		outcome.ProcessError = appErr.Wrapf(waitErr, appErr.ProcessSpawnError, "wait %s failed", argv[0])
	case e.cfg.HelperPath != "" && isHelperFailure(outcome):
		outcome.ProcessError = appErr.Newf(appErr.ProcessSpawnError, "hardening helper failed: %s", strings.TrimSpace(outcome.Stderr))
		outcome.Stderr = ""
	case outcome.ExitCode != 0 && outcome.Stderr == "":
		outcome.ProcessError = appErr.Newf(appErr.ProcessSpawnError, "%s exited with code %d", argv[0], outcome.ExitCode)
	}

	if outcome.StdoutTruncated || outcome.StderrTruncated {
		logger.Debug(ctx, "process output truncated",
			zap.String("command", argv[0]),
			zap.Int64("limit", e.cfg.MaxOutputBytes),
		)
	}
	return outcome
}

// watch kills the group on timeout or cancellation and reports which happened first.
func watch(ctx context.Context, pid int, timeout time.Duration, exited <-chan struct{}, events chan<- watchdogEvent) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-exited:
		events <- leaderExited
		return
	case <-ctx.Done():
		if hasExited(exited) {
			events <- leaderExited
			return
		}
		killProcessGroup(pid)
		events <- callerCancelled
	case <-timer.C:
		if hasExited(exited) {
			events <- leaderExited
			return
		}
		killProcessGroup(pid)
		events <- limitReached
	}
}

func hasExited(exited <-chan struct{}) bool {
	select {
	case <-exited:
		return true
	default:
		return false
	}
}

// waitForExit blocks until pid terminates without reaping it.
func waitForExit(pid int) error {
	for {
		var info unix.Siginfo
		err := unix.Waitid(unix.P_PID, pid, &info, unix.WEXITED|unix.WNOWAIT, nil)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// isHelperFailure reports a setup error of the hardening helper before it exec'd the target.
func isHelperFailure(outcome result.CommandOutcome) bool {
	return outcome.ExitCode == HelperSetupExitCode && strings.HasPrefix(outcome.Stderr, HelperErrorPrefix)
}

func exitCodeFromErr(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
