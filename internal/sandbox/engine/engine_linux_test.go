//go:build linux

package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"

	"codesandbox/internal/sandbox/spec"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunCapturesOutput(t *testing.T) {
	requireShell(t)
	eng := NewEngine(Config{})
	out := eng.Run(context.Background(), spec.Command{
		Args:    []string{"sh", "-c", "echo hello; echo warn >&2"},
		WorkDir: t.TempDir(),
		Timeout: 5 * time.Second,
	})
	if out.ProcessError != nil {
		t.Fatalf("unexpected process error: %v", out.ProcessError)
	}
	if out.Stdout != "hello\n" {
		t.Fatalf("unexpected stdout %q", out.Stdout)
	}
	if out.Stderr != "warn\n" {
		t.Fatalf("unexpected stderr %q", out.Stderr)
	}
	if out.ExitCode != 0 || out.TimedOut {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestRunFeedsStdin(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	eng := NewEngine(Config{})
	out := eng.Run(context.Background(), spec.Command{
		Args:  []string{"cat"},
		Stdin: "ping",
	})
	if out.Stdout != "ping" {
		t.Fatalf("unexpected stdout %q", out.Stdout)
	}
}

func TestRunTimeoutKillsProcessGroup(t *testing.T) {
	requireShell(t)
	eng := NewEngine(Config{})
	start := time.Now()
	// the child sleep keeps the pipe open unless the whole group is killed
	out := eng.Run(context.Background(), spec.Command{
		Args:    []string{"sh", "-c", "sleep 30 & while :; do :; done"},
		Timeout: time.Second,
	})
	if !out.TimedOut {
		t.Fatalf("expected timeout, got %+v", out)
	}
	if out.ProcessError != nil {
		t.Fatalf("timeout should not set process error: %v", out.ProcessError)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("run took too long: %v", elapsed)
	}
	if out.Duration < time.Second {
		t.Fatalf("duration should cover the timeout, got %v", out.Duration)
	}
}

func TestRunCancelledByCaller(t *testing.T) {
	requireShell(t)
	eng := NewEngine(Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	out := eng.Run(ctx, spec.Command{
		Args:    []string{"sh", "-c", "sleep 10"},
		Timeout: 5 * time.Second,
	})
	if out.ProcessError == nil {
		t.Fatalf("expected process error on cancellation")
	}
	if out.TimedOut {
		t.Fatalf("cancellation is not a timeout")
	}
}

func TestRunProcessErrorRules(t *testing.T) {
	requireShell(t)
	eng := NewEngine(Config{})

	silent := eng.Run(context.Background(), spec.Command{Args: []string{"sh", "-c", "exit 3"}})
	if silent.ExitCode != 3 {
		t.Fatalf("unexpected exit code %d", silent.ExitCode)
	}
	if silent.ProcessError == nil {
		t.Fatalf("silent non-zero exit should set process error")
	}

	noisy := eng.Run(context.Background(), spec.Command{Args: []string{"sh", "-c", "echo boom >&2; exit 1"}})
	if noisy.ProcessError != nil {
		t.Fatalf("stderr output should not set process error: %v", noisy.ProcessError)
	}

	missing := eng.Run(context.Background(), spec.Command{Args: []string{"/nonexistent/binary"}})
	if missing.ProcessError == nil {
		t.Fatalf("spawn failure should set process error")
	}

	empty := eng.Run(context.Background(), spec.Command{})
	if empty.ProcessError == nil {
		t.Fatalf("empty argv should set process error")
	}
}

func TestRunArgumentsAreNotShellInterpreted(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}
	eng := NewEngine(Config{})
	out := eng.Run(context.Background(), spec.Command{Args: []string{"echo", "$(id); rm -rf /"}})
	if strings.TrimSpace(out.Stdout) != "$(id); rm -rf /" {
		t.Fatalf("argument was interpreted: %q", out.Stdout)
	}
}

func TestRunOutputLimit(t *testing.T) {
	requireShell(t)
	eng := NewEngine(Config{MaxOutputBytes: 16})
	out := eng.Run(context.Background(), spec.Command{
		Args: []string{"sh", "-c", "i=0; while [ $i -lt 100 ]; do echo 0123456789; i=$((i+1)); done"},
	})
	if len(out.Stdout) != 16 || !out.StdoutTruncated || out.StderrTruncated {
		t.Fatalf("expected truncated 16 byte stdout, got %d truncated=%v", len(out.Stdout), out.StdoutTruncated)
	}
}

// processAlive treats zombies as gone; they only wait for their new parent to reap them.
func processAlive(pid int) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	fields := strings.Fields(string(data)[strings.LastIndex(string(data), ")")+1:])
	return len(fields) > 0 && fields[0] != "Z"
}

func TestRunKillsBackgroundChildrenOnNormalExit(t *testing.T) {
	requireShell(t)
	eng := NewEngine(Config{})
	out := eng.Run(context.Background(), spec.Command{
		Args:    []string{"sh", "-c", "sleep 31337 </dev/null >/dev/null 2>&1 & echo $!"},
		Timeout: 5 * time.Second,
	})
	if out.ProcessError != nil || out.TimedOut {
		t.Fatalf("unexpected outcome %+v", out)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(out.Stdout))
	if err != nil {
		t.Fatalf("parse child pid from %q: %v", out.Stdout, err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for processAlive(pid) {
		if time.Now().After(deadline) {
			_ = exec.Command("kill", "-9", strconv.Itoa(pid)).Run()
			t.Fatalf("background child %d survived the run", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRunBackgroundChildHoldingStdout(t *testing.T) {
	requireShell(t)
	eng := NewEngine(Config{})
	start := time.Now()
	out := eng.Run(context.Background(), spec.Command{
		Args:    []string{"sh", "-c", "sleep 6 & echo done"},
		Timeout: 5 * time.Second,
	})
	if out.ProcessError != nil {
		t.Fatalf("exit 0 with stdout should not be a process error: %v", out.ProcessError)
	}
	if out.Stdout != "done\n" || out.ExitCode != 0 || out.TimedOut {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if elapsed := time.Since(start); elapsed >= pipeDrainDelay {
		t.Fatalf("run waited for the pipe drain delay: %v", elapsed)
	}
}

func TestWatchReportsExitWhenLeaderAlreadyGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exited := make(chan struct{})
	close(exited)
	for i := 0; i < 100; i++ {
		events := make(chan watchdogEvent, 1)
		watch(ctx, 0, time.Nanosecond, exited, events)
		if ev := <-events; ev != leaderExited {
			t.Fatalf("finished run reported as %d", ev)
		}
	}
}

func TestRunHelperSetupFailureIsProcessError(t *testing.T) {
	requireShell(t)
	failing := NewEngine(Config{
		HelperPath: "sh",
		HelperArgs: []string{"-c", "echo 'sandbox-init: set rlimit cpu: operation not permitted' >&2; exit 126"},
	})
	out := failing.Run(context.Background(), spec.Command{Args: []string{"true"}})
	if out.ProcessError == nil {
		t.Fatalf("helper failure should be a process error")
	}
	if out.Stderr != "" {
		t.Fatalf("helper diagnostics leaked into stderr: %q", out.Stderr)
	}

	passing := NewEngine(Config{HelperPath: "sh", HelperArgs: []string{"-c", `exec "$@"`}})
	ok := passing.Run(context.Background(), spec.Command{Args: []string{"echo", "hi"}})
	if ok.ProcessError != nil || ok.Stdout != "hi\n" {
		t.Fatalf("helper should exec the target, got %+v", ok)
	}

	plain := NewEngine(Config{})
	user := plain.Run(context.Background(), spec.Command{
		Args: []string{"sh", "-c", "echo 'sandbox-init: fake' >&2; exit 126"},
	})
	if user.ProcessError != nil || user.Stderr == "" {
		t.Fatalf("without a helper the program's stderr is its own, got %+v", user)
	}
}
