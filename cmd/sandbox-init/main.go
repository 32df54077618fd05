//go:build linux

// Command sandbox-init hardens the current process and then replaces itself with the target command.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"codesandbox/internal/sandbox/engine"

	"github.com/seccomp/libseccomp-golang"
	"golang.org/x/sys/unix"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, engine.HelperErrorPrefix+err.Error())
		os.Exit(engine.HelperSetupExitCode)
	}
}

func run(args []string) error {
	opts, err := parseOptions(args, os.Stderr)
	if err != nil {
		return err
	}
	if err := applyRlimits(opts); err != nil {
		return err
	}
	cfg, err := loadSeccompConfig(opts.SeccompProfile)
	if err != nil {
		return err
	}
	// Resolve before the filter is loaded so lookups never depend on filtered syscalls.
	cmdPath, err := exec.LookPath(opts.Argv[0])
	if err != nil {
		return fmt.Errorf("resolve command: %w", err)
	}
	if err := applySeccomp(cfg); err != nil {
		return err
	}
	return unix.Exec(cmdPath, opts.Argv, os.Environ())
}

func applyRlimits(opts options) error {
	if opts.CPUSeconds > 0 {
		if err := unix.Setrlimit(unix.RLIMIT_CPU, &unix.Rlimit{Cur: opts.CPUSeconds, Max: opts.CPUSeconds}); err != nil {
			return fmt.Errorf("set rlimit cpu: %w", err)
		}
	}
	if opts.FileSizeMB > 0 {
		bytes := opts.FileSizeMB * 1024 * 1024
		if err := unix.Setrlimit(unix.RLIMIT_FSIZE, &unix.Rlimit{Cur: bytes, Max: bytes}); err != nil {
			return fmt.Errorf("set rlimit fsize: %w", err)
		}
	}
	if opts.MaxProcs > 0 {
		if err := unix.Setrlimit(unix.RLIMIT_NPROC, &unix.Rlimit{Cur: opts.MaxProcs, Max: opts.MaxProcs}); err != nil {
			return fmt.Errorf("set rlimit nproc: %w", err)
		}
	}
	return nil
}

func applySeccomp(cfg seccompConfig) error {
	defaultAction, err := parseSeccompAction(cfg.DefaultAction)
	if err != nil {
		return err
	}
	filter, err := seccomp.NewFilter(defaultAction)
	if err != nil {
		return fmt.Errorf("create seccomp filter: %w", err)
	}
	defer filter.Release()
	for _, rule := range cfg.Syscalls {
		action, err := parseSeccompAction(rule.Action)
		if err != nil {
			return err
		}
		for _, name := range rule.Names {
			call, err := seccomp.GetSyscallFromName(name)
			if err != nil {
				// Not every architecture has every socket call.
				continue
			}
			if err := filter.AddRule(call, action); err != nil {
				return fmt.Errorf("add seccomp rule %s: %w", name, err)
			}
		}
	}
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("set no new privs: %w", err)
	}
	if err := filter.Load(); err != nil {
		return fmt.Errorf("load seccomp filter: %w", err)
	}
	return nil
}

func parseSeccompAction(action string) (seccomp.ScmpAction, error) {
	switch strings.ToUpper(action) {
	case "SCMP_ACT_ALLOW":
		return seccomp.ActAllow, nil
	case "SCMP_ACT_ERRNO":
		return seccomp.ActErrno.SetReturnCode(int16(syscall.EPERM)), nil
	case "SCMP_ACT_KILL", "SCMP_ACT_KILL_PROCESS":
		return seccomp.ActKillProcess, nil
	default:
		return seccomp.ActKillProcess, fmt.Errorf("unsupported seccomp action: %s", action)
	}
}
