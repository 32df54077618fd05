package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

type options struct {
	CPUSeconds     uint64
	MaxProcs       uint64
	FileSizeMB     uint64
	SeccompProfile string
	Argv           []string
}

type seccompConfig struct {
	DefaultAction string           `json:"defaultAction"`
	Syscalls      []seccompSyscall `json:"syscalls"`
}

type seccompSyscall struct {
	Names  []string `json:"names"`
	Action string   `json:"action"`
}

// networkSyscalls cover every way of obtaining or using a socket.
var networkSyscalls = []string{
	"socket", "socketpair", "connect", "bind", "listen", "accept", "accept4",
	"sendto", "sendmsg", "sendmmsg", "recvfrom", "recvmsg", "recvmmsg",
}

func defaultSeccompConfig() seccompConfig {
	return seccompConfig{
		DefaultAction: "SCMP_ACT_ALLOW",
		Syscalls: []seccompSyscall{
			{Names: networkSyscalls, Action: "SCMP_ACT_ERRNO"},
		},
	}
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("sandbox-init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.Uint64Var(&opts.CPUSeconds, "cpu", 0, "CPU time limit in seconds")
	fs.Uint64Var(&opts.MaxProcs, "nproc", 0, "Maximum number of processes")
	fs.Uint64Var(&opts.FileSizeMB, "fsize", 0, "Maximum written file size in MB")
	fs.StringVar(&opts.SeccompProfile, "seccomp", "", "Seccomp profile (JSON); the built-in network deny list is used when empty")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.Argv = fs.Args()
	if len(opts.Argv) == 0 {
		return options{}, fmt.Errorf("command is required")
	}
	return opts, nil
}

func loadSeccompConfig(path string) (seccompConfig, error) {
	if path == "" {
		return defaultSeccompConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return seccompConfig{}, fmt.Errorf("read seccomp profile: %w", err)
	}
	var cfg seccompConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return seccompConfig{}, fmt.Errorf("parse seccomp profile: %w", err)
	}
	if cfg.DefaultAction == "" {
		cfg.DefaultAction = "SCMP_ACT_ALLOW"
	}
	for _, rule := range cfg.Syscalls {
		if !knownAction(rule.Action) {
			return seccompConfig{}, fmt.Errorf("unsupported seccomp action: %s", rule.Action)
		}
	}
	if !knownAction(cfg.DefaultAction) {
		return seccompConfig{}, fmt.Errorf("unsupported seccomp action: %s", cfg.DefaultAction)
	}
	return cfg, nil
}

func knownAction(action string) bool {
	switch strings.ToUpper(action) {
	case "SCMP_ACT_ALLOW", "SCMP_ACT_ERRNO", "SCMP_ACT_KILL", "SCMP_ACT_KILL_PROCESS":
		return true
	}
	return false
}
