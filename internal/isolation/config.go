// Package isolation manages the containerized execution host.
package isolation

import (
	"fmt"
	"strings"
	"time"
)

// Pull policies for the execution host image.
const (
	PullAlways  = "always"
	PullMissing = "missing"
	PullNever   = "never"
)

// HostConfig is the fixed shape of the execution host container.
type HostConfig struct {
	Name          string        `yaml:"name"`
	Image         string        `yaml:"image"`
	CPUs          float64       `yaml:"cpus"`
	MemoryMB      int64         `yaml:"memoryMB"`
	PidsLimit     int64         `yaml:"pidsLimit"`
	HostAddress   string        `yaml:"hostAddress"`
	HostPort      int           `yaml:"hostPort"`
	ContainerPort int           `yaml:"containerPort"`
	Env           []string      `yaml:"env"`
	PullPolicy    string        `yaml:"pullPolicy"`
	StopTimeout   time.Duration `yaml:"stopTimeout"`
}

// DefaultHostConfig returns the default execution host shape.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		Name:          "codesandbox-exec-host",
		Image:         "codesandbox/sandbox-service:latest",
		CPUs:          1,
		MemoryMB:      512,
		PidsLimit:     256,
		HostAddress:   "127.0.0.1",
		HostPort:      8090,
		ContainerPort: 8080,
		PullPolicy:    PullMissing,
		StopTimeout:   10 * time.Second,
	}
}

// WithDefaults fills zero fields from DefaultHostConfig.
func (c HostConfig) WithDefaults() HostConfig {
	def := DefaultHostConfig()
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.Image == "" {
		c.Image = def.Image
	}
	if c.CPUs <= 0 {
		c.CPUs = def.CPUs
	}
	if c.MemoryMB <= 0 {
		c.MemoryMB = def.MemoryMB
	}
	if c.PidsLimit <= 0 {
		c.PidsLimit = def.PidsLimit
	}
	if c.HostAddress == "" {
		c.HostAddress = def.HostAddress
	}
	if c.HostPort == 0 {
		c.HostPort = def.HostPort
	}
	if c.ContainerPort == 0 {
		c.ContainerPort = def.ContainerPort
	}
	if c.PullPolicy == "" {
		c.PullPolicy = def.PullPolicy
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = def.StopTimeout
	}
	return c
}

// Validate checks the resource caps and port mapping.
func (c HostConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("host name is required")
	}
	if strings.TrimSpace(c.Image) == "" {
		return fmt.Errorf("host image is required")
	}
	if c.CPUs <= 0 {
		return fmt.Errorf("cpus must be positive")
	}
	if c.MemoryMB <= 0 {
		return fmt.Errorf("memoryMB must be positive")
	}
	if !validPort(c.HostPort) || !validPort(c.ContainerPort) {
		return fmt.Errorf("ports must be in 1..65535")
	}
	switch c.PullPolicy {
	case PullAlways, PullMissing, PullNever:
	default:
		return fmt.Errorf("unknown pull policy: %s", c.PullPolicy)
	}
	return nil
}

// Endpoint is the base URL of the published execution host port.
func (c HostConfig) Endpoint() string {
	return fmt.Sprintf("http://%s:%d", c.HostAddress, c.HostPort)
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
