package main

import (
	"fmt"
	"os"
	"time"

	"codesandbox/internal/common/cache"
	commonmw "codesandbox/internal/common/http/middleware"
	"codesandbox/internal/isolation"
	"codesandbox/internal/sandbox"
	"codesandbox/internal/sandbox/engine"
	"codesandbox/internal/sandbox/profile"
	"codesandbox/internal/sandbox/remote"
	"codesandbox/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 90 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultQueueTimeout    = 5 * time.Second
	defaultRateWindow      = time.Minute
	defaultRedisTimeout    = 500 * time.Millisecond
	defaultSweepInterval   = 5 * time.Minute
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// SandboxConfig holds execution settings.
type SandboxConfig struct {
	WorkRoot       string        `yaml:"workRoot"`
	CompileTimeout time.Duration `yaml:"compileTimeout"`
	RunTimeout     time.Duration `yaml:"runTimeout"`
	MaxOutputBytes int64         `yaml:"maxOutputBytes"`
	MaxCodeBytes   int           `yaml:"maxCodeBytes"`
	MaxConcurrent  int           `yaml:"maxConcurrent"`
	QueueTimeout   time.Duration `yaml:"queueTimeout"`
	HelperPath     string        `yaml:"helperPath"`
	HelperArgs     []string      `yaml:"helperArgs"`
}

// LanguageConfig overrides or extends the built-in language profiles by id.
type LanguageConfig struct {
	Languages []profile.LanguageProfile `yaml:"languages"`
}

// IsolationConfig holds execution host settings.
type IsolationConfig struct {
	Enabled bool `yaml:"enabled"`
	// Delegate forwards executions to the execution host instead of running them in-process.
	Delegate          bool                   `yaml:"delegate"`
	SuperviseInterval time.Duration          `yaml:"superviseInterval"`
	Host              isolation.HostConfig   `yaml:"host"`
	Transport         remote.TransportConfig `yaml:"transport"`
}

// RateLimitConfig holds request limits for the execute route.
type RateLimitConfig struct {
	Enabled       bool                     `yaml:"enabled"`
	Policy        commonmw.RateLimitPolicy `yaml:"policy"`
	RedisTimeout  time.Duration            `yaml:"redisTimeout"`
	SweepInterval time.Duration            `yaml:"sweepInterval"`
}

// AppConfig holds sandbox-service config.
type AppConfig struct {
	Server    ServerConfig      `yaml:"server"`
	Logger    logger.Config     `yaml:"logger"`
	Sandbox   SandboxConfig     `yaml:"sandbox"`
	Language  LanguageConfig    `yaml:"language"`
	Isolation IsolationConfig   `yaml:"isolation"`
	RateLimit RateLimitConfig   `yaml:"rateLimit"`
	Redis     cache.RedisConfig `yaml:"redis"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Sandbox.QueueTimeout == 0 {
		cfg.Sandbox.QueueTimeout = defaultQueueTimeout
	}
	if cfg.Isolation.Delegate && !cfg.Isolation.Enabled {
		return nil, fmt.Errorf("isolation.delegate requires isolation.enabled")
	}
	cfg.Isolation.Host = cfg.Isolation.Host.WithDefaults()
	if cfg.Isolation.Enabled {
		if err := cfg.Isolation.Host.Validate(); err != nil {
			return nil, fmt.Errorf("isolation host: %w", err)
		}
	}
	if cfg.RateLimit.Policy.Window == 0 {
		cfg.RateLimit.Policy.Window = defaultRateWindow
	}
	if cfg.RateLimit.RedisTimeout == 0 {
		cfg.RateLimit.RedisTimeout = defaultRedisTimeout
	}
	if cfg.RateLimit.SweepInterval == 0 {
		cfg.RateLimit.SweepInterval = defaultSweepInterval
	}
	if cfg.Redis.Addr != "" {
		applyRedisDefaults(&cfg.Redis)
	}
	return &cfg, nil
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	if cfg == nil {
		return
	}
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
}

func (s SandboxConfig) toEngineConfig() engine.Config {
	return engine.Config{
		MaxOutputBytes: s.MaxOutputBytes,
		HelperPath:     s.HelperPath,
		HelperArgs:     s.HelperArgs,
	}
}

func (s SandboxConfig) toExecutorConfig() sandbox.ExecutorConfig {
	return sandbox.ExecutorConfig{
		CompileTimeout: s.CompileTimeout,
		RunTimeout:     s.RunTimeout,
	}
}
