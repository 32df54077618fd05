// Package remote delegates executions to the containerized execution host.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"codesandbox/internal/isolation"
	"codesandbox/internal/sandbox"
	"codesandbox/internal/sandbox/result"
	"codesandbox/pkg/utils/contextkey"
	"codesandbox/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	executePath           = "/api/v1/sandbox/execute"
	healthPath            = "/healthz"
	defaultRequestTimeout = 75 * time.Second
	defaultReadyTimeout   = 30 * time.Second
	defaultReadyInterval  = 100 * time.Millisecond
	maxReadyInterval      = 2 * time.Second
	maxResponseBytes      = 1 << 20
)

// HostStarter brings the execution host up before a request is forwarded.
type HostStarter interface {
	StartExecutionHost(ctx context.Context) isolation.ActionResult
}

// TransportConfig tunes the connection pool to the execution host.
type TransportConfig struct {
	MaxIdleConns          int           `yaml:"maxIdleConns"`
	MaxIdleConnsPerHost   int           `yaml:"maxIdleConnsPerHost"`
	IdleConnTimeout       time.Duration `yaml:"idleConnTimeout"`
	ResponseHeaderTimeout time.Duration `yaml:"responseHeaderTimeout"`
	DialTimeout           time.Duration `yaml:"dialTimeout"`
	RequestTimeout        time.Duration `yaml:"requestTimeout"`
	// ReadyTimeout bounds how long a request waits for a freshly started host to answer /healthz.
	ReadyTimeout  time.Duration `yaml:"readyTimeout"`
	ReadyInterval time.Duration `yaml:"readyInterval"`
}

// Executor forwards requests to the execution host over HTTP.
type Executor struct {
	endpoint      string
	host          HostStarter
	client        *http.Client
	readyTimeout  time.Duration
	readyInterval time.Duration
	ready         atomic.Bool
}

// NewExecutor creates a remote executor for endpoint. host may be nil when the host is managed elsewhere.
func NewExecutor(endpoint string, host HostStarter, cfg TransportConfig) (*Executor, error) {
	endpoint = strings.TrimRight(endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("execution host endpoint is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.ReadyInterval <= 0 {
		cfg.ReadyInterval = defaultReadyInterval
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
	}
	return &Executor{
		endpoint:      endpoint,
		host:          host,
		client:        &http.Client{Transport: transport, Timeout: cfg.RequestTimeout},
		readyTimeout:  cfg.ReadyTimeout,
		readyInterval: cfg.ReadyInterval,
	}, nil
}

// Execute forwards req. Every transport or host failure becomes the generic failure result.
func (e *Executor) Execute(ctx context.Context, req sandbox.ExecutionRequest) result.ExecutionResult {
	if e.host != nil {
		if started := e.host.StartExecutionHost(ctx); !started.Success {
			logger.Error(ctx, "execution host unavailable", zap.String("error", started.Error))
			return result.Failed(sandbox.GenericFailure, 0)
		}
	}
	if !e.ready.Load() {
		if err := e.waitReady(ctx); err != nil {
			logger.Error(ctx, "execution host not ready", zap.String("endpoint", e.endpoint), zap.Error(err))
			return result.Failed(sandbox.GenericFailure, 0)
		}
		e.ready.Store(true)
	}
	res, err := e.forward(ctx, req)
	if err != nil {
		// The host may have been restarted; check readiness again next time.
		e.ready.Store(false)
		logger.Error(ctx, "remote execution failed",
			zap.String("endpoint", e.endpoint),
			zap.String("language", req.Language),
			zap.Error(err),
		)
		return result.Failed(sandbox.GenericFailure, 0)
	}
	return res
}

// waitReady polls the host health endpoint with a doubling interval until it answers 200.
func (e *Executor) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.readyTimeout)
	defer cancel()
	interval := e.readyInterval
	for {
		err := e.checkHealth(ctx)
		if err == nil {
			return nil
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("wait for %s: %w (last error: %v)", healthPath, ctx.Err(), err)
		case <-timer.C:
		}
		interval *= 2
		if interval > maxReadyInterval {
			interval = maxReadyInterval
		}
	}
}

func (e *Executor) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+healthPath, nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

func (e *Executor) forward(ctx context.Context, req sandbox.ExecutionRequest) (result.ExecutionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return result.ExecutionResult{}, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+executePath, bytes.NewReader(body))
	if err != nil {
		return result.ExecutionResult{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if traceID, ok := ctx.Value(contextkey.TraceID).(string); ok && traceID != "" {
		httpReq.Header.Set("X-Trace-Id", traceID)
	}
	if requestID, ok := ctx.Value(contextkey.RequestID).(string); ok && requestID != "" {
		httpReq.Header.Set("X-Request-Id", requestID)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return result.ExecutionResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return result.ExecutionResult{}, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return result.ExecutionResult{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(payload, 256))
	}
	var res result.ExecutionResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return result.ExecutionResult{}, fmt.Errorf("decode response: %w", err)
	}
	return res, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
