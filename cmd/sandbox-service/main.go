package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codesandbox/internal/common/cache"
	commonmw "codesandbox/internal/common/http/middleware"
	"codesandbox/internal/common/ratelimit"
	"codesandbox/internal/isolation"
	"codesandbox/internal/sandbox"
	"codesandbox/internal/sandbox/controller"
	"codesandbox/internal/sandbox/engine"
	"codesandbox/internal/sandbox/observer"
	"codesandbox/internal/sandbox/profile"
	"codesandbox/internal/sandbox/remote"
	"codesandbox/internal/sandbox/runner"
	"codesandbox/internal/sandbox/service"
	"codesandbox/internal/sandbox/workspace"
	"codesandbox/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/sandbox_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observer.NewPrometheusRecorder(registry)

	profiles, err := profile.NewRegistry(profile.Merge(profile.DefaultProfiles(), appCfg.Language.Languages))
	if err != nil {
		logger.Error(rootCtx, "init language profiles failed", zap.Error(err))
		return
	}

	var hostMgr *isolation.Manager
	if appCfg.Isolation.Enabled {
		dockerRuntime, err := isolation.NewDockerRuntime()
		if err != nil {
			logger.Error(rootCtx, "init docker client failed", zap.Error(err))
			return
		}
		defer func() {
			_ = dockerRuntime.Close()
		}()
		hostMgr, err = isolation.NewManager(appCfg.Isolation.Host, dockerRuntime)
		if err != nil {
			logger.Error(rootCtx, "init isolation manager failed", zap.Error(err))
			return
		}
		if st := hostMgr.CheckRuntimeStatus(rootCtx); !st.Running {
			logger.Warn(rootCtx, "container runtime is not reachable", zap.String("error", st.Error))
		}
		go hostMgr.Supervise(rootCtx, appCfg.Isolation.SuperviseInterval)
	}

	executor, err := buildExecutor(rootCtx, appCfg, profiles, metrics, hostMgr)
	if err != nil {
		logger.Error(rootCtx, "init executor failed", zap.Error(err))
		return
	}

	execSvc, err := service.NewService(service.Config{
		Executor:      executor,
		Profiles:      profiles,
		Metrics:       metrics,
		MaxCodeBytes:  appCfg.Sandbox.MaxCodeBytes,
		MaxConcurrent: appCfg.Sandbox.MaxConcurrent,
		QueueTimeout:  appCfg.Sandbox.QueueTimeout,
	})
	if err != nil {
		logger.Error(rootCtx, "init execution service failed", zap.Error(err))
		return
	}

	limiter, closeLimiter, err := buildRateLimiter(rootCtx, appCfg)
	if err != nil {
		logger.Error(rootCtx, "init rate limiter failed", zap.Error(err))
		return
	}
	defer closeLimiter()

	httpServer := buildHTTPServer(appCfg, execSvc, hostMgr, limiter, registry)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(rootCtx, "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "sandbox http server started",
			zap.String("addr", appCfg.Server.Addr),
			zap.Bool("isolation", appCfg.Isolation.Enabled),
			zap.Bool("delegate", appCfg.Isolation.Delegate),
		)
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-rootCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

// buildExecutor returns the remote executor when delegation is on, otherwise the in-process pipeline.
func buildExecutor(ctx context.Context, appCfg *AppConfig, profiles profile.Repository, metrics observer.MetricsRecorder, hostMgr *isolation.Manager) (sandbox.Service, error) {
	if appCfg.Isolation.Delegate {
		return remote.NewExecutor(hostMgr.Config().Endpoint(), hostMgr, appCfg.Isolation.Transport)
	}

	workspaces, err := workspace.NewManager(appCfg.Sandbox.WorkRoot, metrics)
	if err != nil {
		return nil, err
	}
	if removed, err := workspaces.Purge(ctx); err != nil {
		logger.Warn(ctx, "purge stale workspaces failed", zap.Error(err))
	} else if removed > 0 {
		logger.Info(ctx, "stale workspaces purged", zap.Int("count", removed))
	}

	eng := engine.NewEngine(appCfg.Sandbox.toEngineConfig())
	jobRunner := runner.NewRunnerWithObserver(eng, metrics)
	return sandbox.NewExecutor(appCfg.Sandbox.toExecutorConfig(), profiles, workspaces, jobRunner, metrics), nil
}

func buildRateLimiter(ctx context.Context, appCfg *AppConfig) (ratelimit.Limiter, func(), error) {
	noop := func() {}
	if !appCfg.RateLimit.Enabled {
		return nil, noop, nil
	}
	if appCfg.Redis.Addr == "" {
		local := ratelimit.NewLocalLimiter()
		go local.RunSweeper(ctx, appCfg.RateLimit.SweepInterval, appCfg.RateLimit.Policy.Window*2)
		return local, noop, nil
	}
	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		return nil, noop, err
	}
	closeFn := func() {
		_ = redisCache.Close()
	}
	return ratelimit.NewRedisLimiter(redisCache, appCfg.RateLimit.Policy.Window, appCfg.RateLimit.RedisTimeout), closeFn, nil
}

func buildHTTPServer(appCfg *AppConfig, execSvc *service.Service, hostMgr *isolation.Manager, limiter ratelimit.Limiter, registry *prometheus.Registry) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	var hostController *controller.HostController
	if hostMgr != nil {
		hostController = controller.NewHostController(hostMgr)
	}
	var executeMiddleware []gin.HandlerFunc
	if limiter != nil {
		executeMiddleware = append(executeMiddleware, commonmw.RateLimitMiddleware(limiter, "execute", appCfg.RateLimit.Policy))
	}
	controller.RegisterRoutes(router.Group("/api/v1/sandbox"), controller.NewSandboxController(execSvc), hostController, executeMiddleware...)

	return &http.Server{
		Addr:         appCfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
