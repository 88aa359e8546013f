package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/api/handlers"
	"github.com/Adhikkesh/Erflog/api/ws"
	"github.com/Adhikkesh/Erflog/config"
	"github.com/Adhikkesh/Erflog/internal/metrics"
	"github.com/Adhikkesh/Erflog/internal/server"
	"github.com/Adhikkesh/Erflog/internal/telemetry"
	"github.com/Adhikkesh/Erflog/interview"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 Erflog 的主服务器
type Server struct {
	cfg    *config.Config
	loader *config.Loader
	logger *zap.Logger

	telemetry *telemetry.Providers
	tracer    trace.Tracer

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	metricsCollector *metrics.Collector
	registry         *interview.Registry
	components       *components

	// 面试调优参数，热更新后只影响新会话
	interviewCfg atomic.Pointer[config.InterviewConfig]
	watcher      *config.Watcher

	// 中间件后台协程（限流清理）的生命周期
	middlewareCancel context.CancelFunc

	errCh        chan error
	shutdownOnce sync.Once
}

// NewServer 装配所有组件，但不开始监听
func NewServer(ctx context.Context, cfg *config.Config, loader *config.Loader, logger *zap.Logger, otelProviders *telemetry.Providers) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		loader:    loader,
		logger:    logger,
		telemetry: otelProviders,
		tracer:    otelProviders.Tracer("erflog"),
		errCh:     make(chan error, 2),
	}
	interviewCfg := cfg.Interview
	s.interviewCfg.Store(&interviewCfg)

	s.metricsCollector = metrics.NewCollector("erflog", logger)

	comps, err := buildComponents(ctx, cfg, logger, s.metricsCollector, s.tracer)
	if err != nil {
		return nil, err
	}
	s.components = comps
	s.registry = comps.registry

	if err := s.initHotReload(); err != nil {
		_ = comps.Close()
		return nil, err
	}

	mwCtx, cancel := context.WithCancel(context.Background())
	s.middlewareCancel = cancel
	s.httpManager = server.NewManager("http", s.routes(mwCtx), s.httpServerConfig(), logger)
	s.httpManager.OnShutdown(s.registry.CancelAll)
	s.metricsManager = server.NewManager("metrics", s.metricsRoutes(), server.Config{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
	}, logger)

	return s, nil
}

// httpServerConfig WebSocket 与 HTTP API 共用一个监听，读写超时保持为 0，
// 请求头超时沿用配置的读超时
func (s *Server) httpServerConfig() server.Config {
	return server.Config{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
		ShutdownTimeout:   s.cfg.Server.ShutdownTimeout,
	}
}

// engineConfig 返回当前调优参数下的引擎配置
func (s *Server) engineConfig(mode interview.Mode) interview.Config {
	return s.interviewCfg.Load().EngineConfig(mode)
}

// =============================================================================
// 🔄 热更新
// =============================================================================

func (s *Server) initHotReload() error {
	if s.loader == nil || s.loader.ConfigPath() == "" {
		s.logger.Info("no config file, hot reload disabled")
		return nil
	}
	w, err := config.NewWatcher(s.loader, s.cfg, config.WithWatcherLogger(s.logger))
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	w.OnReload(func(next *config.Config) {
		interviewCfg := next.Interview
		s.interviewCfg.Store(&interviewCfg)
		s.logger.Info("interview tuning reloaded",
			zap.Float64("silence_threshold", interviewCfg.SilenceThreshold),
			zap.Duration("silence_duration", interviewCfg.SilenceDuration),
			zap.Duration("cooldown", interviewCfg.Cooldown))
	})
	s.watcher = w
	return nil
}

// =============================================================================
// 🛣️ 路由
// =============================================================================

// publicPaths 不需要认证
var publicPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version"}

func (s *Server) routes(ctx context.Context) http.Handler {
	c := s.components
	ic := s.interviewCfg.Load()

	healthHandler := handlers.NewHealthHandler(s.registry, s.logger)
	for _, check := range c.checks {
		healthHandler.RegisterCheck(check)
	}

	wsCfg := ws.Config{
		HandshakeTimeout: ic.HandshakeTimeout,
		FrameQueueSize:   ic.FrameQueueSize,
		DefaultUserID:    ic.DefaultUserID,
		MaxMessageBytes:  s.cfg.Server.MaxMessageBytes,
		OriginPatterns:   originPatterns(s.cfg.Server.CORSAllowedOrigins),
	}
	wsHandler := ws.NewHandler(wsCfg, c.voice, c.text, s.registry, s.logger,
		ws.WithMetrics(s.metricsCollector),
		ws.WithTracer(s.tracer),
		ws.WithEngineConfig(s.engineConfig),
	)

	interviewHandler := handlers.NewInterviewHandler(c.history, c.chats, c.text, s.logger,
		handlers.WithEngineConfig(s.engineConfig),
		handlers.WithDefaultUserID(ic.DefaultUserID),
		handlers.WithEngineMetrics(s.metricsCollector),
		handlers.WithEngineTracer(s.tracer),
	)
	sessionHandler := handlers.NewSessionHandler(s.registry, c.mirror, s.logger)

	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", healthHandler.HandleReady)
	mux.HandleFunc("GET /readyz", healthHandler.HandleReady)
	mux.HandleFunc("GET /version", healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 面试 WebSocket
	mux.HandleFunc("GET /ws/interview/{job_id}", wsHandler.ServeVoice)
	mux.HandleFunc("GET /ws/interview/text/{job_id}", wsHandler.ServeText)

	// HTTP API
	mux.HandleFunc("GET /api/v1/interviews/{user_id}", interviewHandler.HandleHistory)
	mux.HandleFunc("POST /api/v1/interview/chat", interviewHandler.HandleChat)
	mux.HandleFunc("GET /api/v1/sessions", sessionHandler.HandleList)
	mux.HandleFunc("GET /api/v1/sessions/{id}", sessionHandler.HandleGet)

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(s.tracer),
		MetricsMiddleware(s.metricsCollector),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
		APIKeyAuth(s.cfg.Auth.APIKeys, publicPaths, s.cfg.Auth.AllowQueryToken, s.logger),
		JWTAuth(s.cfg.Auth, publicPaths, s.logger),
	)
}

func (s *Server) metricsRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// originPatterns 把 CORS 来源转换为 WebSocket 的 host 模式；为空时不限制
func originPatterns(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}

// =============================================================================
// 🚀 启动与关闭
// =============================================================================

// Start 启动 HTTP、指标服务器与配置监听
func (s *Server) Start(ctx context.Context) error {
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	s.forwardErrors(s.httpManager)

	if err := s.metricsManager.Start(); err != nil {
		s.logger.Warn("metrics server failed to start", zap.Error(err))
	} else {
		s.forwardErrors(s.metricsManager)
	}

	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			s.logger.Warn("config watcher failed to start", zap.Error(err))
		}
	}

	s.logger.Info("Erflog listening",
		zap.String("http", s.httpManager.Addr()),
		zap.String("metrics", s.metricsManager.Addr()))
	return nil
}

func (s *Server) forwardErrors(m *server.Manager) {
	go func() {
		for err := range m.Errors() {
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()
}

// Errors 返回服务器运行期间的致命错误
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Shutdown 依次停止接收请求、取消活动面试、等待会话退出、释放资源
func (s *Server) Shutdown(ctx context.Context) {
	s.shutdownOnce.Do(func() {
		if s.watcher != nil {
			s.watcher.Stop()
		}

		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("http server shutdown error", zap.Error(err))
		}

		// OnShutdown 已取消所有会话，这里等待它们完成收尾
		s.registry.CancelAll()
		if err := s.registry.Wait(ctx); err != nil {
			s.logger.Warn("sessions did not finish before shutdown deadline",
				zap.Int("remaining", s.registry.Len()), zap.Error(err))
		}

		if err := s.metricsManager.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}

		s.middlewareCancel()

		if err := s.components.Close(); err != nil {
			s.logger.Error("failed to release resources", zap.Error(err))
		}
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.logger.Warn("telemetry shutdown error", zap.Error(err))
		}
	})
}
