// Package http 本地诊断 HTTP 服务
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/api/http/handlers"
	"github.com/weisyn/memwatch/internal/api/http/middleware"
	apiconfig "github.com/weisyn/memwatch/internal/config/api"
	"github.com/weisyn/memwatch/internal/core/infrastructure/log"
	"github.com/weisyn/memwatch/pkg/interfaces/memwatch"
)

// Server 诊断 HTTP 服务器
// 路由：/health、/debug/memory/*、/metrics
type Server struct {
	cfg      apiconfig.HTTPConfig
	router   *gin.Engine
	service  memwatch.Service
	registry *prometheus.Registry
	logger   *zap.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewServer 创建服务器并注册路由，registry 为 nil 时不暴露 /metrics
func NewServer(cfg apiconfig.HTTPConfig, service memwatch.Service, registry *prometheus.Registry, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		router:   gin.New(),
		service:  service,
		registry: registry,
		logger:   log.NewModuleZapLogger(logger, "http"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes 设置HTTP路由
func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery(), middleware.NewRequestID().Middleware(), middleware.NewLogger(s.logger).Middleware())
	if s.registry != nil {
		s.router.Use(middleware.NewMetrics(s.registry).Middleware())
	}

	handlers.NewHealthHandler(s.service).RegisterRoutes(s.router)

	memory := handlers.NewMemoryHandler(s.service, s.logger)
	debug := s.router.Group("/debug/memory")
	memory.RegisterRoutes(debug)
	if s.cfg.EnableControl {
		memory.RegisterControlRoutes(debug)
	}

	if s.cfg.EnableMetrics && s.registry != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}
}

// Handler 返回路由，测试中配合 httptest 使用
func (s *Server) Handler() http.Handler { return s.router }

// Start 监听配置的地址并在后台提供服务；端口被占用时直接返回错误
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", s.cfg.Addr(), err)
	}
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.httpServer = srv
	s.listener = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http_server_failed", zap.Error(err))
		}
	}()
	s.logger.Info("http_server_started", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr 实际监听地址，未启动时为空
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop 优雅关闭，等待进行中的请求
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(stopCtx); err != nil {
		s.logger.Warn("http_server_shutdown_failed", zap.Error(err))
		return err
	}
	s.logger.Info("http_server_stopped")
	return nil
}
