// Package api serves run artifacts over HTTP. The API is read-mostly: a run
// is produced once by the engine and then only queried; nothing served here
// recomputes results.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"volrv/internal/backtest"
	"volrv/internal/cache"
	"volrv/internal/config"
	"volrv/internal/logger"
	"volrv/internal/monitoring"
	"volrv/internal/store"
)

// Server is the artifact API server.
type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	handler    *RunHandler
	metrics    *monitoring.Metrics
	log        logger.Logger
}

// NewServer wires the API around an artifact repository and summary cache.
// The runner is optional; without it the trigger endpoint reports 503.
func NewServer(cfg *config.Config, repo store.Repository, summaries cache.SummaryCache,
	runner *backtest.Runner, files *store.FileStore, metrics *monitoring.Metrics, log logger.Logger) *Server {

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	server := &Server{
		config:  cfg,
		router:  gin.New(),
		handler: NewRunHandler(repo, summaries, runner, files, metrics, log),
		metrics: metrics,
		log:     log.WithField("component", "api"),
	}
	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	if s.config.RateLimit.Enabled {
		s.router.Use(rateLimitMiddleware(s.config.RateLimit))
	}
	if s.metrics != nil {
		s.router.Use(s.metrics.MetricsMiddleware())
	}

	s.router.GET("/health", s.handler.Health)
	s.router.GET("/metrics", gin.WrapH(monitoring.PrometheusHandler()))

	v1 := s.router.Group("/api/v1")
	{
		runs := v1.Group("/runs")
		{
			runs.GET("", s.handler.ListRuns)
			runs.POST("", s.handler.TriggerRun)
			runs.GET("/:id", s.handler.GetSummary)
			runs.DELETE("/:id", s.handler.DeleteRun)
			runs.GET("/:id/positions", s.handler.GetPositions)
			runs.GET("/:id/trades", s.handler.GetTrades)
			runs.GET("/:id/pnl", s.handler.GetPnL)
			runs.GET("/:id/attribution", s.handler.GetAttribution)
			runs.GET("/:id/rolls", s.handler.GetRollEvents)
		}
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Start begins serving and blocks until the listener fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}
	s.log.Info("api server starting", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
