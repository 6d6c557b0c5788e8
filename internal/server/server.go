// Package server exposes the renaming pipeline as an HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/internal/common"
	"github.com/Hk-V1/consignee-renamer/internal/metrics"
)

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 120 * time.Second
	idleTimeout  = 120 * time.Second
)

// Server wraps the gin engine and its http.Server.
type Server struct {
	router  *gin.Engine
	http    *http.Server
	manager *RunManager
	logger  *zap.Logger
}

// NewServer builds the router and wires every route group.
func NewServer(addr string, handler *Handler, manager *RunManager, m *metrics.Metrics, debug bool, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "active_runs": manager.Len()})
	})
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/capabilities", handler.Capabilities)

		runs := v1.Group("/runs")
		{
			runs.POST("", handler.CreateRun)
			runs.GET("/:id", handler.GetRun)
			runs.POST("/:id/process", handler.ProcessRun)
			runs.POST("/:id/repack", handler.RepackRun)
			runs.GET("/:id/report", handler.ReportRun)
			runs.GET("/:id/archive", handler.DownloadArchive)
			runs.DELETE("/:id", handler.DeleteRun)
		}

		history := v1.Group("/history")
		{
			history.GET("", handler.ListHistory)
			history.GET("/:id", handler.GetHistoryRun)
		}
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
		manager: manager,
		logger:  logger,
	}
}

// Router returns the underlying engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases every tracked run.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	err := s.http.Shutdown(ctx)
	s.manager.CloseAll()
	return err
}

// requestIDMiddleware tags each request with an id that travels through the
// request context and the response headers.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), requestID))
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("http.request",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", common.RequestIDFromContext(c.Request.Context())),
		)
	}
}
