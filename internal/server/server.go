// Package server wires the HTTP surface: webhook receiver, health check and
// approval API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/api"
	"github.com/devricklin/inbox-autopilot/internal/webhook"
)

// maxBodyBytes bounds webhook bodies read into memory
const maxBodyBytes = 1 << 20

// DeliverySubmitter accepts verified deliveries for asynchronous processing
type DeliverySubmitter interface {
	Submit(d *webhook.Delivery) error
}

// Config contains HTTP server configuration
type Config struct {
	ListenAddr  string
	AppSecret   string
	VerifyToken string
	APIToken    string
}

// Server is the HTTP server
type Server struct {
	cfg     Config
	ingest  DeliverySubmitter
	engine  *gin.Engine
	httpSrv *http.Server
	now     func() time.Time
	log     *zap.Logger
}

// NewServer creates the HTTP server. approval may be nil to serve webhooks only.
func NewServer(cfg Config, ingest DeliverySubmitter, approval api.Approver, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		ingest: ingest,
		engine: gin.New(),
		now:    time.Now,
		log:    log.Named("server"),
	}

	s.engine.Use(gin.Recovery(), s.accessLog())
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/webhook", s.handleVerify)
	s.engine.POST("/webhook", s.handleEvent)

	if approval != nil {
		g := s.engine.Group("/api", api.BearerAuth(cfg.APIToken))
		api.NewHandler(approval, log).Register(g)
	}
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens and serves until Shutdown
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("listening", zap.String("addr", s.cfg.ListenAddr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/health" {
			return
		}
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
