// Package server exposes the market data HTTP surface: catalog and FX reads,
// symbol registration, live quote streams (SSE and WebSocket), health,
// metrics and scheduler control.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/market-data/internal/broker"
	"github.com/rickgao/market-data/internal/cache"
	"github.com/rickgao/market-data/internal/metrics"
	"github.com/rickgao/market-data/internal/model"
	"github.com/rickgao/market-data/internal/scheduler"
	"github.com/rickgao/market-data/internal/stream"
)

// Scheduler is the control surface of the refresh scheduler.
type Scheduler interface {
	Pause()
	Resume()
	Paused() bool
	Status() []scheduler.TaskStatus
}

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds Server configuration.
type Config struct {
	Mode               string // gin mode
	Channel            string
	MetricsPath        string // empty disables /metrics
	PingTimeout        time.Duration
	WSWriteTimeout     time.Duration
	UnsubscribeTimeout time.Duration
}

// Deps are the service objects the handlers read from.
type Deps struct {
	Catalog   *cache.SecurityCatalog
	Rates     *cache.Cache[model.ExchangeRate]
	Quotes    stream.Registrar
	Broker    broker.Broker
	Scheduler Scheduler // optional
	Database  Pinger    // optional
	Metrics   *metrics.Metrics
}

// Server is the gin-backed HTTP handler.
type Server struct {
	cfg    Config
	deps   Deps
	engine *gin.Engine
	logger *slog.Logger
}

// New builds the router.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Channel == "" {
		cfg.Channel = broker.DefaultChannel
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		engine: gin.New(),
		logger: logger,
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

// Handler returns the http.Handler to serve.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	e := s.engine

	e.GET("/health", s.health)
	if s.cfg.MetricsPath != "" && s.deps.Metrics != nil {
		e.GET(s.cfg.MetricsPath, gin.WrapH(s.deps.Metrics.Handler()))
	}

	m := e.Group("/market")
	m.GET("/security/list", s.listSecurities)
	m.GET("/security/:symbol", s.getSecurity)
	m.PUT("/quote", s.trackQuotes)
	m.POST("/quote", s.trackQuotes)
	m.GET("/quote/stream", s.streamSSE)
	m.GET("/quote/ws", s.streamWS)
	m.GET("/fx", s.exchangeRates)

	if s.deps.Scheduler != nil {
		sch := e.Group("/scheduler")
		sch.GET("", s.schedulerStatus)
		sch.POST("/pause", s.pauseScheduler)
		sch.POST("/resume", s.resumeScheduler)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
