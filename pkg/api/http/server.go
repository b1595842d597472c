package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aescanero/cmcproxy/internal/application/health"
	"github.com/aescanero/cmcproxy/pkg/domain"
	"github.com/aescanero/cmcproxy/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Market serves the listing views
type Market interface {
	Listings(ctx context.Context) (*domain.Listings, error)
	Trending(ctx context.Context) ([]domain.Asset, error)
	TopGainers(ctx context.Context) ([]domain.Mover, error)
	TopLosers(ctx context.Context) ([]domain.Mover, error)
	ByID(ctx context.Context, id string) (domain.Asset, error)
}

// HealthProvider reports upstream health
type HealthProvider interface {
	Status() *health.UpstreamStatus
}

// Server represents the HTTP API server
type Server struct {
	router  *gin.Engine
	server  *http.Server
	market  Market
	health  HealthProvider
	metrics ports.MetricsCollector
	logger  *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port          int
	AllowedOrigin string
	Market        Market
	Health        HealthProvider
	Metrics       ports.MetricsCollector
	// Gatherer backs /metrics; nil serves the default registry
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(requestID())
	router.Use(requestLogger(logger))
	if cfg.Metrics != nil {
		router.Use(requestMetrics(cfg.Metrics))
	}
	router.Use(recovery(logger))
	router.Use(corsMiddleware(cfg.AllowedOrigin))

	s := &Server{
		router:  router,
		market:  cfg.Market,
		health:  cfg.Health,
		metrics: cfg.Metrics,
		logger:  logger,
	}

	s.setupRoutes(cfg.Gatherer)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	if gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	} else {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := s.router.Group("/api")
	{
		api.GET("/cryptocurrencies", s.handleListings)
		api.GET("/cryptocurrencies/:id", s.handleGetAsset)
		api.GET("/trending", s.handleTrending)
		api.GET("/top-gainers", s.handleTopGainers)
		api.GET("/top-losers", s.handleTopLosers)
	}

	s.router.NoRoute(s.handleNotFound)
}

// Handler returns the root handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
