package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/cmcproxy/internal/application/health"
	"github.com/aescanero/cmcproxy/internal/application/market"
	"github.com/aescanero/cmcproxy/internal/config"
	"github.com/aescanero/cmcproxy/pkg/adapters/coinmarketcap"
	"github.com/aescanero/cmcproxy/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/cmcproxy/pkg/api/grpc"
	"github.com/aescanero/cmcproxy/pkg/api/http"
	"github.com/aescanero/cmcproxy/pkg/domain"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting market-data proxy",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.Bool("api_key_set", cfg.HasAPIKey()))

	if !cfg.HasAPIKey() {
		logger.Warn("CMC_API_KEY is not set; upstream requests will be rejected")
	}

	// Initialize adapters
	metricsCollector := prometheus.NewCollector(nil)

	healthMonitor := health.NewMonitor(cfg.Health.LogInterval, logger.Named("health"))

	upstream, err := coinmarketcap.NewClient(&coinmarketcap.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Timeouts.UpstreamTimeout,
		Metrics: metricsCollector,
		Health:  healthMonitor,
		Logger:  logger.Named("upstream"),
	})
	if err != nil {
		logger.Fatal("failed to create upstream client", zap.Error(err))
	}

	// Initialize application components
	marketService := market.NewService(
		upstream,
		domain.LogoTemplate(cfg.Upstream.LogoTemplate),
		logger.Named("market"),
	)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:          cfg.HTTPPort,
		AllowedOrigin: cfg.CORS.AllowedOrigin,
		Market:        marketService,
		Health:        healthMonitor,
		Metrics:       metricsCollector,
		Logger:        logger,
	})

	var grpcServer *grpc.Server
	if cfg.GRPCPort != 0 {
		grpcServer, err = grpc.NewServer(&grpc.Config{
			Port:   cfg.GRPCPort,
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("failed to create gRPC server", zap.Error(err))
		}
		healthMonitor.OnChange(grpcServer.SetUpstreamServing)
	}

	healthMonitor.Start()

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if grpcServer != nil {
		go func() {
			if err := grpcServer.Start(); err != nil {
				logger.Fatal("gRPC server failed", zap.Error(err))
			}
		}()
	}

	logger.Info("market-data proxy started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.String("allowed_origin", cfg.CORS.AllowedOrigin))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if grpcServer != nil {
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gRPC server shutdown error", zap.Error(err))
		}
	}

	healthMonitor.Stop()

	logger.Info("market-data proxy shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
