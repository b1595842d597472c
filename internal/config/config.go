package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/aescanero/cmcproxy/pkg/domain"
	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the market-data proxy
type Config struct {
	// Server configuration
	HTTPPort int    `env:"PORT" envDefault:"3001"`
	GRPCPort int    `env:"GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upstream configuration
	Upstream UpstreamConfig

	// CORS configuration
	CORS CORSConfig

	// Health monitor configuration
	Health HealthConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// UpstreamConfig holds market-data API configuration
type UpstreamConfig struct {
	APIKey       string `env:"CMC_API_KEY"`
	BaseURL      string `env:"CMC_BASE_URL" envDefault:"https://pro-api.coinmarketcap.com/v1"`
	LogoTemplate string `env:"CMC_LOGO_URL_TEMPLATE" envDefault:"https://s2.coinmarketcap.com/static/img/coins/64x64/{id}.png"`
}

// CORSConfig holds cross-origin configuration
type CORSConfig struct {
	AllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"https://webthreeworld.com"`
}

// HealthConfig holds upstream health monitor configuration
type HealthConfig struct {
	LogInterval time.Duration `env:"HEALTH_LOG_INTERVAL" envDefault:"60s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	// gRPC port 0 disables the health endpoint
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}
	if c.GRPCPort != 0 && c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("HTTP and gRPC ports must differ: %d", c.HTTPPort)
	}

	// Validate upstream config
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid upstream base URL: %q", c.Upstream.BaseURL)
	}
	if !domain.LogoTemplate(c.Upstream.LogoTemplate).Valid() {
		return fmt.Errorf("logo URL template must contain %s: %q", domain.LogoIDPlaceholder, c.Upstream.LogoTemplate)
	}

	// Validate CORS config
	if c.CORS.AllowedOrigin == "" {
		return fmt.Errorf("CORS allowed origin is required")
	}

	// Validate timeouts
	if c.Timeouts.UpstreamTimeout < 0 {
		return fmt.Errorf("upstream timeout must not be negative")
	}
	if c.Timeouts.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.Health.LogInterval < 0 {
		return fmt.Errorf("health log interval must not be negative")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// HasAPIKey reports whether an upstream API key was supplied
func (c *Config) HasAPIKey() bool {
	return c.Upstream.APIKey != ""
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
