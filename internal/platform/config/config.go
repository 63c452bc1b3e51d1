// Package config provides environment-based configuration.
//
// Loads from .env file (godotenv), maps to Config struct via go-simpler/env struct tags.
// Validates ports, log settings and limits before the server starts.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv        string `env:"APP_ENVIRONMENT" default:"dev"`
	Port          string `env:"APP_PORT" default:"3501"`
	StaticPath    string `env:"APP_STATIC_PATH" default:"assets"`
	LogLevel      string `env:"APP_LOG_LEVEL" default:"info"`
	LogFormat     string `env:"APP_LOG_FORMAT" default:"text"`
	AllowedOrigin string `env:"APP_ALLOWED_ORIGIN"`

	DeliveryBuffer int   `env:"APP_DELIVERY_BUFFER" default:"32"`
	MaxMessageSize int64 `env:"APP_MAX_MESSAGE_SIZE" default:"65536"`

	MaxConnections      int     `env:"APP_MAX_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP int     `env:"APP_MAX_CONNECTIONS_PER_IP" default:"100"`
	ConnectRate         float64 `env:"APP_CONNECT_RATE" default:"10"`
	ConnectBurst        int     `env:"APP_CONNECT_BURST" default:"20"`
	MessageRate         float64 `env:"APP_MESSAGE_RATE" default:"20"`
	MessageBurst        int     `env:"APP_MESSAGE_BURST" default:"40"`

	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsDevelopment reports whether the environment tag names a local setup.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

func validate(cfg *Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("APP_PORT must be a number between 1 and 65535, got %q", cfg.Port)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level given: %s", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("APP_LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	positive := map[string]int{
		"APP_DELIVERY_BUFFER":        cfg.DeliveryBuffer,
		"APP_MAX_CONNECTIONS":        cfg.MaxConnections,
		"APP_MAX_CONNECTIONS_PER_IP": cfg.MaxConnectionsPerIP,
		"APP_CONNECT_BURST":          cfg.ConnectBurst,
		"APP_MESSAGE_BURST":          cfg.MessageBurst,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if cfg.MaxMessageSize <= 0 {
		return errors.New("APP_MAX_MESSAGE_SIZE must be positive")
	}
	if cfg.ConnectRate <= 0 || cfg.MessageRate <= 0 {
		return errors.New("APP_CONNECT_RATE and APP_MESSAGE_RATE must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("APP_SHUTDOWN_TIMEOUT must be positive")
	}

	return nil
}
