package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	TransportSSE       = "sse"
	TransportWebSocket = "ws"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	ServerURL      string        `envconfig:"SERVER_URL" default:"http://127.0.0.1:3030"`
	Transport      string        `envconfig:"TRANSPORT" default:"sse"`
	ViewerAddr     string        `envconfig:"VIEWER_ADDR" default:":8090"`
	ViewportWidth  int           `envconfig:"VIEWPORT_WIDTH" default:"800"`
	ViewportHeight int           `envconfig:"VIEWPORT_HEIGHT" default:"400"`
	MoveRetries    uint64        `envconfig:"MOVE_RETRIES" default:"2"`
	MoveTimeout    time.Duration `envconfig:"MOVE_TIMEOUT" default:"5s"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: SERVER_URL %q must be an absolute http(s) url", ErrInvalidConfig, c.ServerURL)
	}
	switch c.Transport {
	case TransportSSE, TransportWebSocket:
	default:
		return fmt.Errorf("%w: TRANSPORT must be %q or %q, got %q", ErrInvalidConfig, TransportSSE, TransportWebSocket, c.Transport)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("%w: viewport must be positive, got %dx%d", ErrInvalidConfig, c.ViewportWidth, c.ViewportHeight)
	}
	if c.MoveTimeout <= 0 {
		return fmt.Errorf("%w: MOVE_TIMEOUT must be positive", ErrInvalidConfig)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
