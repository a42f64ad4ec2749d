package config

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.ServerURL != "http://127.0.0.1:3030" {
			t.Fatalf("expected default server url, got %q", cfg.ServerURL)
		}
		if cfg.Transport != TransportSSE {
			t.Fatalf("expected sse transport, got %q", cfg.Transport)
		}
		if cfg.ViewportWidth != 800 || cfg.ViewportHeight != 400 {
			t.Fatalf("expected 800x400 viewport, got %dx%d", cfg.ViewportWidth, cfg.ViewportHeight)
		}
		if cfg.MoveTimeout != 5*time.Second {
			t.Fatalf("expected 5s move timeout, got %s", cfg.MoveTimeout)
		}
	})
	t.Run("should read the environment", func(t *testing.T) {
		t.Setenv("SERVER_URL", "https://world.example:9000")
		t.Setenv("TRANSPORT", "ws")
		t.Setenv("MOVE_RETRIES", "5")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.ServerURL != "https://world.example:9000" || cfg.Transport != TransportWebSocket || cfg.MoveRetries != 5 {
			t.Fatalf("unexpected config %+v", cfg)
		}
	})
	t.Run("should reject an unknown transport", func(t *testing.T) {
		t.Setenv("TRANSPORT", "carrier-pigeon")
		_, err := Load()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})
	t.Run("should reject a relative server url", func(t *testing.T) {
		t.Setenv("SERVER_URL", "/sse")
		_, err := Load()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})
	t.Run("should reject an empty viewport", func(t *testing.T) {
		t.Setenv("VIEWPORT_WIDTH", "0")
		_, err := Load()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		cfg := Config{LogLevel: in}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestOrigins(t *testing.T) {
	cfg := Config{AllowedOrigins: "http://localhost:3000, http://localhost:5173,,"}
	got := cfg.Origins()
	if len(got) != 2 || got[0] != "http://localhost:3000" || got[1] != "http://localhost:5173" {
		t.Fatalf("unexpected origins %v", got)
	}
}
