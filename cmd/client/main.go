package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/berrynet/berrynet/client-go/internal/config"
	"github.com/berrynet/berrynet/client-go/internal/engine"
	"github.com/berrynet/berrynet/client-go/internal/geometry"
	"github.com/berrynet/berrynet/client-go/internal/mover"
	"github.com/berrynet/berrynet/client-go/internal/raster"
	"github.com/berrynet/berrynet/client-go/internal/transport"
	"github.com/berrynet/berrynet/client-go/internal/viewer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if err := run(cfg); err != nil {
		slog.Error("client stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{}

	mv, err := mover.New(ctx, cfg.ServerURL, mover.Options{
		Client:  httpClient,
		Retries: cfg.MoveRetries,
		Timeout: cfg.MoveTimeout,
	})
	if err != nil {
		return err
	}
	defer mv.Wait()

	source, err := transport.NewSource(cfg, httpClient, slog.Default())
	if err != nil {
		return err
	}

	eng := engine.New(mv, engine.Options{})
	slog.Info("session started", "session", eng.SessionID(), "server", cfg.ServerURL, "transport", cfg.Transport)

	rast, err := raster.New(slog.Default())
	if err != nil {
		return err
	}
	defer rast.Close()

	viewport := geometry.Viewport{Width: float64(cfg.ViewportWidth), Height: float64(cfg.ViewportHeight)}
	srv := &http.Server{
		Addr:         cfg.ViewerAddr,
		Handler:      viewer.NewHandler(eng, rast, viewport).Router(cfg.Origins()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		slog.Info("viewer starting", "addr", cfg.ViewerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("viewer error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go dumpOnSignal(ctx, eng)

	// The stream is the connection: when it ends, so does this session.
	if err := source.Run(ctx, eng); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	if ctx.Err() != nil {
		slog.Info("shutting down")
	} else {
		slog.Info("stream closed by server")
	}
	return nil
}

// dumpOnSignal prints the presence set on SIGUSR1.
func dumpOnSignal(ctx context.Context, eng *engine.Engine) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			fmt.Fprintf(os.Stderr, "%s %s\n", eng.Snapshot().Status, eng.Dump())
		case <-ctx.Done():
			return
		}
	}
}
