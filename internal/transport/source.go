// Package transport connects an engine to the world server: inbound event
// streams and the outbound move endpoint.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/berrynet/berrynet/client-go/internal/collab"
	"github.com/berrynet/berrynet/client-go/internal/config"
)

// Handler receives stream events and connection status changes. Events are
// delivered one at a time from a single goroutine.
type Handler interface {
	HandleEvent(ev collab.Event) error
	SetStatus(s collab.Status)
}

// Source is an inbound event stream. Run blocks until the stream ends or ctx
// is cancelled; it does not reconnect.
type Source interface {
	Run(ctx context.Context, h Handler) error
}

// NewSource builds the stream source selected by cfg.Transport.
func NewSource(cfg *config.Config, client *http.Client, log *slog.Logger) (Source, error) {
	base, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch cfg.Transport {
	case config.TransportSSE:
		return NewSSESource(base.JoinPath("sse").String(), client, log), nil
	case config.TransportWebSocket:
		u := base.JoinPath("ws")
		if u.Scheme == "https" {
			u.Scheme = "wss"
		} else {
			u.Scheme = "ws"
		}
		return NewWebSocketSource(u.String(), client, log), nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", config.ErrInvalidConfig, cfg.Transport)
	}
}
