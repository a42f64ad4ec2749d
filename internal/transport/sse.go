package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/r3labs/sse/v2"
	backoffv1 "gopkg.in/cenkalti/backoff.v1"

	"github.com/berrynet/berrynet/client-go/internal/collab"
)

// SSESource reads events from a server-sent events endpoint.
type SSESource struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

func NewSSESource(url string, client *http.Client, log *slog.Logger) *SSESource {
	if log == nil {
		log = slog.Default()
	}
	return &SSESource{
		url:    url,
		client: client,
		log:    log.With("component", "sse", "url", url),
	}
}

func (s *SSESource) Run(ctx context.Context, h Handler) error {
	c := sse.NewClient(s.url)
	if s.client != nil {
		c.Connection = s.client
	}
	// A dropped stream is final; a new connection starts from scratch.
	c.ReconnectStrategy = &backoffv1.StopBackOff{}
	c.ResponseValidator = func(_ *sse.Client, resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			// r3labs leaves the body open when the validator refuses.
			resp.Body.Close()
			return fmt.Errorf("subscribe %s: %s", s.url, resp.Status)
		}
		s.log.Info("stream open")
		h.SetStatus(collab.Connected)
		return nil
	}
	c.OnDisconnect(func(*sse.Client) {
		s.log.Info("stream disconnected")
	})

	h.SetStatus(collab.Connecting)
	err := c.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
		ev := collab.Event{Type: string(msg.Event), Data: msg.Data}
		if ev.Type == "" {
			ev.Type = "message"
		}
		_ = h.HandleEvent(ev)
	})
	h.SetStatus(collab.Disconnected)

	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sse stream: %w", err)
	}
	return nil
}
