package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/berrynet/berrynet/client-go/internal/collab"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
)

// WebSocketSource reads collab.Message envelopes from a WebSocket.
type WebSocketSource struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

func NewWebSocketSource(url string, client *http.Client, log *slog.Logger) *WebSocketSource {
	if log == nil {
		log = slog.Default()
	}
	return &WebSocketSource{
		url:    url,
		client: client,
		log:    log.With("component", "websocket", "url", url),
	}
}

func (s *WebSocketSource) Run(ctx context.Context, h Handler) error {
	h.SetStatus(collab.Connecting)
	conn, _, err := websocket.Dial(ctx, s.url, &websocket.DialOptions{HTTPClient: s.client})
	if err != nil {
		h.SetStatus(collab.Disconnected)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(maxMsgSize)

	h.SetStatus(collab.Connected)
	defer h.SetStatus(collab.Disconnected)

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go s.keepAlive(pingCtx, conn)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway ||
				ctx.Err() != nil {
				return nil
			}
			s.log.Debug("read error", "error", err)
			return fmt.Errorf("read: %w", err)
		}

		var msg collab.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("invalid message", "error", err)
			continue
		}
		_ = h.HandleEvent(msg.Event())
	}
}

func (s *WebSocketSource) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				s.log.Debug("ping failed", "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
