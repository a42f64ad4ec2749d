// Package mover sends move intents to the world server.
package mover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/berrynet/berrynet/client-go/internal/collab"
)

var (
	ErrMoveRejected = errors.New("move rejected")
	ErrServer       = errors.New("server error")
)

// Mover posts move intents to the world server. Send is fire-and-forget:
// outcomes are only logged and never reach the presence store.
type Mover struct {
	ctx     context.Context
	base    *url.URL
	client  *http.Client
	retries uint64
	timeout time.Duration
	backoff func() backoff.BackOff
	log     *slog.Logger

	wg sync.WaitGroup
}

type Options struct {
	Client  *http.Client
	Retries uint64
	Timeout time.Duration
	// InitialInterval is the first retry delay. Zero uses the backoff default.
	InitialInterval time.Duration
	Log             *slog.Logger
}

// New returns a mover whose in-flight sends are cancelled with ctx.
func New(ctx context.Context, serverURL string, opts Options) (*Mover, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	initial := opts.InitialInterval
	return &Mover{
		ctx:     ctx,
		base:    base,
		client:  client,
		retries: opts.Retries,
		timeout: timeout,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			if initial > 0 {
				b.InitialInterval = initial
			}
			return b
		},
		log: log.With("component", "mover"),
	}, nil
}

// Send posts intent in the background.
func (m *Mover) Send(intent collab.MoveIntent) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.Post(m.ctx, intent); err != nil {
			if m.ctx.Err() != nil {
				return
			}
			m.log.Warn("move failed", "move", intent.ID, "user", intent.ParticipantID, "error", err)
		}
	}()
}

// Wait blocks until every background send has finished.
func (m *Mover) Wait() {
	m.wg.Wait()
}

// Post sends intent and retries transport errors and 5xx responses.
func (m *Mover) Post(ctx context.Context, intent collab.MoveIntent) error {
	body, err := json.Marshal(collab.MoveRequest{X: intent.Location.X, Y: intent.Location.Y})
	if err != nil {
		return fmt.Errorf("marshal move: %w", err)
	}
	target := m.moveURL(intent.ParticipantID)

	attempt := 0
	op := func() error {
		attempt++
		return m.post(ctx, target, intent.ID, body)
	}
	notify := func(err error, wait time.Duration) {
		m.log.Debug("retrying move", "move", intent.ID, "attempt", attempt, "wait", wait, "error", err)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(m.backoff(), m.retries), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("post %s after %d attempts: %w", target, attempt, err)
	}
	m.log.Debug("move sent", "move", intent.ID, "user", intent.ParticipantID, "location", intent.Location)
	return nil
}

// moveURL escapes id as one path segment under /move/.
func (m *Mover) moveURL(id string) string {
	u := m.base.JoinPath("move")
	u.Path += "/" + id
	u.RawPath = u.EscapedPath() + "/" + url.PathEscape(id)
	return u.String()
}

func (m *Mover) post(ctx context.Context, target, moveID string, body []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("X-Move-ID", moveID)
	m.log.Debug("posting move", "move", moveID, "request", requestID)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	// The response carries nothing we act on.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", ErrServer, resp.Status)
	case resp.StatusCode >= 400:
		return backoff.Permanent(fmt.Errorf("%w: %s", ErrMoveRejected, resp.Status))
	}
	return nil
}
