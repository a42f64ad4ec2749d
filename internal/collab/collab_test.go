package collab

import (
	"context"
	"log/slog"
	"sync"
)

// recordingSender collects intents instead of sending them.
type recordingSender struct {
	mu      sync.Mutex
	intents []MoveIntent
}

func (s *recordingSender) Send(intent MoveIntent) {
	s.mu.Lock()
	s.intents = append(s.intents, intent)
	s.mu.Unlock()
}

func (s *recordingSender) Intents() []MoveIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MoveIntent(nil), s.intents...)
}

// recordingHandler is a slog.Handler that keeps every record at or above min.
type recordingHandler struct {
	min     slog.Level
	mu      *sync.Mutex
	records *[]slog.Record
}

func newRecordingLogger(min slog.Level) (*slog.Logger, *recordingHandler) {
	h := &recordingHandler{min: min, mu: &sync.Mutex{}, records: &[]slog.Record{}}
	return slog.New(h), h
}

func (h *recordingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.min }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	*h.records = append(*h.records, r.Clone())
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(*h.records)
}
