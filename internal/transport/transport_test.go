package transport

import (
	"sync"

	"github.com/berrynet/berrynet/client-go/internal/collab"
)

// recordingHandler keeps everything a source delivers.
type recordingHandler struct {
	mu       sync.Mutex
	events   []collab.Event
	statuses []collab.Status
}

func (h *recordingHandler) HandleEvent(ev collab.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, collab.Event{Type: ev.Type, Data: append([]byte(nil), ev.Data...)})
	return nil
}

func (h *recordingHandler) SetStatus(s collab.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, s)
}

func (h *recordingHandler) Events() []collab.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]collab.Event(nil), h.events...)
}

func (h *recordingHandler) Statuses() []collab.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]collab.Status(nil), h.statuses...)
}
