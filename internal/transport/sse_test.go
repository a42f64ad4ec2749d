package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/berrynet/berrynet/client-go/internal/collab"
	"github.com/berrynet/berrynet/client-go/internal/engine"
	"github.com/berrynet/berrynet/client-go/internal/geometry"
	"github.com/berrynet/berrynet/client-go/internal/mover"
)

func writeSSE(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// closeTracker counts response bodies handed out and closed.
type closeTracker struct {
	next   http.RoundTripper
	mu     sync.Mutex
	opened int
	closed int
}

func (c *closeTracker) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := c.next.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.opened++
	c.mu.Unlock()
	resp.Body = &trackedBody{ReadCloser: resp.Body, tracker: c}
	return resp, nil
}

func (c *closeTracker) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened, c.closed
}

type trackedBody struct {
	io.ReadCloser
	tracker *closeTracker
	once    sync.Once
}

func (b *trackedBody) Close() error {
	b.once.Do(func() {
		b.tracker.mu.Lock()
		b.tracker.closed++
		b.tracker.mu.Unlock()
	})
	return b.ReadCloser.Close()
}

func TestSSESource_Run(t *testing.T) {
	t.Run("should deliver named events in order", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			writeSSE(w, "user", "42")
			writeSSE(w, "location", `{"user_id":7,"location":{"x":1,"y":2}}`)
			writeSSE(w, "kickout", `[7]`)
		}))
		defer srv.Close()

		h := &recordingHandler{}
		err := NewSSESource(srv.URL, srv.Client(), nil).Run(context.Background(), h)
		if err != nil {
			t.Logf("stream ended with %v", err)
		}

		events := h.Events()
		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %+v", events)
		}
		want := []collab.Event{
			{Type: "user", Data: []byte("42")},
			{Type: "location", Data: []byte(`{"user_id":7,"location":{"x":1,"y":2}}`)},
			{Type: "kickout", Data: []byte(`[7]`)},
		}
		for i := range want {
			if events[i].Type != want[i].Type || string(events[i].Data) != string(want[i].Data) {
				t.Errorf("event %d: got %s %q, want %s %q", i, events[i].Type, events[i].Data, want[i].Type, want[i].Data)
			}
		}

		statuses := h.Statuses()
		if statuses[0] != collab.Connecting || statuses[len(statuses)-1] != collab.Disconnected {
			t.Fatalf("unexpected status sequence %v", statuses)
		}
		if !containsStatus(statuses, collab.Connected) {
			t.Fatalf("never reported Connected: %v", statuses)
		}
	})
	t.Run("should fail without reconnecting when the server refuses", func(t *testing.T) {
		var mu sync.Mutex
		hits := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			hits++
			mu.Unlock()
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		h := &recordingHandler{}
		err := NewSSESource(srv.URL, srv.Client(), nil).Run(context.Background(), h)
		if err == nil {
			t.Fatal("expected an error")
		}
		mu.Lock()
		defer mu.Unlock()
		if hits != 1 {
			t.Fatalf("expected a single attempt, got %d", hits)
		}
		if containsStatus(h.Statuses(), collab.Connected) {
			t.Fatal("reported Connected for a refused stream")
		}
	})
	t.Run("should release a refused response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		rt := &closeTracker{next: srv.Client().Transport}
		client := &http.Client{Transport: rt}
		if err := NewSSESource(srv.URL, client, nil).Run(context.Background(), &recordingHandler{}); err == nil {
			t.Fatal("expected an error")
		}
		if opened, closed := rt.counts(); opened != 1 || closed != 1 {
			t.Fatalf("expected one body opened and closed, got %d/%d", opened, closed)
		}
	})
	t.Run("should stop quietly when cancelled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			writeSSE(w, "user", "1")
			<-r.Context().Done()
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		h := &recordingHandler{}
		done := make(chan error, 1)
		go func() { done <- NewSSESource(srv.URL, srv.Client(), nil).Run(ctx, h) }()

		waitFor(t, func() bool { return len(h.Events()) == 1 })
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("expected nil on cancel, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	})
}

// A full connection against a fake world server: the self id triggers a
// seed move, and the echoed location lands in the store.
func TestSSESource_WithEngine(t *testing.T) {
	moves := make(chan collab.MoveRequest, 4)
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		writeSSE(w, "user", "42")
		select {
		case m := <-moves:
			writeSSE(w, "location", fmt.Sprintf(`{"user_id":42,"location":{"x":%d,"y":%d}}`, m.X, m.Y))
		case <-time.After(5 * time.Second):
		}
	})
	mux.HandleFunc("/move/42", func(w http.ResponseWriter, r *http.Request) {
		var m collab.MoveRequest
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		moves <- m
		w.Write([]byte(`"ok"`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	mv, err := mover.New(ctx, srv.URL, mover.Options{Client: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}
	eng := engine.New(mv, engine.Options{})
	_ = NewSSESource(srv.URL+"/sse", srv.Client(), nil).Run(ctx, eng)
	mv.Wait()

	if eng.Status() != collab.Disconnected {
		t.Fatalf("expected Disconnected after stream end, got %s", eng.Status())
	}
	participants := eng.Participants()
	if len(participants) != 1 || participants[0].ID != "42" {
		t.Fatalf("expected self in the store, got %+v", participants)
	}
	if err := participants[0].Location.Validate(); err != nil {
		t.Fatal(err)
	}
	drawn := eng.Render(geometry.Viewport{Width: 100, Height: 100})
	if len(drawn) != 1 {
		t.Fatalf("expected one drawable, got %+v", drawn)
	}
}

func containsStatus(statuses []collab.Status, s collab.Status) bool {
	for _, got := range statuses {
		if got == s {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
