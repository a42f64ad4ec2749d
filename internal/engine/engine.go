// Package engine ties together the presence state of one connection.
package engine

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"

	"github.com/berrynet/berrynet/client-go/internal/collab"
	"github.com/berrynet/berrynet/client-go/internal/geometry"
	"github.com/berrynet/berrynet/client-go/internal/presence"
	"github.com/berrynet/berrynet/client-go/internal/render"
	"github.com/berrynet/berrynet/client-go/internal/typeid"
)

// Engine owns the store, reconciler, emitter and projector of one connection.
// A new connection gets a new Engine; nothing carries over.
type Engine struct {
	sessionID string

	store      *presence.Store
	emitter    *collab.Emitter
	reconciler *collab.Reconciler
	projector  *render.Projector

	status atomic.Int32
	log    *slog.Logger
}

type Options struct {
	Rand *rand.Rand
	Log  *slog.Logger
}

// New creates an engine whose move intents go to sender.
func New(sender collab.Sender, opts Options) *Engine {
	sessionID := typeid.NewSessionID()
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("session", sessionID)

	store := presence.NewStore()
	emitter := collab.NewEmitter(sender, log)
	e := &Engine{
		sessionID:  sessionID,
		store:      store,
		emitter:    emitter,
		reconciler: collab.NewReconciler(store, emitter, collab.ReconcilerOptions{Rand: opts.Rand, Log: log}),
		projector:  render.NewProjector(store),
		log:        log,
	}
	e.status.Store(int32(collab.Connecting))
	return e
}

// --- Commands ---

// HandleEvent applies one inbound event. Bad events are logged and dropped.
func (e *Engine) HandleEvent(ev collab.Event) error {
	return e.reconciler.Apply(ev)
}

func (e *Engine) SetStatus(s collab.Status) {
	if old := collab.Status(e.status.Swap(int32(s))); old != s {
		e.log.Info("connection status", "from", old, "to", s)
	}
}

// PointerDown forwards a click inside vp as a move for self.
func (e *Engine) PointerDown(px, py float64, vp geometry.Viewport) (collab.MoveIntent, error) {
	return e.emitter.PointerDown(px, py, vp)
}

// --- Queries ---

func (e *Engine) SessionID() string { return e.sessionID }

func (e *Engine) Status() collab.Status {
	return collab.Status(e.status.Load())
}

func (e *Engine) Self() (string, bool) {
	return e.emitter.Self()
}

// Render projects the current presence set onto vp.
func (e *Engine) Render(vp geometry.Viewport) []render.Drawable {
	return e.projector.Project(vp)
}

func (e *Engine) Participants() []presence.Participant {
	return e.store.All()
}

func (e *Engine) Dump() string {
	return e.store.Dump()
}

// Snapshot is the status summary shown to the presentation layer.
type Snapshot struct {
	Session      string        `json:"session"`
	Status       collab.Status `json:"status"`
	SelfID       string        `json:"selfId,omitempty"`
	Participants int           `json:"participants"`
}

func (e *Engine) Snapshot() Snapshot {
	self, _ := e.Self()
	return Snapshot{
		Session:      e.sessionID,
		Status:       e.Status(),
		SelfID:       self,
		Participants: e.store.Len(),
	}
}

// RenderJSON is Render encoded for hosts that can only pass strings.
func (e *Engine) RenderJSON(vp geometry.Viewport) string {
	data, err := json.Marshal(e.Render(vp))
	if err != nil {
		e.log.Error("marshal drawables", "error", err)
		return "[]"
	}
	return string(data)
}
