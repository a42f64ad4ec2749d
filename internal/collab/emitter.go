package collab

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/berrynet/berrynet/client-go/internal/geometry"
	"github.com/berrynet/berrynet/client-go/internal/typeid"
)

var ErrNoSelf = errors.New("self id not assigned yet")

// MoveIntent asks the server to relocate ParticipantID.
type MoveIntent struct {
	ID            string
	ParticipantID string
	Location      geometry.Location
}

// Sender dispatches move intents. Send must not block on the network and
// reports nothing back: the only confirmation of a move is a later location
// event.
type Sender interface {
	Send(intent MoveIntent)
}

// Emitter turns local interactions into outbound move intents for the self
// participant. It never touches the presence store.
type Emitter struct {
	sender Sender
	log    *slog.Logger

	mu   sync.RWMutex
	self string
}

func NewEmitter(sender Sender, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{
		sender: sender,
		log:    log.With("component", "emitter"),
	}
}

// Assign records the self id and returns the previous one, if any.
func (e *Emitter) Assign(id string) (previous string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	previous, e.self = e.self, id
	return previous
}

func (e *Emitter) Self() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.self, e.self != ""
}

// PointerDown converts a pointer position inside vp into a move intent.
func (e *Emitter) PointerDown(px, py float64, vp geometry.Viewport) (MoveIntent, error) {
	loc, err := geometry.Normalize(px, py, vp)
	if err != nil {
		return MoveIntent{}, fmt.Errorf("normalize pointer: %w", err)
	}
	return e.Emit(loc)
}

// Emit sends a move to loc for the self participant.
func (e *Emitter) Emit(loc geometry.Location) (MoveIntent, error) {
	self, ok := e.Self()
	if !ok {
		return MoveIntent{}, ErrNoSelf
	}
	intent := MoveIntent{
		ID:            typeid.NewMoveID(),
		ParticipantID: self,
		Location:      loc.Clamp(),
	}
	e.log.Debug("move intent", "move", intent.ID, "user", self, "location", intent.Location)
	e.sender.Send(intent)
	return intent, nil
}
