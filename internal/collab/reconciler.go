package collab

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/berrynet/berrynet/client-go/internal/geometry"
	"github.com/berrynet/berrynet/client-go/internal/presence"
)

// Reconciler applies inbound events to the presence store. Within a kind,
// later events for an id supersede earlier ones; arrival order is the only
// ordering there is.
type Reconciler struct {
	store   *presence.Store
	emitter *Emitter
	log     *slog.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

type ReconcilerOptions struct {
	// Rand seeds the initial self location. Nil uses the global generator.
	Rand *rand.Rand
	Log  *slog.Logger
}

func NewReconciler(store *presence.Store, emitter *Emitter, opts ReconcilerOptions) *Reconciler {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		store:   store,
		emitter: emitter,
		log:     log.With("component", "reconciler"),
		rand:    opts.Rand,
	}
}

// Apply handles one event. Bad payloads are logged and dropped, leaving the
// store unchanged; the returned error only describes what was dropped.
func (r *Reconciler) Apply(ev Event) error {
	var err error
	switch ev.Type {
	case EventUser:
		err = r.assignSelf(ev.Data)
	case EventLocation:
		err = r.upsertLocation(ev.Data)
	case EventKickout:
		err = r.removeUsers(ev.Data)
	default:
		r.log.Debug("unknown event type", "event", ev.Type)
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	if err != nil {
		r.log.Warn("dropping event", "event", ev.Type, "error", err, "data", truncate(ev.Data, 256))
	}
	return err
}

func (r *Reconciler) assignSelf(data []byte) error {
	id, err := ParseUser(data)
	if err != nil {
		return err
	}
	if previous := r.emitter.Assign(id); previous != "" && previous != id {
		r.log.Warn("self id reassigned", "previous", previous, "user", id)
	} else {
		r.log.Info("self id assigned", "user", id)
	}

	// Seed a visible position right away instead of waiting for a click.
	if _, err := r.emitter.Emit(r.randomLocation()); err != nil && !errors.Is(err, ErrNoSelf) {
		return fmt.Errorf("seed self location: %w", err)
	}
	return nil
}

func (r *Reconciler) upsertLocation(data []byte) error {
	id, loc, err := ParseLocation(data)
	if err != nil {
		return err
	}
	r.store.Upsert(id, loc)
	return nil
}

func (r *Reconciler) removeUsers(data []byte) error {
	ids, err := ParseKickout(data)
	if err != nil {
		return err
	}
	removed := r.store.Remove(ids)
	r.log.Debug("kickout", "requested", ids.Cardinality(), "removed", removed)
	return nil
}

func (r *Reconciler) randomLocation() geometry.Location {
	r.randMu.Lock()
	defer r.randMu.Unlock()
	return geometry.RandomLocation(r.rand)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
