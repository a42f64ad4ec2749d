// Package presence holds the local view of who is in the world and where.
package presence

import (
	"slices"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sanity-io/litter"

	"github.com/berrynet/berrynet/client-go/internal/geometry"
)

// Participant is one tracked entity. Location is nil until the first location
// event for the id arrives; such participants are not drawable.
type Participant struct {
	ID       string             `json:"id"`
	Location *geometry.Location `json:"location,omitempty"`
}

// Store is the single owner of the presence set. Every method is one critical
// section, so a snapshot never observes half of an update.
type Store struct {
	mu           sync.RWMutex
	participants map[string]Participant // participantID -> participant
}

func NewStore() *Store {
	return &Store{
		participants: make(map[string]Participant),
	}
}

// Upsert inserts id if absent or replaces its location, keeping every other
// field. Callers validate the location first.
func (s *Store) Upsert(id string, loc geometry.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		p = Participant{ID: id}
	}
	p.Location = &loc
	s.participants[id] = p
}

// Remove deletes every listed id that is present and returns how many were
// deleted. Unknown ids are ignored.
func (s *Store) Remove(ids mapset.Set[string]) int {
	if ids == nil || ids.Cardinality() == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, id := range ids.ToSlice() {
		if _, ok := s.participants[id]; ok {
			delete(s.participants, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Get(id string) (Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return Participant{}, false
	}
	return p.clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants)
}

// All returns a point-in-time copy of the set ordered by id. Nothing in the
// result aliases store memory.
func (s *Store) All() []Participant {
	s.mu.RLock()
	result := make([]Participant, 0, len(s.participants))
	for _, p := range s.participants {
		result = append(result, p.clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(result, func(a, b Participant) int {
		return compareIDs(a.ID, b.ID)
	})
	return result
}

// Dump renders the current snapshot for debugging.
func (s *Store) Dump() string {
	return litter.Options{HidePrivateFields: true, StripPackageNames: true}.Sdump(s.All())
}

func (p Participant) clone() Participant {
	if p.Location != nil {
		loc := *p.Location
		p.Location = &loc
	}
	return p
}

// compareIDs orders numeric ids numerically and everything else lexically, so
// "7" sorts before "42". Ids equal in value ("07", "7") fall back to lexical
// order so the result stays total.
func compareIDs(a, b string) int {
	if isDigits(a) && isDigits(b) {
		ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
		if len(ta) != len(tb) {
			return len(ta) - len(tb)
		}
		if c := strings.Compare(ta, tb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
