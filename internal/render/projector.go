// Package render turns the presence snapshot into positions on a viewport.
package render

import (
	"github.com/berrynet/berrynet/client-go/internal/geometry"
	"github.com/berrynet/berrynet/client-go/internal/presence"
)

// Drawable is one marker to draw, in pixels from the viewport origin.
type Drawable struct {
	ID   string  `json:"id"`
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// Projector maps the store onto a viewport. It keeps no state between passes;
// callers hand it freshly measured geometry every time.
type Projector struct {
	store *presence.Store
}

func NewProjector(store *presence.Store) *Projector {
	return &Projector{store: store}
}

// Project returns a drawable for every participant with a known location.
func (p *Projector) Project(vp geometry.Viewport) []Drawable {
	return ProjectParticipants(p.store.All(), vp)
}

func ProjectParticipants(participants []presence.Participant, vp geometry.Viewport) []Drawable {
	drawables := make([]Drawable, 0, len(participants))
	for _, participant := range participants {
		if participant.Location == nil {
			continue
		}
		left, top := geometry.Project(*participant.Location, vp)
		drawables = append(drawables, Drawable{ID: participant.ID, Left: left, Top: top})
	}
	return drawables
}
