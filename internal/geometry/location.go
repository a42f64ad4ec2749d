// Package geometry converts between the resolution-independent world grid and
// viewport pixels.
package geometry

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Max is the upper bound of both axes of the normalized grid. The lower bound is 0.
const Max = 10000

var ErrOutOfRange = errors.New("location out of range")

// Location is a position on the normalized grid.
type Location struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (l Location) String() string {
	return fmt.Sprintf("(%d,%d)", l.X, l.Y)
}

// Validate reports ErrOutOfRange if either axis is outside [0, Max].
func (l Location) Validate() error {
	if !inRange(l.X) || !inRange(l.Y) {
		return fmt.Errorf("%w: %s not within [0,%d]", ErrOutOfRange, l, Max)
	}
	return nil
}

func (l Location) Clamp() Location {
	return Location{X: clamp(l.X), Y: clamp(l.Y)}
}

// RandomLocation draws both axes uniformly from [0, Max]. A nil source uses the
// global generator.
func RandomLocation(r *rand.Rand) Location {
	if r == nil {
		return Location{X: rand.IntN(Max + 1), Y: rand.IntN(Max + 1)}
	}
	return Location{X: r.IntN(Max + 1), Y: r.IntN(Max + 1)}
}

func inRange(v int) bool {
	return v >= 0 && v <= Max
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > Max {
		return Max
	}
	return v
}
