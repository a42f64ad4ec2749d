package geometry

import (
	"errors"
	"fmt"
	"math"
)

var ErrEmptyViewport = errors.New("viewport has no area")

// Viewport is the measured pixel size of the rendering surface. It is read
// fresh for every pass because the surface may be resized at any time.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (v Viewport) Validate() error {
	if !(v.Width > 0) || !(v.Height > 0) || math.IsInf(v.Width, 0) || math.IsInf(v.Height, 0) {
		return fmt.Errorf("%w: %gx%g", ErrEmptyViewport, v.Width, v.Height)
	}
	return nil
}

// Project maps a grid location to pixel offsets from the viewport origin.
func Project(loc Location, v Viewport) (left, top float64) {
	left = v.Width * float64(loc.X) / Max
	top = v.Height * float64(loc.Y) / Max
	return left, top
}

// Normalize maps pixel offsets back onto the grid, rounding to the nearest
// cell. Results are clamped to [0, Max] so pointer events on the very edge of
// the viewport stay valid.
func Normalize(px, py float64, v Viewport) (Location, error) {
	if err := v.Validate(); err != nil {
		return Location{}, err
	}
	if math.IsNaN(px) || math.IsNaN(py) {
		return Location{}, fmt.Errorf("%w: pointer at (%g,%g)", ErrOutOfRange, px, py)
	}
	x := math.Round(px / v.Width * Max)
	y := math.Round(py / v.Height * Max)
	return Location{X: clampFloat(x), Y: clampFloat(y)}, nil
}

func clampFloat(v float64) int {
	if v <= 0 {
		return 0
	}
	if v >= Max {
		return Max
	}
	return int(v)
}
