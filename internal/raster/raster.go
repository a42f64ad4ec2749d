// Package raster draws projected participants into PNG frames.
package raster

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/berrynet/berrynet/client-go/internal/geometry"
	"github.com/berrynet/berrynet/client-go/internal/render"
)

// ErrViewportTooLarge is returned for frames wider or taller than 4096 pixels.
var ErrViewportTooLarge = errors.New("viewport too large")

const (
	markerRadius = 6
	labelSize    = 12
	maxDimension = 4096
)

var (
	backgroundColor = gg.Hex("#f4f1ea")
	markerColor     = gg.Hex("#7b2d8b")
	selfColor       = gg.Hex("#d9480f")
	labelColor      = gg.Hex("#222222")
)

// Raster draws drawables as labeled markers into PNG images.
type Raster struct {
	source *text.FontSource
	face   text.Face
}

func New(log *slog.Logger) (*Raster, error) {
	if log != nil {
		gg.SetLogger(log.With("component", "raster"))
	}
	source, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("load label font: %w", err)
	}
	return &Raster{
		source: source,
		face:   source.Face(labelSize),
	}, nil
}

func (r *Raster) Close() error {
	return r.source.Close()
}

// EncodePNG renders one frame at the viewport size. The marker for self, if
// any, is drawn last in a distinct color.
func (r *Raster) EncodePNG(w io.Writer, vp geometry.Viewport, drawables []render.Drawable, self string) error {
	if err := vp.Validate(); err != nil {
		return err
	}
	width, height := int(math.Ceil(vp.Width)), int(math.Ceil(vp.Height))
	if width > maxDimension || height > maxDimension {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrViewportTooLarge, width, height, maxDimension)
	}

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(backgroundColor)
	dc.SetFont(r.face)

	var selfMarker *render.Drawable
	for i := range drawables {
		d := drawables[i]
		if d.ID == self {
			selfMarker = &d
			continue
		}
		if err := r.drawMarker(dc, d, markerColor); err != nil {
			return err
		}
	}
	if selfMarker != nil {
		if err := r.drawMarker(dc, *selfMarker, selfColor); err != nil {
			return err
		}
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (r *Raster) drawMarker(dc *gg.Context, d render.Drawable, col gg.RGBA) error {
	dc.SetColor(col.Color())
	dc.DrawCircle(d.Left, d.Top, markerRadius)
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("fill marker %s: %w", d.ID, err)
	}
	dc.SetColor(labelColor.Color())
	dc.DrawStringAnchored(Label(d.ID), d.Left+markerRadius+2, d.Top, 0, 0.35)
	return nil
}

// Label is the caption shown next to a participant's marker.
func Label(id string) string {
	return "User #" + id
}
