// Package viewer serves the local presentation surface: status, projected
// participants, rendered frames and pointer input.
package viewer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/berrynet/berrynet/client-go/internal/collab"
	"github.com/berrynet/berrynet/client-go/internal/engine"
	"github.com/berrynet/berrynet/client-go/internal/geometry"
	mw "github.com/berrynet/berrynet/client-go/internal/middleware"
	"github.com/berrynet/berrynet/client-go/internal/raster"
	"github.com/berrynet/berrynet/client-go/internal/render"
)

// Engine is what the viewer needs from the presence engine.
type Engine interface {
	Snapshot() engine.Snapshot
	Self() (string, bool)
	Render(vp geometry.Viewport) []render.Drawable
	PointerDown(px, py float64, vp geometry.Viewport) (collab.MoveIntent, error)
}

type Handler struct {
	engine   Engine
	raster   *raster.Raster
	viewport geometry.Viewport
}

// NewHandler serves eng. viewport is used when a request does not name one.
func NewHandler(eng Engine, rast *raster.Raster, viewport geometry.Viewport) *Handler {
	return &Handler{engine: eng, raster: rast, viewport: viewport}
}

func (h *Handler) Router(origins []string) *mux.Router {
	r := mux.NewRouter()
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(origins...))

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/status", h.Status).Methods("GET")
	r.HandleFunc("/participants", h.Participants).Methods("GET")
	r.HandleFunc("/frame.png", h.Frame).Methods("GET")
	r.HandleFunc("/click", h.Click).Methods("POST", "OPTIONS")
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *Handler) Participants(w http.ResponseWriter, r *http.Request) {
	vp, err := h.viewportFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Render(vp))
}

func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	vp, err := h.viewportFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	self, _ := h.engine.Self()

	var buf bytes.Buffer
	if err := h.raster.EncodePNG(&buf, vp, h.engine.Render(vp), self); err != nil {
		if errors.Is(err, geometry.ErrEmptyViewport) || errors.Is(err, raster.ErrViewportTooLarge) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("render frame", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

type clickRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

type clickResponse struct {
	Move     string            `json:"move"`
	Location geometry.Location `json:"location"`
}

func (h *Handler) Click(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	vp := h.viewport
	if req.Width != 0 || req.Height != 0 {
		vp = geometry.Viewport{Width: req.Width, Height: req.Height}
	}

	intent, err := h.engine.PointerDown(req.X, req.Y, vp)
	if err != nil {
		switch {
		case errors.Is(err, collab.ErrNoSelf):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "awaiting user id"})
		case errors.Is(err, geometry.ErrEmptyViewport), errors.Is(err, geometry.ErrOutOfRange):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			slog.Error("pointer down", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}
	writeJSON(w, http.StatusAccepted, clickResponse{Move: intent.ID, Location: intent.Location})
}

func (h *Handler) viewportFromQuery(r *http.Request) (geometry.Viewport, error) {
	vp := h.viewport
	q := r.URL.Query()
	if s := q.Get("w"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return vp, fmt.Errorf("invalid width %q", s)
		}
		vp.Width = v
	}
	if s := q.Get("h"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return vp, fmt.Errorf("invalid height %q", s)
		}
		vp.Height = v
	}
	if err := vp.Validate(); err != nil {
		return vp, err
	}
	return vp, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
