package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/spyhole/internal/monitor"
)

// EventsHandler exposes the access log and stored probe images
type EventsHandler struct {
	monitor Monitor
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(m Monitor) *EventsHandler {
	return &EventsHandler{monitor: m}
}

// List returns every access event in arrival order
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.monitor.Events())
}

// GalleryResponse lists the enrolled labels
type GalleryResponse struct {
	Size   int      `json:"size"`
	Labels []string `json:"labels"`
}

// Gallery returns the enrolled labels in gallery order
func (h *EventsHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	labels := h.monitor.Labels()
	if labels == nil {
		labels = []string{}
	}
	respondJSON(w, http.StatusOK, GalleryResponse{Size: len(labels), Labels: labels})
}

// Image serves a stored probe image
func (h *EventsHandler) Image(w http.ResponseWriter, r *http.Request) {
	path, err := h.monitor.ProbePath(chi.URLParam(r, "filename"))
	if err != nil {
		if errors.Is(err, monitor.ErrProbeNotFound) {
			respondError(w, http.StatusNotFound, "image not found")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	http.ServeFile(w, r, path)
}
