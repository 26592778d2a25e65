package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kozaktomas/spyhole/internal/accesslog"
	"github.com/kozaktomas/spyhole/internal/enrollment"
	"github.com/kozaktomas/spyhole/internal/monitor"
)

// errInvalidRequestBody is a shared error message for unreadable request bodies.
const errInvalidRequestBody = "invalid request body"

// Monitor is the part of monitor.Service the handlers use.
type Monitor interface {
	SubmitProbe(ctx context.Context, data []byte) (monitor.ProbeResult, error)
	EnrollIdentity(ctx context.Context, label, filename string, data []byte) enrollment.Result
	UnenrollIdentity(res enrollment.Result) error
	Events() []accesslog.Event
	GallerySize() int
	Labels() []string
	ProbePath(name string) (string, error)
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthResponse reports liveness and the number of enrolled templates.
type HealthResponse struct {
	Status      string `json:"status"`
	GallerySize int    `json:"gallery_size"`
}

// HealthCheck returns the health check endpoint.
func HealthCheck(m Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{
			Status:      "ok",
			GallerySize: m.GallerySize(),
		})
	}
}
