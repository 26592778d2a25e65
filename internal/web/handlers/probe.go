package handlers

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/kozaktomas/spyhole/internal/biometric"
)

const (
	probeStatusOK       = "ok"
	probeStatusRejected = "not ok"

	errNoData        = "no data received"
	errInvalidImage  = "invalid or corrupt image"
	errImageTooLarge = "image too large"
	errProbeFailed   = "failed to process image"
)

// ProbeHandler accepts images pushed by the capture device
type ProbeHandler struct {
	monitor  Monitor
	maxBytes int64
	logger   *zap.Logger
}

// NewProbeHandler creates a probe handler that reads at most maxBytes per request
func NewProbeHandler(m Monitor, maxBytes int64, logger *zap.Logger) *ProbeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProbeHandler{monitor: m, maxBytes: maxBytes, logger: logger}
}

// ProbeResponse is the verdict sent back to the device.
// Name is set when recognized, Reason otherwise.
type ProbeResponse struct {
	Status    string `json:"status"`
	Name      string `json:"name,omitempty"`
	Reason    string `json:"reason,omitempty"`
	EventID   string `json:"event_id"`
	Filename  string `json:"filename"`
	Timestamp string `json:"timestamp"`
}

// Upload handles a raw image body
func (h *ProbeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, errImageTooLarge)
			return
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, errNoData)
		return
	}

	result, err := h.monitor.SubmitProbe(r.Context(), data)
	if err != nil {
		if errors.Is(err, biometric.ErrInvalidImage) {
			h.logger.Info("rejected undecodable probe", zap.Int("bytes", len(data)), zap.String("remote", r.RemoteAddr))
			respondError(w, http.StatusBadRequest, errInvalidImage)
			return
		}
		h.logger.Error("probe failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errProbeFailed)
		return
	}

	resp := ProbeResponse{
		EventID:   result.EventID,
		Filename:  result.Filename,
		Timestamp: result.Timestamp,
	}
	if result.Recognized {
		resp.Status = probeStatusOK
		resp.Name = result.Subject
	} else {
		resp.Status = probeStatusRejected
		resp.Reason = result.Subject
	}
	respondJSON(w, http.StatusOK, resp)
}
