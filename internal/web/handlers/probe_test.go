package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/spyhole/internal/biometric"
	bmock "github.com/kozaktomas/spyhole/internal/biometric/mock"
	"github.com/kozaktomas/spyhole/internal/constants"
	"github.com/kozaktomas/spyhole/internal/facematch"
)

func postProbe(t *testing.T, h *ProbeHandler, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/upload", bytes.NewReader(body))
	req.Header.Set("Content-Type", "image/jpeg")
	recorder := httptest.NewRecorder()
	h.Upload(recorder, req)
	return recorder
}

func TestProbeHandler_Recognized(t *testing.T) {
	env := newTestEnv(t)
	env.enrollKnown(t, "alice", 1, 0, 0)
	env.enrollKnown(t, "bob", 2, 1, 1)
	env.bootstrap(t)

	probe := bmock.JPEG(10, 8, 8)
	env.extractor.AddFace(probe, biometric.Embedding{0.1, 0.1})

	recorder := postProbe(t, NewProbeHandler(env.monitor, constants.MaxUploadSize, nil), probe)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var resp ProbeResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", resp.Status)
	}
	if resp.Name != "alice" {
		t.Errorf("expected name 'alice', got '%s'", resp.Name)
	}
	if resp.Reason != "" {
		t.Errorf("expected no reason, got '%s'", resp.Reason)
	}
	if _, err := os.Stat(filepath.Join(env.uploadDir, resp.Filename)); err != nil {
		t.Errorf("probe image not stored: %v", err)
	}
}

func TestProbeHandler_NotRecognized(t *testing.T) {
	env := newTestEnv(t)
	env.enrollKnown(t, "alice", 1, 0, 0)
	env.bootstrap(t)

	stranger := bmock.JPEG(20, 8, 8)
	env.extractor.AddFace(stranger, biometric.Embedding{5, 5})
	blank := bmock.JPEG(21, 8, 8)

	tests := []struct {
		name       string
		body       []byte
		wantReason string
	}{
		{"stranger", stranger, facematch.ReasonAboveThreshold},
		{"no face", blank, constants.NoFaceSubject},
	}
	h := NewProbeHandler(env.monitor, constants.MaxUploadSize, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := postProbe(t, h, tt.body)
			assertStatusCode(t, recorder, http.StatusOK)

			var resp ProbeResponse
			parseJSONResponse(t, recorder, &resp)
			if resp.Status != "not ok" {
				t.Errorf("expected status 'not ok', got '%s'", resp.Status)
			}
			if resp.Reason != tt.wantReason {
				t.Errorf("expected reason '%s', got '%s'", tt.wantReason, resp.Reason)
			}
			if resp.Name != "" {
				t.Errorf("expected no name, got '%s'", resp.Name)
			}
		})
	}

	if n := len(env.monitor.Events()); n != 2 {
		t.Errorf("expected 2 events, got %d", n)
	}
}

func TestProbeHandler_EmptyGallery(t *testing.T) {
	env := newTestEnv(t)
	env.bootstrap(t)

	probe := bmock.JPEG(30, 8, 8)
	env.extractor.AddFace(probe, biometric.Embedding{0, 0})

	recorder := postProbe(t, NewProbeHandler(env.monitor, constants.MaxUploadSize, nil), probe)

	var resp ProbeResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Reason != facematch.ReasonNoKnownFaces {
		t.Errorf("expected reason '%s', got '%s'", facematch.ReasonNoKnownFaces, resp.Reason)
	}
}

func TestProbeHandler_EmptyBody(t *testing.T) {
	env := newTestEnv(t)
	recorder := postProbe(t, NewProbeHandler(env.monitor, constants.MaxUploadSize, nil), nil)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "no data received")
}

func TestProbeHandler_InvalidImage(t *testing.T) {
	env := newTestEnv(t)
	recorder := postProbe(t, NewProbeHandler(env.monitor, constants.MaxUploadSize, nil), []byte("definitely not a jpeg"))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "invalid or corrupt image")

	if n := len(env.monitor.Events()); n != 0 {
		t.Errorf("invalid image should not be recorded, got %d events", n)
	}
	entries, _ := os.ReadDir(env.uploadDir)
	if len(entries) != 0 {
		t.Errorf("invalid image should not be stored, found %d files", len(entries))
	}
}

func TestProbeHandler_TooLarge(t *testing.T) {
	env := newTestEnv(t)
	recorder := postProbe(t, NewProbeHandler(env.monitor, 64, nil), bmock.JPEG(1, 64, 64))

	assertStatusCode(t, recorder, http.StatusRequestEntityTooLarge)
	assertJSONError(t, recorder, "image too large")
}

func TestProbeHandler_ExtractorFailure(t *testing.T) {
	env := newTestEnv(t)
	env.enrollKnown(t, "alice", 1, 0, 0)
	env.bootstrap(t)
	env.extractor.ExtractError = errors.New("embedding service unavailable")

	recorder := postProbe(t, NewProbeHandler(env.monitor, constants.MaxUploadSize, nil), bmock.JPEG(40, 8, 8))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp ProbeResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Status != "not ok" || resp.Reason != "face processing failed" {
		t.Errorf("unexpected response %+v", resp)
	}
}
