package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kozaktomas/spyhole/internal/accounts"
	"github.com/kozaktomas/spyhole/internal/biometric"
	bmock "github.com/kozaktomas/spyhole/internal/biometric/mock"
	"github.com/kozaktomas/spyhole/internal/database"
	dbmock "github.com/kozaktomas/spyhole/internal/database/mock"
	"github.com/kozaktomas/spyhole/internal/enrollment"
	"github.com/kozaktomas/spyhole/internal/monitor"
	"github.com/kozaktomas/spyhole/internal/web/middleware"
)

// testEnv wires a real monitor service to a mock extractor and mock account store
type testEnv struct {
	monitor   *monitor.Service
	extractor *bmock.Extractor
	store     *dbmock.MockStore
	accounts  *accounts.Service
	sessions  *middleware.SessionManager
	knownDir  string
	uploadDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	knownDir := filepath.Join(root, "known")
	uploadDir := filepath.Join(root, "uploads")

	images, err := enrollment.NewDiskStore(knownDir)
	if err != nil {
		t.Fatalf("failed to create image store: %v", err)
	}
	probes, err := monitor.NewDiskProbeStore(uploadDir)
	if err != nil {
		t.Fatalf("failed to create probe store: %v", err)
	}

	ext := bmock.NewExtractor()
	store := dbmock.NewMockStore()
	svc := monitor.New(ext, images, probes, monitor.WithAccountChecker(store.AccountStore))
	sm := middleware.NewSessionManager("test-secret", store.SessionStore)
	t.Cleanup(sm.Stop)

	return &testEnv{
		monitor:   svc,
		extractor: ext,
		store:     store,
		accounts:  accounts.NewService(store.AccountStore, accounts.WithCost(bcrypt.MinCost)),
		sessions:  sm,
		knownDir:  knownDir,
		uploadDir: uploadDir,
	}
}

// enrollKnown writes a reference photo for label whose face embeds at (x, y)
func (e *testEnv) enrollKnown(t *testing.T, label string, seed uint8, x, y float32) {
	t.Helper()
	data := bmock.PNG(seed)
	e.extractor.AddFace(data, biometric.Embedding{x, y})
	if err := os.WriteFile(filepath.Join(e.knownDir, label+".png"), data, 0o644); err != nil {
		t.Fatalf("failed to write reference photo: %v", err)
	}
}

func (e *testEnv) bootstrap(t *testing.T) {
	t.Helper()
	if _, err := e.monitor.Bootstrap(context.Background(), e.knownDir); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
}

// addAccount stores an account with a cheaply hashed password
func (e *testEnv) addAccount(t *testing.T, username, password, role string) database.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	e.store.AccountStore.AddAccount(database.Account{Username: username, PasswordHash: string(hash), Role: role})
	acc, err := e.store.AccountStore.GetByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("failed to read back account: %v", err)
	}
	return *acc
}

// multipartForm builds a multipart body with the given fields and an optional face_photo file
func multipartForm(t *testing.T, fields map[string]string, filename string, photo []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("face_photo", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := fw.Write(photo); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
