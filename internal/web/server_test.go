package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/kozaktomas/spyhole/internal/accounts"
	"github.com/kozaktomas/spyhole/internal/biometric"
	bmock "github.com/kozaktomas/spyhole/internal/biometric/mock"
	"github.com/kozaktomas/spyhole/internal/config"
	dbmock "github.com/kozaktomas/spyhole/internal/database/mock"
	"github.com/kozaktomas/spyhole/internal/enrollment"
	"github.com/kozaktomas/spyhole/internal/monitor"
)

type testServer struct {
	*Server
	extractor *bmock.Extractor
	store     *dbmock.MockStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	root := t.TempDir()
	images, err := enrollment.NewDiskStore(filepath.Join(root, "known"))
	if err != nil {
		t.Fatalf("image store: %v", err)
	}
	probes, err := monitor.NewDiskProbeStore(filepath.Join(root, "uploads"))
	if err != nil {
		t.Fatalf("probe store: %v", err)
	}

	ext := bmock.NewExtractor()
	store := dbmock.NewMockStore()
	svc := monitor.New(ext, images, probes, monitor.WithAccountChecker(store.AccountStore))
	if _, err := svc.Bootstrap(context.Background(), filepath.Join(root, "known")); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	cfg := config.Default()
	cfg.Server.SessionSecret = "test-secret"
	srv := NewServer(cfg, svc, accounts.NewService(store.AccountStore, accounts.WithCost(bcrypt.MinCost)), store.SessionStore, nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testServer{Server: srv, extractor: ext, store: store}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)
	recorder := srv.do(t, httptest.NewRequest("GET", "/api/v1/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if recorder.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
}

func TestServer_ProbeRoutes(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/upload", "/api/v1/probes"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("POST", path, bytes.NewReader(bmock.JPEG(3, 8, 8)))
			recorder := srv.do(t, req)
			if recorder.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
			}
			var resp map[string]string
			if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
				t.Fatalf("bad JSON: %v", err)
			}
			if resp["status"] != "not ok" || resp["reason"] != "no face found" {
				t.Errorf("unexpected response %v", resp)
			}
		})
	}
}

func TestServer_RegisterLoginAndEvents(t *testing.T) {
	srv := newTestServer(t)

	// Events require a session.
	if code := srv.do(t, httptest.NewRequest("GET", "/api/v1/events", nil)).Code; code != http.StatusUnauthorized {
		t.Fatalf("expected 401 before login, got %d", code)
	}

	photo := bmock.PNG(9)
	srv.extractor.AddFace(photo, biometric.Embedding{0.2, 0.2})

	body, contentType := registerForm(t, "grace", "secret", "admin", "grace.png", photo)
	req := httptest.NewRequest("POST", "/api/v1/auth/register", body)
	req.Header.Set("Content-Type", contentType)
	if recorder := srv.do(t, req); recorder.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	// The freshly enrolled face is recognized.
	probe := bmock.JPEG(12, 8, 8)
	srv.extractor.AddFace(probe, biometric.Embedding{0.25, 0.2})
	recorder := srv.do(t, httptest.NewRequest("POST", "/upload", bytes.NewReader(probe)))
	var verdict map[string]string
	_ = json.Unmarshal(recorder.Body.Bytes(), &verdict)
	if verdict["status"] != "ok" || verdict["name"] != "grace" {
		t.Fatalf("expected grace recognized, got %v", verdict)
	}

	req = httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(`{"username":"grace","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	recorder = srv.do(t, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", recorder.Code)
	}
	var login struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(recorder.Body.Bytes(), &login)

	for _, path := range []string{"/api/v1/events", "/api/v1/gallery", "/api/v1/accounts"} {
		req = httptest.NewRequest("GET", path, nil)
		req.Header.Set("Authorization", "Bearer "+login.SessionID)
		if code := srv.do(t, req).Code; code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, code)
		}
	}

	// The public log carries the same event.
	recorder = srv.do(t, httptest.NewRequest("GET", "/api/v1/log", nil))
	var events []map[string]any
	_ = json.Unmarshal(recorder.Body.Bytes(), &events)
	if len(events) != 1 || events[0]["name"] != "grace" {
		t.Errorf("unexpected events %v", events)
	}
}

func TestServer_AccountsRequireAdmin(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := registerForm(t, "henry", "secret", "user", "", nil)
	req := httptest.NewRequest("POST", "/api/v1/auth/register", body)
	req.Header.Set("Content-Type", contentType)
	srv.do(t, req)

	req = httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(`{"username":"henry","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := srv.do(t, req)
	cookies := recorder.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie")
	}

	req = httptest.NewRequest("GET", "/api/v1/accounts", nil)
	req.AddCookie(cookies[0])
	if code := srv.do(t, req).Code; code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", code)
	}
}

func TestServer_Addr(t *testing.T) {
	srv := newTestServer(t)
	if srv.Addr() != "0.0.0.0:5000" {
		t.Errorf("unexpected addr %s", srv.Addr())
	}
}
