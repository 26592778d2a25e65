package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/spyhole/internal/accounts"
	"github.com/kozaktomas/spyhole/internal/database"
	"github.com/kozaktomas/spyhole/internal/enrollment"
	"github.com/kozaktomas/spyhole/internal/web/middleware"
)

const facePhotoField = "face_photo"

// AuthHandler handles registration and authentication endpoints
type AuthHandler struct {
	accounts       *accounts.Service
	monitor        Monitor
	sessionManager *middleware.SessionManager
	maxUpload      int64
	logger         *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accts *accounts.Service, m Monitor, sm *middleware.SessionManager, maxUpload int64, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		accounts:       accts,
		monitor:        m,
		sessionManager: sm,
		maxUpload:      maxUpload,
		logger:         logger,
	}
}

// RegisterResponse represents a registration response
type RegisterResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Username     string `json:"username,omitempty"`
	Role         string `json:"role,omitempty"`
	FaceEnrolled bool   `json:"face_enrolled,omitempty"`
}

// Register creates an account from a multipart form. When a face photo is attached
// it is enrolled first and the account is only created if enrollment succeeds.
// A face whose account cannot be created is unenrolled again.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, errImageTooLarge)
			return
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	req := accounts.RegisterRequest{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
		Role:     r.FormValue("role"),
	}
	if err := h.accounts.Validate(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, RegisterResponse{Message: err.Error()})
		return
	}

	exists, err := h.accounts.Exists(r.Context(), req.Username)
	if err != nil {
		h.logger.Error("account lookup failed", zap.String("username", sanitizeForLog(req.Username)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if exists {
		respondJSON(w, http.StatusConflict, RegisterResponse{Message: enrollment.MsgDuplicate})
		return
	}

	face, ok := h.enrollFace(w, r, &req)
	if !ok {
		return
	}

	acc, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		h.undoEnrollment(face)
		if errors.Is(err, database.ErrAccountExists) {
			respondJSON(w, http.StatusConflict, RegisterResponse{Message: enrollment.MsgDuplicate})
			return
		}
		h.logger.Error("account creation failed", zap.String("username", sanitizeForLog(req.Username)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	h.logger.Info("account registered",
		zap.String("username", sanitizeForLog(acc.Username)),
		zap.String("role", acc.Role),
		zap.Bool("face", face.Success),
	)
	respondJSON(w, http.StatusCreated, RegisterResponse{
		Success:      true,
		Message:      fmt.Sprintf("user %s registered", acc.Username),
		Username:     acc.Username,
		Role:         acc.Role,
		FaceEnrolled: face.Success,
	})
}

// enrollFace enrolls the optional face photo of a registration. It writes the
// error response itself and reports ok=false when registration must stop.
// The returned result is unsuccessful when no photo was attached.
func (h *AuthHandler) enrollFace(w http.ResponseWriter, r *http.Request, req *accounts.RegisterRequest) (enrollment.Result, bool) {
	file, header, err := r.FormFile(facePhotoField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return enrollment.Result{}, true
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return enrollment.Result{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return enrollment.Result{}, false
	}
	if len(data) == 0 && header.Filename == "" {
		return enrollment.Result{}, true
	}

	res := h.monitor.EnrollIdentity(r.Context(), req.Username, header.Filename, data)
	if !res.Success {
		status := http.StatusBadRequest
		if res.Message == enrollment.MsgDuplicate {
			status = http.StatusConflict
		}
		respondJSON(w, status, RegisterResponse{Message: res.Message})
		return res, false
	}
	req.FaceFilename = res.Filename
	return res, true
}

// undoEnrollment removes the face of a registration whose account was not created.
func (h *AuthHandler) undoEnrollment(res enrollment.Result) {
	if !res.Success {
		return
	}
	if err := h.monitor.UnenrollIdentity(res); err != nil {
		h.logger.Error("failed to undo enrollment", zap.String("label", res.Label), zap.Error(err))
	}
}

// loginRequest represents a login request
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// decodeLogin reads credentials from a JSON body or a form.
func decodeLogin(r *http.Request) (loginRequest, error) {
	var req loginRequest
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("decode login request: %w", err)
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("parse login form: %w", err)
	}
	req.Username = r.PostFormValue("username")
	req.Password = r.PostFormValue("password")
	return req, nil
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLogin(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	acc, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		h.logger.Info("failed login", zap.String("username", sanitizeForLog(req.Username)))
		respondJSON(w, http.StatusUnauthorized, LoginResponse{Error: "invalid credentials"})
		return
	}
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	session, err := h.sessionManager.CreateSession(acc)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.sessionManager.SetSessionCookie(w, r, session)

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		Username:  session.Username,
		Role:      session.Role,
	})
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// Status checks if the user is authenticated by validating the session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		Username:      session.Username,
		Role:          session.Role,
		ExpiresAt:     session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// AccountResponse is the public view of an account
type AccountResponse struct {
	Username     string `json:"username"`
	Role         string `json:"role"`
	FaceFilename string `json:"face_filename,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// ListAccounts returns every registered account
func (h *AuthHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.accounts.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list accounts", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}
	out := make([]AccountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, AccountResponse{
			Username:     a.Username,
			Role:         a.Role,
			FaceFilename: a.FaceFilename,
			CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, out)
}
