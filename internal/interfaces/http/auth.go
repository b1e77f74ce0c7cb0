package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"authgate/internal/domain/credentials"
	"authgate/internal/domain/user"
	"authgate/internal/shared/auth"
)

// AuthHandler serves the local email/password endpoints.
type AuthHandler struct {
	creds    *credentials.Service
	sessions *auth.Sessions
}

func NewAuthHandler(creds *credentials.Service, sessions *auth.Sessions) *AuthHandler {
	return &AuthHandler{
		creds:    creds,
		sessions: sessions,
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string        `json:"token"`
	User  user.Snapshot `json:"user"`
}

// HandleRegister creates a new user with password authentication.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	u, err := h.creds.Register(r.Context(), req.Email, req.Password, req.Name)
	if errors.Is(err, credentials.ErrDuplicateEmail) {
		writeError(w, http.StatusConflict, "duplicate_email")
		return
	}
	if err != nil {
		log.Printf("Error registering user: %v", err)
		writeError(w, http.StatusInternalServerError, "registration_failed")
		return
	}

	h.respondWithSession(w, r, u, http.StatusCreated)
}

// HandleLogin authenticates a user with email and password.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	u, err := h.creds.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, credentials.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err != nil {
		log.Printf("Error authenticating user: %v", err)
		writeError(w, http.StatusInternalServerError, "login_failed")
		return
	}

	h.respondWithSession(w, r, u, http.StatusOK)
}

// HandleLogout clears the auth cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	clearAuthCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// HandleForgotPassword starts a password reset. The token is returned to
// the caller; delivering it to the user is outside this service.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	token, err := h.creds.RequestReset(r.Context(), req.Email)
	if errors.Is(err, credentials.ErrUnknownEmail) {
		writeError(w, http.StatusNotFound, "unknown_email")
		return
	}
	if err != nil {
		log.Printf("Error requesting password reset: %v", err)
		writeError(w, http.StatusInternalServerError, "reset_request_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"resetToken": token})
}

// HandleResetPassword redeems a reset token.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	err := h.creds.ConsumeReset(r.Context(), req.Token, req.Password)
	if errors.Is(err, credentials.ErrInvalidOrExpiredToken) {
		writeError(w, http.StatusBadRequest, "invalid_or_expired_token")
		return
	}
	if err != nil {
		log.Printf("Error resetting password: %v", err)
		writeError(w, http.StatusInternalServerError, "reset_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *AuthHandler) respondWithSession(w http.ResponseWriter, r *http.Request, u *user.User, status int) {
	email := ""
	if u.Email != nil {
		email = *u.Email
	}
	token, err := h.sessions.Issue(u.ID, email, nil)
	if err != nil {
		log.Printf("Error issuing session for user %d: %v", u.ID, err)
		writeError(w, http.StatusInternalServerError, "session_failed")
		return
	}

	setAuthCookie(w, r, token)
	writeJSON(w, status, AuthResponse{Token: token, User: u.Snapshot()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func setAuthCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   24 * 60 * 60,
	})
}

func clearAuthCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Only set the Secure cookie flag when actually serving HTTPS.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
