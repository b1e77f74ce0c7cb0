package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"authgate/internal/domain/user"
	"authgate/internal/shared/middleware"
)

// UserHandler serves the authenticated-user endpoints.
type UserHandler struct {
	users user.Repository
}

func NewUserHandler(users user.Repository) *UserHandler {
	return &UserHandler{users: users}
}

// MeResponse is the user snapshot plus the Google token material clients
// use to call Google APIs directly.
type MeResponse struct {
	user.Snapshot
	GoogleAccessToken string     `json:"googleAccessToken,omitempty"`
	TokenExpiry       *time.Time `json:"tokenExpiry,omitempty"`
}

// HandleMe returns the current user's snapshot. A valid session whose
// subject no longer exists in the store is treated as unauthenticated.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if errors.Is(err, user.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "unknown_subject")
		return
	}
	if err != nil {
		log.Printf("Error loading user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}

	resp := MeResponse{Snapshot: u.Snapshot()}
	if u.GoogleAccessToken != nil {
		resp.GoogleAccessToken = *u.GoogleAccessToken
		resp.TokenExpiry = u.GoogleTokenExpiry
	}
	writeJSON(w, http.StatusOK, resp)
}
