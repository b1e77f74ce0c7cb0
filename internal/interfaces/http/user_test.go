package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"authgate/internal/domain/user"
	"authgate/internal/shared/middleware"
)

func meRequest(userID any) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if userID != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	}
	return req
}

func TestHandleMe(t *testing.T) {
	expiry := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	repo := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*user.User, error) {
			if id != 7 {
				t.Errorf("expected lookup for user 7, got %d", id)
			}
			return &user.User{
				ID:                7,
				Email:             strPtr("amy@example.com"),
				Name:              "Amy",
				GoogleID:          strPtr("g-1"),
				GoogleAccessToken: strPtr("g-access"),
				GoogleTokenExpiry: &expiry,
			}, nil
		},
	}
	handler := NewUserHandler(repo)

	rr := httptest.NewRecorder()
	handler.HandleMe(rr, meRequest(int64(7)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := decodeBody(t, rr)
	if body["id"] != float64(7) || body["email"] != "amy@example.com" {
		t.Errorf("unexpected identity fields: %v", body)
	}
	if body["googleConnected"] != true {
		t.Error("expected googleConnected to be true")
	}
	if body["googleAccessToken"] != "g-access" {
		t.Errorf("expected google access token, got %v", body["googleAccessToken"])
	}
	if body["tokenExpiry"] != "2025-06-01T13:00:00Z" {
		t.Errorf("unexpected token expiry: %v", body["tokenExpiry"])
	}
	if _, leaked := body["passwordHash"]; leaked {
		t.Error("response must not carry the password hash")
	}
}

func TestHandleMeWithoutGoogleToken(t *testing.T) {
	repo := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*user.User, error) {
			return &user.User{ID: 3, Email: strPtr("bo@example.com"), Name: "Bo"}, nil
		},
	}
	handler := NewUserHandler(repo)

	rr := httptest.NewRecorder()
	handler.HandleMe(rr, meRequest(int64(3)))

	body := decodeBody(t, rr)
	if _, ok := body["googleAccessToken"]; ok {
		t.Error("expected googleAccessToken to be omitted")
	}
	if _, ok := body["tokenExpiry"]; ok {
		t.Error("expected tokenExpiry to be omitted")
	}
}

func TestHandleMeUnknownSubject(t *testing.T) {
	repo := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*user.User, error) {
			return nil, user.ErrNotFound
		},
	}
	handler := NewUserHandler(repo)

	rr := httptest.NewRecorder()
	handler.HandleMe(rr, meRequest(int64(99)))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != "unknown_subject" {
		t.Errorf("expected unknown_subject, got %v", body["error"])
	}
}

func TestHandleMeMissingContext(t *testing.T) {
	handler := NewUserHandler(&mockUserRepo{})

	rr := httptest.NewRecorder()
	handler.HandleMe(rr, meRequest(nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
