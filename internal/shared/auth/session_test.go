package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSessions_IssueAndVerify(t *testing.T) {
	s := NewSessions("my-secret-key", 0)

	token, err := s.Issue(123, "test@example.com", nil)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if claims.UserID != 123 {
		t.Errorf("Verify() got UserID %d, want 123", claims.UserID)
	}
	if claims.Email != "test@example.com" {
		t.Errorf("Verify() got Email %s, want test@example.com", claims.Email)
	}
	if claims.Subject != "123" {
		t.Errorf("Verify() got Subject %s, want 123", claims.Subject)
	}
	if claims.GoogleAccessToken != "" {
		t.Errorf("unexpected google claims: %s", claims.GoogleAccessToken)
	}
}

func TestSessions_GoogleClaims(t *testing.T) {
	s := NewSessions("my-secret-key", 0)
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)

	token, err := s.Issue(7, "g@example.com", &GoogleTokenClaims{
		AccessToken: "ya29.token",
		Expiry:      expiry,
	})
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if claims.GoogleAccessToken != "ya29.token" {
		t.Errorf("GoogleAccessToken = %q", claims.GoogleAccessToken)
	}
	if claims.GoogleTokenExpiry == nil || !claims.GoogleTokenExpiry.Time.Equal(expiry) {
		t.Errorf("GoogleTokenExpiry = %v, want %v", claims.GoogleTokenExpiry, expiry)
	}
}

func TestSessions_TamperedToken(t *testing.T) {
	s := NewSessions("my-secret-key", 0)
	token, _ := s.Issue(1, "a@b.com", nil)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".invalid-signature"

	_, err := s.Verify(tampered)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestSessions_WrongSecret(t *testing.T) {
	token, _ := NewSessions("secret-a", 0).Issue(1, "a@b.com", nil)

	_, err := NewSessions("secret-b", 0).Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestSessions_ExpiredToken(t *testing.T) {
	s := NewSessions("my-secret-key", time.Hour)

	base := time.Now()
	s.now = func() time.Time { return base.Add(-2 * time.Hour) }
	token, err := s.Issue(1, "expired@example.com", nil)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	s.now = time.Now
	_, err = s.Verify(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func TestSessions_GarbageInput(t *testing.T) {
	s := NewSessions("my-secret-key", 0)
	for _, bad := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := s.Verify(bad); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", bad, err)
		}
	}
}
