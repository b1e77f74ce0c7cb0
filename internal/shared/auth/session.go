package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed or tampered session tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned for well-formed tokens past their expiry.
	ErrExpiredToken = errors.New("token expired")

	// ErrUnknownSubject is returned when a valid token names a user that
	// no longer exists in the store.
	ErrUnknownSubject = errors.New("unknown subject")
)

const defaultSessionTTL = 24 * time.Hour

// SessionClaims is the payload of an issued session token.
//
// Google-initiated logins carry the current provider access token and its
// expiry so the client can present it without another round trip.
type SessionClaims struct {
	UserID            int64            `json:"userId"`
	Email             string           `json:"email,omitempty"`
	GoogleAccessToken string           `json:"googleAccessToken,omitempty"`
	GoogleTokenExpiry *jwt.NumericDate `json:"tokenExpiry,omitempty"`
	jwt.RegisteredClaims
}

// GoogleTokenClaims are the optional provider-token claims embedded by
// Google login flows.
type GoogleTokenClaims struct {
	AccessToken string
	Expiry      time.Time
}

// Sessions mints and verifies signed, expiring bearer tokens (HS256).
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions builds a session issuer with the given signing secret.
// ttl <= 0 selects the default 24-hour lifetime.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a bearer token for the given user. google may be nil.
func (s *Sessions) Issue(userID int64, email string, google *GoogleTokenClaims) (string, error) {
	now := s.now()
	claims := SessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	if google != nil {
		claims.GoogleAccessToken = google.AccessToken
		claims.GoogleTokenExpiry = jwt.NewNumericDate(google.Expiry)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Verify decodes a bearer token and validates its signature and expiry.
func (s *Sessions) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
