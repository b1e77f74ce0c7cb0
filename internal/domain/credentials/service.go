package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"authgate/internal/domain/user"
	"authgate/internal/shared/auth"
)

var (
	// ErrDuplicateEmail is returned by Register for an email already in use.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials is returned by Authenticate for unknown email
	// and wrong password alike, so callers leak nothing about which it was.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnknownEmail is returned by RequestReset when no record matches.
	ErrUnknownEmail = errors.New("unknown email")

	// ErrInvalidOrExpiredToken is returned by ConsumeReset for tokens that
	// do not match a record or are past their expiry.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
)

const resetTokenTTL = time.Hour

// Service verifies and maintains local email/password credentials.
type Service struct {
	users    user.Repository
	hashCost int
	now      func() time.Time
	newToken func() string
}

// NewService builds a credentials service over the given store. hashCost is
// the bcrypt cost factor; pass 0 for the default (10 rounds).
func NewService(users user.Repository, hashCost int) *Service {
	return &Service{
		users:    users,
		hashCost: hashCost,
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

// Register creates a user with a hashed password. The email is normalized
// to lower case before it is checked for uniqueness.
func (s *Service) Register(ctx context.Context, email, password, name string) (*user.User, error) {
	email = normalizeEmail(email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := auth.HashPassword(password, s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.users.Create(ctx, user.CreateUserParams{
		Email:        &email,
		Name:         name,
		PasswordHash: &hash,
	})
	if errors.Is(err, user.ErrDuplicateKey) {
		// Concurrent registration for the same email won the race.
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

// Authenticate validates an email/password pair and returns the record.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// Provider-only accounts have no hash; treat like any mismatch.
	if u.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(*u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// RequestReset generates a single-use reset token valid for one hour,
// persists it on the record, and returns it. Delivery is the caller's
// problem.
func (s *Service) RequestReset(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, user.ErrNotFound) {
		return "", ErrUnknownEmail
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	token := s.newToken()
	expires := s.now().Add(resetTokenTTL)
	if err := s.users.SetResetToken(ctx, u.ID, token, expires); err != nil {
		return "", fmt.Errorf("failed to persist reset token: %w", err)
	}
	return token, nil
}

// ConsumeReset redeems a reset token, rehashing the password and clearing
// the reset fields. A consumed or expired token cannot be used again.
func (s *Service) ConsumeReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}

	u, err := s.users.GetByResetToken(ctx, token)
	if errors.Is(err, user.ErrNotFound) {
		return ErrInvalidOrExpiredToken
	}
	if err != nil {
		return fmt.Errorf("failed to look up reset token: %w", err)
	}
	if u.ResetExpires == nil || !s.now().Before(*u.ResetExpires) {
		return ErrInvalidOrExpiredToken
	}

	hash, err := auth.HashPassword(newPassword, s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.ResetPassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
