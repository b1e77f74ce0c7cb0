package user

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by lookups that match no record.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateKey is returned when a write loses a uniqueness race
	// (email or provider id already taken). Callers are expected to
	// re-run their lookup and take the update path.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Repository defines the interface for credential-store access.
type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByProviderID(ctx context.Context, provider, providerID string) (*User, error)
	// GetByProviderIDOrEmail implements the broader Facebook-style match:
	// a record whose provider id OR email matches.
	GetByProviderIDOrEmail(ctx context.Context, provider, providerID, email string) (*User, error)
	UpdateProviderTokens(ctx context.Context, userID int64, params ProviderTokenParams) (*User, error)

	GetByResetToken(ctx context.Context, token string) (*User, error)
	SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error
	// ResetPassword replaces the password hash and clears the reset fields
	// in one statement.
	ResetPassword(ctx context.Context, userID int64, passwordHash string) error
	// ClearExpiredResetTokens removes reset tokens whose expiry is before
	// now and reports how many records were swept.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
