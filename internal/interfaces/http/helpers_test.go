package http

import (
	"context"
	"net/url"
	"time"

	"authgate/internal/domain/user"
	"authgate/internal/shared/auth"
)

type mockUserRepo struct {
	CreateFunc                  func(ctx context.Context, params user.CreateUserParams) (*user.User, error)
	GetByIDFunc                 func(ctx context.Context, id int64) (*user.User, error)
	GetByEmailFunc              func(ctx context.Context, email string) (*user.User, error)
	GetByProviderIDFunc         func(ctx context.Context, provider, providerID string) (*user.User, error)
	GetByProviderIDOrEmailFunc  func(ctx context.Context, provider, providerID, email string) (*user.User, error)
	UpdateProviderTokensFunc    func(ctx context.Context, userID int64, params user.ProviderTokenParams) (*user.User, error)
	GetByResetTokenFunc         func(ctx context.Context, token string) (*user.User, error)
	SetResetTokenFunc           func(ctx context.Context, userID int64, token string, expires time.Time) error
	ResetPasswordFunc           func(ctx context.Context, userID int64, passwordHash string) error
	ClearExpiredResetTokensFunc func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockUserRepo) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	return m.CreateFunc(ctx, params)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.GetByEmailFunc(ctx, email)
}

func (m *mockUserRepo) GetByProviderID(ctx context.Context, provider, providerID string) (*user.User, error) {
	return m.GetByProviderIDFunc(ctx, provider, providerID)
}

func (m *mockUserRepo) GetByProviderIDOrEmail(ctx context.Context, provider, providerID, email string) (*user.User, error) {
	return m.GetByProviderIDOrEmailFunc(ctx, provider, providerID, email)
}

func (m *mockUserRepo) UpdateProviderTokens(ctx context.Context, userID int64, params user.ProviderTokenParams) (*user.User, error) {
	return m.UpdateProviderTokensFunc(ctx, userID, params)
}

func (m *mockUserRepo) GetByResetToken(ctx context.Context, token string) (*user.User, error) {
	return m.GetByResetTokenFunc(ctx, token)
}

func (m *mockUserRepo) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	return m.SetResetTokenFunc(ctx, userID, token, expires)
}

func (m *mockUserRepo) ResetPassword(ctx context.Context, userID int64, passwordHash string) error {
	return m.ResetPasswordFunc(ctx, userID, passwordHash)
}

func (m *mockUserRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	return m.ClearExpiredResetTokensFunc(ctx, now)
}

// fakeFlow is a scripted auth.OAuthFlow for handler tests.
type fakeFlow struct {
	AuthURLFunc  func(ctx context.Context, state string) (string, error)
	ExchangeFunc func(ctx context.Context, query url.Values) (*auth.ProviderToken, error)
	UserInfoFunc func(ctx context.Context, token *auth.ProviderToken) (*auth.UserInfo, error)
}

func (f *fakeFlow) AuthURL(ctx context.Context, state string) (string, error) {
	return f.AuthURLFunc(ctx, state)
}

func (f *fakeFlow) Exchange(ctx context.Context, query url.Values) (*auth.ProviderToken, error) {
	return f.ExchangeFunc(ctx, query)
}

func (f *fakeFlow) UserInfo(ctx context.Context, token *auth.ProviderToken) (*auth.UserInfo, error) {
	return f.UserInfoFunc(ctx, token)
}

func strPtr(s string) *string { return &s }
