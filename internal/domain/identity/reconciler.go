package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"authgate/internal/domain/user"
)

var (
	// ErrUnregisteredIdentity is returned when a login-intent callback
	// matches no record. No account is created; the caller redirects the
	// client to signup.
	ErrUnregisteredIdentity = errors.New("identity not registered")

	// ErrMissingEmail is returned when a signup-intent callback lacks an
	// email the provider policy requires.
	ErrMissingEmail = errors.New("provider profile has no email")
)

// ReconciliationError wraps a store failure during reconciliation.
type ReconciliationError struct {
	Provider Provider
	Op       string
	Err      error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// Reconciler maps an inbound provider identity assertion to a create,
// update, or reject decision on the credential store. One instance serves
// every provider; behavior differences live in the policy table.
type Reconciler struct {
	users    user.Repository
	policies map[Provider]Policy
	now      func() time.Time
}

// NewReconciler builds a reconciler over the given store and policy set.
func NewReconciler(users user.Repository, policies map[Provider]Policy) *Reconciler {
	return &Reconciler{
		users:    users,
		policies: policies,
		now:      time.Now,
	}
}

// Reconcile resolves a provider callback to a user record.
//
// Unknown identity + login intent fails with ErrUnregisteredIdentity.
// Unknown identity + signup intent creates a record, subject to the
// policy's email requirement. A known identity gets its provider id
// attached (if absent) and its tokens refreshed per policy. A create that
// loses a uniqueness race to a concurrent callback is retried once through
// the lookup, landing on the update path against the winner's record.
func (r *Reconciler) Reconcile(ctx context.Context, p Provider, profile Profile, intent Intent) (*user.User, error) {
	policy, ok := r.policies[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, p)
	}

	email := strings.ToLower(strings.TrimSpace(profile.Email))

	existing, err := r.lookup(ctx, p, policy, profile.ID, email)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return nil, &ReconciliationError{Provider: p, Op: "lookup", Err: err}
	}

	if existing != nil {
		return r.refresh(ctx, p, policy, existing, profile)
	}

	if intent != IntentSignup {
		return nil, ErrUnregisteredIdentity
	}
	if policy.RequireEmail && email == "" {
		return nil, ErrMissingEmail
	}

	created, err := r.create(ctx, p, policy, profile, email)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, user.ErrDuplicateKey) {
		return nil, &ReconciliationError{Provider: p, Op: "create", Err: err}
	}

	// Lost the create race to a concurrent callback; the winner's record
	// is now the match, so merge into it.
	existing, err = r.lookup(ctx, p, policy, profile.ID, email)
	if err != nil {
		return nil, &ReconciliationError{Provider: p, Op: "retry lookup", Err: err}
	}
	return r.refresh(ctx, p, policy, existing, profile)
}

func (r *Reconciler) lookup(ctx context.Context, p Provider, policy Policy, providerID, email string) (*user.User, error) {
	if policy.Match == MatchProviderIDOrEmail && email != "" {
		return r.users.GetByProviderIDOrEmail(ctx, string(p), providerID, email)
	}
	return r.users.GetByProviderID(ctx, string(p), providerID)
}

func (r *Reconciler) create(ctx context.Context, p Provider, policy Policy, profile Profile, email string) (*user.User, error) {
	params := user.CreateUserParams{
		Name:       profile.Name,
		Provider:   string(p),
		ProviderID: &profile.ID,
	}
	if email != "" {
		params.Email = &email
	}
	if profile.Picture != "" {
		params.ProfilePicture = &profile.Picture
	}
	if profile.AccessToken != "" {
		params.AccessToken = &profile.AccessToken
	}
	if profile.RefreshToken != "" {
		params.RefreshToken = &profile.RefreshToken
	}
	if policy.Refresh == RotateSecret {
		params.TokenSecret = &profile.TokenSecret
	}
	if policy.TokenLifetime > 0 {
		expiry := r.now().Add(policy.TokenLifetime)
		params.TokenExpiry = &expiry
	}
	return r.users.Create(ctx, params)
}

func (r *Reconciler) refresh(ctx context.Context, p Provider, policy Policy, existing *user.User, profile Profile) (*user.User, error) {
	params := user.ProviderTokenParams{
		Provider:    string(p),
		ProviderID:  profile.ID,
		AccessToken: profile.AccessToken,
	}
	switch policy.Refresh {
	case RotateSecret:
		params.TokenSecret = &profile.TokenSecret
	default:
		if profile.RefreshToken != "" {
			params.RefreshToken = &profile.RefreshToken
		}
	}
	if policy.TokenLifetime > 0 {
		expiry := r.now().Add(policy.TokenLifetime)
		params.TokenExpiry = &expiry
	}

	updated, err := r.users.UpdateProviderTokens(ctx, existing.ID, params)
	if err != nil {
		return nil, &ReconciliationError{Provider: p, Op: "update tokens", Err: err}
	}
	return updated, nil
}
