package identity

import (
	"errors"
	"fmt"
	"time"
)

// Provider names a supported federated identity provider.
type Provider string

const (
	Google   Provider = "google"
	Facebook Provider = "facebook"
	Twitter  Provider = "twitter"
	LinkedIn Provider = "linkedin"
)

// ErrUnknownProvider is returned for provider names outside the supported set.
var ErrUnknownProvider = errors.New("unknown provider")

// ParseProvider validates a provider name from a URL path segment.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case Google, Facebook, Twitter, LinkedIn:
		return Provider(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// Intent distinguishes a login attempt, which must match an existing
// account, from a signup, which may create one.
type Intent string

const (
	IntentLogin  Intent = "login"
	IntentSignup Intent = "signup"
)

// Profile is the identity assertion carried by a provider callback.
// Email, Picture, RefreshToken and TokenSecret are optional; which of them
// a given provider supplies varies per callback.
type Profile struct {
	ID           string
	Name         string
	Email        string
	Picture      string
	AccessToken  string
	RefreshToken string
	TokenSecret  string // OAuth 1.0a token secret (Twitter)
}

// MatchStrategy selects how an inbound profile is matched to a record.
type MatchStrategy int

const (
	// MatchProviderID matches strictly on the provider-assigned id.
	MatchProviderID MatchStrategy = iota
	// MatchProviderIDOrEmail additionally matches on the profile email,
	// catching accounts registered locally with the same address.
	MatchProviderIDOrEmail
)

// RefreshRule selects how stored tokens are refreshed on a repeat callback.
type RefreshRule int

const (
	// RefreshIfReissued overwrites the refresh token only when the
	// callback carries one; providers do not reissue on every consent.
	RefreshIfReissued RefreshRule = iota
	// RotateSecret overwrites access token and token secret together
	// (OAuth 1.0a, no refresh-token concept).
	RotateSecret
)

// Policy is the per-provider reconciliation policy. One policy plus one
// reconciler replaces a hand-written branch per provider.
type Policy struct {
	Match         MatchStrategy
	RequireEmail  bool          // signup without an email fails
	Refresh       RefreshRule
	TokenLifetime time.Duration // >0: stored expiry is reconciliation time + lifetime
}

// DefaultPolicies returns the production policy set.
//
// Facebook matches by id or email while the others match strictly by id;
// the asymmetry is inherited behavior, kept deliberately. Google tokens get
// a fixed one-hour stored lifetime regardless of what the provider reports.
func DefaultPolicies() map[Provider]Policy {
	return map[Provider]Policy{
		Google: {
			Match:         MatchProviderID,
			RequireEmail:  true,
			Refresh:       RefreshIfReissued,
			TokenLifetime: time.Hour,
		},
		Facebook: {
			Match:        MatchProviderIDOrEmail,
			RequireEmail: true,
			Refresh:      RefreshIfReissued,
		},
		Twitter: {
			Match:   MatchProviderID,
			Refresh: RotateSecret,
		},
		LinkedIn: {
			Match:   MatchProviderID,
			Refresh: RefreshIfReissued,
		},
	}
}
