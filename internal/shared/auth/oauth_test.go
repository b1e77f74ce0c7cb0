package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestOAuth2AuthURLCarriesState(t *testing.T) {
	flow := NewGoogleFlow("client-id", "client-secret", "https://app.example.com/api/auth/google/callback")

	authURL, err := flow.AuthURL(context.Background(), "signup.xyz")
	if err != nil {
		t.Fatalf("AuthURL failed: %v", err)
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("failed to parse auth URL: %v", err)
	}
	q := parsed.Query()
	if q.Get("state") != "signup.xyz" {
		t.Errorf("expected state signup.xyz, got %q", q.Get("state"))
	}
	if q.Get("client_id") != "client-id" {
		t.Errorf("expected client id in auth URL, got %q", q.Get("client_id"))
	}
	if q.Get("access_type") != "offline" {
		t.Errorf("expected offline access for google, got %q", q.Get("access_type"))
	}
	if !strings.Contains(q.Get("scope"), "email") {
		t.Errorf("expected email scope, got %q", q.Get("scope"))
	}
}

func TestOAuth2ExchangeRequiresCode(t *testing.T) {
	flows := map[string]OAuthFlow{
		"google":   NewGoogleFlow("id", "secret", "https://app.example.com/cb"),
		"facebook": NewFacebookFlow("id", "secret", "https://app.example.com/cb"),
		"linkedin": NewLinkedInFlow("id", "secret", "https://app.example.com/cb"),
	}
	for name, flow := range flows {
		if _, err := flow.Exchange(context.Background(), url.Values{"state": {"x"}}); !errors.Is(err, ErrNoCode) {
			t.Errorf("%s: expected ErrNoCode, got %v", name, err)
		}
	}
}
