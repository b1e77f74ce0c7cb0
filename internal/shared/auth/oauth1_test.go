package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestTwitterFlow(requestTokenURL, accessTokenURL, verifyURL string) *TwitterFlow {
	f := NewTwitterFlow("consumer-key", "consumer-secret", "https://app.example.com/api/auth/twitter/callback")
	if requestTokenURL != "" {
		f.requestTokenURL = requestTokenURL
	}
	if accessTokenURL != "" {
		f.accessTokenURL = accessTokenURL
	}
	if verifyURL != "" {
		f.verifyURL = verifyURL
	}
	f.nonce = func() string { return "fixed-nonce" }
	f.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestTwitterAuthURL(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("oauth_token=req-token&oauth_token_secret=req-secret&oauth_callback_confirmed=true"))
	}))
	defer srv.Close()

	f := newTestTwitterFlow(srv.URL, "", "")

	redirect, err := f.AuthURL(context.Background(), "login.abc123")
	if err != nil {
		t.Fatalf("AuthURL failed: %v", err)
	}
	if want := f.authorizeURL + "?oauth_token=req-token"; redirect != want {
		t.Errorf("expected redirect %q, got %q", want, redirect)
	}

	if !strings.HasPrefix(gotAuth, "OAuth ") {
		t.Fatalf("expected OAuth authorization header, got %q", gotAuth)
	}
	for _, want := range []string{
		`oauth_consumer_key="consumer-key"`,
		`oauth_signature_method="HMAC-SHA1"`,
		`oauth_nonce="fixed-nonce"`,
		`oauth_signature="`,
	} {
		if !strings.Contains(gotAuth, want) {
			t.Errorf("authorization header missing %s: %q", want, gotAuth)
		}
	}
	// The state must ride on the callback so it survives the round trip.
	if !strings.Contains(gotAuth, percentEncode("state=login.abc123")) {
		t.Errorf("authorization header does not carry the state: %q", gotAuth)
	}

	// The request token secret must be stored for the callback leg.
	if secret, ok := f.tokens.take("req-token"); !ok || secret != "req-secret" {
		t.Errorf("expected stored request secret, got %q (ok=%v)", secret, ok)
	}
}

func TestTwitterExchange(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("oauth_token=access-token&oauth_token_secret=access-secret&user_id=42&screen_name=jdoe"))
	}))
	defer srv.Close()

	f := newTestTwitterFlow("", srv.URL, "")
	f.tokens.put("req-token", "req-secret")

	query := url.Values{
		"oauth_token":    {"req-token"},
		"oauth_verifier": {"verifier-1"},
	}
	tok, err := f.Exchange(context.Background(), query)
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if tok.AccessToken != "access-token" || tok.Secret != "access-secret" {
		t.Errorf("unexpected token: %+v", tok)
	}
	if tok.RefreshToken != "" {
		t.Errorf("OAuth 1.0a flow should not produce a refresh token, got %q", tok.RefreshToken)
	}
	for _, want := range []string{`oauth_token="req-token"`, `oauth_verifier="verifier-1"`} {
		if !strings.Contains(gotAuth, want) {
			t.Errorf("authorization header missing %s: %q", want, gotAuth)
		}
	}

	// The request token is single use.
	if _, err := f.Exchange(context.Background(), query); !errors.Is(err, ErrUnknownRequestToken) {
		t.Errorf("expected ErrUnknownRequestToken on reuse, got %v", err)
	}
}

func TestTwitterExchangeRejections(t *testing.T) {
	f := newTestTwitterFlow("", "", "")

	if _, err := f.Exchange(context.Background(), url.Values{"oauth_token": {"x"}}); !errors.Is(err, ErrNoVerifier) {
		t.Errorf("expected ErrNoVerifier, got %v", err)
	}
	if _, err := f.Exchange(context.Background(), url.Values{
		"oauth_token":    {"never-issued"},
		"oauth_verifier": {"v"},
	}); !errors.Is(err, ErrUnknownRequestToken) {
		t.Errorf("expected ErrUnknownRequestToken, got %v", err)
	}
}

func TestTwitterUserInfo(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Query().Get("include_email") != "true" {
			t.Errorf("expected include_email=true, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id_str":"42","name":"Jane Doe","email":"jane@example.com","profile_image_url_https":"https://img.example.com/jane.png"}`))
	}))
	defer srv.Close()

	f := newTestTwitterFlow("", "", srv.URL)

	info, err := f.UserInfo(context.Background(), &ProviderToken{AccessToken: "access-token", Secret: "access-secret"})
	if err != nil {
		t.Fatalf("UserInfo failed: %v", err)
	}
	if info.ID != "42" || info.Email != "jane@example.com" || info.Name != "Jane Doe" {
		t.Errorf("unexpected user info: %+v", info)
	}
	if info.Picture != "https://img.example.com/jane.png" {
		t.Errorf("unexpected picture: %q", info.Picture)
	}
	if !strings.Contains(gotAuth, `oauth_token="access-token"`) {
		t.Errorf("authorization header missing access token: %q", gotAuth)
	}
}

func TestRequestTokenStoreExpiry(t *testing.T) {
	store := newRequestTokenStore()
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.put("tok", "sec")
	current = current.Add(requestTokenTTL + time.Minute)
	if _, ok := store.take("tok"); ok {
		t.Error("expected expired request token to be rejected")
	}
}

func TestPercentEncode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abcABC123", "abcABC123"},
		{"-._~", "-._~"},
		{"hello world", "hello%20world"},
		{"a+b", "a%2Bb"},
		{"100%", "100%25"},
		{"key=value&x", "key%3Dvalue%26x"},
		{"café", "caf%C3%A9"},
	}
	for _, tt := range tests {
		if got := percentEncode(tt.in); got != tt.want {
			t.Errorf("percentEncode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
