package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/linkedin"
)

// ErrNoCode is returned when a callback arrives without an authorization code.
var ErrNoCode = errors.New("authorization code missing from callback")

// ProviderToken is the credential set obtained from a provider callback.
// Secret is only populated by OAuth 1.0a providers (Twitter).
type ProviderToken struct {
	AccessToken  string
	RefreshToken string
	Secret       string
}

// UserInfo is the profile a provider reports for the authenticated user.
type UserInfo struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

// OAuthFlow abstracts one provider's consent/callback/profile sequence.
// OAuth 2.0 providers redirect with a code; the OAuth 1.0a flow (Twitter)
// needs a network call to mint its redirect and exchanges a verifier, which
// is why AuthURL takes a context and Exchange takes the raw callback query.
type OAuthFlow interface {
	AuthURL(ctx context.Context, state string) (string, error)
	Exchange(ctx context.Context, query url.Values) (*ProviderToken, error)
	UserInfo(ctx context.Context, token *ProviderToken) (*UserInfo, error)
}

// oauth2Flow implements OAuthFlow over golang.org/x/oauth2 with a
// per-provider profile fetcher.
type oauth2Flow struct {
	cfg        *oauth2.Config
	authOpts   []oauth2.AuthCodeOption
	fetch      func(ctx context.Context, client *http.Client) (*UserInfo, error)
	httpClient *http.Client
}

func (f *oauth2Flow) AuthURL(_ context.Context, state string) (string, error) {
	return f.cfg.AuthCodeURL(state, f.authOpts...), nil
}

func (f *oauth2Flow) Exchange(ctx context.Context, query url.Values) (*ProviderToken, error) {
	code := query.Get("code")
	if code == "" {
		return nil, ErrNoCode
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	tok, err := f.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return &ProviderToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}, nil
}

func (f *oauth2Flow) UserInfo(ctx context.Context, token *ProviderToken) (*UserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	client := f.cfg.Client(ctx, &oauth2.Token{AccessToken: token.AccessToken})
	return f.fetch(ctx, client)
}

// NewGoogleFlow builds the Google OAuth 2.0 flow. Offline access is always
// requested so refresh tokens are reissued when Google chooses to.
func NewGoogleFlow(clientID, clientSecret, redirectURL string) OAuthFlow {
	return &oauth2Flow{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		authOpts:   []oauth2.AuthCodeOption{oauth2.AccessTypeOffline},
		fetch:      fetchGoogleProfile,
		httpClient: newProviderHTTPClient(),
	}
}

// NewFacebookFlow builds the Facebook OAuth 2.0 flow.
func NewFacebookFlow(clientID, clientSecret, redirectURL string) OAuthFlow {
	return &oauth2Flow{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     facebook.Endpoint,
		},
		fetch:      fetchFacebookProfile,
		httpClient: newProviderHTTPClient(),
	}
}

// NewLinkedInFlow builds the LinkedIn OAuth 2.0 flow. The granted scopes
// carry no email address; callers must tolerate an empty one.
func NewLinkedInFlow(clientID, clientSecret, redirectURL string) OAuthFlow {
	return &oauth2Flow{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"r_liteprofile", "w_member_social"},
			Endpoint:     linkedin.Endpoint,
		},
		fetch:      fetchLinkedInProfile,
		httpClient: newProviderHTTPClient(),
	}
}

func newProviderHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func fetchGoogleProfile(ctx context.Context, client *http.Client) (*UserInfo, error) {
	var profile struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &profile); err != nil {
		return nil, err
	}
	return &UserInfo{
		ID:      profile.ID,
		Email:   profile.Email,
		Name:    profile.Name,
		Picture: profile.Picture,
	}, nil
}

func fetchFacebookProfile(ctx context.Context, client *http.Client) (*UserInfo, error) {
	var profile struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	url := "https://graph.facebook.com/v19.0/me?fields=id,name,email,picture.type(large)"
	if err := getJSON(ctx, client, url, &profile); err != nil {
		return nil, err
	}
	return &UserInfo{
		ID:      profile.ID,
		Email:   profile.Email,
		Name:    profile.Name,
		Picture: profile.Picture.Data.URL,
	}, nil
}

func fetchLinkedInProfile(ctx context.Context, client *http.Client) (*UserInfo, error) {
	var profile struct {
		ID        string `json:"id"`
		FirstName string `json:"localizedFirstName"`
		LastName  string `json:"localizedLastName"`
	}
	if err := getJSON(ctx, client, "https://api.linkedin.com/v2/me", &profile); err != nil {
		return nil, err
	}
	return &UserInfo{
		ID:   profile.ID,
		Name: strings.TrimSpace(profile.FirstName + " " + profile.LastName),
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("user info request failed (%d): %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode user info: %w", err)
	}
	return nil
}
