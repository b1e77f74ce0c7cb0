package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Twitter still runs three-legged OAuth 1.0a for sign-in, so the flow keeps
// its own HMAC-SHA1 signer and a short-lived store for request token secrets
// between the redirect and the callback.

var (
	// ErrUnknownRequestToken is returned when a callback carries a request
	// token the flow never issued or that has already expired.
	ErrUnknownRequestToken = errors.New("unknown or expired request token")
	// ErrNoVerifier is returned when a callback arrives without oauth_verifier.
	ErrNoVerifier = errors.New("oauth verifier missing from callback")
)

const requestTokenTTL = 10 * time.Minute

// requestTokenStore holds request token secrets between AuthURL and Exchange.
type requestTokenStore struct {
	mu      sync.Mutex
	secrets map[string]requestTokenEntry
	now     func() time.Time
}

type requestTokenEntry struct {
	secret  string
	expires time.Time
}

func newRequestTokenStore() *requestTokenStore {
	return &requestTokenStore{
		secrets: make(map[string]requestTokenEntry),
		now:     time.Now,
	}
}

func (s *requestTokenStore) put(token, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for t, e := range s.secrets {
		if now.After(e.expires) {
			delete(s.secrets, t)
		}
	}
	s.secrets[token] = requestTokenEntry{secret: secret, expires: now.Add(requestTokenTTL)}
}

func (s *requestTokenStore) take(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.secrets[token]
	if !ok || s.now().After(e.expires) {
		delete(s.secrets, token)
		return "", false
	}
	delete(s.secrets, token)
	return e.secret, true
}

// TwitterFlow implements OAuthFlow over Twitter's OAuth 1.0a endpoints.
type TwitterFlow struct {
	consumerKey    string
	consumerSecret string
	callbackURL    string

	requestTokenURL string
	authorizeURL    string
	accessTokenURL  string
	verifyURL       string

	tokens     *requestTokenStore
	httpClient *http.Client
	nonce      func() string
	now        func() time.Time
}

// NewTwitterFlow builds the Twitter flow. Because OAuth 1.0a has no state
// parameter, callers should encode state into the callback URL query before
// constructing the flow.
func NewTwitterFlow(consumerKey, consumerSecret, callbackURL string) *TwitterFlow {
	return &TwitterFlow{
		consumerKey:     consumerKey,
		consumerSecret:  consumerSecret,
		callbackURL:     callbackURL,
		requestTokenURL: "https://api.twitter.com/oauth/request_token",
		authorizeURL:    "https://api.twitter.com/oauth/authorize",
		accessTokenURL:  "https://api.twitter.com/oauth/access_token",
		verifyURL:       "https://api.twitter.com/1.1/account/verify_credentials.json",
		tokens:          newRequestTokenStore(),
		httpClient:      newProviderHTTPClient(),
		nonce:           newNonce,
		now:             time.Now,
	}
}

// AuthURL obtains a request token and returns the authorize redirect. The
// state value rides along as a query parameter on the registered callback.
func (f *TwitterFlow) AuthURL(ctx context.Context, state string) (string, error) {
	callback := f.callbackURL
	if state != "" {
		sep := "?"
		if strings.Contains(callback, "?") {
			sep = "&"
		}
		callback += sep + "state=" + url.QueryEscape(state)
	}

	body, err := f.signedPost(ctx, f.requestTokenURL, map[string]string{
		"oauth_callback": callback,
	}, "", "")
	if err != nil {
		return "", fmt.Errorf("failed to obtain request token: %w", err)
	}

	vals, err := url.ParseQuery(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse request token response: %w", err)
	}
	token := vals.Get("oauth_token")
	secret := vals.Get("oauth_token_secret")
	if token == "" || secret == "" {
		return "", errors.New("request token response missing token or secret")
	}
	f.tokens.put(token, secret)

	return f.authorizeURL + "?oauth_token=" + url.QueryEscape(token), nil
}

// Exchange turns the callback's verifier into an access token and secret.
func (f *TwitterFlow) Exchange(ctx context.Context, query url.Values) (*ProviderToken, error) {
	token := query.Get("oauth_token")
	verifier := query.Get("oauth_verifier")
	if verifier == "" {
		return nil, ErrNoVerifier
	}
	secret, ok := f.tokens.take(token)
	if !ok {
		return nil, ErrUnknownRequestToken
	}

	body, err := f.signedPost(ctx, f.accessTokenURL, map[string]string{
		"oauth_verifier": verifier,
	}, token, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange verifier: %w", err)
	}

	vals, err := url.ParseQuery(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token response: %w", err)
	}
	accessToken := vals.Get("oauth_token")
	accessSecret := vals.Get("oauth_token_secret")
	if accessToken == "" || accessSecret == "" {
		return nil, errors.New("access token response missing token or secret")
	}
	return &ProviderToken{AccessToken: accessToken, Secret: accessSecret}, nil
}

// UserInfo fetches the authenticated account, asking Twitter to include the
// email address when the app has that permission.
func (f *TwitterFlow) UserInfo(ctx context.Context, token *ProviderToken) (*UserInfo, error) {
	reqURL := f.verifyURL + "?include_email=true&skip_status=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", f.authHeader(http.MethodGet, reqURL, nil, token.AccessToken, token.Secret))

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("verify credentials failed (%d): %s", resp.StatusCode, string(body))
	}

	var profile struct {
		ID      string `json:"id_str"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"profile_image_url_https"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &UserInfo{
		ID:      profile.ID,
		Name:    profile.Name,
		Email:   profile.Email,
		Picture: profile.Picture,
	}, nil
}

func (f *TwitterFlow) signedPost(ctx context.Context, endpoint string, extra map[string]string, token, tokenSecret string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	oauthParams := f.baseParams()
	if token != "" {
		oauthParams["oauth_token"] = token
	}
	for k, v := range extra {
		oauthParams[k] = v
	}
	req.Header.Set("Authorization", f.signHeader(http.MethodPost, endpoint, oauthParams, tokenSecret))

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request failed (%d): %s", resp.StatusCode, string(body))
	}
	return string(body), nil
}

func (f *TwitterFlow) authHeader(method, rawURL string, extra map[string]string, token, tokenSecret string) string {
	params := f.baseParams()
	if token != "" {
		params["oauth_token"] = token
	}
	for k, v := range extra {
		params[k] = v
	}
	return f.signHeader(method, rawURL, params, tokenSecret)
}

func (f *TwitterFlow) baseParams() map[string]string {
	return map[string]string{
		"oauth_consumer_key":     f.consumerKey,
		"oauth_nonce":            f.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(f.now().Unix(), 10),
		"oauth_version":          "1.0",
	}
}

// signHeader computes the HMAC-SHA1 signature per RFC 5849 and renders the
// Authorization header. Query parameters on rawURL participate in the base
// string but not in the header.
func (f *TwitterFlow) signHeader(method, rawURL string, oauthParams map[string]string, tokenSecret string) string {
	u, _ := url.Parse(rawURL)

	all := make(map[string]string, len(oauthParams)+4)
	for k, v := range oauthParams {
		all[k] = v
	}
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			all[k] = vs[0]
		}
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(all[k]))
	}

	baseURL := u.Scheme + "://" + u.Host + u.Path
	base := strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(strings.Join(pairs, "&"))
	key := percentEncode(f.consumerSecret) + "&" + percentEncode(tokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	oauthParams["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	hk := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		hk = append(hk, k)
	}
	sort.Strings(hk)

	var b strings.Builder
	b.WriteString("OAuth ")
	for i, k := range hk {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(percentEncode(k))
		b.WriteString(`="`)
		b.WriteString(percentEncode(oauthParams[k]))
		b.WriteString(`"`)
	}
	return b.String()
}

// percentEncode implements the strict RFC 3986 encoding OAuth 1.0a requires.
// url.QueryEscape is close but encodes spaces as '+' and leaves '~' handling
// to the caller, so the byte loop stays explicit.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func newNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(buf), "=")
}
