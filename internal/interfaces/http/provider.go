package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"authgate/internal/domain/identity"
	"authgate/internal/domain/user"
	"authgate/internal/shared/auth"
)

const stateCookieName = "oauth_state"

// ProviderHandler serves the federated consent/callback endpoints for all
// configured providers.
type ProviderHandler struct {
	flows      map[identity.Provider]auth.OAuthFlow
	reconciler *identity.Reconciler
	sessions   *auth.Sessions
	successURL string
	errorURL   string
	newNonce   func() string
}

func NewProviderHandler(flows map[identity.Provider]auth.OAuthFlow, reconciler *identity.Reconciler, sessions *auth.Sessions, successURL, errorURL string) *ProviderHandler {
	return &ProviderHandler{
		flows:      flows,
		reconciler: reconciler,
		sessions:   sessions,
		successURL: successURL,
		errorURL:   errorURL,
		newNonce:   uuid.NewString,
	}
}

// HandleStart begins a login flow: redirect to the provider's consent page.
func (h *ProviderHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, identity.IntentLogin)
}

// HandleSignupStart begins a signup flow.
func (h *ProviderHandler) HandleSignupStart(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, identity.IntentSignup)
}

func (h *ProviderHandler) start(w http.ResponseWriter, r *http.Request, intent identity.Intent) {
	provider, flow, ok := h.resolveFlow(w, r)
	if !ok {
		return
	}

	nonce := h.newNonce()
	state := encodeState(intent, nonce)

	authURL, err := flow.AuthURL(r.Context(), state)
	if err != nil {
		log.Printf("%s: failed to build auth URL: %v", provider, err)
		h.redirectError(w, r, "auth_failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    nonce,
		Path:     "/api/auth",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback processes the provider redirect: validate state, exchange
// the grant, reconcile the asserted identity, and hand the client a session.
// Failures redirect to the client error URL with an opaque code only.
func (h *ProviderHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	provider, flow, ok := h.resolveFlow(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	if denied := query.Get("error"); denied != "" {
		log.Printf("%s: provider returned error %q", provider, denied)
		h.redirectError(w, r, "auth_failed")
		return
	}

	intent, nonce, err := parseState(query.Get("state"))
	if err != nil {
		h.redirectError(w, r, "invalid_state")
		return
	}
	if cookie, err := r.Cookie(stateCookieName); err != nil || cookie.Value != nonce {
		h.redirectError(w, r, "invalid_state")
		return
	}
	clearStateCookie(w, r)

	ctx := r.Context()

	token, err := flow.Exchange(ctx, query)
	if err != nil {
		log.Printf("%s: token exchange failed: %v", provider, err)
		h.redirectError(w, r, "auth_failed")
		return
	}

	info, err := flow.UserInfo(ctx, token)
	if err != nil {
		log.Printf("%s: user info fetch failed: %v", provider, err)
		h.redirectError(w, r, "auth_failed")
		return
	}

	profile := identity.Profile{
		ID:           info.ID,
		Name:         info.Name,
		Email:        info.Email,
		Picture:      info.Picture,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenSecret:  token.Secret,
	}

	u, err := h.reconciler.Reconcile(ctx, provider, profile, intent)
	switch {
	case errors.Is(err, identity.ErrUnregisteredIdentity):
		h.redirectError(w, r, "unregistered_identity")
		return
	case errors.Is(err, identity.ErrMissingEmail):
		h.redirectError(w, r, "missing_email")
		return
	case err != nil:
		log.Printf("%s: reconciliation failed: %v", provider, err)
		h.redirectError(w, r, "reconciliation_failed")
		return
	}

	sessionToken, err := h.sessions.Issue(u.ID, emailOf(u), googleClaimsFor(provider, u))
	if err != nil {
		log.Printf("%s: failed to issue session for user %d: %v", provider, u.ID, err)
		h.redirectError(w, r, "auth_failed")
		return
	}

	snapshot, err := json.Marshal(u.Snapshot())
	if err != nil {
		log.Printf("%s: failed to marshal user snapshot: %v", provider, err)
		h.redirectError(w, r, "auth_failed")
		return
	}

	setAuthCookie(w, r, sessionToken)
	redirect := fmt.Sprintf("%s?token=%s&user=%s",
		h.successURL, url.QueryEscape(sessionToken), url.QueryEscape(string(snapshot)))
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *ProviderHandler) resolveFlow(w http.ResponseWriter, r *http.Request) (identity.Provider, auth.OAuthFlow, bool) {
	provider, err := identity.ParseProvider(r.PathValue("provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_provider")
		return "", nil, false
	}
	flow, ok := h.flows[provider]
	if !ok {
		writeError(w, http.StatusNotFound, "provider_not_configured")
		return "", nil, false
	}
	return provider, flow, true
}

func (h *ProviderHandler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.errorURL+"?error="+url.QueryEscape(code), http.StatusFound)
}

func clearStateCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/api/auth",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func emailOf(u *user.User) string {
	if u.Email != nil {
		return *u.Email
	}
	return ""
}

// googleClaimsFor embeds the provider token in the session for Google flows
// so the client can call Google APIs without a round trip.
func googleClaimsFor(provider identity.Provider, u *user.User) *auth.GoogleTokenClaims {
	if provider != identity.Google || u.GoogleAccessToken == nil {
		return nil
	}
	claims := &auth.GoogleTokenClaims{AccessToken: *u.GoogleAccessToken}
	if u.GoogleTokenExpiry != nil {
		claims.Expiry = *u.GoogleTokenExpiry
	}
	return claims
}

// encodeState packs the flow intent and a CSRF nonce into the OAuth state
// parameter as "<intent>.<nonce>".
func encodeState(intent identity.Intent, nonce string) string {
	return string(intent) + "." + nonce
}

func parseState(state string) (identity.Intent, string, error) {
	intentStr, nonce, found := strings.Cut(state, ".")
	if !found || nonce == "" {
		return "", "", errors.New("malformed state")
	}
	intent := identity.Intent(intentStr)
	if intent != identity.IntentLogin && intent != identity.IntentSignup {
		return "", "", errors.New("unknown intent")
	}
	return intent, nonce, nil
}
