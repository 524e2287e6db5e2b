package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/auth"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/identity"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/service"
)

// AuthHandler runs one provider's OAuth flow. The server creates one
// instance per enabled provider; each holds its own provider adapter and
// configuration, so there is no shared provider registry to mutate.
//
//	HandleLogin    → redirect the browser to the provider's consent page
//	HandleCallback → verify state, exchange the code, reconcile, set session
type AuthHandler struct {
	provider auth.Provider
	// callbackURL, when non-empty, is used verbatim (it must match the URL
	// registered with the provider). When empty the callback URL is derived
	// from each request's forwarded headers.
	callbackURL string
	tokens      *auth.TokenService
	identities  *service.IdentityService
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler for one provider. All dependencies
// are injected; the handler has no knowledge of how they're constructed.
func NewAuthHandler(
	provider auth.Provider,
	callbackURL string,
	tokens *auth.TokenService,
	identities *service.IdentityService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider:    provider,
		callbackURL: callbackURL,
		tokens:      tokens,
		identities:  identities,
		logger:      logger,
	}
}

// stateCookie names the short-lived CSRF state cookie. Scoped per provider
// so overlapping GitHub and Discord flows in two tabs don't clobber each
// other's state.
func (h *AuthHandler) stateCookie() string {
	return "oauth_state_" + string(h.provider.Kind())
}

// redirectURL picks the callback URL for this request: the configured one
// if present, otherwise derived from the request's forwarded headers.
func (h *AuthHandler) redirectURL(r *http.Request) string {
	if h.callbackURL != "" {
		return h.callbackURL
	}

	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" && r.TLS == nil {
		proto = "http"
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return auth.ResolveCallbackURL(proto, host, h.provider.Kind())
}

// HandleLogin redirects the user to the provider's authorization page.
//
// HTTP: GET /api/auth/{provider}
//
// The random state value goes into a short-lived HttpOnly cookie; the
// callback verifies the provider echoed the same value, which proves the
// flow started here and not on an attacker's page.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     h.stateCookie(),
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state, h.redirectURL(r)), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth flow.
//
// HTTP: GET /api/auth/{provider}/callback?code=xxx&state=yyy
//
// Flow:
//  1. Verify the state parameter against the state cookie (CSRF check)
//  2. Exchange the code for a normalized provider identity
//  3. Reconcile it against the store and the current session (if any)
//  4. Bind the session to the resulting account via the session cookie
//  5. Redirect: a fresh login lands on the wallet page, a link on the dashboard
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	kind := h.provider.Kind()

	stateCookie, err := r.Cookie(h.stateCookie())
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie", slog.String("provider", string(kind)))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch", slog.String("provider", string(kind)))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   h.stateCookie(),
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// The provider reports denial via the error query param.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("provider", string(kind)),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	incoming, err := h.provider.Exchange(r.Context(), code, h.redirectURL(r))
	if err != nil {
		h.logger.Error("auth callback: code exchange failed",
			slog.String("provider", string(kind)),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// OptionalAuth put the session's account ID in the context when the
	// caller has a valid session; anonymous callers reconcile with "".
	sessionAccountID, _ := auth.AccountIDFromContext(r.Context())

	res, err := h.identities.HandleCallback(r.Context(), sessionAccountID, kind, incoming)
	if err != nil {
		h.logger.Error("auth callback: reconciliation failed",
			slog.String("provider", string(kind)),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	token, err := h.tokens.Generate(res.Account.ID)
	if err != nil {
		h.logger.Error("auth callback: session token generation failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// HttpOnly keeps the token away from page scripts; SameSite=Lax still
	// sends it on the top-level redirect back from the provider.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	target := "/connect-wallet"
	if res.Outcome == identity.OutcomeLink {
		target = "/dashboard"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// HandleLogout clears the session cookie. POST, not GET: logout changes
// state, and browsers prefetch GETs.
//
// HTTP: POST /api/auth/logout
//
// The store is untouched — only the session binding goes away. Logout is
// provider-agnostic, so it lives outside AuthHandler.
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
