package auth

import (
	"context"
	"fmt"

	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/model"
)

// Provider abstracts one OAuth identity provider for the callback handler.
//
// Both methods take the redirect URL as an argument instead of holding it as
// mutable state: behind a proxy the externally visible host is only known
// per request, and mutating a shared provider config per request would race
// under concurrent callbacks. Provider values are immutable after
// construction.
type Provider interface {
	// Kind identifies the provider ("github" or "discord").
	Kind() model.ProviderKind

	// AuthURL returns the provider authorization URL to redirect the user
	// to, carrying the CSRF state and the callback redirect URL.
	AuthURL(state, redirectURL string) string

	// Exchange trades the authorization code for the provider's profile and
	// normalizes it. The redirectURL must match the one used in AuthURL.
	Exchange(ctx context.Context, code, redirectURL string) (model.NormalizedIdentity, error)
}

// ResolveCallbackURL derives the provider callback URL from the inbound
// request's scheme and host. It is a pure function — computed fresh for
// every request, never cached, never written back into provider state.
//
// proto should come from X-Forwarded-Proto when behind a proxy and host
// from X-Forwarded-Host (or the Host header); an empty proto falls back
// to https, since any deployment with a derivable host sits behind TLS.
func ResolveCallbackURL(proto, host string, provider model.ProviderKind) string {
	if proto == "" {
		proto = "https"
	}
	return fmt.Sprintf("%s://%s/api/auth/%s/callback", proto, host, provider)
}
