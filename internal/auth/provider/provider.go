// Package provider holds the external sign-in providers (OIDC) offered on
// the login and sign-up pages, keyed by the name used in
// /api/auth/oauth/:provider routes.
package provider

import (
	"context"

	"classteamup/internal/auth"
)

// OAuthProvider runs the authorization-code flow with PKCE against one
// identity provider. It reports who the caller is; whether that identity
// maps to a ClassTeamUp account is decided by the resolver.
type OAuthProvider interface {
	// Name is the route segment, e.g. "google" or "keycloak".
	Name() string

	// AuthCodeURL is where the browser is sent to sign in. The handler
	// owns state and the PKCE verifier; only the S256 challenge is passed.
	AuthCodeURL(state string, codeChallenge string) string

	// ExchangeCode redeems the callback code and verifies the ID token.
	ExchangeCode(ctx context.Context, code string, codeVerifier string) (*auth.Identity, error)
}
