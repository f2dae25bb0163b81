package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"classteamup/internal/auth"
	"classteamup/internal/logger"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const providerName = "keycloak"

// Provider implements OAuth + OIDC authentication against Keycloak.
// It returns identity facts only; no user/session decisions are made here.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// New initializes a Keycloak OIDC provider using discovery.
// issuer must be the realm issuer URL, e.g.
// http://keycloak:8080/realms/classteamup. publicBaseURL is the origin the
// browser reaches Keycloak on when it differs from the in-cluster issuer.
func New(
	ctx context.Context,
	issuer string,
	clientID string,
	redirectURL string,
	publicBaseURL string,
) (*Provider, error) {

	if issuer == "" || clientID == "" || redirectURL == "" || publicBaseURL == "" {
		return nil, errors.New("keycloak oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init keycloak oidc provider: %w", err)
	}

	ep := oidcProvider.Endpoint()
	ep.AuthURL, err = rebase(ep.AuthURL, publicBaseURL)
	if err != nil {
		return nil, err
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURL,
			Endpoint:    ep,
			Scopes: []string{
				oidc.ScopeOpenID,
				"email",
				"profile",
			},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{
			ClientID: clientID,
		}),
	}, nil
}

// rebase moves rawURL onto the scheme and host of base, keeping its path.
func rebase(rawURL, base string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("keycloak auth url: %w", err)
	}
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" || b.Host == "" {
		return "", fmt.Errorf("keycloak public base url %q is invalid", base)
	}
	u.Scheme, u.Host = b.Scheme, b.Host
	return u.String(), nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode exchanges the authorization code and returns a normalized identity.
// This method MUST NOT create users, sessions, or perform linking logic.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("keycloak token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("keycloak did not return id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("keycloak id_token verification failed: %w", err)
	}

	var claims struct {
		Subject           string `json:"sub"`
		Email             string `json:"email"`
		EmailVerified     bool   `json:"email_verified"`
		PreferredUsername string `json:"preferred_username"`
		GivenName         string `json:"given_name"`
		FamilyName        string `json:"family_name"`
	}

	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("keycloak id_token claims parse failed: %w", err)
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("keycloak id_token missing required claims")
	}

	logger.Debug("keycloak oidc verified", map[string]any{
		"issuer":             idToken.Issuer,
		"email_verified":     claims.EmailVerified,
		"preferred_username": claims.PreferredUsername,
		"expiry_unix":        idToken.Expiry.Unix(),
	})

	return &auth.Identity{
		Provider:       providerName,
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
		GivenName:      claims.GivenName,
		FamilyName:     claims.FamilyName,
	}, nil
}
