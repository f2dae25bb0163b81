package app

import (
	"context"

	"classteamup/internal/account"
	"classteamup/internal/auth/credentials"
	"classteamup/internal/auth/provider"
	"classteamup/internal/auth/provider/google"
	"classteamup/internal/auth/provider/keycloak"
	"classteamup/internal/auth/resolver"
	"classteamup/internal/auth/token"
	"classteamup/internal/config"
	"classteamup/internal/handler"
	"classteamup/internal/identity"
	"classteamup/internal/logger"
	"classteamup/internal/mail"
	"classteamup/internal/middleware"
	"classteamup/internal/ratelimit"
	"classteamup/internal/session"
	"classteamup/internal/user"

	"github.com/gin-gonic/gin"
)

type services struct {
	router   *gin.Engine
	identity *identity.Local
	users    user.Store
}

func setupHTTP(ctx context.Context, cfg config.Config, infra *Infra) (*services, error) {
	// ----------------------------
	// Identity provider
	// ----------------------------

	tokens, err := token.NewManager(
		[]byte(cfg.TokenSecret),
		infra.Redis.Client,
		cfg.ResetTokenTTL,
		cfg.ConfirmTokenTTL,
	)
	if err != nil {
		return nil, err
	}

	idp := identity.NewLocal(identity.Deps{
		Credentials:  credentials.NewService(infra.DB),
		Identities:   resolver.NewDBResolver(infra.DB),
		Sessions:     session.NewRedisStore(infra.Redis.Client),
		Tokens:       tokens,
		Mailer:       mail.NewLogMailer(cfg.Development),
		LoginLimiter: ratelimit.New(infra.Redis.Client, "login", cfg.LoginMaxAttempts, cfg.LoginWindow),
		ResetLimiter: ratelimit.New(infra.Redis.Client, "reset", cfg.ResetMaxRequests, cfg.ResetWindow),
	}, identity.Config{
		BaseURL:    cfg.AppBaseURL,
		SessionTTL: cfg.SessionTTL,
	})

	users := user.NewPostgresStore(infra.DB)

	// ----------------------------
	// External sign-in
	// ----------------------------

	registry, err := setupProviders(ctx, cfg)
	if err != nil {
		idp.Close()
		return nil, err
	}

	// ----------------------------
	// Router
	// ----------------------------

	accounts := account.NewService(idp, users, cfg.AppBaseURL)
	authMiddleware := middleware.NewAuthMiddleware(middleware.NewSessionResolver(idp, users))

	router := gin.New()
	router.Use(gin.Recovery(), middleware.AccessLog())

	handler.NewHandler(
		accounts,
		registry,
		session.CookieOptions{Secure: cfg.CookieSecure},
	).RegisterRoutes(router, authMiddleware)

	return &services{
		router:   router,
		identity: idp,
		users:    users,
	}, nil
}

// setupProviders registers the OIDC providers that are configured. Password
// sign-in works without any of them.
func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	var list []provider.OAuthProvider

	if cfg.GoogleEnabled() {
		p, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if cfg.KeycloakEnabled() {
		p, err := keycloak.New(ctx, cfg.KeycloakIssuer, cfg.KeycloakClientID, cfg.KeycloakRedirectURL, cfg.KeycloakPublicBaseURL)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	registry := provider.NewRegistry(list...)
	logger.Info("oauth providers configured", map[string]any{
		"providers": registry.Names(),
	})
	return registry, nil
}
