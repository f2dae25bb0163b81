package handler

import (
	"errors"
	"net/http"

	"classteamup/internal/account"
	"classteamup/internal/auth/provider"
	"classteamup/internal/identity"
	"classteamup/internal/logger"
	"classteamup/internal/middleware"
	"classteamup/internal/route"
	"classteamup/internal/session"
	"classteamup/internal/user"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	accounts  *account.Service
	providers *provider.Registry
	cookies   session.CookieOptions
}

func NewHandler(
	accounts *account.Service,
	registry *provider.Registry,
	cookies session.CookieOptions,
) *Handler {
	return &Handler{
		accounts:  accounts,
		providers: registry,
		cookies:   cookies,
	}
}

// RegisterRoutes mounts pages behind the route guard, credential endpoints
// without a guard and profile endpoints behind RequireAuth.
func (h *Handler) RegisterRoutes(r *gin.Engine, auth *middleware.AuthMiddleware) {
	r.GET("/health", h.health)

	pages := r.Group("/", middleware.GinRouteGuard(auth))
	pages.GET("/", h.page("home"))
	pages.GET("/auth/login", h.page("login"))
	pages.GET("/auth/signup", h.page("signup"))
	pages.GET("/auth/reset-password", h.page("reset-password"))
	pages.GET("/auth/update-password", h.page("update-password"))
	pages.GET("/auth/confirm", h.page("confirm"))
	pages.GET("/dashboard", h.dashboard)
	pages.GET("/dashboard/*rest", h.dashboard)

	// unregistered paths in the guarded areas still get the redirect policy
	r.NoRoute(guardUnmatched(auth), h.notFound)

	api := r.Group("/api/auth")
	api.POST("/signup", h.signUp)
	api.POST("/confirm", h.confirm)
	api.POST("/login", h.login)
	api.POST("/logout", h.logout)
	api.POST("/reset-password", h.resetPassword)
	api.POST("/update-password", h.updatePassword)
	api.GET("/session", h.currentSession)
	api.GET("/oauth/:provider/login", h.oauthLogin)
	api.GET("/oauth/:provider/callback", h.oauthCallback)

	me := r.Group("/api/me", middleware.GinRequireAuth(auth))
	me.GET("", h.getProfile)
	me.PATCH("", h.updateProfile)

	for _, ri := range r.Routes() {
		logger.Debug("route registered", map[string]any{
			"method": ri.Method,
			"path":   ri.Path,
		})
	}
}

func guardUnmatched(auth *middleware.AuthMiddleware) gin.HandlerFunc {
	guard := middleware.GinRouteGuard(auth)
	return func(c *gin.Context) {
		if route.Guarded(c.Request.URL.Path) {
			guard(c)
		}
	}
}

func (h *Handler) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps flow and provider errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	var verr *account.ValidationError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, identity.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
	case errors.Is(err, identity.ErrNoSession):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
	case errors.Is(err, identity.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "an account with this email already exists"})
	case errors.Is(err, account.ErrUserRecordMissing):
		c.JSON(http.StatusConflict, gin.H{"error": "account setup incomplete"})
	case errors.Is(err, identity.ErrEmailNotConfirmed):
		c.JSON(http.StatusForbidden, gin.H{"error": "email address not confirmed"})
	case errors.Is(err, identity.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
	case errors.Is(err, identity.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, try again later"})
	case errors.Is(err, identity.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "link is invalid or has expired"})
	case errors.Is(err, user.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, identity.ErrUnavailable):
		logger.Error("identity provider unavailable", map[string]any{
			"path":  c.FullPath(),
			"error": err,
		})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
	default:
		logger.Error("unhandled error", map[string]any{
			"path":  c.FullPath(),
			"error": err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}
