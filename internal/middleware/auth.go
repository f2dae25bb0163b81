package middleware

import (
	"context"
	"net/http"

	"classteamup/internal/logger"
	"classteamup/internal/route"
)

// unexported, collision-proof context key
type resolutionContextKeyType struct{}

var resolutionKey = resolutionContextKeyType{}

// ResolutionFromContext returns the resolution attached by the middleware.
func ResolutionFromContext(ctx context.Context) (Resolution, bool) {
	res, ok := ctx.Value(resolutionKey).(Resolution)
	return res, ok
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	res, ok := ResolutionFromContext(ctx)
	if !ok || res.Status != Authenticated {
		return "", false
	}
	return res.UserID, true
}

func withResolution(r *http.Request, res Resolution) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), resolutionKey, res))
}

type AuthMiddleware struct {
	Resolver *SessionResolver
}

func NewAuthMiddleware(resolver *SessionResolver) *AuthMiddleware {
	return &AuthMiddleware{Resolver: resolver}
}

// RouteGuard resolves the caller, applies the redirect policy and either
// continues or answers with a 307 to the computed target.
func (a *AuthMiddleware) RouteGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := a.Resolver.Resolve(r)
		if res.Status == Failed {
			logger.Error("session resolution failed", map[string]any{
				"path":  r.URL.Path,
				"error": res.Err,
			})
		}

		decision := route.Classify(r.URL.Path, res.AuthState())
		if !decision.Allowed() {
			http.Redirect(w, r, decision.Target, http.StatusTemporaryRedirect)
			return
		}

		next.ServeHTTP(w, withResolution(r, res))
	})
}

// RequireAuth rejects API calls without an authenticated caller.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := a.Resolver.Resolve(r)

		switch res.Status {
		case Failed:
			logger.Error("session resolution failed", map[string]any{
				"path":  r.URL.Path,
				"error": res.Err,
			})
			writeJSONError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
			return
		case Unauthenticated:
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, withResolution(r, res))
	})
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
