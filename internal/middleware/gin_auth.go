package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const ginUserIDKey = "userID"

// Gin adapts a net/http middleware to Gin. The wrapped middleware either
// writes a response (the Gin chain is aborted) or calls next with a possibly
// enriched request, which becomes c.Request for the remaining handlers.
func Gin(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			if id, ok := UserIDFromContext(r.Context()); ok {
				c.Set(ginUserIDKey, id)
			}
			c.Next()
		})

		mw(next).ServeHTTP(c.Writer, c.Request)

		// If the middleware already handled the response, stop Gin chain
		if c.Writer.Written() {
			c.Abort()
		}
	}
}

// GinRouteGuard applies the page redirect policy.
func GinRouteGuard(auth *AuthMiddleware) gin.HandlerFunc {
	return Gin(auth.RouteGuard)
}

// GinRequireAuth guards API routes with 401 responses instead of redirects.
func GinRequireAuth(auth *AuthMiddleware) gin.HandlerFunc {
	return Gin(auth.RequireAuth)
}

// UserID returns the authenticated user id set by the guards.
func UserID(c *gin.Context) string {
	return c.GetString(ginUserIDKey)
}
