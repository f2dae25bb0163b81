package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const (
	pkceCookieName = "__oauth_pkce"
	pkceTTL        = 5 * time.Minute
)

func (h *Handler) generatePKCE(c *gin.Context) (verifier string, challenge string) {
	verifier = oauth2.GenerateVerifier()
	challenge = oauth2.S256ChallengeFromVerifier(verifier)

	h.setFlowCookie(c, pkceCookieName, verifier, pkceTTL)
	return verifier, challenge
}

// takePKCEVerifier returns the verifier and clears its cookie.
func (h *Handler) takePKCEVerifier(c *gin.Context) string {
	cookie, err := c.Request.Cookie(pkceCookieName)
	if err != nil {
		return ""
	}
	h.setFlowCookie(c, pkceCookieName, "", -1)
	return cookie.Value
}

// setFlowCookie writes a short-lived cookie for the OAuth round trip. A
// negative ttl deletes it.
func (h *Handler) setFlowCookie(c *gin.Context, name, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/api/auth/oauth",
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}
