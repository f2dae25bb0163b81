package handler

import (
	"net/http"

	"classteamup/internal/logger"
	"classteamup/internal/route"

	"github.com/gin-gonic/gin"
)

func (h *Handler) oauthLogin(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown oauth provider"})
		return
	}

	state := h.generateState(c)
	_, codeChallenge := h.generatePKCE(c)

	c.Redirect(http.StatusFound, p.AuthCodeURL(state, codeChallenge))
}

func (h *Handler) oauthCallback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown oauth provider"})
		return
	}

	if !h.validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid state"})
		return
	}

	// the provider reports cancelled or failed consent through error params;
	// start over from the login page
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oidc callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		c.Redirect(http.StatusFound, route.LoginPath)
		return
	}

	code := c.Query("code")
	if code == "" {
		badRequest(c)
		return
	}

	codeVerifier := h.takePKCEVerifier(c)
	if codeVerifier == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing pkce verifier"})
		return
	}

	id, err := p.ExchangeCode(c.Request.Context(), code, codeVerifier)
	if err != nil {
		logger.Warn("oidc code exchange failed", map[string]any{
			"provider": providerName,
			"error":    err,
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	res, err := h.accounts.SignInWithIdentity(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	h.startSession(c, res.Session)

	logger.Info("login succeeded", map[string]any{
		"user_id":  res.Session.UserID,
		"provider": providerName,
		"ip":       c.ClientIP(),
	})

	c.Redirect(http.StatusFound, res.RedirectTo)
}
