package handler

import (
	"net/http"

	"classteamup/internal/account"
	"classteamup/internal/logger"
	"classteamup/internal/session"

	"github.com/gin-gonic/gin"
)

func (h *Handler) signUp(c *gin.Context) {
	var in account.SignUpInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	pending, err := h.accounts.SignUp(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "pending_confirmation",
		"account": pending,
	})
}

func (h *Handler) confirm(c *gin.Context) {
	var in account.ConfirmInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	if err := h.accounts.ConfirmEmail(c.Request.Context(), in); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

func (h *Handler) login(c *gin.Context) {
	var in account.SignInInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	res, err := h.accounts.SignIn(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	h.startSession(c, res.Session)

	logger.Info("login succeeded", map[string]any{
		"user_id": res.Session.UserID,
		"ip":      c.ClientIP(),
	})

	c.JSON(http.StatusOK, res)
}

// logout is idempotent: without a session it still clears the cookie and
// answers 204.
func (h *Handler) logout(c *gin.Context) {
	sessionID := session.IDFromRequest(c.Request)

	err := h.accounts.SignOut(c.Request.Context(), sessionID)

	// local state is cleared even when the provider call failed
	session.ClearCookie(c.Writer, h.cookies)

	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) resetPassword(c *gin.Context) {
	var in account.ResetRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	if err := h.accounts.RequestPasswordReset(c.Request.Context(), in); err != nil {
		writeError(c, err)
		return
	}

	// same answer whether or not the email is registered
	c.JSON(http.StatusAccepted, gin.H{"status": "reset_requested"})
}

func (h *Handler) updatePassword(c *gin.Context) {
	var in account.UpdatePasswordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	sessionID := session.IDFromRequest(c.Request)
	if err := h.accounts.UpdatePassword(c.Request.Context(), sessionID, in); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password_updated"})
}

// currentSession reports the signed-in user, or null for anonymous callers.
func (h *Handler) currentSession(c *gin.Context) {
	u, err := h.accounts.CurrentUser(c.Request)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *Handler) startSession(c *gin.Context, sess *session.Session) {
	session.SetCookie(c.Writer, sess.SessionID, sess.ExpiresAt, h.cookies)
}
