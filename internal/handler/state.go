package handler

import (
	"crypto/subtle"
	"time"

	"classteamup/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	stateCookieName = "__oauth_state"
	stateTTL        = 5 * time.Minute
)

func (h *Handler) generateState(c *gin.Context) string {
	state := utils.RandomString(32)
	h.setFlowCookie(c, stateCookieName, state, stateTTL)
	return state
}

// validateState compares the callback state with the cookie and consumes it.
func (h *Handler) validateState(c *gin.Context) bool {
	stateQuery := c.Query("state")
	if stateQuery == "" {
		return false
	}

	cookie, err := c.Request.Cookie(stateCookieName)
	if err != nil {
		return false
	}
	h.setFlowCookie(c, stateCookieName, "", -1)

	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(stateQuery)) == 1
}
