package handler

import (
	"net/http"

	"classteamup/internal/account"
	"classteamup/internal/middleware"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getProfile(c *gin.Context) {
	profile, err := h.accounts.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var in account.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	profile, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
