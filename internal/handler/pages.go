package handler

import (
	"net/http"
	"strings"

	"classteamup/internal/middleware"
	"classteamup/internal/route"

	"github.com/gin-gonic/gin"
)

// page answers entry pages with a descriptor the client renders.
func (h *Handler) page(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"page": name}

		switch name {
		case "login", "signup":
			body["oauthProviders"] = h.providers.Names()
		case "update-password", "confirm":
			body["hasToken"] = c.Query("token") != ""
		}

		c.JSON(http.StatusOK, body)
	}
}

// dashboard returns the caller's profile for whichever dashboard subtree the
// route guard let through.
func (h *Handler) dashboard(c *gin.Context) {
	res, ok := middleware.ResolutionFromContext(c.Request.Context())
	if !ok || res.Status != middleware.Authenticated {
		// the guard redirects every unauthenticated dashboard request
		c.Redirect(http.StatusTemporaryRedirect, route.LoginPath)
		return
	}

	profile, err := h.accounts.Profile(c.Request.Context(), res.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dashboard": dashboardName(c.Request.URL.Path),
		"user":      profile,
	})
}

func dashboardName(path string) string {
	rest := strings.TrimPrefix(path, route.DashboardRoot+"/")
	name, _, _ := strings.Cut(rest, "/")
	return name
}
