package handlers

import (
	"errors"
	"net/http"
	"strings"

	"studybud/internal/middleware"
	"studybud/internal/models"
	"studybud/internal/services"
	"studybud/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
		if count, ok := c.Get(middleware.UnreadCountKey); ok {
			obj["UnreadCount"] = int(count.(int64))
		} else {
			obj["UnreadCount"] = 0
		}
	}
	if _, ok := obj["Flashes"]; !ok {
		obj["Flashes"] = takeFlashes(c)
	}
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// Error helper
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message, "Code": code})
}

// addFlash queues a one-time message shown on the next rendered page.
func addFlash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	session.Save()
}

func takeFlashes(c *gin.Context) []string {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	session.Save()
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func redirectWithFlash(c *gin.Context, path, message string) {
	addFlash(c, message)
	c.Redirect(http.StatusFound, path)
}

// renderServiceError maps service errors for the HTML surface. A denied
// room or topic sends the user back home with a notice.
func renderServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAuthenticationRequired):
		c.Redirect(http.StatusFound, "/login")
	case errors.Is(err, services.ErrAccessDenied):
		redirectWithFlash(c, "/", "Jobs & Referrals is for subscribers. Subscribe to unlock it.")
	case errors.Is(err, services.ErrNotFound):
		RenderError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrForbidden):
		RenderError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrConflictRetry):
		RenderError(c, http.StatusConflict, "Someone voted at the same moment, please try again")
	case errors.Is(err, services.ErrInvalidInput):
		RenderError(c, http.StatusBadRequest, invalidInputMessage(err))
	default:
		c.Error(err)
		RenderError(c, http.StatusInternalServerError, "Something went wrong")
	}
}

// invalidInputMessage strips the sentinel prefix for display.
func invalidInputMessage(err error) string {
	return strings.TrimPrefix(err.Error(), services.ErrInvalidInput.Error()+": ")
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	return utils.ParseID(c.Param(name))
}
