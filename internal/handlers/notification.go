package handlers

import (
	"net/http"

	"studybud/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := currentUser(c)

	notifications, err := h.notifications.List(c.Request.Context(), user.ID, 50)
	if err != nil {
		renderServiceError(c, err)
		return
	}

	Render(c, http.StatusOK, "notification/list.html", gin.H{
		"Title":         "Notifications",
		"Notifications": notifications,
		"Active":        "notifications",
	})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), currentUser(c).ID, id); err != nil {
		renderServiceError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/notifications")
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		renderServiceError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/notifications")
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), currentUser(c).ID); err != nil {
		renderServiceError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/notifications")
}
