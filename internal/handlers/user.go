package handlers

import (
	"errors"
	"net/http"

	"studybud/internal/services"
	"studybud/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	forum         *services.ForumService
	accounts      *services.AccountService
	subscriptions *services.SubscriptionService
}

func NewUserHandler(forum *services.ForumService, accounts *services.AccountService, subscriptions *services.SubscriptionService) *UserHandler {
	return &UserHandler{forum: forum, accounts: accounts, subscriptions: subscriptions}
}

// Profile - /u/:id
func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		RenderError(c, http.StatusNotFound, "User not found")
		return
	}
	view, err := h.forum.Profile(c.Request.Context(), currentUser(c), id)
	if err != nil {
		renderServiceError(c, err)
		return
	}
	Render(c, http.StatusOK, "user/profile.html", gin.H{
		"Title":    view.User.Username,
		"User":     view.User,
		"Rooms":    view.Rooms,
		"Messages": view.Messages,
	})
}

func (h *UserHandler) ShowSettings(c *gin.Context) {
	h.renderSettings(c, http.StatusOK, "")
}

func (h *UserHandler) renderSettings(c *gin.Context, code int, errMsg string) {
	Render(c, code, "user/settings.html", gin.H{
		"Title":   "Settings",
		"User":    currentUser(c),
		"Avatars": utils.AvatarChoices(),
		"Error":   errMsg,
		"Success": c.Query("success") == "1",
	})
}

func (h *UserHandler) UpdateSettings(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)

	err := h.accounts.UpdateSettings(ctx, user, services.SettingsInput{
		Username:    c.PostForm("username"),
		Bio:         c.PostForm("bio"),
		Avatar:      c.PostForm("avatar"),
		OldPassword: c.PostForm("old_password"),
		NewPassword: c.PostForm("new_password"),
	})
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		h.renderSettings(c, http.StatusBadRequest, "Current password is incorrect")
		return
	case errors.Is(err, services.ErrInvalidInput):
		h.renderSettings(c, http.StatusBadRequest, invalidInputMessage(err))
		return
	case err != nil:
		renderServiceError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/settings?success=1")
}

// Subscribe is the demo upgrade button. No payment happens.
func (h *UserHandler) Subscribe(c *gin.Context) {
	if err := h.subscriptions.Subscribe(c.Request.Context(), currentUser(c)); err != nil {
		renderServiceError(c, err)
		return
	}
	redirectWithFlash(c, safeNext(c.PostForm("next")), "Subscribed (demo). Jobs & Referrals is unlocked.")
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	if err := h.subscriptions.Unsubscribe(c.Request.Context(), currentUser(c)); err != nil {
		renderServiceError(c, err)
		return
	}
	redirectWithFlash(c, "/", "Subscription cancelled (demo).")
}

// safeNext only allows local redirect targets.
func safeNext(next string) string {
	if len(next) > 1 && next[0] == '/' && next[1] != '/' && next[1] != '\\' {
		return next
	}
	return "/"
}
