package handlers

import (
	"errors"
	"net/http"
	"time"

	"studybud/internal/models"
	"studybud/internal/services"

	"github.com/gin-gonic/gin"
)

// APIHandler serves the JSON API under /api. Every route except Token sits
// behind middleware.APIAuth.
type APIHandler struct {
	forum         *services.ForumService
	votes         *services.VoteService
	subscriptions *services.SubscriptionService
	accounts      *services.AccountService
	tokens        *services.TokenService
}

func NewAPIHandler(
	forum *services.ForumService,
	votes *services.VoteService,
	subscriptions *services.SubscriptionService,
	accounts *services.AccountService,
	tokens *services.TokenService,
) *APIHandler {
	return &APIHandler{
		forum:         forum,
		votes:         votes,
		subscriptions: subscriptions,
		accounts:      accounts,
		tokens:        tokens,
	}
}

var apiRoutes = []string{
	"GET /api",
	"GET /api/topics",
	"GET /api/rooms",
	"GET /api/rooms/:id",
	"GET /api/rooms/:id/messages",
	"POST /api/rooms/:id/messages",
	"POST /api/rooms/:id/vote",
	"POST /api/subscription",
	"DELETE /api/subscription",
	"POST /api/token",
}

// apiError maps service errors to JSON responses.
func apiError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, services.ErrAuthenticationRequired):
		status, msg = http.StatusUnauthorized, services.ErrAuthenticationRequired.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrAccessDenied):
		status, msg = http.StatusForbidden, "subscription required"
	case errors.Is(err, services.ErrForbidden):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, services.ErrConflictRetry):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrInvalidInput):
		status, msg = http.StatusBadRequest, invalidInputMessage(err)
	default:
		c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (h *APIHandler) Routes(c *gin.Context) {
	c.JSON(http.StatusOK, apiRoutes)
}

func (h *APIHandler) Topics(c *gin.Context) {
	topics, err := h.forum.ListTopics(c.Request.Context())
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, topicViews(currentUser(c), topics))
}

func (h *APIHandler) Rooms(c *gin.Context) {
	listing, err := h.forum.ListRooms(c.Request.Context(), currentUser(c), services.RoomFilter{
		TopicSlug: c.Query("topic"),
		Query:     c.Query("q"),
		Sort:      c.Query("sort"),
	})
	if err != nil {
		apiError(c, err)
		return
	}
	out := make([]gin.H, len(listing.Rooms))
	for i, r := range listing.Rooms {
		out[i] = roomJSON(r)
	}
	c.JSON(http.StatusOK, out)
}

func (h *APIHandler) Room(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		apiError(c, services.ErrNotFound)
		return
	}
	room, err := h.forum.GetRoom(c.Request.Context(), currentUser(c), id)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomJSON(*room))
}

func (h *APIHandler) Messages(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		apiError(c, services.ErrNotFound)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.forum.GetRoom(ctx, currentUser(c), id); err != nil {
		apiError(c, err)
		return
	}
	messages, err := h.forum.RoomMessages(ctx, id)
	if err != nil {
		apiError(c, err)
		return
	}
	out := make([]gin.H, len(messages))
	for i, m := range messages {
		out[i] = messageJSON(m)
	}
	c.JSON(http.StatusOK, out)
}

// userJSON is the public face of a user: no email, no subscription state.
func userJSON(u models.User) gin.H {
	return gin.H{"id": u.ID, "username": u.Username, "avatar": u.Avatar}
}

func roomJSON(r models.Room) gin.H {
	participants := make([]gin.H, len(r.Participants))
	for i, p := range r.Participants {
		participants[i] = userJSON(p)
	}
	return gin.H{
		"id":            r.ID,
		"name":          r.Name,
		"description":   r.Description,
		"topic":         gin.H{"id": r.Topic.ID, "slug": r.Topic.Slug, "name": r.Topic.Name},
		"host":          userJSON(r.Host),
		"participants":  participants,
		"score":         r.Score,
		"message_count": r.MessageCount,
		"created_at":    r.CreatedAt,
		"updated_at":    r.UpdatedAt,
	}
}

func messageJSON(m models.Message) gin.H {
	return gin.H{
		"id":         m.ID,
		"room_id":    m.RoomID,
		"user":       userJSON(m.User),
		"body":       m.Body,
		"created_at": m.CreatedAt,
	}
}

type postMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *APIHandler) PostMessage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		apiError(c, services.ErrNotFound)
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, services.ErrInvalidInput)
		return
	}
	msg, err := h.forum.PostMessage(c.Request.Context(), currentUser(c), id, req.Body)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageJSON(*msg))
}

type voteRequest struct {
	Direction string `json:"direction" binding:"required"`
}

func (h *APIHandler) Vote(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		apiError(c, services.ErrNotFound)
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, services.ErrInvalidInput)
		return
	}
	dir, err := services.ParseDirection(req.Direction)
	if err != nil {
		apiError(c, err)
		return
	}

	ctx := c.Request.Context()
	outcome, err := h.votes.Vote(ctx, currentUser(c), id, dir)
	if err != nil {
		apiError(c, err)
		return
	}
	up, down, err := h.votes.Tally(ctx, id)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"action":    outcome.Action.String(),
		"value":     outcome.Value,
		"upvotes":   up,
		"downvotes": down,
	})
}

func (h *APIHandler) Subscribe(c *gin.Context) {
	user := currentUser(c)
	if err := h.subscriptions.Subscribe(c.Request.Context(), user); err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_paid": user.IsPaid})
}

func (h *APIHandler) Unsubscribe(c *gin.Context) {
	user := currentUser(c)
	if err := h.subscriptions.Unsubscribe(c.Request.Context(), user); err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_paid": user.IsPaid})
}

type tokenRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Token exchanges credentials for a bearer token.
func (h *APIHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, services.ErrInvalidInput)
		return
	}
	user, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apiError(c, err)
		return
	}
	token, expires, err := h.tokens.Issue(user)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}
