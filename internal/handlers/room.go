package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"studybud/internal/models"
	"studybud/internal/services"
	"studybud/internal/utils"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	forum *services.ForumService
	votes *services.VoteService
}

func NewRoomHandler(forum *services.ForumService, votes *services.VoteService) *RoomHandler {
	return &RoomHandler{forum: forum, votes: votes}
}

// Home lists rooms, optionally narrowed by ?topic=, ?q= and ?sort=hot.
func (h *RoomHandler) Home(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	filter := services.RoomFilter{
		TopicSlug: c.Query("topic"),
		Query:     c.Query("q"),
		Sort:      c.DefaultQuery("sort", services.SortRecent),
	}

	listing, err := h.forum.ListRooms(ctx, user, filter)
	if err != nil {
		renderServiceError(c, err)
		return
	}
	topics, err := h.forum.ListTopics(ctx)
	if err != nil {
		renderServiceError(c, err)
		return
	}
	activity, err := h.forum.RecentActivity(ctx, user, 8)
	if err != nil {
		renderServiceError(c, err)
		return
	}

	title := "Browse rooms"
	if listing.Topic != nil {
		title = listing.Topic.Name
	}
	Render(c, http.StatusOK, "room/list.html", gin.H{
		"Title":     title,
		"Rooms":     listing.Rooms,
		"RoomCount": len(listing.Rooms),
		"Topic":     listing.Topic,
		"Topics":    topicViews(user, topics),
		"Activity":  activity,
		"Query":     filter.Query,
		"Sort":      filter.Sort,
		"Active":    "home",
	})
}

type messageView struct {
	models.Message
	BodyHTML template.HTML
}

func (h *RoomHandler) Detail(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		RenderError(c, http.StatusNotFound, "Room not found")
		return
	}
	ctx := c.Request.Context()
	user := currentUser(c)

	room, err := h.forum.GetRoom(ctx, user, id)
	if err != nil {
		renderServiceError(c, err)
		return
	}
	h.renderDetail(c, http.StatusOK, room, "")
}

func (h *RoomHandler) renderDetail(c *gin.Context, code int, room *models.Room, formError string) {
	ctx := c.Request.Context()
	user := currentUser(c)

	messages, err := h.forum.RoomMessages(ctx, room.ID)
	if err != nil {
		renderServiceError(c, err)
		return
	}
	views := make([]messageView, len(messages))
	for i, m := range messages {
		views[i] = messageView{Message: m, BodyHTML: utils.RenderMarkdown(m.Body)}
	}

	up, down, err := h.votes.Tally(ctx, room.ID)
	if err != nil {
		renderServiceError(c, err)
		return
	}
	myVote := 0
	if user != nil {
		if myVote, err = h.votes.Current(ctx, user.ID, room.ID); err != nil {
			renderServiceError(c, err)
			return
		}
	}

	Render(c, code, "room/detail.html", gin.H{
		"Title":           room.Name,
		"Room":            room,
		"DescriptionHTML": utils.RenderMarkdown(room.Description),
		"Messages":        views,
		"Participants":    room.Participants,
		"UpvoteCount":     up,
		"DownvoteCount":   down,
		"Score":           up - down,
		"MyVote":          myVote,
		"IsHost":          user != nil && user.ID == room.HostID,
		"Error":           formError,
	})
}

// PostMessage handles the message form on the room page.
func (h *RoomHandler) PostMessage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		RenderError(c, http.StatusNotFound, "Room not found")
		return
	}
	ctx := c.Request.Context()
	user := currentUser(c)

	_, err := h.forum.PostMessage(ctx, user, id, c.PostForm("body"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			room, getErr := h.forum.GetRoom(ctx, user, id)
			if getErr != nil {
				renderServiceError(c, getErr)
				return
			}
			h.renderDetail(c, http.StatusBadRequest, room, "Write something first")
			return
		}
		renderServiceError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/room/%d", id))
}

func (h *RoomHandler) DeleteMessage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		RenderError(c, http.StatusNotFound, "Message not found")
		return
	}
	msg, err := h.forum.DeleteMessage(c.Request.Context(), currentUser(c), id)
	if err != nil {
		renderServiceError(c, err)
		return
	}
	redirectWithFlash(c, fmt.Sprintf("/room/%d", msg.RoomID), "Message deleted")
}

func (h *RoomHandler) ShowCreate(c *gin.Context) {
	topics, err := h.forum.ListTopics(c.Request.Context())
	if err != nil {
		renderServiceError(c, err)
		return
	}
	Render(c, http.StatusOK, "room/form.html", gin.H{
		"Title":  "Create room",
		"Topics": topicViews(currentUser(c), topics),
		"Form":   services.RoomInput{TopicSlug: c.Query("topic")},
		"Action": "/create-room",
	})
}

func (h *RoomHandler) Create(c *gin.Context) {
	in := roomInputFromForm(c)
	room, err := h.forum.CreateRoom(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.renderFormError(c, err, in, "Create room", "/create-room")
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/room/%d", room.ID))
}

func (h *RoomHandler) ShowEdit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		RenderError(c, http.StatusNotFound, "Room not found")
		return
	}
	ctx := c.Request.Context()
	user := currentUser(c)

	room, err := h.forum.GetRoom(ctx, user, id)
	if err != nil {
		renderServiceError(c, err)
		return
	}
	if room.HostID != user.ID {
		renderServiceError(c, services.ErrForbidden)
		return
	}
	topics, err := h.forum.ListTopics(ctx)
	if err != nil {
		renderServiceError(c, err)
		return
	}
	Render(c, http.StatusOK, "room/form.html", gin.H{
		"Title":  "Edit room",
		"Topics": topicViews(user, topics),
		"Form": services.RoomInput{
			TopicSlug:   room.Topic.Slug,
			Name:        room.Name,
			Description: room.Description,
		},
		"Action": fmt.Sprintf("/room/%d/edit", room.ID),
	})
}

func (h *RoomHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		RenderError(c, http.StatusNotFound, "Room not found")
		return
	}
	in := roomInputFromForm(c)
	room, err := h.forum.UpdateRoom(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		h.renderFormError(c, err, in, "Edit room", fmt.Sprintf("/room/%d/edit", id))
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/room/%d", room.ID))
}

func (h *RoomHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		RenderError(c, http.StatusNotFound, "Room not found")
		return
	}
	if err := h.forum.DeleteRoom(c.Request.Context(), currentUser(c), id); err != nil {
		renderServiceError(c, err)
		return
	}
	redirectWithFlash(c, "/", "Room deleted")
}

// Activity is the full recent-activity page.
func (h *RoomHandler) Activity(c *gin.Context) {
	messages, err := h.forum.RecentActivity(c.Request.Context(), currentUser(c), 50)
	if err != nil {
		renderServiceError(c, err)
		return
	}
	Render(c, http.StatusOK, "room/activity.html", gin.H{
		"Title":    "Recent activity",
		"Activity": messages,
		"Active":   "activity",
	})
}

func roomInputFromForm(c *gin.Context) services.RoomInput {
	return services.RoomInput{
		TopicSlug:   c.PostForm("topic"),
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
	}
}

// renderFormError re-renders the room form for validation failures and
// falls back to the shared mapping for everything else.
func (h *RoomHandler) renderFormError(c *gin.Context, err error, in services.RoomInput, title, action string) {
	if !errors.Is(err, services.ErrInvalidInput) {
		renderServiceError(c, err)
		return
	}
	topics, listErr := h.forum.ListTopics(c.Request.Context())
	if listErr != nil {
		renderServiceError(c, listErr)
		return
	}
	Render(c, http.StatusBadRequest, "room/form.html", gin.H{
		"Title":  title,
		"Topics": topicViews(currentUser(c), topics),
		"Form":   in,
		"Action": action,
		"Error":  invalidInputMessage(err),
	})
}
