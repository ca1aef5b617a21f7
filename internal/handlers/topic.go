package handlers

import (
	"net/http"

	"studybud/internal/models"
	"studybud/internal/services"

	"github.com/gin-gonic/gin"
)

type TopicHandler struct {
	forum *services.ForumService
}

func NewTopicHandler(forum *services.ForumService) *TopicHandler {
	return &TopicHandler{forum: forum}
}

type topicView struct {
	models.Topic
	Locked bool `json:"locked"`
}

// topicViews marks topics the user cannot browse and hides their counts.
func topicViews(user *models.User, topics []models.Topic) []topicView {
	out := make([]topicView, len(topics))
	for i, t := range topics {
		out[i] = topicView{Topic: t, Locked: !services.CanViewTopic(user, t)}
		if out[i].Locked {
			out[i].RoomCount = 0
		}
	}
	return out
}

// List shows all topics.
func (h *TopicHandler) List(c *gin.Context) {
	topics, err := h.forum.ListTopics(c.Request.Context())
	if err != nil {
		renderServiceError(c, err)
		return
	}
	Render(c, http.StatusOK, "topic/list.html", gin.H{
		"Topics": topicViews(currentUser(c), topics),
		"Title":  "Topics",
		"Active": "topics",
	})
}
