package handlers

import (
	"fmt"
	"net/http"

	"studybud/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes *services.VoteService
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// Vote toggles the user's vote from the room page form and returns there.
func (h *VoteHandler) Vote(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		RenderError(c, http.StatusNotFound, "Room not found")
		return
	}
	dir, err := services.ParseDirection(c.PostForm("direction"))
	if err != nil {
		renderServiceError(c, err)
		return
	}

	if _, err := h.votes.Vote(c.Request.Context(), currentUser(c), id, dir); err != nil {
		renderServiceError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/room/%d", id))
}
