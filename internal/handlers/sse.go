package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/chalkboard-backend/internal/sse"
)

type SSEHandler struct {
	hub *sse.SSEHub
}

func NewSSEHandler(hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// GET /sse/stream?lesson_id=<uuid>
// Long-lived stream of generation progress for one lesson.
func (h *SSEHandler) Stream(c *gin.Context) {
	lessonID := c.Query("lesson_id")
	if lessonID == "" {
		RespondError(c, http.StatusBadRequest, "missing_lesson_id", fmt.Errorf("lesson_id query param required"))
		return
	}

	client := h.hub.NewSSEClient()
	h.hub.AddChannel(client, lessonID)
	defer h.hub.RemoveClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
