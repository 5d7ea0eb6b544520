package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/chalkboard-backend/internal/services"
)

type LessonHandler struct {
	lessonSvc services.LessonService
	genSvc    services.LessonGenerationService
}

func NewLessonHandler(lessonSvc services.LessonService, genSvc services.LessonGenerationService) *LessonHandler {
	return &LessonHandler{lessonSvc: lessonSvc, genSvc: genSvc}
}

// POST /api/lessons
// Creates the lesson row immediately and generates the script in the
// background; clients follow progress over /sse/stream.
func (h *LessonHandler) CreateLesson(c *gin.Context) {
	var req services.EnqueueLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	lesson, run, err := h.genSvc.EnqueueLesson(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidLessonRequest) {
			RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"lesson": lesson,
		"run":    run,
	})
}

// GET /api/lessons
func (h *LessonHandler) ListLessons(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	lessons, err := h.lessonSvc.ListLessons(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"lessons": lessons})
}

// GET /api/lessons/:id
func (h *LessonHandler) GetLesson(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lesson_id", fmt.Errorf("invalid lesson id"))
		return
	}

	lesson, err := h.lessonSvc.GetLesson(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrLessonNotFound) {
			RespondError(c, http.StatusNotFound, "lesson_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}

	resp := gin.H{"lesson": lesson}
	if lesson.Status != "ready" {
		if run, err := h.lessonSvc.GetLatestRun(c.Request.Context(), id); err == nil && run != nil {
			resp["run"] = run
		}
	}
	RespondOK(c, resp)
}
