package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yungbote/chalkboard-backend/internal/logger"
	"github.com/yungbote/chalkboard-backend/internal/playback"
	"github.com/yungbote/chalkboard-backend/internal/services"
)

type PlaybackHandler struct {
	log       *logger.Logger
	lessonSvc services.LessonService
	cfg       playback.Config
	upgrader  websocket.Upgrader
}

func NewPlaybackHandler(baseLog *logger.Logger, lessonSvc services.LessonService, cfg playback.Config) *PlaybackHandler {
	return &PlaybackHandler{
		log:       baseLog.With("handler", "PlaybackHandler"),
		lessonSvc: lessonSvc,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// CORS policy is enforced by the router middleware; the
			// upgrade itself accepts any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// wsSink serializes writes to the connection: the session goroutine and
// the close path must not interleave frames.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) WriteEvent(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *wsSink) close(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
}

// GET /api/lessons/:id/playback
// Upgrades to a websocket and streams the lesson timeline. A session
// holds no shared state: reconnecting starts a fresh session from the
// first event.
func (h *PlaybackHandler) Stream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lesson_id", fmt.Errorf("invalid lesson id"))
		return
	}

	s, err := h.lessonSvc.GetScript(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrLessonNotFound) {
			RespondError(c, http.StatusNotFound, "lesson_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "script_load_failed", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "lesson_id", id, "error", err)
		return
	}
	defer conn.Close()

	sink := &wsSink{conn: conn}
	session := playback.NewSession(h.log, s, sink, h.cfg)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Read pump: PAUSE/RESUME controls in, disconnect out.
	go func() {
		defer cancel()
		for {
			var ctrl playback.ControlMessage
			if err := conn.ReadJSON(&ctrl); err != nil {
				return
			}
			switch ctrl.Type {
			case playback.ControlPause:
				session.Pause()
			case playback.ControlResume:
				session.Resume()
			default:
				h.log.Debug("Ignoring unknown playback control",
					"session_id", session.ID, "type", ctrl.Type)
			}
		}
	}()

	err = session.Run(ctx)
	switch {
	case err == nil:
		sink.close(websocket.CloseNormalClosure, "lesson complete")
	case errors.Is(err, playback.ErrPauseExpired):
		sink.close(websocket.ClosePolicyViolation, "paused too long")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing left to tell it.
	default:
		h.log.Warn("Playback session ended with error",
			"session_id", session.ID, "lesson_id", id, "error", err)
	}
}
