package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/chalkboard-backend/internal/handlers"
)

type RouterConfig struct {
	LessonHandler   *handlers.LessonHandler
	PlaybackHandler *handlers.PlaybackHandler
	SSEHandler      *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// SSE
	router.GET("/sse/stream", cfg.SSEHandler.Stream)

	// Lessons
	api := router.Group("/api")
	{
		api.POST("/lessons", cfg.LessonHandler.CreateLesson)
		api.GET("/lessons", cfg.LessonHandler.ListLessons)
		api.GET("/lessons/:id", cfg.LessonHandler.GetLesson)
		api.GET("/lessons/:id/playback", cfg.PlaybackHandler.Stream)
	}

	return router
}
