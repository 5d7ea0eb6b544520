package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/chalkboard-backend/internal/db"
	"github.com/yungbote/chalkboard-backend/internal/handlers"
	"github.com/yungbote/chalkboard-backend/internal/logger"
	"github.com/yungbote/chalkboard-backend/internal/playback"
	"github.com/yungbote/chalkboard-backend/internal/repos"
	"github.com/yungbote/chalkboard-backend/internal/script"
	"github.com/yungbote/chalkboard-backend/internal/server"
	"github.com/yungbote/chalkboard-backend/internal/services"
	"github.com/yungbote/chalkboard-backend/internal/sse"
	"github.com/yungbote/chalkboard-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	eventDelayMS := utils.GetEnvAsInt("PLAYBACK_EVENT_DELAY_MS", 1500, log)
	includePractice := utils.GetEnvAsBool("PLAYBACK_INCLUDE_PRACTICE", true, log)
	maxPauseSeconds := utils.GetEnvAsInt("PLAYBACK_MAX_PAUSE_SECONDS", 0, log)
	narrationWordFloor := utils.GetEnvAsInt("NARRATION_WORD_FLOOR", script.DefaultNarrationWordFloor, log)
	narrationWordCeiling := utils.GetEnvAsInt("NARRATION_WORD_CEILING", script.DefaultNarrationWordCeiling, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	lessonRepo := repos.NewLessonRepo(thePG, log)
	lessonGenRunRepo := repos.NewLessonGenerationRunRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)

	// Services
	log.Info("Setting up Services from main...")
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService; lessons will play without audio", "error", err)
	}
	speechService, err := services.NewSpeechSynthesisService(log)
	if err != nil {
		log.Warn("Could not init SpeechSynthesisService; lessons will play without audio", "error", err)
	}
	var scriptCache services.ScriptCache
	if os.Getenv("REDIS_ADDR") != "" {
		scriptCache, err = services.NewScriptCache(log)
		if err != nil {
			log.Warn("Could not init ScriptCache; playback reads go straight to postgres", "error", err)
			scriptCache = nil
		}
	}

	enricher := script.NewEnricher(log, openaiClient, narrationWordFloor, narrationWordCeiling)
	lessonGenService := services.NewLessonGenerationService(
		thePG,
		log,
		sseHub,
		lessonRepo,
		lessonGenRunRepo,
		openaiClient,
		enricher,
		speechService,
		bucketService,
		scriptCache,
	)
	lessonGenService.StartWorker(context.Background())
	lessonService := services.NewLessonService(log, lessonRepo, lessonGenRunRepo, scriptCache)

	// Handlers
	log.Info("Setting up handlers from main...")
	playbackCfg := playback.Config{
		EventDelay:      time.Duration(eventDelayMS) * time.Millisecond,
		IncludePractice: includePractice,
		MaxPause:        time.Duration(maxPauseSeconds) * time.Second,
	}
	lessonHandler := handlers.NewLessonHandler(lessonService, lessonGenService)
	playbackHandler := handlers.NewPlaybackHandler(log, lessonService, playbackCfg)
	sseHandler := handlers.NewSSEHandler(sseHub)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		LessonHandler:   lessonHandler,
		PlaybackHandler: playbackHandler,
		SSEHandler:      sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
