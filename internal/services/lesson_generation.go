package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/chalkboard-backend/internal/logger"
	"github.com/yungbote/chalkboard-backend/internal/repos"
	"github.com/yungbote/chalkboard-backend/internal/script"
	"github.com/yungbote/chalkboard-backend/internal/sse"
	"github.com/yungbote/chalkboard-backend/internal/types"
)

// ErrInvalidLessonRequest marks enqueue failures the caller can fix;
// anything else from EnqueueLesson is infrastructure.
var ErrInvalidLessonRequest = errors.New("invalid lesson request")

type LessonGenerationService interface {
	EnqueueLesson(ctx context.Context, req EnqueueLessonRequest) (*types.Lesson, *types.LessonGenerationRun, error)
	StartWorker(ctx context.Context)
}

type EnqueueLessonRequest struct {
	Topic         string `json:"topic"`
	GradeLevel    string `json:"grade_level"`
	ChunkCount    int    `json:"chunk_count"`
	PracticeCount int    `json:"practice_count"`
}

type lessonGenerationService struct {
	db  *gorm.DB
	log *logger.Logger

	sseHub *sse.SSEHub

	lessonRepo repos.LessonRepo
	runRepo    repos.LessonGenerationRunRepo

	ai       OpenAIClient
	enricher *script.Enricher
	tts      SpeechSynthesisService
	bucket   BucketService
	cache    ScriptCache
}

func NewLessonGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sseHub *sse.SSEHub,
	lessonRepo repos.LessonRepo,
	runRepo repos.LessonGenerationRunRepo,
	ai OpenAIClient,
	enricher *script.Enricher,
	tts SpeechSynthesisService,
	bucket BucketService,
	cache ScriptCache,
) LessonGenerationService {
	return &lessonGenerationService{
		db:         db,
		log:        baseLog.With("service", "LessonGenerationService"),
		sseHub:     sseHub,
		lessonRepo: lessonRepo,
		runRepo:    runRepo,
		ai:         ai,
		enricher:   enricher,
		tts:        tts,
		bucket:     bucket,
		cache:      cache,
	}
}

func (lgs *lessonGenerationService) EnqueueLesson(ctx context.Context, req EnqueueLessonRequest) (*types.Lesson, *types.LessonGenerationRun, error) {
	if req.Topic == "" {
		return nil, nil, fmt.Errorf("%w: topic required", ErrInvalidLessonRequest)
	}
	if req.GradeLevel == "" {
		return nil, nil, fmt.Errorf("%w: grade_level required", ErrInvalidLessonRequest)
	}
	if req.ChunkCount <= 0 || req.ChunkCount > 12 {
		req.ChunkCount = 5
	}
	if req.PracticeCount < 0 || req.PracticeCount > 10 {
		req.PracticeCount = 4
	}

	var lesson *types.Lesson
	var run *types.LessonGenerationRun

	err := lgs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		lesson = &types.Lesson{
			ID:         uuid.New(),
			Topic:      req.Topic,
			GradeLevel: req.GradeLevel,
			Title:      "Generating lesson…",
			Status:     "generating",
			Metadata:   datatypes.JSON(mustJSON(map[string]any{"status": "generating"})),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if _, err := lgs.lessonRepo.Create(ctx, tx, []*types.Lesson{lesson}); err != nil {
			return fmt.Errorf("create lesson: %w", err)
		}

		run = &types.LessonGenerationRun{
			ID:       uuid.New(),
			LessonID: lesson.ID,
			Status:   "queued",
			Stage:    "generate",
			Progress: 0,
			Attempts: 0,
			Metadata: datatypes.JSON(mustJSON(map[string]any{
				"chunk_count":    req.ChunkCount,
				"practice_count": req.PracticeCount,
			})),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := lgs.runRepo.Create(ctx, tx, []*types.LessonGenerationRun{run}); err != nil {
			return fmt.Errorf("create generation run: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	lgs.broadcast(lesson.ID, sse.SSEEventLessonCreated, map[string]any{"lesson": lesson, "run": run})
	return lesson, run, nil
}

func (lgs *lessonGenerationService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		// Worker policy
		const maxAttempts = 5
		retryDelay := 30 * time.Second
		staleRunning := 2 * time.Minute

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run, err := lgs.runRepo.ClaimNextRunnable(ctx, lgs.db, maxAttempts, retryDelay, staleRunning)
				if err != nil {
					lgs.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if run == nil {
					continue
				}
				lgs.processRun(ctx, run)
			}
		}
	}()
}

func (lgs *lessonGenerationService) processRun(ctx context.Context, run *types.LessonGenerationRun) {
	lessonID := run.LessonID
	runID := run.ID

	fail := func(stage string, err error) {
		now := time.Now()
		_ = lgs.runRepo.UpdateFields(ctx, nil, runID, map[string]any{
			"status":        "failed",
			"stage":         stage,
			"error":         err.Error(),
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
		_ = lgs.lessonRepo.UpdateFields(ctx, nil, lessonID, map[string]any{
			"status":     "failed",
			"updated_at": now,
		})
		lgs.broadcast(lessonID, sse.SSEEventLessonGenerationFailed, map[string]any{
			"run_id": runID,
			"stage":  stage,
			"error":  err.Error(),
		})
	}

	progress := func(stage string, pct int, msg string) {
		now := time.Now()
		_ = lgs.runRepo.UpdateFields(ctx, nil, runID, map[string]any{
			"stage":        stage,
			"progress":     pct,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		lgs.broadcast(lessonID, sse.SSEEventLessonGenerationProgress, map[string]any{
			"run_id":   runID,
			"stage":    stage,
			"progress": pct,
			"message":  msg,
		})
	}

	lessons, err := lgs.lessonRepo.GetByIDs(ctx, nil, []uuid.UUID{lessonID})
	if err != nil || len(lessons) == 0 || lessons[0] == nil {
		fail("generate", fmt.Errorf("load lesson failed: %v", err))
		return
	}
	lesson := lessons[0]

	chunkCount := intFromRunMetadata(run.Metadata, "chunk_count", 5)
	practiceCount := intFromRunMetadata(run.Metadata, "practice_count", 4)

	// Idempotent: a run retried after the persist stage reuses the
	// stored script and only backfills what is missing.
	var lessonScript *script.Script
	if len(lesson.Script) > 0 {
		var stored script.Script
		if err := json.Unmarshal(lesson.Script, &stored); err != nil {
			fail("generate", fmt.Errorf("stored script corrupt: %w", err))
			return
		}
		lessonScript = &stored
		progress("layout", 60, "Reusing persisted script")
		script.SanitizeScript(lessonScript)
	} else {
		// 1) GENERATE
		progress("generate", 10, "Requesting lesson script")
		obj, err := lgs.ai.GenerateJSON(ctx,
			systemPrompt,
			fmt.Sprintf(
				"Topic: %s\nGrade level: %s\n\nWrite a whiteboard lesson script with %d teaching chunks and %d practice items. Set every directive field that does not apply to its type to null.",
				lesson.Topic, lesson.GradeLevel, chunkCount, practiceCount,
			),
			"lesson_script",
			script.LessonScriptSchema(),
		)
		if err != nil {
			fail("generate", err)
			return
		}

		// 2) VALIDATE: schema violations are fatal; no partial script
		// is ever persisted.
		progress("validate", 30, "Validating directive encoding")
		lessonScript, err = script.DecodeGenerated(obj)
		if err != nil {
			fail("validate", err)
			return
		}

		// 3) ENRICH: best-effort; a chunk that cannot be expanded
		// keeps its original narration.
		progress("enrich", 45, "Repairing thin narration")
		for i := range lessonScript.Chunks {
			lgs.enricher.EnrichChunk(ctx, &lessonScript.Chunks[i])
		}

		// 4) LAYOUT: enrichment runs first because synthesized
		// directives still need coordinates.
		progress("layout", 60, "Assigning layout and pacing")
		script.SanitizeScript(lessonScript)
	}

	if lessonScript.Title == "" {
		lessonScript.Title = lesson.Topic
	}
	if lessonScript.GradeLevel == "" {
		lessonScript.GradeLevel = lesson.GradeLevel
	}

	// 5) PERSIST
	progress("persist", 70, "Persisting lesson script")
	if err := lgs.persistScript(ctx, lessonID, lessonScript, "ready"); err != nil {
		fail("persist", fmt.Errorf("persist script: %w", err))
		return
	}

	// 6) AUDIO: per-chunk and non-fatal; playback tolerates a missing
	// audio reference.
	progress("audio", 80, "Synthesizing narration audio")
	if lgs.synthesizeAudio(ctx, lessonID, lessonScript) {
		if err := lgs.persistScript(ctx, lessonID, lessonScript, "ready"); err != nil {
			// The script is already persisted and ready; losing the
			// audio references must not take the lesson down with it.
			lgs.log.Warn("Persisting audio references failed, lesson stays ready without audio",
				"lesson_id", lessonID, "error", err)
		}
	}

	now := time.Now()
	_ = lgs.runRepo.UpdateFields(ctx, nil, runID, map[string]any{
		"status":       "succeeded",
		"stage":        "done",
		"progress":     100,
		"error":        "",
		"locked_at":    nil,
		"heartbeat_at": now,
		"updated_at":   now,
	})

	lgs.broadcast(lessonID, sse.SSEEventLessonGenerationDone, map[string]any{
		"run_id":    runID,
		"lesson_id": lessonID,
	})
}

const systemPrompt = "You write whiteboard lesson scripts for a voice-narrated tutor. " +
	"Each chunk is one narrated teaching step with board directives. " +
	"Directives are WRITE_TEXT, DRAW_FRACTION_BAR or ERASE; emit null for every field that does not belong to the directive's type."

func (lgs *lessonGenerationService) persistScript(ctx context.Context, lessonID uuid.UUID, s *script.Script, status string) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := lgs.lessonRepo.UpdateFields(ctx, nil, lessonID, map[string]any{
		"title":      s.Title,
		"status":     status,
		"script":     datatypes.JSON(raw),
		"updated_at": time.Now(),
	}); err != nil {
		return err
	}
	if lgs.cache != nil {
		lgs.cache.Invalidate(ctx, lessonID)
	}
	return nil
}

// synthesizeAudio backfills audio references for chunks that lack one.
// Reports whether any reference was added.
func (lgs *lessonGenerationService) synthesizeAudio(ctx context.Context, lessonID uuid.UUID, s *script.Script) bool {
	if lgs.tts == nil || lgs.bucket == nil {
		return false
	}

	var added atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i := range s.Chunks {
		chunk := &s.Chunks[i]
		if chunk.AudioRef != "" || chunk.NarrationText == "" {
			continue
		}
		g.Go(func() error {
			audio, err := lgs.tts.SynthesizeNarration(gctx, chunk.NarrationText)
			if err != nil {
				lgs.log.Warn("Audio synthesis failed, persisting chunk without audio reference",
					"lesson_id", lessonID, "chunk_id", chunk.ID, "error", err)
				return nil
			}
			key := fmt.Sprintf("lessons/%s/audio/%s.mp3", lessonID, chunk.ID)
			if err := lgs.bucket.UploadObject(gctx, key, "audio/mpeg", bytes.NewReader(audio)); err != nil {
				lgs.log.Warn("Audio upload failed, persisting chunk without audio reference",
					"lesson_id", lessonID, "chunk_id", chunk.ID, "error", err)
				return nil
			}
			chunk.AudioRef = lgs.bucket.GetPublicURL(key)
			added.Store(true)
			return nil
		})
	}
	_ = g.Wait()
	return added.Load()
}

func (lgs *lessonGenerationService) broadcast(lessonID uuid.UUID, event sse.SSEEvent, data any) {
	lgs.sseHub.Broadcast(sse.SSEMessage{
		Channel: lessonID.String(),
		Event:   event,
		Data:    data,
	})
}

// ---- helpers ----

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func intFromRunMetadata(js datatypes.JSON, key string, def int) int {
	if len(js) == 0 {
		return def
	}
	var m map[string]any
	if err := json.Unmarshal(js, &m); err != nil {
		return def
	}
	switch t := m[key].(type) {
	case float64:
		return int(t)
	case json.Number:
		i, _ := t.Int64()
		return int(i)
	default:
		return def
	}
}
