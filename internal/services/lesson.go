package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/chalkboard-backend/internal/logger"
	"github.com/yungbote/chalkboard-backend/internal/repos"
	"github.com/yungbote/chalkboard-backend/internal/script"
	"github.com/yungbote/chalkboard-backend/internal/types"
)

// ErrLessonNotFound covers lessons that are missing, soft deleted, or
// not yet ready. Callers treat all three the same way.
var ErrLessonNotFound = errors.New("lesson not found")

type LessonService interface {
	GetLesson(ctx context.Context, id uuid.UUID) (*types.Lesson, error)
	GetLatestRun(ctx context.Context, lessonID uuid.UUID) (*types.LessonGenerationRun, error)
	ListLessons(ctx context.Context, limit int) ([]*types.Lesson, error)
	GetScript(ctx context.Context, lessonID uuid.UUID) (*script.Script, error)
}

type lessonService struct {
	log        *logger.Logger
	lessonRepo repos.LessonRepo
	runRepo    repos.LessonGenerationRunRepo
	cache      ScriptCache
}

func NewLessonService(baseLog *logger.Logger, lessonRepo repos.LessonRepo, runRepo repos.LessonGenerationRunRepo, cache ScriptCache) LessonService {
	return &lessonService{
		log:        baseLog.With("service", "LessonService"),
		lessonRepo: lessonRepo,
		runRepo:    runRepo,
		cache:      cache,
	}
}

func (ls *lessonService) GetLesson(ctx context.Context, id uuid.UUID) (*types.Lesson, error) {
	lessons, err := ls.lessonRepo.GetByIDs(ctx, nil, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(lessons) == 0 || lessons[0] == nil {
		return nil, ErrLessonNotFound
	}
	return lessons[0], nil
}

// GetLatestRun reports generation progress for a lesson; nil when the
// lesson has never been enqueued.
func (ls *lessonService) GetLatestRun(ctx context.Context, lessonID uuid.UUID) (*types.LessonGenerationRun, error) {
	return ls.runRepo.GetLatestByLessonID(ctx, nil, lessonID)
}

func (ls *lessonService) ListLessons(ctx context.Context, limit int) ([]*types.Lesson, error) {
	return ls.lessonRepo.List(ctx, nil, limit)
}

// GetScript serves the playback path: cache first, postgres on a miss.
// Only a ready lesson has a script worth streaming.
func (ls *lessonService) GetScript(ctx context.Context, lessonID uuid.UUID) (*script.Script, error) {
	if ls.cache != nil {
		if s, ok := ls.cache.Get(ctx, lessonID); ok {
			return s, nil
		}
	}

	lesson, err := ls.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Status != "ready" || len(lesson.Script) == 0 {
		return nil, ErrLessonNotFound
	}

	var s script.Script
	if err := json.Unmarshal(lesson.Script, &s); err != nil {
		return nil, fmt.Errorf("stored script corrupt: %w", err)
	}

	if ls.cache != nil {
		ls.cache.Set(ctx, lessonID, &s)
	}
	return &s, nil
}
