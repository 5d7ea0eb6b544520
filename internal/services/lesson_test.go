package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/chalkboard-backend/internal/script"
	"github.com/yungbote/chalkboard-backend/internal/types"
)

func seedReadyLesson(t *testing.T, repo *fakeLessonRepo) (*types.Lesson, *script.Script) {
	t.Helper()
	s := &script.Script{
		Title:      "Understanding Fractions",
		GradeLevel: "4th grade",
		Chunks: []script.Chunk{{
			ID:            "chunk-1",
			Title:         "Intro",
			NarrationText: "Fractions show parts of a whole.",
			Directives:    script.DirectiveList{script.WriteText{Text: "Intro"}},
		}},
	}
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal script: %v", err)
	}
	lesson := &types.Lesson{
		ID:         uuid.New(),
		Topic:      "Understanding Fractions",
		GradeLevel: "4th grade",
		Title:      "Understanding Fractions",
		Status:     "ready",
		Script:     datatypes.JSON(raw),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if _, err := repo.Create(context.Background(), nil, []*types.Lesson{lesson}); err != nil {
		t.Fatalf("seed lesson: %v", err)
	}
	return lesson, s
}

func TestGetScriptCachesOnMiss(t *testing.T) {
	log := testLogger(t)
	repo := newFakeLessonRepo()
	runRepo := newFakeRunRepo()
	cache := &fakeScriptCache{}
	lesson, want := seedReadyLesson(t, repo)

	svc := NewLessonService(log, repo, runRepo, cache)

	got, err := svc.GetScript(context.Background(), lesson.ID)
	if err != nil {
		t.Fatalf("GetScript: %v", err)
	}
	if got.Title != want.Title || len(got.Chunks) != 1 {
		t.Fatalf("GetScript returned unexpected script: %+v", got)
	}

	if _, ok := cache.Get(context.Background(), lesson.ID); !ok {
		t.Fatal("script not cached after DB read")
	}

	// Second read must come from the cache even if the row vanishes.
	repo.mu.Lock()
	delete(repo.lessons, lesson.ID)
	repo.mu.Unlock()

	if _, err := svc.GetScript(context.Background(), lesson.ID); err != nil {
		t.Fatalf("GetScript from cache: %v", err)
	}
}

func TestGetScriptNotReadyLesson(t *testing.T) {
	log := testLogger(t)
	repo := newFakeLessonRepo()
	runRepo := newFakeRunRepo()
	lesson := &types.Lesson{
		ID:        uuid.New(),
		Topic:     "Understanding Fractions",
		Status:    "generating",
		CreatedAt: time.Now(),
	}
	if _, err := repo.Create(context.Background(), nil, []*types.Lesson{lesson}); err != nil {
		t.Fatalf("seed lesson: %v", err)
	}

	svc := NewLessonService(log, repo, runRepo, nil)

	if _, err := svc.GetScript(context.Background(), lesson.ID); !errors.Is(err, ErrLessonNotFound) {
		t.Fatalf("GetScript on generating lesson = %v, want ErrLessonNotFound", err)
	}
	if _, err := svc.GetScript(context.Background(), uuid.New()); !errors.Is(err, ErrLessonNotFound) {
		t.Fatalf("GetScript on unknown id = %v, want ErrLessonNotFound", err)
	}
}
