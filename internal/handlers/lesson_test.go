package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/chalkboard-backend/internal/services"
	"github.com/yungbote/chalkboard-backend/internal/types"
)

type fakeGenService struct {
	err error
}

func (f *fakeGenService) EnqueueLesson(ctx context.Context, req services.EnqueueLessonRequest) (*types.Lesson, *types.LessonGenerationRun, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return &types.Lesson{}, &types.LessonGenerationRun{}, nil
}

func (f *fakeGenService) StartWorker(ctx context.Context) {}

var _ services.LessonGenerationService = (*fakeGenService)(nil)

func postLessons(t *testing.T, gen services.LessonGenerationService) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	h := NewLessonHandler(nil, gen)
	router.POST("/api/lessons", h.CreateLesson)

	body := strings.NewReader(`{"topic":"Fractions","grade_level":"4th grade"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/lessons", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateLessonValidationErrorIs400(t *testing.T) {
	gen := &fakeGenService{err: fmt.Errorf("%w: topic required", services.ErrInvalidLessonRequest)}
	w := postLessons(t, gen)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCreateLessonInfrastructureErrorIs500(t *testing.T) {
	gen := &fakeGenService{err: errors.New("connection refused")}
	w := postLessons(t, gen)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestCreateLessonAccepted(t *testing.T) {
	w := postLessons(t, &fakeGenService{})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
}
