package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/lesson-orchestrator/internal/response"
	"github.com/stemsi/lesson-orchestrator/internal/service"
)

// LessonHandler describes the loaded lesson.
type LessonHandler struct {
	lessonService *service.LessonService
}

func NewLessonHandler(lessonService *service.LessonService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService}
}

// Summary godoc
// GET /api/v1/lesson
func (h *LessonHandler) Summary(c *gin.Context) {
	s := h.lessonService.Script()

	quizzes, marks := 0, 0
	for _, step := range s.Steps {
		if step.HasQuiz() {
			quizzes++
		}
		if step.HasPauseMark() {
			marks++
		}
	}

	response.Success(c, http.StatusOK, gin.H{
		"title":       s.Title,
		"video_url":   s.VideoURL,
		"steps":       len(s.Steps),
		"quizzes":     quizzes,
		"pause_marks": marks,
	})
}
