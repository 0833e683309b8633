package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-gradebook-api/internal/classroom"
	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/middleware"
	"github.com/noah-isme/campus-gradebook-api/internal/service"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
	"github.com/noah-isme/campus-gradebook-api/pkg/response"
)

type syncService interface {
	ListCourses(ctx context.Context, token string) ([]classroom.Course, error)
	ListCoursework(ctx context.Context, token, courseID string) ([]classroom.Coursework, error)
	PreviewRoster(ctx context.Context, actor service.Actor, token string, query dto.SyncStudentsQuery) (*dto.SyncStudentsResponse, error)
	ImportScores(ctx context.Context, actor service.Actor, token string, req dto.ImportScoresRequest) (*dto.ImportSummary, error)
}

// SyncHandler exposes the Google Classroom roster and score import endpoints.
// Every route expects middleware.ClassroomToken ahead of it.
type SyncHandler struct {
	sync syncService
}

// NewSyncHandler constructs the handler.
func NewSyncHandler(sync syncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Courses godoc
// @Summary List the caller's Google Classroom courses
// @Tags Classroom
// @Produce json
// @Param X-Classroom-Token header string true "Google access token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /classroom/courses [get]
func (h *SyncHandler) Courses(c *gin.Context) {
	courses, err := h.sync.ListCourses(c.Request.Context(), middleware.ClassroomTokenFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Coursework godoc
// @Summary List the coursework of a Google Classroom course
// @Tags Classroom
// @Produce json
// @Param X-Classroom-Token header string true "Google access token"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /classroom/courses/{courseId}/coursework [get]
func (h *SyncHandler) Coursework(c *gin.Context) {
	items, err := h.sync.ListCoursework(c.Request.Context(), middleware.ClassroomTokenFrom(c), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Students godoc
// @Summary Compare a class roster with a Google Classroom course
// @Tags Classroom
// @Produce json
// @Param X-Classroom-Token header string true "Google access token"
// @Param class_id query int true "Class ID"
// @Param course_id query string false "Course ID, defaults to the linked course"
// @Success 200 {object} response.Envelope
// @Router /sync-students [get]
func (h *SyncHandler) Students(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.SyncStudentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class_id is required"))
		return
	}
	result, err := h.sync.PreviewRoster(c.Request.Context(), actor, middleware.ClassroomTokenFrom(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Scores godoc
// @Summary Import a coursework's scores into a grade component
// @Tags Classroom
// @Accept json
// @Produce json
// @Param X-Classroom-Token header string true "Google access token"
// @Param payload body dto.ImportScoresRequest true "Import"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /sync-scores [post]
func (h *SyncHandler) Scores(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ImportScoresRequest
	if !bindJSON(c, &req) {
		return
	}
	summary, err := h.sync.ImportScores(c.Request.Context(), actor, middleware.ClassroomTokenFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
