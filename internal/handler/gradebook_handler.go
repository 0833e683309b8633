package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/gradebook"
	"github.com/noah-isme/campus-gradebook-api/internal/middleware"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/service"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
	"github.com/noah-isme/campus-gradebook-api/pkg/export"
	"github.com/noah-isme/campus-gradebook-api/pkg/response"
)

type gradebookService interface {
	Summary(ctx context.Context, actor service.Actor, classID int64, rawPeriod string) (*dto.GradebookSummary, bool, error)
	StudentReport(ctx context.Context, actor service.Actor) (*dto.StudentReport, error)
	Export(ctx context.Context, actor service.Actor, classID int64, query dto.GradebookQuery) (*export.Document, error)
	Preferences(ctx context.Context, actor service.Actor, classID int64) (models.GradebookPreferences, error)
	SavePreferences(ctx context.Context, actor service.Actor, classID int64, patch gradebook.PreferencePatch) (models.GradebookPreferences, error)
}

type activityLister interface {
	List(ctx context.Context, actor service.Actor, classID int64, limit int) ([]models.ActivityLog, error)
}

// GradebookHandler serves computed gradebooks, exports, layout preferences
// and class activity.
type GradebookHandler struct {
	gradebook gradebookService
	activity  activityLister
}

// NewGradebookHandler constructs the handler.
func NewGradebookHandler(gradebook gradebookService, activity activityLister) *GradebookHandler {
	return &GradebookHandler{gradebook: gradebook, activity: activity}
}

// Summary godoc
// @Summary Class gradebook with final grades
// @Tags Gradebook
// @Produce json
// @Param id path int true "Class ID"
// @Param period query string false "midterm or final"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/gradebook [get]
func (h *GradebookHandler) Summary(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	summary, hit, err := h.gradebook.Summary(c.Request.Context(), actor, classID, c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the class gradebook
// @Tags Gradebook
// @Produce text/csv
// @Produce application/pdf
// @Param id path int true "Class ID"
// @Param period query string false "midterm or final"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /classes/{id}/gradebook/export [get]
func (h *GradebookHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var query dto.GradebookQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	doc, err := h.gradebook.Export(c.Request.Context(), actor, classID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Body)
}

// Preferences godoc
// @Summary Caller's gradebook layout for a class
// @Tags Gradebook
// @Produce json
// @Param id path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/preferences [get]
func (h *GradebookHandler) Preferences(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	prefs, err := h.gradebook.Preferences(c.Request.Context(), actor, classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}

// SavePreferences godoc
// @Summary Update the caller's gradebook layout for a class
// @Tags Gradebook
// @Accept json
// @Produce json
// @Param id path int true "Class ID"
// @Param payload body gradebook.PreferencePatch true "Preferences"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/preferences [put]
func (h *GradebookHandler) SavePreferences(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var patch gradebook.PreferencePatch
	if !bindJSON(c, &patch) {
		return
	}
	prefs, err := h.gradebook.SavePreferences(c.Request.Context(), actor, classID, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}

// Activity godoc
// @Summary Recent gradebook activity of a class
// @Tags Gradebook
// @Produce json
// @Param id path int true "Class ID"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/activity [get]
func (h *GradebookHandler) Activity(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive number"))
			return
		}
		limit = parsed
	}
	logs, err := h.activity.List(c.Request.Context(), actor, classID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// StudentGrades godoc
// @Summary Signed-in student's grades across classes
// @Tags Gradebook
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/grades [get]
func (h *GradebookHandler) StudentGrades(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	report, err := h.gradebook.StudentReport(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
