package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/gradebook"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/service"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
	"github.com/noah-isme/campus-gradebook-api/pkg/response"
)

type gradeEntryService interface {
	ListEntries(ctx context.Context, actor service.Actor, classID int64, query dto.GradeEntryListQuery) ([]models.GradeEntry, error)
	CreateEntryGroup(ctx context.Context, actor service.Actor, req dto.CreateEntryGroupRequest) ([]models.GradeEntry, error)
	UpdateEntryHeader(ctx context.Context, actor service.Actor, req dto.UpdateEntryHeaderRequest) (int64, error)
	DeleteEntryGroup(ctx context.Context, actor service.Actor, req dto.EntryGroupRequest) (int64, error)
	UpdateEntryScore(ctx context.Context, actor service.Actor, entryID int64, score *float64) (*models.GradeEntry, error)
	UpdateEntryAttendance(ctx context.Context, actor service.Actor, entryID int64, status *models.AttendanceStatus) (*models.GradeEntry, error)
	SaveChanges(ctx context.Context, actor service.Actor, req dto.SaveChangesRequest) (gradebook.SaveReport, error)
}

// GradeEntryHandler exposes grade entry endpoints.
type GradeEntryHandler struct {
	entries gradeEntryService
}

// NewGradeEntryHandler constructs the handler.
func NewGradeEntryHandler(entries gradeEntryService) *GradeEntryHandler {
	return &GradeEntryHandler{entries: entries}
}

// List godoc
// @Summary List grade entries of a class
// @Tags Grade Entries
// @Produce json
// @Param id path int true "Class ID"
// @Param period query string false "midterm or final"
// @Param component_id query int false "Component filter"
// @Param student_id query int false "Student filter"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/grade-entries [get]
func (h *GradeEntryHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var query dto.GradeEntryListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	entries, err := h.entries.ListEntries(c.Request.Context(), actor, classID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Create godoc
// @Summary Create a grade entry for every targeted student
// @Tags Grade Entries
// @Accept json
// @Produce json
// @Param payload body dto.CreateEntryGroupRequest true "Entry group"
// @Success 201 {object} response.Envelope
// @Router /grade-entries [post]
func (h *GradeEntryHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateEntryGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	entries, err := h.entries.CreateEntryGroup(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entries)
}

// UpdateHeader godoc
// @Summary Rename, re-date or rescale an entry group
// @Tags Grade Entries
// @Accept json
// @Produce json
// @Param payload body dto.UpdateEntryHeaderRequest true "Header changes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grade-entries [put]
func (h *GradeEntryHandler) UpdateHeader(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateEntryHeaderRequest
	if !bindJSON(c, &req) {
		return
	}
	affected, err := h.entries.UpdateEntryHeader(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": affected}, nil)
}

// DeleteGroup godoc
// @Summary Delete an entry group
// @Tags Grade Entries
// @Accept json
// @Produce json
// @Param payload body dto.EntryGroupRequest true "Entry group"
// @Success 200 {object} response.Envelope
// @Router /grade-entries [delete]
func (h *GradeEntryHandler) DeleteGroup(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.EntryGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	affected, err := h.entries.DeleteEntryGroup(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": affected}, nil)
}

// UpdateScore godoc
// @Summary Set or clear one score
// @Tags Grade Entries
// @Accept json
// @Produce json
// @Param id path int true "Entry ID"
// @Param payload body dto.UpdateScoreRequest true "Score"
// @Success 200 {object} response.Envelope
// @Router /grade-entries/{id}/score [put]
func (h *GradeEntryHandler) UpdateScore(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	entryID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateScoreRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.entries.UpdateEntryScore(c.Request.Context(), actor, entryID, req.Score)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// UpdateAttendance godoc
// @Summary Set or clear one attendance status
// @Tags Grade Entries
// @Accept json
// @Produce json
// @Param id path int true "Entry ID"
// @Param payload body dto.UpdateAttendanceRequest true "Attendance"
// @Success 200 {object} response.Envelope
// @Router /grade-entries/{id}/attendance [put]
func (h *GradeEntryHandler) UpdateAttendance(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	entryID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Attendance != nil && !req.Attendance.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "attendance must be present, late or absent"))
		return
	}
	entry, err := h.entries.UpdateEntryAttendance(c.Request.Context(), actor, entryID, req.Attendance)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// SaveBatch godoc
// @Summary Save buffered gradebook edits
// @Description Items are saved independently; the report lists each outcome.
// @Tags Grade Entries
// @Accept json
// @Produce json
// @Param payload body dto.SaveChangesRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /grade-entries/batch [put]
func (h *GradeEntryHandler) SaveBatch(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SaveChangesRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.entries.SaveChanges(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
