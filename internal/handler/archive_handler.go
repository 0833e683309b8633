package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/service"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
	"github.com/noah-isme/campus-gradebook-api/pkg/response"
)

type archiveService interface {
	List(ctx context.Context, rawType string) ([]models.ArchivedRecord, error)
	Relationships(ctx context.Context, rawType string, id int64) (map[string]int, error)
	Apply(ctx context.Context, actor service.Actor, req dto.ArchiveActionRequest) (*dto.ArchiveActionResponse, error)
}

// ArchiveHandler exposes the admin archive endpoints.
type ArchiveHandler struct {
	service archiveService
}

// NewArchiveHandler constructs the handler.
func NewArchiveHandler(service archiveService) *ArchiveHandler {
	return &ArchiveHandler{service: service}
}

// List godoc
// @Summary List archived records
// @Tags Archive
// @Produce json
// @Param type query string false "Entity type"
// @Success 200 {object} response.Envelope
// @Router /archive [get]
func (h *ArchiveHandler) List(c *gin.Context) {
	var query dto.ArchiveListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	records, err := h.service.List(c.Request.Context(), query.Type)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Relationships godoc
// @Summary Count records depending on an archived record
// @Tags Archive
// @Produce json
// @Param type query string true "Entity type"
// @Param id query int true "Record id"
// @Success 200 {object} response.Envelope
// @Router /archive/relationships [get]
func (h *ArchiveHandler) Relationships(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Query("id"), 10, 64)
	counts, err := h.service.Relationships(c.Request.Context(), c.Query("type"), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// Apply godoc
// @Summary Archive, restore or permanently delete a record
// @Tags Archive
// @Accept json
// @Produce json
// @Param payload body dto.ArchiveActionRequest true "Action"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /archive [post]
func (h *ArchiveHandler) Apply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ArchiveActionRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Apply(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
