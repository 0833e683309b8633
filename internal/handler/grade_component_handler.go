package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/service"
	"github.com/noah-isme/campus-gradebook-api/pkg/response"
)

type gradeComponentService interface {
	ListByDepartment(ctx context.Context, departmentID int64) ([]models.GradeComponent, error)
	ReplaceDepartmentComponents(ctx context.Context, actor service.Actor, departmentID int64, req dto.ReplaceComponentsRequest) ([]models.GradeComponent, error)
	CreateDepartmentComponent(ctx context.Context, actor service.Actor, departmentID int64, req dto.GradeComponentInput) (*models.GradeComponent, error)
	UpdateComponent(ctx context.Context, actor service.Actor, id int64, req dto.UpdateComponentRequest) (*models.GradeComponent, error)
	DeleteComponent(ctx context.Context, actor service.Actor, id int64) error
}

// GradeComponentHandler exposes grade component endpoints.
type GradeComponentHandler struct {
	components gradeComponentService
}

// NewGradeComponentHandler constructs handler.
func NewGradeComponentHandler(components gradeComponentService) *GradeComponentHandler {
	return &GradeComponentHandler{components: components}
}

// List godoc
// @Summary List a department's grade components
// @Tags Grade Components
// @Produce json
// @Param id path int true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /departments/{id}/grade-components [get]
func (h *GradeComponentHandler) List(c *gin.Context) {
	departmentID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	components, err := h.components.ListByDepartment(c.Request.Context(), departmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, components, nil)
}

// Replace godoc
// @Summary Replace a department's grade components
// @Description Weights must add up to 100.
// @Tags Grade Components
// @Accept json
// @Produce json
// @Param id path int true "Department ID"
// @Param payload body dto.ReplaceComponentsRequest true "Components"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /departments/{id}/grade-components [put]
func (h *GradeComponentHandler) Replace(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	departmentID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.ReplaceComponentsRequest
	if !bindJSON(c, &req) {
		return
	}
	components, err := h.components.ReplaceDepartmentComponents(c.Request.Context(), actor, departmentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, components, nil)
}

// Create godoc
// @Summary Add a grade component to a department
// @Tags Grade Components
// @Accept json
// @Produce json
// @Param id path int true "Department ID"
// @Param payload body dto.GradeComponentInput true "Component payload"
// @Success 201 {object} response.Envelope
// @Router /departments/{id}/grade-components [post]
func (h *GradeComponentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	departmentID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.GradeComponentInput
	if !bindJSON(c, &req) {
		return
	}
	component, err := h.components.CreateDepartmentComponent(c.Request.Context(), actor, departmentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, component)
}

// Update godoc
// @Summary Update a grade component
// @Tags Grade Components
// @Accept json
// @Produce json
// @Param id path int true "Component ID"
// @Param payload body dto.UpdateComponentRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /grade-components/{id} [put]
func (h *GradeComponentHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateComponentRequest
	if !bindJSON(c, &req) {
		return
	}
	component, err := h.components.UpdateComponent(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, component, nil)
}

// Delete godoc
// @Summary Delete a grade component without entries
// @Tags Grade Components
// @Param id path int true "Component ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /grade-components/{id} [delete]
func (h *GradeComponentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.components.DeleteComponent(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
