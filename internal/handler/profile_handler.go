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

type profileService interface {
	Privacy(ctx context.Context, actor service.Actor) (models.PrivacySettings, error)
	UpdatePrivacy(ctx context.Context, actor service.Actor, req dto.UpdatePrivacyRequest) (models.PrivacySettings, error)
	ChangePassword(ctx context.Context, actor service.Actor, req dto.ChangePasswordRequest) error
}

// ProfileHandler serves the caller's own account settings.
type ProfileHandler struct {
	profile profileService
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(profile profileService) *ProfileHandler {
	return &ProfileHandler{profile: profile}
}

// Privacy godoc
// @Summary Student privacy settings
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /profile/privacy [get]
func (h *ProfileHandler) Privacy(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	settings, err := h.profile.Privacy(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdatePrivacy godoc
// @Summary Change student profile visibility
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body dto.UpdatePrivacyRequest true "Settings"
// @Success 200 {object} response.Envelope
// @Router /profile/privacy [put]
func (h *ProfileHandler) UpdatePrivacy(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdatePrivacyRequest
	if !bindJSON(c, &req) {
		return
	}
	settings, err := h.profile.UpdatePrivacy(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// ChangePassword godoc
// @Summary Change the caller's password
// @Tags Profile
// @Accept json
// @Param payload body dto.ChangePasswordRequest true "Passwords"
// @Success 204
// @Failure 401 {object} response.Envelope
// @Router /profile/password [put]
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.profile.ChangePassword(c.Request.Context(), actor, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
