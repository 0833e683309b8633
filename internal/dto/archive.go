package dto

import "github.com/noah-isme/campus-gradebook-api/internal/models"

// ArchiveActionRequest applies a lifecycle transition to one record.
type ArchiveActionRequest struct {
	Type   models.ArchiveEntity `json:"type" validate:"required"`
	ID     int64                `json:"id" validate:"required,gt=0"`
	Action models.ArchiveAction `json:"action" validate:"required,oneof=archive restore permanent_delete"`
}

// ArchiveListQuery narrows a listing to one entity type.
type ArchiveListQuery struct {
	Type string `form:"type"`
}

// ArchiveActionResponse confirms an applied transition.
type ArchiveActionResponse struct {
	Type    models.ArchiveEntity `json:"type"`
	ID      int64                `json:"id"`
	Action  models.ArchiveAction `json:"action"`
	Message string               `json:"message"`
}
