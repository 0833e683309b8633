package dto

import "github.com/noah-isme/campus-gradebook-api/internal/models"

// UpdatePrivacyRequest changes a student's profile visibility.
type UpdatePrivacyRequest struct {
	ProfileVisibility models.ProfileVisibility `json:"profileVisibility" validate:"required,oneof=public private"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}
