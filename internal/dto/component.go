package dto

// GradeComponentInput is one component in a create or replace payload.
type GradeComponentInput struct {
	ID               int64   `json:"component_id"`
	Name             string  `json:"component_name" validate:"required,max=100"`
	WeightPercentage float64 `json:"weight_percentage" validate:"gte=0,lte=100"`
	IsAttendance     bool    `json:"is_attendance"`
}

// ReplaceComponentsRequest replaces a department's component template.
type ReplaceComponentsRequest struct {
	Components []GradeComponentInput `json:"components" validate:"dive"`
}

// UpdateComponentRequest edits a single component.
type UpdateComponentRequest struct {
	Name             *string  `json:"component_name" validate:"omitempty,min=1,max=100"`
	WeightPercentage *float64 `json:"weight_percentage" validate:"omitempty,gte=0,lte=100"`
	IsAttendance     *bool    `json:"is_attendance"`
}
