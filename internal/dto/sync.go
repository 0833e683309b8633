package dto

import (
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/roster"
)

// SyncStudentsQuery selects the internal class and external course to compare.
type SyncStudentsQuery struct {
	ClassID  int64  `form:"class_id" validate:"required,gt=0"`
	CourseID string `form:"course_id"`
}

// SyncStudentsResponse is the reconciliation result with its counts.
type SyncStudentsResponse struct {
	roster.Result
	CourseID          string `json:"course_id"`
	TotalMatched      int    `json:"total_matched"`
	TotalDBOnly       int    `json:"total_db_only"`
	TotalGCOnly       int    `json:"total_gc_only"`
	TotalInternal     int    `json:"total_internal"`
	TotalExternal     int    `json:"total_external"`
	ClassroomLinked   bool   `json:"classroom_linked"`
	LinkedClassroomID string `json:"linked_classroom_id,omitempty"`
}

// ImportScoresRequest imports one external coursework into a score component.
// CourseID may be omitted when the class is already linked to a course.
type ImportScoresRequest struct {
	ClassID      int64               `json:"class_id" validate:"required,gt=0"`
	CourseID     string              `json:"course_id"`
	CourseworkID string              `json:"coursework_id" validate:"required"`
	ComponentID  int64               `json:"component_id" validate:"required,gt=0"`
	GradePeriod  *models.GradePeriod `json:"grade_period" validate:"omitempty,oneof=midterm final"`
	Topics       []string            `json:"topics" validate:"omitempty,dive,max=100"`
}

// ImportSummary reports what an import did.
type ImportSummary struct {
	MatchedStudents    int    `json:"matched_students"`
	PlaceholderEntries int    `json:"placeholder_entries"`
	TotalEntries       int    `json:"total_entries"`
	SkippedStudents    int    `json:"skipped_students"`
	CreatedEntries     int    `json:"created_entries"`
	UpdatedEntries     int    `json:"updated_entries"`
	CourseworkTitle    string `json:"coursework_title"`
	ComponentID        int64  `json:"component_id"`
	ComponentType      string `json:"component_type"`
}
