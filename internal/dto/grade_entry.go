package dto

import "github.com/noah-isme/campus-gradebook-api/internal/models"

// DateLayout is the wire format of grade entry dates.
const DateLayout = "2006-01-02"

// EntryGroupRequest identifies the entries sharing class, component, name and date.
type EntryGroupRequest struct {
	ClassID      int64  `json:"class_id" validate:"required,gt=0"`
	ComponentID  int64  `json:"component_id" validate:"required,gt=0"`
	Name         string `json:"name" validate:"required,max=200"`
	DateRecorded string `json:"date_recorded" validate:"required,datetime=2006-01-02"`
}

// CreateEntryGroupRequest creates one entry per student. An empty StudentIDs
// list targets every student of the class.
type CreateEntryGroupRequest struct {
	ClassID      int64                    `json:"class_id" validate:"required,gt=0"`
	ComponentID  int64                    `json:"component_id" validate:"required,gt=0"`
	StudentIDs   []int64                  `json:"student_ids" validate:"omitempty,dive,gt=0"`
	Name         string                   `json:"name" validate:"required,max=200"`
	DateRecorded string                   `json:"date_recorded" validate:"required,datetime=2006-01-02"`
	GradePeriod  *models.GradePeriod      `json:"grade_period" validate:"omitempty,oneof=midterm final"`
	MaxScore     *float64                 `json:"max_score" validate:"omitempty,gt=0"`
	Attendance   *models.AttendanceStatus `json:"attendance" validate:"omitempty,oneof=present late absent"`
	Topics       []string                 `json:"topics" validate:"omitempty,dive,max=100"`
}

// UpdateEntryHeaderRequest renames, re-dates or rescales a whole entry group.
type UpdateEntryHeaderRequest struct {
	EntryGroupRequest
	NewName         *string   `json:"new_name" validate:"omitempty,min=1,max=200"`
	NewDateRecorded *string   `json:"new_date_recorded" validate:"omitempty,datetime=2006-01-02"`
	MaxScore        *float64  `json:"max_score" validate:"omitempty,gt=0"`
	Topics          *[]string `json:"topics"`
}

// UpdateScoreRequest sets or clears one score.
type UpdateScoreRequest struct {
	Score *float64 `json:"score" validate:"omitempty,gte=0"`
}

// UpdateAttendanceRequest sets or clears one attendance status.
type UpdateAttendanceRequest struct {
	Attendance *models.AttendanceStatus `json:"attendance" validate:"omitempty,oneof=present late absent"`
}

// MarkChange is one buffered edit. Score applies to score components and, as
// 10/5/0 points, to attendance components; Attendance applies only to the latter.
type MarkChange struct {
	EntryID    int64                    `json:"entry_id" validate:"required,gt=0"`
	Score      *float64                 `json:"score" validate:"omitempty,gte=0"`
	Attendance *models.AttendanceStatus `json:"attendance" validate:"omitempty,oneof=present late absent"`
}

// SaveChangesRequest commits a batch of buffered edits for one class.
type SaveChangesRequest struct {
	ClassID int64        `json:"class_id" validate:"required,gt=0"`
	Changes []MarkChange `json:"changes" validate:"required,min=1,dive"`
}

// GradeEntryListQuery captures list filters.
type GradeEntryListQuery struct {
	Period      string `form:"period"`
	ComponentID *int64 `form:"component_id"`
	StudentID   *int64 `form:"student_id"`
}
