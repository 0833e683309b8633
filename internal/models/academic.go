package models

import "time"

// RecordStatus is the soft-archive flag shared by curriculum tables.
type RecordStatus string

const (
	StatusActive   RecordStatus = "active"
	StatusInactive RecordStatus = "inactive"
)

// Class binds a subject, a section and a professor. ClassroomCourseID links it
// to an external classroom course when the professor has connected one.
type Class struct {
	ID                int64        `db:"class_id" json:"class_id"`
	Name              string       `db:"class_name" json:"class_name"`
	SubjectID         int64        `db:"subject_id" json:"subject_id"`
	SectionID         int64        `db:"section_id" json:"section_id"`
	ProfessorID       int64        `db:"prof_id" json:"prof_id"`
	DepartmentID      int64        `db:"department_id" json:"department_id"`
	SubjectCode       string       `db:"subject_code" json:"subject_code"`
	SubjectName       string       `db:"subject_name" json:"subject_name"`
	Units             float64      `db:"units" json:"units"`
	Status            RecordStatus `db:"status" json:"status"`
	ClassroomCourseID *string      `db:"classroom_course_id" json:"classroom_course_id,omitempty"`
}

// Student is an enrolled learner. Email comes from the linked account.
type Student struct {
	ID              int64        `db:"student_id" json:"student_id"`
	AccountID       int64        `db:"account_id" json:"account_id"`
	SectionID       *int64       `db:"section_id" json:"section_id,omitempty"`
	FirstName       string       `db:"first_name" json:"first_name"`
	MiddleName      *string      `db:"middle_name" json:"middle_name,omitempty"`
	LastName        string       `db:"last_name" json:"last_name"`
	Email           string       `db:"email" json:"email"`
	PrivacySettings JSONB        `db:"privacy_settings" json:"-"`
	Status          RecordStatus `db:"status" json:"status"`
}

// DisplayName renders "Last, First" as used across gradebook views.
func (s Student) DisplayName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.LastName + ", " + s.FirstName
}

// ArchivedRecord is a generic row returned by archive listings.
type ArchivedRecord struct {
	ID         int64      `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Detail     *string    `db:"detail" json:"detail,omitempty"`
	Status     string     `db:"status" json:"status"`
	ArchivedAt *time.Time `db:"updated_at" json:"archived_at,omitempty"`
	EntityType string     `db:"-" json:"type"`
}
