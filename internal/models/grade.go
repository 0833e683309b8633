package models

import (
	"time"

	"github.com/lib/pq"
)

// GradePeriod labels which term view an entry belongs to.
type GradePeriod string

const (
	GradePeriodMidterm GradePeriod = "midterm"
	GradePeriodFinal   GradePeriod = "final"
)

// Valid reports whether p is a known period.
func (p GradePeriod) Valid() bool {
	return p == GradePeriodMidterm || p == GradePeriodFinal
}

// AttendanceStatus is the recorded presence of a student on one day.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// Valid reports whether s is a known attendance status.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceLate, AttendanceAbsent:
		return true
	}
	return false
}

// EntryType records the provenance of a grade entry.
type EntryType string

const (
	EntryTypeManual   EntryType = "manual entry"
	EntryTypeImported EntryType = "imported from external classroom"
)

// GradeComponent is a weighted slice of the final grade. Components owned by a
// department act as templates; class-owned components are instances.
type GradeComponent struct {
	ID               int64     `db:"component_id" json:"component_id"`
	DepartmentID     *int64    `db:"department_id" json:"department_id,omitempty"`
	ClassID          *int64    `db:"class_id" json:"class_id,omitempty"`
	Name             string    `db:"component_name" json:"component_name"`
	WeightPercentage float64   `db:"weight_percentage" json:"weight_percentage"`
	IsAttendance     bool      `db:"is_attendance" json:"is_attendance"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// GradeEntry is one student's mark for one named assessment. Exactly one of
// Score/MaxScore or Attendance is meaningful, chosen by the owning component.
type GradeEntry struct {
	ID           int64             `db:"grade_id" json:"grade_id"`
	StudentID    int64             `db:"student_id" json:"student_id"`
	ComponentID  int64             `db:"component_id" json:"component_id"`
	ClassID      int64             `db:"class_id" json:"class_id"`
	Name         string            `db:"name" json:"name"`
	DateRecorded time.Time         `db:"date_recorded" json:"date_recorded"`
	GradePeriod  *GradePeriod      `db:"grade_period" json:"grade_period"`
	Score        *float64          `db:"score" json:"score"`
	MaxScore     *float64          `db:"max_score" json:"max_score"`
	Attendance   *AttendanceStatus `db:"attendance" json:"attendance"`
	Topics       pq.StringArray    `db:"topics" json:"topics"`
	EntryType    EntryType         `db:"entry_type" json:"entry_type"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// MarkFor projects the entry onto the shape dictated by the component.
func (e GradeEntry) MarkFor(isAttendance bool) Mark {
	if isAttendance {
		return AttendanceMark{Status: e.Attendance}
	}
	m := ScoreMark{Score: e.Score}
	if e.MaxScore != nil {
		m.MaxScore = *e.MaxScore
	}
	return m
}

// EntryGroupKey identifies the set of per-student entries created together.
type EntryGroupKey struct {
	ClassID      int64
	ComponentID  int64
	Name         string
	DateRecorded time.Time
}

// GradeEntryFilter narrows entry listings.
type GradeEntryFilter struct {
	ClassID     int64
	Period      GradePeriod
	ComponentID *int64
	StudentID   *int64
}

// EntryHeaderPatch carries optional header changes for a whole entry group.
type EntryHeaderPatch struct {
	Name         *string
	DateRecorded *time.Time
	MaxScore     *float64
	Topics       []string
	TopicsSet    bool
}
