package dto

import (
	"time"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
)

// ComponentSummary describes one column of the gradebook.
type ComponentSummary struct {
	ComponentID      int64   `json:"component_id"`
	Name             string  `json:"name"`
	WeightPercentage float64 `json:"weight_percentage"`
	IsAttendance     bool    `json:"is_attendance"`
}

// StudentGradeRow is one student's standing in a class.
type StudentGradeRow struct {
	StudentID         int64             `json:"student_id"`
	StudentName       string            `json:"student_name"`
	Email             string            `json:"email,omitempty"`
	ComponentAverages map[int64]float64 `json:"component_averages"`
	FinalGrade        float64           `json:"final_grade"`
	GPA               float64           `json:"gpa"`
	Remark            string            `json:"remark"`
}

// GradebookSummary is the computed gradebook of a class for one period.
type GradebookSummary struct {
	ClassID      int64              `json:"class_id"`
	ClassName    string             `json:"class_name"`
	Period       models.GradePeriod `json:"period,omitempty"`
	Components   []ComponentSummary `json:"components"`
	Students     []StudentGradeRow  `json:"students"`
	ClassAverage float64            `json:"class_average"`
	WeightsValid bool               `json:"weights_valid"`
	WeightIssue  string             `json:"weight_issue,omitempty"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// SubjectReport is one class in a student's report.
type SubjectReport struct {
	ClassID     int64   `json:"class_id"`
	SubjectCode string  `json:"subject_code"`
	SubjectName string  `json:"subject_name"`
	Units       float64 `json:"units"`
	FinalGrade  float64 `json:"final_grade"`
	GPA         float64 `json:"gpa"`
	Remark      string  `json:"remark"`
}

// StudentReport summarises a student's grades across classes.
type StudentReport struct {
	StudentID   int64           `json:"student_id"`
	StudentName string          `json:"student_name"`
	Subjects    []SubjectReport `json:"subjects"`
	GWA         float64         `json:"gwa"`
	GPA         float64         `json:"gpa"`
	Remark      string          `json:"remark"`
}

// GradebookQuery captures the period and export format.
type GradebookQuery struct {
	Period string `form:"period"`
	Format string `form:"format"`
}
