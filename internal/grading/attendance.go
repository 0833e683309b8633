package grading

import "github.com/noah-isme/campus-gradebook-api/internal/models"

// Attendance point values shown in score views.
const (
	PointsPresent = 10
	PointsLate    = 5
	PointsAbsent  = 0
)

// AttendancePoints converts a status to its score view value. A missing status
// scores like an absence.
func AttendancePoints(status *models.AttendanceStatus) float64 {
	if status == nil {
		return PointsAbsent
	}
	switch *status {
	case models.AttendancePresent:
		return PointsPresent
	case models.AttendanceLate:
		return PointsLate
	default:
		return PointsAbsent
	}
}

// StatusFromPoints is the inverse of AttendancePoints for score edits made on
// an attendance component.
func StatusFromPoints(points float64) models.AttendanceStatus {
	switch {
	case points >= PointsPresent:
		return models.AttendancePresent
	case points >= PointsLate:
		return models.AttendanceLate
	default:
		return models.AttendanceAbsent
	}
}
