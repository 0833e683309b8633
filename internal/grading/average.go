package grading

import (
	"math"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
)

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComponentAverage returns the component percentage in [0,100].
//
// Score components use total earned over total possible; entries with no score
// or a non-positive max score are ignored. Attendance components count present
// as 1 and late as 0.5 over every entry with a recorded status.
func ComponentAverage(component models.GradeComponent, entries []models.GradeEntry) float64 {
	var earned, possible float64
	var present, late, taken int

	for _, entry := range entries {
		switch mark := entry.MarkFor(component.IsAttendance).(type) {
		case models.ScoreMark:
			if mark.Score == nil || mark.MaxScore <= 0 {
				continue
			}
			earned += *mark.Score
			possible += mark.MaxScore
		case models.AttendanceMark:
			if mark.Status == nil {
				continue
			}
			taken++
			switch *mark.Status {
			case models.AttendancePresent:
				present++
			case models.AttendanceLate:
				late++
			}
		}
	}

	if component.IsAttendance {
		if taken == 0 {
			return 0
		}
		return Round2((float64(present) + 0.5*float64(late)) / float64(taken) * 100)
	}
	if possible <= 0 {
		return 0
	}
	return Round2(clampPercent(earned / possible * 100))
}

// clampPercent bounds legacy rows whose score exceeds their max score, or
// that carry a negative score, to a valid percentage.
func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// Breakdown is one student's grade decomposition.
type Breakdown struct {
	ComponentAverages map[int64]float64 `json:"component_averages"`
	FinalGrade        float64           `json:"final_grade"`
}

// FinalGrade is the weighted sum of component averages. A component with no
// entries contributes 0 and still counts toward the weight total, so missing
// work lowers the grade rather than being excluded.
func FinalGrade(components []models.GradeComponent, entriesByComponent map[int64][]models.GradeEntry) float64 {
	return Compute(components, entriesByComponent).FinalGrade
}

// Compute returns the per component averages together with the final grade.
func Compute(components []models.GradeComponent, entriesByComponent map[int64][]models.GradeEntry) Breakdown {
	out := Breakdown{ComponentAverages: make(map[int64]float64, len(components))}
	var total float64
	for _, component := range components {
		avg := ComponentAverage(component, entriesByComponent[component.ID])
		out.ComponentAverages[component.ID] = avg
		total += avg * component.WeightPercentage / 100
	}
	out.FinalGrade = Round2(total)
	return out
}

// GroupByComponent buckets entries by component id.
func GroupByComponent(entries []models.GradeEntry) map[int64][]models.GradeEntry {
	grouped := make(map[int64][]models.GradeEntry)
	for _, entry := range entries {
		grouped[entry.ComponentID] = append(grouped[entry.ComponentID], entry)
	}
	return grouped
}

// ClassAverage averages the non-zero final grades. Students with a zero final
// grade have no graded work yet and are left out.
func ClassAverage(finals []float64) float64 {
	var sum float64
	var n int
	for _, f := range finals {
		if f > 0 {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return Round2(sum / float64(n))
}
