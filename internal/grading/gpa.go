package grading

// gpaBand is one linear segment of the percentage to GPA scale. Percentages in
// [floor, ceil) map linearly from atCeil down to atCeil+step at the floor.
type gpaBand struct {
	floor  float64
	ceil   float64
	atCeil float64
	step   float64
}

var gpaBands = []gpaBand{
	{floor: 94.5, ceil: 97.5, atCeil: 1.00, step: 0.25},
	{floor: 91.5, ceil: 94.5, atCeil: 1.25, step: 0.25},
	{floor: 88.5, ceil: 91.5, atCeil: 1.50, step: 0.25},
	{floor: 85.5, ceil: 88.5, atCeil: 1.75, step: 0.25},
	{floor: 82.5, ceil: 85.5, atCeil: 2.00, step: 0.25},
	{floor: 79.5, ceil: 82.5, atCeil: 2.25, step: 0.25},
	{floor: 76.5, ceil: 79.5, atCeil: 2.50, step: 0.25},
	{floor: 74.5, ceil: 76.5, atCeil: 2.75, step: 0.25},
	{floor: 69.5, ceil: 74.5, atCeil: 3.00, step: 0.50},
	{floor: 64.5, ceil: 69.5, atCeil: 3.50, step: 0.50},
	{floor: 59.5, ceil: 64.5, atCeil: 4.00, step: 0.50},
	{floor: 50.0, ceil: 59.5, atCeil: 4.50, step: 0.50},
}

const (
	BestGPA    = 1.00
	WorstGPA   = 5.00
	PassingGPA = 3.00
)

// PercentageToGPA maps a percentage onto the 1.00 (best) to 5.00 (worst) scale
// with two decimal precision. The mapping is continuous and never increases as
// the percentage grows.
func PercentageToGPA(percentage float64) float64 {
	if percentage >= 97.5 {
		return BestGPA
	}
	for _, band := range gpaBands {
		if percentage >= band.floor {
			return Round2(band.atCeil + (band.ceil-percentage)/(band.ceil-band.floor)*band.step)
		}
	}
	return WorstGPA
}

// GradePoint maps a percentage onto the discrete grade point of the band it
// falls in (1.00, 1.25, ... 3.00, 3.50, ... 5.00). It is the value recorded
// per subject when a term GPA is computed.
func GradePoint(percentage float64) float64 {
	if percentage >= 97.5 {
		return BestGPA
	}
	for _, band := range gpaBands {
		if percentage >= band.floor {
			return band.atCeil + band.step
		}
	}
	return WorstGPA
}

// GPARemark classifies a GPA as "Passed" or "Failed".
func GPARemark(gpa float64) string {
	if gpa > 0 && gpa <= PassingGPA {
		return "Passed"
	}
	return "Failed"
}

// SubjectGrade is a final percentage weighted by the subject's units.
type SubjectGrade struct {
	Percentage float64
	Units      float64
}

// WeightedAverage is the unit weighted mean percentage (the GWA).
func WeightedAverage(grades []SubjectGrade) float64 {
	var sum, units float64
	for _, g := range grades {
		if g.Units <= 0 {
			continue
		}
		sum += g.Percentage * g.Units
		units += g.Units
	}
	if units == 0 {
		return 0
	}
	return Round2(sum / units)
}

// WeightedGPA is the unit weighted mean of each subject's grade point. Subjects
// are banded with GradePoint before averaging, so the result can differ from
// PercentageToGPA applied to the WeightedAverage.
func WeightedGPA(grades []SubjectGrade) float64 {
	var sum, units float64
	for _, g := range grades {
		if g.Units <= 0 {
			continue
		}
		sum += GradePoint(g.Percentage) * g.Units
		units += g.Units
	}
	if units == 0 {
		return 0
	}
	return Round2(sum / units)
}
