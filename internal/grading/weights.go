package grading

import (
	"fmt"
	"math"
	"strings"
)

const weightTolerance = 0.01

// WeightError reports an invalid component weight set.
type WeightError struct {
	Total   float64
	Message string
}

func (e *WeightError) Error() string { return e.Message }

// TotalWeight sums the weights.
func TotalWeight(weights []float64) float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	return Round2(total)
}

// ValidateWeights checks each weight is within 0-100 and, for a non-empty set,
// that the total is 100.
func ValidateWeights(weights []float64) error {
	for _, w := range weights {
		if w < 0 || w > 100 || math.IsNaN(w) {
			return &WeightError{Total: TotalWeight(weights), Message: fmt.Sprintf("weight %s%% must be between 0%% and 100%%", formatPercent(w))}
		}
	}
	if len(weights) == 0 {
		return nil
	}
	total := TotalWeight(weights)
	if math.Abs(total-100) > weightTolerance {
		return &WeightError{Total: total, Message: fmt.Sprintf("total weight is %s%%, components must sum to 100%%", formatPercent(total))}
	}
	return nil
}

// ValidateWeightCeiling checks that adding or changing one component keeps the
// set at or below 100.
func ValidateWeightCeiling(weights []float64) error {
	total := TotalWeight(weights)
	if total > 100+weightTolerance {
		return &WeightError{Total: total, Message: fmt.Sprintf("total weight is %s%%, components cannot exceed 100%%", formatPercent(total))}
	}
	return nil
}

func formatPercent(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
