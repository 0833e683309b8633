package models

import "fmt"

// MarkKind discriminates the Mark variants.
type MarkKind string

const (
	MarkKindScore      MarkKind = "score"
	MarkKindAttendance MarkKind = "attendance"
)

// Mark is the value held by a grade entry: either a ScoreMark or an
// AttendanceMark. Consumers switch on the concrete type.
type Mark interface {
	Kind() MarkKind
	Equal(other Mark) bool
	String() string
}

// ScoreMark is a numeric result out of MaxScore. A nil Score means ungraded.
type ScoreMark struct {
	Score    *float64 `json:"score"`
	MaxScore float64  `json:"max_score"`
}

// Kind implements Mark.
func (ScoreMark) Kind() MarkKind { return MarkKindScore }

// Equal implements Mark.
func (m ScoreMark) Equal(other Mark) bool {
	o, ok := other.(ScoreMark)
	if !ok {
		return false
	}
	if (m.Score == nil) != (o.Score == nil) {
		return false
	}
	return m.Score == nil || *m.Score == *o.Score
}

func (m ScoreMark) String() string {
	if m.Score == nil {
		return "-"
	}
	return fmt.Sprintf("%g/%g", *m.Score, m.MaxScore)
}

// AttendanceMark is a presence status. A nil Status means not yet taken.
type AttendanceMark struct {
	Status *AttendanceStatus `json:"status"`
}

// Kind implements Mark.
func (AttendanceMark) Kind() MarkKind { return MarkKindAttendance }

// Equal implements Mark.
func (m AttendanceMark) Equal(other Mark) bool {
	o, ok := other.(AttendanceMark)
	if !ok {
		return false
	}
	if (m.Status == nil) != (o.Status == nil) {
		return false
	}
	return m.Status == nil || *m.Status == *o.Status
}

func (m AttendanceMark) String() string {
	if m.Status == nil {
		return "-"
	}
	return string(*m.Status)
}
