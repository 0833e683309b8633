// Package grading holds the pure grade arithmetic used by the gradebook:
// component averages, weighted final grades, the 1.00-5.00 GPA scale and the
// weight rules for grade component sets. Nothing here touches storage, and no
// function panics or returns NaN on empty input.
package grading
