package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var classColumns = []string{"class_id", "class_name", "subject_id", "section_id", "prof_id", "department_id", "subject_code", "subject_name", "units", "status", "classroom_course_id"}

func TestClassRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.class_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(classColumns).
			AddRow(7, "BSIT 2A - Data Structures", 3, 4, 5, 2, "IT201", "Data Structures", 3.0, "active", "gc-123"))

	class, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), class.DepartmentID)
	require.NotNil(t, class.ClassroomCourseID)
	assert.Equal(t, "gc-123", *class.ClassroomCourseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE st.student_id = $1 AND c.status = 'active'")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(classColumns).
			AddRow(7, "A", 3, 4, 5, 2, "IT201", "Data Structures", 3.0, "active", nil).
			AddRow(8, "B", 6, 4, 5, 2, "IT202", "Networks", 2.0, "active", nil))

	classes, err := repo.ListByStudent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, classes, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryLinkClassroomCourseMissing(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET classroom_course_id = $2 WHERE class_id = $1")).
		WithArgs(int64(7), "gc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.LinkClassroomCourse(context.Background(), 7, "gc-1"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
