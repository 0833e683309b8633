package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
)

func TestArchiveRepositoryListInactiveTagsType(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM departments WHERE status = 'inactive'")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "detail", "status", "updated_at"}).
			AddRow(3, "Engineering", "Dr. Cruz", "inactive", time.Now()))

	records, err := repo.ListInactive(context.Background(), models.ArchiveDepartments)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "departments", records[0].EntityType)
	assert.Equal(t, "Engineering", records[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryUnknownEntity(t *testing.T) {
	db, _, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	assert.False(t, repo.Supports("teachers"))
	_, err := repo.ListInactive(context.Background(), "teachers")
	assert.ErrorIs(t, err, ErrUnknownArchiveEntity)
	assert.ErrorIs(t, repo.PermanentDelete(context.Background(), "teachers", 1), ErrUnknownArchiveEntity)
}

func TestArchiveRepositorySetStatusMirrorsAccount(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $2, updated_at = $3 WHERE student_id = $1")).
		WithArgs(int64(9), "inactive", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET status = $2")).
		WithArgs(int64(9), "inactive", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetStatus(context.Background(), models.ArchiveStudents, 9, models.StatusInactive))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositorySetStatusMissing(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetStatus(context.Background(), models.ArchiveCourses, 9, models.StatusActive)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryPermanentDeleteBlockedByDependency(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT NULL::bigint FROM departments WHERE department_id = $1 FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE department_id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.PermanentDelete(context.Background(), models.ArchiveDepartments, 3)
	var depErr *DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, "Cannot permanently delete department. It has 2 course(s).", depErr.Error())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryPermanentDeleteDepartmentCascades(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM departments WHERE department_id = $1 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM professors")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grade_entries WHERE component_id IN")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grade_components WHERE department_id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM departments WHERE department_id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.PermanentDelete(context.Background(), models.ArchiveDepartments, 3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryPermanentDeleteStudentRemovesAccount(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT account_id FROM students WHERE student_id = $1 FOR UPDATE")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(40))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM grade_entries WHERE student_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE student_id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM accounts WHERE account_id = $1")).
		WithArgs(int64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.PermanentDelete(context.Background(), models.ArchiveStudents, 9))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryPermanentDeleteMissing(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE class_id = $1 FOR UPDATE")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.PermanentDelete(context.Background(), models.ArchiveClasses, 5)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryRelationshipsCountsDependencies(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM students WHERE section_id = $1`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(31))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM classes WHERE section_id = $1`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	counts, err := repo.Relationships(context.Background(), models.ArchiveSections, 4)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"student": 31, "class": 0}, counts)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.Relationships(context.Background(), "teachers", 4)
	assert.ErrorIs(t, err, ErrUnknownArchiveEntity)
}
