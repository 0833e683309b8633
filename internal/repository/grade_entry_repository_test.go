package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
)

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func gradeEntryRows() *sqlmock.Rows {
	return sqlmock.NewRows(gradeEntryColumns)
}

var quizKey = models.EntryGroupKey{
	ClassID:      7,
	ComponentID:  3,
	Name:         "Quiz 1",
	DateRecorded: time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
}

func TestGradeEntryRepositoryListKeepsUnscopedEntriesInPeriod(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradeEntryRepository(db)

	now := time.Now()
	rows := gradeEntryRows().
		AddRow(1, 10, 3, 7, "Quiz 1", now, "midterm", 8.0, 10.0, nil, "{algebra,graphs}", "manual entry", now, now).
		AddRow(2, 11, 3, 7, "Quiz 1", now, nil, nil, 10.0, nil, "{}", "manual entry", now, now)
	mock.ExpectQuery(`SELECT grade_id, .* FROM grade_entries WHERE class_id = \$1 AND \(grade_period = \$2 OR grade_period IS NULL\) ORDER BY date_recorded ASC, grade_id ASC`).
		WithArgs(int64(7), "midterm").
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), models.GradeEntryFilter{ClassID: 7, Period: models.GradePeriodMidterm})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].GradePeriod)
	assert.Equal(t, models.GradePeriodMidterm, *entries[0].GradePeriod)
	assert.Equal(t, []string{"algebra", "graphs"}, []string(entries[0].Topics))
	assert.Nil(t, entries[1].GradePeriod)
	assert.Nil(t, entries[1].Score)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeEntryRepositoryCreateGroupAssignsIDs(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradeEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO grade_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"grade_id"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO grade_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"grade_id"}).AddRow(12))
	mock.ExpectCommit()

	maxScore := 10.0
	entries := []*models.GradeEntry{
		{StudentID: 10, ComponentID: 3, ClassID: 7, Name: "Quiz 1", DateRecorded: quizKey.DateRecorded, MaxScore: &maxScore, EntryType: models.EntryTypeManual},
		{StudentID: 11, ComponentID: 3, ClassID: 7, Name: "Quiz 1", DateRecorded: quizKey.DateRecorded, MaxScore: &maxScore, EntryType: models.EntryTypeManual},
	}
	require.NoError(t, repo.CreateGroup(context.Background(), entries))
	assert.Equal(t, int64(11), entries[0].ID)
	assert.Equal(t, int64(12), entries[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeEntryRepositoryCreateGroupRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradeEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO grade_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"grade_id"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO grade_entries")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	entries := []*models.GradeEntry{
		{StudentID: 10, ComponentID: 3, ClassID: 7, Name: "Quiz 1", DateRecorded: quizKey.DateRecorded},
		{StudentID: 11, ComponentID: 3, ClassID: 7, Name: "Quiz 1", DateRecorded: quizKey.DateRecorded},
	}
	err := repo.CreateGroup(context.Background(), entries)
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeEntryRepositoryUpdateGroupHeaderDetectsPartialWrite(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradeEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT grade_id FROM grade_entries WHERE .* FOR UPDATE`).
		WithArgs(int64(7), int64(3), "2024-09-02", "Quiz 1").
		WillReturnRows(sqlmock.NewRows([]string{"grade_id"}).AddRow(1).AddRow(2).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grade_entries SET")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectRollback()

	name := "Quiz 1 (retake)"
	affected, err := repo.UpdateGroupHeader(context.Background(), quizKey, models.EntryHeaderPatch{Name: &name})
	require.ErrorIs(t, err, ErrGroupWriteMismatch)
	assert.Equal(t, int64(2), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeEntryRepositoryUpdateGroupHeaderRejectsMaxBelowScores(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradeEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT grade_id FROM grade_entries WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"grade_id"}).AddRow(1).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(score), 0) FROM grade_entries WHERE")).
		WithArgs(int64(7), int64(3), "2024-09-02", "Quiz 1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(20.0))
	mock.ExpectRollback()

	maxScore := 10.0
	_, err := repo.UpdateGroupHeader(context.Background(), quizKey, models.EntryHeaderPatch{MaxScore: &maxScore})
	require.ErrorIs(t, err, ErrScoreAboveMaximum)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeEntryRepositoryUpdateGroupHeaderRaisesMax(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradeEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT grade_id FROM grade_entries WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"grade_id"}).AddRow(1).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(score), 0) FROM grade_entries WHERE")).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(20.0))
	mock.ExpectExec(`UPDATE grade_entries SET updated_at = \$1, max_score = \$2 WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	maxScore := 25.0
	affected, err := repo.UpdateGroupHeader(context.Background(), quizKey, models.EntryHeaderPatch{MaxScore: &maxScore})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeEntryRepositoryListGroup(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradeEntryRepository(db)

	now := time.Now()
	rows := gradeEntryRows().
		AddRow(1, 10, 3, 7, "Quiz 1", now, nil, 15.0, 20.0, nil, "{}", "manual entry", now, now).
		AddRow(2, 11, 3, 7, "Quiz 1", now, nil, nil, 20.0, nil, "{}", "manual entry", now, now)
	mock.ExpectQuery(`SELECT grade_id, .* FROM grade_entries WHERE .* ORDER BY grade_id ASC`).
		WithArgs(int64(7), int64(3), "2024-09-02", "Quiz 1").
		WillReturnRows(rows)

	entries, err := repo.ListGroup(context.Background(), quizKey)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 15.0, *entries[0].Score)
	assert.Nil(t, entries[1].Score)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeEntryRepositoryUpdateGroupHeaderWritesTopics(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradeEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT grade_id FROM grade_entries WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"grade_id"}).AddRow(1).AddRow(2))
	mock.ExpectExec(`UPDATE grade_entries SET updated_at = \$1, topics = \$2 WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	affected, err := repo.UpdateGroupHeader(context.Background(), quizKey, models.EntryHeaderPatch{Topics: []string{"fractions"}, TopicsSet: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeEntryRepositoryDeleteGroup(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradeEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT grade_id FROM grade_entries WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"grade_id"}).AddRow(1).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grade_entries WHERE")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	affected, err := repo.DeleteGroup(context.Background(), quizKey)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeEntryRepositoryDeleteGroupMissing(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradeEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT grade_id FROM grade_entries WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"grade_id"}))
	mock.ExpectRollback()

	_, err := repo.DeleteGroup(context.Background(), quizKey)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeEntryRepositoryUpdateScoreNotFound(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradeEntryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grade_entries SET score = $1, updated_at = $2 WHERE grade_id = $3")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	score := 9.5
	err := repo.UpdateScore(context.Background(), 99, &score)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeEntryRepositoryApplyImport(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradeEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO grade_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"grade_id"}).AddRow(21))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grade_entries SET score = $1, max_score = $2")).
		WithArgs(18.0, 20.0, sqlmock.AnyArg(), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created := &models.GradeEntry{StudentID: 10, ComponentID: 3, ClassID: 7, Name: "Essay", DateRecorded: quizKey.DateRecorded, EntryType: models.EntryTypeImported}
	err := repo.ApplyImport(context.Background(), []*models.GradeEntry{created}, []ScoreUpdate{{EntryID: 4, Score: 18, MaxScore: 20}})
	require.NoError(t, err)
	assert.Equal(t, int64(21), created.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
