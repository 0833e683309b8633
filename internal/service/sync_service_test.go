package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-gradebook-api/internal/classroom"
	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/roster"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

type fakeClassroom struct {
	coursework  classroom.Coursework
	students    []roster.ExternalStudent
	submissions []classroom.Submission
	studentsErr error
	tokens      []string
}

func (f *fakeClassroom) ListCourses(_ context.Context, token string) ([]classroom.Course, error) {
	f.tokens = append(f.tokens, token)
	return []classroom.Course{{ID: "c-1", Name: "IT101", State: "ACTIVE"}}, nil
}

func (f *fakeClassroom) ListCoursework(_ context.Context, _ string, courseID string) ([]classroom.Coursework, error) {
	cw := f.coursework
	cw.CourseID = courseID
	return []classroom.Coursework{cw}, nil
}

func (f *fakeClassroom) GetCoursework(_ context.Context, _ string, courseID, courseworkID string) (*classroom.Coursework, error) {
	if courseworkID != f.coursework.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Google Classroom course or coursework not found")
	}
	cw := f.coursework
	cw.CourseID = courseID
	return &cw, nil
}

func (f *fakeClassroom) ListStudents(_ context.Context, _ string, _ string) ([]roster.ExternalStudent, error) {
	if f.studentsErr != nil {
		return nil, f.studentsErr
	}
	return f.students, nil
}

func (f *fakeClassroom) ListSubmissions(_ context.Context, _ string, _, _ string) ([]classroom.Submission, error) {
	return f.submissions, nil
}

type syncFixture struct {
	api      *fakeClassroom
	classes  *fakeClasses
	entries  *fakeEntries
	cache    *fakeInvalidator
	activity *fakeActivity
	svc      *SyncService
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		api: &fakeClassroom{
			coursework: classroom.Coursework{ID: "cw-1", Title: "Quiz 2", MaxPoints: 20, WorkType: "ASSIGNMENT", CreatedAt: time.Date(2024, 9, 3, 14, 0, 0, 0, time.UTC)},
			students: []roster.ExternalStudent{
				{UserID: "u1", Email: "ana@campus.edu", FullName: "Ana Cruz"},
				{UserID: "u2", Email: "BEN@campus.edu", FullName: "Ben Diaz"},
				{UserID: "u9", Email: "zed@gmail.com", FullName: "Zed Lim"},
			},
			submissions: []classroom.Submission{
				{UserID: "u1", State: "RETURNED", Grade: floatPtr(18)},
				{UserID: "u2", State: "CREATED"},
				{UserID: "u9", State: "RETURNED", Grade: floatPtr(15)},
			},
		},
		classes:  newFakeClasses(models.Class{ID: 5, Name: "IT101-A", ProfessorID: 7, DepartmentID: 3}),
		entries:  newFakeEntries(),
		cache:    &fakeInvalidator{},
		activity: &fakeActivity{},
	}
	components := newFakeComponents(
		models.GradeComponent{ID: 11, ClassID: int64Ptr(5), Name: "Quizzes", WeightPercentage: 40},
		models.GradeComponent{ID: 12, ClassID: int64Ptr(5), Name: "Attendance", WeightPercentage: 60, IsAttendance: true},
	)
	students := &fakeRoster{byClass: map[int64][]models.Student{5: {
		{ID: 101, FirstName: "Ana", LastName: "Cruz", Email: "ana@campus.edu"},
		{ID: 102, FirstName: "Ben", LastName: "Diaz", Email: "ben@campus.edu"},
		{ID: 103, FirstName: "Cy", LastName: "Reyes", Email: "cy@campus.edu"},
	}}}
	f.svc = NewSyncService(f.api, f.classes, components, students, f.entries, f.cache, f.activity, nil, SyncServiceConfig{DefaultMaxPoints: 100}, nil, nil)
	return f
}

func importRequest() dto.ImportScoresRequest {
	return dto.ImportScoresRequest{ClassID: 5, CourseID: "c-1", CourseworkID: "cw-1", ComponentID: 11}
}

func TestPreviewRoster(t *testing.T) {
	f := newSyncFixture()

	resp, err := f.svc.PreviewRoster(context.Background(), professorActor, "token", dto.SyncStudentsQuery{ClassID: 5, CourseID: "c-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalMatched)
	assert.Equal(t, 1, resp.TotalDBOnly)
	assert.Equal(t, 1, resp.TotalGCOnly)
	assert.Equal(t, 3, resp.TotalInternal)
	assert.Equal(t, 3, resp.TotalExternal)
	assert.False(t, resp.ClassroomLinked)
	assert.Equal(t, int64(103), resp.InternalOnly[0].StudentID)
	assert.Equal(t, "u9", resp.ExternalOnly[0].UserID)
	assert.Empty(t, f.classes.linked, "preview never links the class")

	_, err = f.svc.PreviewRoster(context.Background(), professorActor, "token", dto.SyncStudentsQuery{ClassID: 5})
	assert.True(t, errors.Is(err, appErrors.ErrValidation), "unlinked class needs a course id")
}

func TestImportScoresCreatesScoresAndPlaceholders(t *testing.T) {
	f := newSyncFixture()

	summary, err := f.svc.ImportScores(context.Background(), professorActor, "token", importRequest())
	require.NoError(t, err)
	assert.Equal(t, dto.ImportSummary{
		MatchedStudents:    1,
		PlaceholderEntries: 2,
		TotalEntries:       3,
		SkippedStudents:    2,
		CreatedEntries:     3,
		CourseworkTitle:    "Quiz 2",
		ComponentID:        11,
		ComponentType:      "ASSIGNMENT",
	}, *summary)

	entries, _ := f.entries.List(context.Background(), models.GradeEntryFilter{ClassID: 5})
	require.Len(t, entries, 3)
	scores := map[int64]float64{}
	for _, e := range entries {
		assert.Equal(t, "Quiz 2", e.Name)
		assert.Equal(t, time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC), e.DateRecorded)
		assert.Equal(t, 20.0, *e.MaxScore)
		assert.Equal(t, models.EntryTypeImported, e.EntryType)
		scores[e.StudentID] = *e.Score
	}
	assert.Equal(t, map[int64]float64{101: 18, 102: 0, 103: 0}, scores)
	assert.Equal(t, "c-1", f.classes.linked[5])
	assert.Equal(t, []int64{5}, f.cache.classes)
	assert.Equal(t, []models.ActivityAction{models.ActivityScoresImported}, f.activity.actions())
}

func TestImportScoresIsIdempotent(t *testing.T) {
	f := newSyncFixture()
	ctx := context.Background()

	_, err := f.svc.ImportScores(ctx, professorActor, "token", importRequest())
	require.NoError(t, err)

	f.api.submissions[0].Grade = floatPtr(25)
	req := importRequest()
	req.CourseID = ""
	summary, err := f.svc.ImportScores(ctx, professorActor, "token", req)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MatchedStudents)
	assert.Equal(t, 1, summary.UpdatedEntries)
	assert.Equal(t, 0, summary.CreatedEntries)
	assert.Equal(t, 0, summary.PlaceholderEntries)
	assert.Equal(t, 1, summary.TotalEntries)

	entries, _ := f.entries.List(ctx, models.GradeEntryFilter{ClassID: 5})
	require.Len(t, entries, 3)
	for _, e := range entries {
		if e.StudentID == 101 {
			assert.Equal(t, 20.0, *e.Score, "scores above the maximum are capped")
		}
	}
}

func TestImportScoresUndatedCourseworkStaysIdempotent(t *testing.T) {
	f := newSyncFixture()
	f.api.coursework.CreatedAt = time.Time{}
	ctx := context.Background()

	_, err := f.svc.ImportScores(ctx, professorActor, "token", importRequest())
	require.NoError(t, err)
	summary, err := f.svc.ImportScores(ctx, professorActor, "token", importRequest())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.CreatedEntries)
	assert.Equal(t, 1, summary.UpdatedEntries)

	entries, _ := f.entries.List(ctx, models.GradeEntryFilter{ClassID: 5})
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), e.DateRecorded)
	}
}

func TestCourseworkDateUsesUTCDay(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	cw := &classroom.Coursework{CreatedAt: time.Date(2024, 9, 3, 6, 30, 0, 0, manila)}
	assert.Equal(t, time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), courseworkDate(cw))
	assert.Equal(t, undatedCourseworkDate, courseworkDate(&classroom.Coursework{}))
}

func TestImportScoresRejectsAttendanceComponent(t *testing.T) {
	f := newSyncFixture()
	req := importRequest()
	req.ComponentID = 12

	_, err := f.svc.ImportScores(context.Background(), professorActor, "token", req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, f.entries.entries)
}

func TestImportScoresPropagatesClassroomErrors(t *testing.T) {
	f := newSyncFixture()
	f.api.studentsErr = appErrors.ErrReauthRequired

	_, err := f.svc.ImportScores(context.Background(), professorActor, "", importRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReauthRequired.Code, appErrors.FromError(err).Code)
	assert.Equal(t, ImportOutcomeReauth, importOutcome(err))
	assert.Empty(t, f.entries.entries)

	f.api.studentsErr = nil
	req := importRequest()
	req.CourseworkID = "missing"
	_, err = f.svc.ImportScores(context.Background(), professorActor, "token", req)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestImportScoresForbiddenForOtherProfessor(t *testing.T) {
	f := newSyncFixture()

	_, err := f.svc.ImportScores(context.Background(), strangerActor, "token", importRequest())
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Equal(t, ImportOutcomeForbidden, importOutcome(err))
}

func TestListCoursework(t *testing.T) {
	f := newSyncFixture()

	items, err := f.svc.ListCoursework(context.Background(), "token", "c-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c-1", items[0].CourseID)

	_, err = f.svc.ListCoursework(context.Background(), "token", " ")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	courses, err := f.svc.ListCourses(context.Background(), "token")
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Equal(t, []string{"token"}, f.api.tokens)
}
