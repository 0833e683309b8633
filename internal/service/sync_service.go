package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/campus-gradebook-api/internal/classroom"
	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/repository"
	"github.com/noah-isme/campus-gradebook-api/internal/roster"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

type classroomAPI interface {
	ListCourses(ctx context.Context, accessToken string) ([]classroom.Course, error)
	ListCoursework(ctx context.Context, accessToken, courseID string) ([]classroom.Coursework, error)
	GetCoursework(ctx context.Context, accessToken, courseID, courseworkID string) (*classroom.Coursework, error)
	ListStudents(ctx context.Context, accessToken, courseID string) ([]roster.ExternalStudent, error)
	ListSubmissions(ctx context.Context, accessToken, courseID, courseworkID string) ([]classroom.Submission, error)
}

type syncClassStore interface {
	GetByID(ctx context.Context, id int64) (*models.Class, error)
	LinkClassroomCourse(ctx context.Context, classID int64, courseID string) error
}

type importEntryStore interface {
	List(ctx context.Context, filter models.GradeEntryFilter) ([]models.GradeEntry, error)
	ApplyImport(ctx context.Context, creates []*models.GradeEntry, updates []repository.ScoreUpdate) error
}

// SyncService compares class rosters with Google Classroom and imports
// coursework scores into grade entries.
type SyncService struct {
	api              classroomAPI
	classes          syncClassStore
	components       componentReader
	students         classRosterReader
	entries          importEntryStore
	cache            summaryInvalidator
	activity         activityRecorder
	metrics          *MetricsService
	defaultMaxPoints float64
	validator        *validator.Validate
	logger           *zap.Logger
}

// SyncServiceConfig carries the import defaults.
type SyncServiceConfig struct {
	DefaultMaxPoints float64
}

// NewSyncService constructs SyncService.
func NewSyncService(api classroomAPI, classes syncClassStore, components componentReader, students classRosterReader, entries importEntryStore, cache summaryInvalidator, activity activityRecorder, metrics *MetricsService, cfg SyncServiceConfig, validate *validator.Validate, logger *zap.Logger) *SyncService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultMaxPoints <= 0 {
		cfg.DefaultMaxPoints = 100
	}
	return &SyncService{
		api:              api,
		classes:          classes,
		components:       components,
		students:         students,
		entries:          entries,
		cache:            cache,
		activity:         activity,
		metrics:          metrics,
		defaultMaxPoints: cfg.DefaultMaxPoints,
		validator:        validate,
		logger:           logger,
	}
}

// undatedCourseworkDate records coursework whose creation time is missing.
// It must stay fixed so repeated imports land on the same entry group.
var undatedCourseworkDate = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// courseworkDate is the UTC calendar day the coursework was created. The
// update time is not a fallback because it moves whenever the teacher edits
// the coursework.
func courseworkDate(cw *classroom.Coursework) time.Time {
	if cw.CreatedAt.IsZero() {
		return undatedCourseworkDate
	}
	created := cw.CreatedAt.UTC()
	return time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC)
}

// ListCourses returns the caller's active external courses.
func (s *SyncService) ListCourses(ctx context.Context, token string) ([]classroom.Course, error) {
	return s.api.ListCourses(ctx, token)
}

// ListCoursework returns the published coursework of a course.
func (s *SyncService) ListCoursework(ctx context.Context, token, courseID string) ([]classroom.Coursework, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	return s.api.ListCoursework(ctx, token, courseID)
}

// PreviewRoster reconciles the class roster with the external course roster
// without changing anything.
func (s *SyncService) PreviewRoster(ctx context.Context, actor Actor, token string, query dto.SyncStudentsQuery) (*dto.SyncStudentsResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "class_id is required")
	}
	class, err := loadAuthorizedClass(ctx, s.classes, actor, query.ClassID)
	if err != nil {
		return nil, err
	}
	courseID, err := resolveCourse(class, query.CourseID)
	if err != nil {
		return nil, err
	}

	var (
		internal []roster.InternalStudent
		external []roster.ExternalStudent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		internal, err = s.internalRoster(gctx, class.ID)
		return err
	})
	g.Go(func() error {
		var err error
		external, err = s.api.ListStudents(gctx, token, courseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := roster.Reconcile(internal, external)
	resp := &dto.SyncStudentsResponse{
		Result:        result,
		CourseID:      courseID,
		TotalMatched:  result.TotalMatched(),
		TotalDBOnly:   result.TotalInternalOnly(),
		TotalGCOnly:   result.TotalExternalOnly(),
		TotalInternal: len(internal),
		TotalExternal: len(external),
	}
	if class.ClassroomCourseID != nil {
		resp.ClassroomLinked = true
		resp.LinkedClassroomID = *class.ClassroomCourseID
	}
	return resp, nil
}

// ImportScores pulls one coursework's grades into a score component. Matched
// students get their external score; every other enrolled student gets a zero
// placeholder unless an entry already exists. Re-running the import updates
// scores in place.
func (s *SyncService) ImportScores(ctx context.Context, actor Actor, token string, req dto.ImportScoresRequest) (summary *dto.ImportSummary, err error) {
	defer func() { s.metrics.RecordImport(importOutcome(err)) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import payload")
	}
	class, err := loadAuthorizedClass(ctx, s.classes, actor, req.ClassID)
	if err != nil {
		return nil, err
	}
	component, err := loadClassComponent(ctx, s.components, class, req.ComponentID)
	if err != nil {
		return nil, err
	}
	if component.IsAttendance {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scores cannot be imported into an attendance component")
	}
	courseID, err := resolveCourse(class, req.CourseID)
	if err != nil {
		return nil, err
	}

	var (
		coursework  *classroom.Coursework
		external    []roster.ExternalStudent
		submissions []classroom.Submission
		internal    []roster.InternalStudent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		coursework, err = s.api.GetCoursework(gctx, token, courseID, req.CourseworkID)
		return err
	})
	g.Go(func() error {
		var err error
		external, err = s.api.ListStudents(gctx, token, courseID)
		return err
	})
	g.Go(func() error {
		var err error
		submissions, err = s.api.ListSubmissions(gctx, token, courseID, req.CourseworkID)
		return err
	})
	g.Go(func() error {
		var err error
		internal, err = s.internalRoster(gctx, class.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	grades := make(map[string]float64, len(submissions))
	for _, sub := range submissions {
		if sub.Grade != nil {
			grades[sub.UserID] = *sub.Grade
		}
	}
	result := roster.Reconcile(internal, external)
	matched := result.MatchedByStudent()

	name := strings.TrimSpace(coursework.Title)
	if name == "" {
		name = "Coursework " + coursework.ID
	}
	date := courseworkDate(coursework)
	maxPoints := coursework.MaxPoints
	if maxPoints <= 0 {
		maxPoints = s.defaultMaxPoints
	}

	componentID := component.ID
	existing, err := s.entries.List(ctx, models.GradeEntryFilter{ClassID: class.ID, ComponentID: &componentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade entries")
	}
	existingByStudent := make(map[int64]models.GradeEntry)
	for _, e := range existing {
		if e.Name == name && sameDay(e.DateRecorded, date) {
			existingByStudent[e.StudentID] = e
		}
	}

	summary = &dto.ImportSummary{
		CourseworkTitle: name,
		ComponentID:     component.ID,
		ComponentType:   coursework.WorkType,
		SkippedStudents: result.TotalExternalOnly(),
	}
	if summary.ComponentType == "" {
		summary.ComponentType = "score-based"
	}

	topics := normalizeTopics(req.Topics)
	var (
		creates []*models.GradeEntry
		updates []repository.ScoreUpdate
	)
	for _, st := range internal {
		var (
			score    float64
			hasScore bool
		)
		if m, ok := matched[st.StudentID]; ok {
			score, hasScore = grades[m.ExternalUserID]
			if !hasScore {
				summary.SkippedStudents++
			}
		}
		current, exists := existingByStudent[st.StudentID]
		switch {
		case hasScore && exists:
			updates = append(updates, repository.ScoreUpdate{EntryID: current.ID, Score: clampScore(score, maxPoints), MaxScore: maxPoints})
			summary.MatchedStudents++
			summary.UpdatedEntries++
		case hasScore:
			creates = append(creates, s.importedEntry(class.ID, component.ID, st.StudentID, name, date, req.GradePeriod, topics, clampScore(score, maxPoints), maxPoints))
			summary.MatchedStudents++
			summary.CreatedEntries++
		case !exists:
			creates = append(creates, s.importedEntry(class.ID, component.ID, st.StudentID, name, date, req.GradePeriod, topics, 0, maxPoints))
			summary.PlaceholderEntries++
			summary.CreatedEntries++
		}
	}
	summary.TotalEntries = summary.CreatedEntries + summary.UpdatedEntries

	if len(creates) > 0 || len(updates) > 0 {
		if err := s.entries.ApplyImport(ctx, creates, updates); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save imported scores")
		}
		s.cache.InvalidateClass(ctx, class.ID)
	}

	if class.ClassroomCourseID == nil {
		if err := s.classes.LinkClassroomCourse(ctx, class.ID, courseID); err != nil {
			s.logger.Warn("link classroom course", zap.Int64("class_id", class.ID), zap.String("course_id", courseID), zap.Error(err))
		}
	}

	s.activity.Record(ctx, newActivity(actor, classRef(class.ID), models.ActivityScoresImported,
		fmt.Sprintf("Imported %q into %s: %s matched, %s placeholder", name, component.Name, pluralize(summary.MatchedStudents, "student"), pluralize(summary.PlaceholderEntries, "entry")),
		map[string]interface{}{
			"course_id":     courseID,
			"coursework_id": coursework.ID,
			"component_id":  component.ID,
			"created":       summary.CreatedEntries,
			"updated":       summary.UpdatedEntries,
			"skipped":       summary.SkippedStudents,
		}))
	s.logger.Info("classroom scores imported",
		zap.Int64("class_id", class.ID),
		zap.String("coursework_id", coursework.ID),
		zap.Int("created", summary.CreatedEntries),
		zap.Int("updated", summary.UpdatedEntries))
	return summary, nil
}

func (s *SyncService) importedEntry(classID, componentID, studentID int64, name string, date time.Time, period *models.GradePeriod, topics []string, score, maxPoints float64) *models.GradeEntry {
	ceiling := maxPoints
	return &models.GradeEntry{
		StudentID:    studentID,
		ComponentID:  componentID,
		ClassID:      classID,
		Name:         name,
		DateRecorded: date,
		GradePeriod:  period,
		Score:        &score,
		MaxScore:     &ceiling,
		Topics:       topics,
		EntryType:    models.EntryTypeImported,
	}
}

func (s *SyncService) internalRoster(ctx context.Context, classID int64) ([]roster.InternalStudent, error) {
	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class students")
	}
	out := make([]roster.InternalStudent, 0, len(students))
	for _, st := range students {
		in := roster.InternalStudent{StudentID: st.ID, Email: st.Email, FirstName: st.FirstName, LastName: st.LastName}
		if st.MiddleName != nil {
			in.MiddleName = *st.MiddleName
		}
		out = append(out, in)
	}
	return out, nil
}

func resolveCourse(class *models.Class, requested string) (string, error) {
	if id := strings.TrimSpace(requested); id != "" {
		return id, nil
	}
	if class.ClassroomCourseID != nil && *class.ClassroomCourseID != "" {
		return *class.ClassroomCourseID, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "course_id is required until the class is linked to a Google Classroom course")
}

func importOutcome(err error) string {
	if err == nil {
		return ImportOutcomeSuccess
	}
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return ImportOutcomeError
	}
	switch appErr.Code {
	case appErrors.ErrReauthRequired.Code:
		return ImportOutcomeReauth
	case appErrors.ErrClassroomForbidden.Code, appErrors.ErrForbidden.Code:
		return ImportOutcomeForbidden
	case appErrors.ErrNotFound.Code:
		return ImportOutcomeNotFound
	case appErrors.ErrValidation.Code:
		return ImportOutcomeInvalid
	default:
		return ImportOutcomeError
	}
}

func clampScore(score, ceiling float64) float64 {
	return math.Min(math.Max(score, 0), ceiling)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
