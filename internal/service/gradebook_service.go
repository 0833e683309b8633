package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/gradebook"
	"github.com/noah-isme/campus-gradebook-api/internal/grading"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
	"github.com/noah-isme/campus-gradebook-api/pkg/export"
)

type gradebookEntryReader interface {
	List(ctx context.Context, filter models.GradeEntryFilter) ([]models.GradeEntry, error)
}

type studentClassReader interface {
	GetByID(ctx context.Context, id int64) (*models.Class, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.Class, error)
}

type studentReader interface {
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	ListByClass(ctx context.Context, classID int64) ([]models.Student, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// GradebookService computes class gradebooks, student reports and exports.
type GradebookService struct {
	classes     studentClassReader
	components  componentReader
	entries     gradebookEntryReader
	students    studentReader
	cache       summaryCache
	preferences *gradebook.PreferenceStore
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewGradebookService constructs GradebookService.
func NewGradebookService(classes studentClassReader, components componentReader, entries gradebookEntryReader, students studentReader, cache summaryCache, preferences *gradebook.PreferenceStore, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradebookService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if preferences == nil {
		preferences = gradebook.NewPreferenceStore(nil, logger)
	}
	return &GradebookService{
		classes:     classes,
		components:  components,
		entries:     entries,
		students:    students,
		cache:       cache,
		preferences: preferences,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Summary returns the class gradebook for a period, serving it from cache
// when possible. The second return value reports a cache hit.
func (s *GradebookService) Summary(ctx context.Context, actor Actor, classID int64, rawPeriod string) (*dto.GradebookSummary, bool, error) {
	class, err := loadAuthorizedClass(ctx, s.classes, actor, classID)
	if err != nil {
		return nil, false, err
	}
	period, err := parsePeriod(rawPeriod)
	if err != nil {
		return nil, false, err
	}

	key := SummaryKey(class.ID, string(period))
	if s.cache != nil {
		var cached dto.GradebookSummary
		hit, cacheErr := s.cache.Get(ctx, key, &cached)
		if cacheErr != nil {
			s.logger.Warn("gradebook cache read failed", zap.String("key", key), zap.Error(cacheErr))
		}
		if hit {
			return &cached, true, nil
		}
	}

	summary, err := s.compute(ctx, class, period)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, 0); err != nil {
			s.logger.Warn("gradebook cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return summary, false, nil
}

func (s *GradebookService) compute(ctx context.Context, class *models.Class, period models.GradePeriod) (*dto.GradebookSummary, error) {
	defer func(start time.Time) { s.metrics.ObserveSummaryBuild(string(period), time.Since(start)) }(time.Now())
	components, err := s.components.ListForClass(ctx, class.ID, class.DepartmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade components")
	}
	students, err := s.students.ListByClass(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	entries, err := s.entries.List(ctx, models.GradeEntryFilter{ClassID: class.ID, Period: period})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade entries")
	}

	byStudent := make(map[int64][]models.GradeEntry, len(students))
	for _, e := range entries {
		byStudent[e.StudentID] = append(byStudent[e.StudentID], e)
	}

	summary := &dto.GradebookSummary{
		ClassID:      class.ID,
		ClassName:    class.Name,
		Period:       period,
		Components:   make([]dto.ComponentSummary, 0, len(components)),
		Students:     make([]dto.StudentGradeRow, 0, len(students)),
		WeightsValid: true,
		GeneratedAt:  s.now().UTC(),
	}
	weights := make([]float64, 0, len(components))
	for _, c := range components {
		weights = append(weights, c.WeightPercentage)
		summary.Components = append(summary.Components, dto.ComponentSummary{
			ComponentID:      c.ID,
			Name:             c.Name,
			WeightPercentage: c.WeightPercentage,
			IsAttendance:     c.IsAttendance,
		})
	}
	if err := grading.ValidateWeights(weights); err != nil {
		summary.WeightsValid = false
		summary.WeightIssue = err.Error()
	}

	finals := make([]float64, 0, len(students))
	for _, st := range students {
		breakdown := grading.Compute(components, grading.GroupByComponent(byStudent[st.ID]))
		gpa := grading.PercentageToGPA(breakdown.FinalGrade)
		summary.Students = append(summary.Students, dto.StudentGradeRow{
			StudentID:         st.ID,
			StudentName:       st.DisplayName(),
			Email:             st.Email,
			ComponentAverages: breakdown.ComponentAverages,
			FinalGrade:        breakdown.FinalGrade,
			GPA:               gpa,
			Remark:            grading.GPARemark(gpa),
		})
		finals = append(finals, breakdown.FinalGrade)
	}
	summary.ClassAverage = grading.ClassAverage(finals)
	return summary, nil
}

// StudentReport is the signed-in student's standing across active classes.
func (s *GradebookService) StudentReport(ctx context.Context, actor Actor) (*dto.StudentReport, error) {
	if actor.Role != models.RoleStudent || actor.ProfileID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students have a grade report")
	}
	student, err := s.students.GetByID(ctx, actor.ProfileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	classes, err := s.classes.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}

	report := &dto.StudentReport{
		StudentID:   student.ID,
		StudentName: student.DisplayName(),
		Subjects:    make([]dto.SubjectReport, 0, len(classes)),
	}
	grades := make([]grading.SubjectGrade, 0, len(classes))
	for _, class := range classes {
		components, err := s.components.ListForClass(ctx, class.ID, class.DepartmentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade components")
		}
		studentID := student.ID
		entries, err := s.entries.List(ctx, models.GradeEntryFilter{ClassID: class.ID, StudentID: &studentID})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade entries")
		}
		final := grading.FinalGrade(components, grading.GroupByComponent(entries))
		gpa := grading.PercentageToGPA(final)
		report.Subjects = append(report.Subjects, dto.SubjectReport{
			ClassID:     class.ID,
			SubjectCode: class.SubjectCode,
			SubjectName: class.SubjectName,
			Units:       class.Units,
			FinalGrade:  final,
			GPA:         gpa,
			Remark:      grading.GPARemark(gpa),
		})
		grades = append(grades, grading.SubjectGrade{Percentage: final, Units: class.Units})
	}
	report.GWA = grading.WeightedAverage(grades)
	if len(grades) > 0 {
		report.GPA = grading.WeightedGPA(grades)
		report.Remark = grading.GPARemark(report.GPA)
	}
	return report, nil
}

// Export renders the class gradebook as CSV or PDF.
func (s *GradebookService) Export(ctx context.Context, actor Actor, classID int64, query dto.GradebookQuery) (*export.Document, error) {
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	summary, _, err := s.Summary(ctx, actor, classID, query.Period)
	if err != nil {
		return nil, err
	}

	headers := []string{"Student"}
	for _, c := range summary.Components {
		headers = append(headers, componentHeader(c))
	}
	headers = append(headers, "Final Grade", "GPA", "Remark")

	rows := make([]map[string]string, 0, len(summary.Students))
	for _, st := range summary.Students {
		row := map[string]string{
			"Student":     st.StudentName,
			"Final Grade": formatGrade(st.FinalGrade),
			"GPA":         formatGrade(st.GPA),
			"Remark":      st.Remark,
		}
		for _, c := range summary.Components {
			row[componentHeader(c)] = formatGrade(st.ComponentAverages[c.ComponentID])
		}
		rows = append(rows, row)
	}

	periodLabel := "All periods"
	if summary.Period != "" {
		periodLabel = periodTitle(summary.Period)
	}
	data := export.Dataset{
		Title:    fmt.Sprintf("Gradebook - %s", summary.ClassName),
		Subtitle: fmt.Sprintf("%s | Class average %s | Generated %s", periodLabel, formatGrade(summary.ClassAverage), summary.GeneratedAt.Format(time.RFC1123)),
		Headers:  headers,
		Rows:     rows,
	}
	baseName := fmt.Sprintf("gradebook-%d", summary.ClassID)
	if summary.Period != "" {
		baseName += "-" + string(summary.Period)
	}
	doc, err := export.Render(format, baseName, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render gradebook export")
	}
	s.metrics.RecordExport(string(format))
	return doc, nil
}

// Preferences loads the caller's layout for a class.
func (s *GradebookService) Preferences(ctx context.Context, actor Actor, classID int64) (models.GradebookPreferences, error) {
	ids, err := s.componentIDs(ctx, actor, classID)
	if err != nil {
		return models.GradebookPreferences{}, err
	}
	return s.preferences.Load(ctx, actor.AccountID, classID, ids), nil
}

// SavePreferences merges the patch into the caller's layout for a class.
func (s *GradebookService) SavePreferences(ctx context.Context, actor Actor, classID int64, patch gradebook.PreferencePatch) (models.GradebookPreferences, error) {
	if err := s.validator.Struct(patch); err != nil {
		return models.GradebookPreferences{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid gradebook preferences")
	}
	ids, err := s.componentIDs(ctx, actor, classID)
	if err != nil {
		return models.GradebookPreferences{}, err
	}
	prefs, err := s.preferences.Save(ctx, actor.AccountID, classID, ids, patch)
	if err != nil {
		return prefs, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save gradebook preferences")
	}
	return prefs, nil
}

func (s *GradebookService) componentIDs(ctx context.Context, actor Actor, classID int64) ([]int64, error) {
	class, err := loadAuthorizedClass(ctx, s.classes, actor, classID)
	if err != nil {
		return nil, err
	}
	components, err := s.components.ListForClass(ctx, class.ID, class.DepartmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade components")
	}
	ids := make([]int64, 0, len(components))
	for _, c := range components {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func componentHeader(c dto.ComponentSummary) string {
	return fmt.Sprintf("%s (%s%%)", c.Name, strconv.FormatFloat(c.WeightPercentage, 'f', -1, 64))
}

func formatGrade(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func periodTitle(p models.GradePeriod) string {
	if p == "" {
		return ""
	}
	s := string(p)
	return string(s[0]-'a'+'A') + s[1:]
}
