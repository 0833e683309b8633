package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/gradebook"
	"github.com/noah-isme/campus-gradebook-api/internal/grading"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/repository"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

type gradeEntryStore interface {
	List(ctx context.Context, filter models.GradeEntryFilter) ([]models.GradeEntry, error)
	GetByID(ctx context.Context, id int64) (*models.GradeEntry, error)
	ListGroup(ctx context.Context, key models.EntryGroupKey) ([]models.GradeEntry, error)
	CreateGroup(ctx context.Context, entries []*models.GradeEntry) error
	UpdateGroupHeader(ctx context.Context, key models.EntryGroupKey, patch models.EntryHeaderPatch) (int64, error)
	DeleteGroup(ctx context.Context, key models.EntryGroupKey) (int64, error)
	UpdateScore(ctx context.Context, id int64, score *float64) error
	UpdateAttendance(ctx context.Context, id int64, status *models.AttendanceStatus) error
}

type classReader interface {
	GetByID(ctx context.Context, id int64) (*models.Class, error)
}

type componentReader interface {
	GetByID(ctx context.Context, id int64) (*models.GradeComponent, error)
	ListForClass(ctx context.Context, classID, departmentID int64) ([]models.GradeComponent, error)
}

type classRosterReader interface {
	ListByClass(ctx context.Context, classID int64) ([]models.Student, error)
}

type summaryInvalidator interface {
	InvalidateClass(ctx context.Context, classID int64)
}

type activityRecorder interface {
	Record(ctx context.Context, entry models.ActivityLog)
}

// GradeEntryService is the write path for grade entries: group creation,
// group header edits and deletes, single mark edits and batch saves.
type GradeEntryService struct {
	entries    gradeEntryStore
	classes    classReader
	components componentReader
	students   classRosterReader
	cache      summaryInvalidator
	activity   activityRecorder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradeEntryService constructs GradeEntryService.
func NewGradeEntryService(entries gradeEntryStore, classes classReader, components componentReader, students classRosterReader, cache summaryInvalidator, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *GradeEntryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeEntryService{
		entries:    entries,
		classes:    classes,
		components: components,
		students:   students,
		cache:      cache,
		activity:   activity,
		validator:  validate,
		logger:     logger,
	}
}

// ListEntries returns the entries of a class. A period filter also returns
// entries that have no period.
func (s *GradeEntryService) ListEntries(ctx context.Context, actor Actor, classID int64, query dto.GradeEntryListQuery) ([]models.GradeEntry, error) {
	if _, err := s.loadClass(ctx, actor, classID); err != nil {
		return nil, err
	}
	period, err := parsePeriod(query.Period)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.List(ctx, models.GradeEntryFilter{
		ClassID:     classID,
		Period:      period,
		ComponentID: query.ComponentID,
		StudentID:   query.StudentID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade entries")
	}
	return entries, nil
}

// CreateEntryGroup creates one entry per student in a single transaction.
func (s *GradeEntryService) CreateEntryGroup(ctx context.Context, actor Actor, req dto.CreateEntryGroupRequest) ([]models.GradeEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade entry payload")
	}
	class, err := s.loadClass(ctx, actor, req.ClassID)
	if err != nil {
		return nil, err
	}
	component, err := s.loadComponent(ctx, class, req.ComponentID)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(req.DateRecorded)
	if err != nil {
		return nil, err
	}
	if component.IsAttendance {
		if req.MaxScore != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "max_score does not apply to attendance components")
		}
	} else {
		if req.MaxScore == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "max_score is required for score components")
		}
		if req.Attendance != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "attendance does not apply to score components")
		}
	}

	studentIDs, err := s.resolveStudents(ctx, class.ID, req.StudentIDs)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	topics := normalizeTopics(req.Topics)
	rows := make([]*models.GradeEntry, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		entry := &models.GradeEntry{
			StudentID:    studentID,
			ComponentID:  component.ID,
			ClassID:      class.ID,
			Name:         name,
			DateRecorded: date,
			GradePeriod:  req.GradePeriod,
			Topics:       topics,
			EntryType:    models.EntryTypeManual,
		}
		if component.IsAttendance {
			entry.Attendance = req.Attendance
		} else {
			maxScore := *req.MaxScore
			entry.MaxScore = &maxScore
		}
		rows = append(rows, entry)
	}

	if err := s.entries.CreateGroup(ctx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade entries")
	}

	s.afterWrite(ctx, actor, class.ID, models.ActivityEntryCreated,
		fmt.Sprintf("Created %q for %s in %s", name, pluralize(len(rows), "student"), component.Name),
		map[string]interface{}{"component_id": component.ID, "name": name, "date_recorded": req.DateRecorded, "count": len(rows)})

	created := make([]models.GradeEntry, 0, len(rows))
	for _, row := range rows {
		created = append(created, *row)
	}
	return created, nil
}

// UpdateEntryHeader edits every entry of a group. It returns the number of
// rows changed.
func (s *GradeEntryService) UpdateEntryHeader(ctx context.Context, actor Actor, req dto.UpdateEntryHeaderRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade entry update payload")
	}
	key, class, component, err := s.groupKey(ctx, actor, req.EntryGroupRequest)
	if err != nil {
		return 0, err
	}

	patch := models.EntryHeaderPatch{MaxScore: req.MaxScore}
	if req.NewName != nil {
		name := strings.TrimSpace(*req.NewName)
		if name == "" {
			return 0, appErrors.Clone(appErrors.ErrValidation, "name cannot be empty")
		}
		patch.Name = &name
	}
	if req.NewDateRecorded != nil {
		date, err := parseDate(*req.NewDateRecorded)
		if err != nil {
			return 0, err
		}
		patch.DateRecorded = &date
	}
	if req.Topics != nil {
		patch.Topics = normalizeTopics(*req.Topics)
		patch.TopicsSet = true
	}
	if patch.MaxScore != nil && component.IsAttendance {
		return 0, appErrors.Clone(appErrors.ErrValidation, "max_score does not apply to attendance components")
	}
	if patch.Name == nil && patch.DateRecorded == nil && patch.MaxScore == nil && !patch.TopicsSet {
		return 0, appErrors.Clone(appErrors.ErrValidation, "no changes supplied")
	}
	if patch.MaxScore != nil {
		if err := s.checkMaxScore(ctx, key, *patch.MaxScore); err != nil {
			return 0, err
		}
	}

	affected, err := s.entries.UpdateGroupHeader(ctx, key, patch)
	if err != nil {
		return 0, s.mapGroupError(err, "update", key, affected)
	}

	s.afterWrite(ctx, actor, class.ID, models.ActivityEntryUpdated,
		fmt.Sprintf("Updated %q in %s (%s)", key.Name, component.Name, pluralize(int(affected), "entry")),
		map[string]interface{}{"component_id": component.ID, "name": key.Name, "date_recorded": req.DateRecorded, "count": affected})
	return affected, nil
}

// DeleteEntryGroup removes every entry of a group. It returns the number of
// rows removed.
func (s *GradeEntryService) DeleteEntryGroup(ctx context.Context, actor Actor, req dto.EntryGroupRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade entry group")
	}
	key, class, component, err := s.groupKey(ctx, actor, req)
	if err != nil {
		return 0, err
	}
	affected, err := s.entries.DeleteGroup(ctx, key)
	if err != nil {
		return 0, s.mapGroupError(err, "delete", key, affected)
	}

	s.afterWrite(ctx, actor, class.ID, models.ActivityEntryDeleted,
		fmt.Sprintf("Deleted %q from %s (%s)", key.Name, component.Name, pluralize(int(affected), "entry")),
		map[string]interface{}{"component_id": component.ID, "name": key.Name, "date_recorded": req.DateRecorded, "count": affected})
	return affected, nil
}

// UpdateEntryScore sets one score. On attendance components the score is read
// as points: 10 present, 5 late, anything lower absent.
func (s *GradeEntryService) UpdateEntryScore(ctx context.Context, actor Actor, entryID int64, score *float64) (*models.GradeEntry, error) {
	entry, class, component, err := s.loadEntry(ctx, actor, entryID)
	if err != nil {
		return nil, err
	}
	var mark models.Mark
	if component.IsAttendance {
		var status *models.AttendanceStatus
		if score != nil {
			st := grading.StatusFromPoints(*score)
			status = &st
		}
		mark = models.AttendanceMark{Status: status}
	} else {
		mark = models.ScoreMark{Score: score, MaxScore: derefFloat(entry.MaxScore)}
	}
	return s.applyMark(ctx, actor, class, component, entry, mark)
}

// UpdateEntryAttendance sets one attendance status.
func (s *GradeEntryService) UpdateEntryAttendance(ctx context.Context, actor Actor, entryID int64, status *models.AttendanceStatus) (*models.GradeEntry, error) {
	entry, class, component, err := s.loadEntry(ctx, actor, entryID)
	if err != nil {
		return nil, err
	}
	if !component.IsAttendance {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entry belongs to a score component")
	}
	return s.applyMark(ctx, actor, class, component, entry, models.AttendanceMark{Status: status})
}

func (s *GradeEntryService) applyMark(ctx context.Context, actor Actor, class *models.Class, component *models.GradeComponent, entry *models.GradeEntry, mark models.Mark) (*models.GradeEntry, error) {
	if err := validateMark(mark); err != nil {
		return nil, err
	}
	previous := entry.MarkFor(component.IsAttendance)
	if err := s.writeMark(ctx, entry.ID, mark); err != nil {
		return nil, err
	}
	switch m := mark.(type) {
	case models.ScoreMark:
		entry.Score = m.Score
	case models.AttendanceMark:
		entry.Attendance = m.Status
	}

	s.afterWrite(ctx, actor, class.ID, models.ActivityScoreChanged,
		fmt.Sprintf("Changed %s on %q from %s to %s", component.Name, entry.Name, previous, mark),
		map[string]interface{}{"entry_id": entry.ID, "student_id": entry.StudentID, "previous": previous.String(), "value": mark.String()})
	return entry, nil
}

// SaveChanges applies a batch of edits one at a time. Each change succeeds or
// fails on its own; the report lists every outcome.
func (s *GradeEntryService) SaveChanges(ctx context.Context, actor Actor, req dto.SaveChangesRequest) (gradebook.SaveReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return gradebook.SaveReport{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	class, err := s.loadClass(ctx, actor, req.ClassID)
	if err != nil {
		return gradebook.SaveReport{}, err
	}

	components, err := s.components.ListForClass(ctx, class.ID, class.DepartmentID)
	if err != nil {
		return gradebook.SaveReport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade components")
	}
	componentByID := make(map[int64]models.GradeComponent, len(components))
	for _, c := range components {
		componentByID[c.ID] = c
	}
	entries, err := s.entries.List(ctx, models.GradeEntryFilter{ClassID: class.ID})
	if err != nil {
		return gradebook.SaveReport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade entries")
	}
	students, err := s.students.ListByClass(ctx, class.ID)
	if err != nil {
		return gradebook.SaveReport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	names := make(map[int64]string, len(students))
	for _, st := range students {
		names[st.ID] = st.DisplayName()
	}

	entryByID := make(map[int64]models.GradeEntry, len(entries))
	snapshots := make([]gradebook.Snapshot, 0, len(entries))
	for _, e := range entries {
		component, ok := componentByID[e.ComponentID]
		if !ok {
			continue
		}
		entryByID[e.ID] = e
		snapshots = append(snapshots, gradebook.Snapshot{
			EntryID:     e.ID,
			Mark:        e.MarkFor(component.IsAttendance),
			StudentName: names[e.StudentID],
			EntryName:   e.Name,
		})
	}
	session := gradebook.NewSession(snapshots...)

	rejected := make([]gradebook.ItemResult, 0)
	for _, change := range req.Changes {
		entry, ok := entryByID[change.EntryID]
		if !ok {
			rejected = append(rejected, rejectItem(change.EntryID, "", "", appErrors.Clone(appErrors.ErrNotFound, "grade entry not found in this class")))
			continue
		}
		component := componentByID[entry.ComponentID]
		mark, err := markFromChange(component, entry, change)
		if err == nil {
			err = validateMark(mark)
		}
		if err == nil {
			err = session.Stage(change.EntryID, mark)
		}
		if err != nil {
			rejected = append(rejected, rejectItem(entry.ID, names[entry.StudentID], entry.Name, err))
		}
	}

	report := session.Save(ctx, gradebook.MarkWriterFunc(s.writeMark))
	report.Results = append(report.Results, rejected...)
	report.ErrorCount += len(rejected)

	if report.SuccessCount > 0 {
		s.cache.InvalidateClass(ctx, class.ID)
		perComponent := make(map[int64][]int64)
		for _, item := range report.Results {
			if item.Outcome != gradebook.OutcomeOK {
				continue
			}
			componentID := entryByID[item.EntryID].ComponentID
			perComponent[componentID] = append(perComponent[componentID], item.EntryID)
		}
		for componentID, ids := range perComponent {
			s.activity.Record(ctx, newActivity(actor, classRef(class.ID), models.ActivityScoreChanged,
				fmt.Sprintf("Saved %s in %s", pluralize(len(ids), "grade change"), componentByID[componentID].Name),
				map[string]interface{}{"component_id": componentID, "entry_ids": ids}))
		}
	}
	if report.ErrorCount > 0 {
		s.logger.Info("batch grade save finished with failures",
			zap.Int64("class_id", class.ID),
			zap.Int("success", report.SuccessCount),
			zap.Int("failed", report.ErrorCount))
	}
	return report, nil
}

func (s *GradeEntryService) writeMark(ctx context.Context, entryID int64, mark models.Mark) error {
	var err error
	switch m := mark.(type) {
	case models.ScoreMark:
		err = s.entries.UpdateScore(ctx, entryID, m.Score)
	case models.AttendanceMark:
		err = s.entries.UpdateAttendance(ctx, entryID, m.Status)
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported mark")
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "grade entry not found")
	}
	s.logger.Error("write grade mark", zap.Int64("entry_id", entryID), zap.Error(err))
	return appErrors.Clone(appErrors.ErrInternal, "failed to save grade")
}

func (s *GradeEntryService) afterWrite(ctx context.Context, actor Actor, classID int64, action models.ActivityAction, description string, metadata map[string]interface{}) {
	s.cache.InvalidateClass(ctx, classID)
	s.activity.Record(ctx, newActivity(actor, classRef(classID), action, description, metadata))
}

// checkMaxScore rejects a max_score lower than a score already recorded in
// the group. The repository repeats the check under the group lock.
func (s *GradeEntryService) checkMaxScore(ctx context.Context, key models.EntryGroupKey, maxScore float64) error {
	group, err := s.entries.ListGroup(ctx, key)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade entry group")
	}
	if len(group) == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "grade entry group not found")
	}
	var highest *float64
	for i := range group {
		if score := group[i].Score; score != nil && (highest == nil || *score > *highest) {
			highest = score
		}
	}
	if highest != nil && *highest > maxScore {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("max_score %g is below an existing score of %g; lower those scores first", maxScore, *highest))
	}
	return nil
}

func (s *GradeEntryService) mapGroupError(err error, op string, key models.EntryGroupKey, affected int64) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "grade entry group not found")
	case errors.Is(err, repository.ErrScoreAboveMaximum):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			"max_score is below an existing score; lower those scores first")
	case errors.Is(err, repository.ErrGroupWriteMismatch):
		s.logger.Warn("grade entry group partially written",
			zap.String("op", op),
			zap.Int64("class_id", key.ClassID),
			zap.Int64("component_id", key.ComponentID),
			zap.String("name", key.Name),
			zap.Int64("affected", affected))
		return appErrors.Wrap(err, appErrors.ErrPartialGroupWrite.Code, appErrors.ErrPartialGroupWrite.Status,
			fmt.Sprintf("Only %d entries of %q could be written; no changes were saved. Reload and try again.", affected, key.Name))
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to %s grade entry group", op))
	}
}

func (s *GradeEntryService) groupKey(ctx context.Context, actor Actor, req dto.EntryGroupRequest) (models.EntryGroupKey, *models.Class, *models.GradeComponent, error) {
	class, err := s.loadClass(ctx, actor, req.ClassID)
	if err != nil {
		return models.EntryGroupKey{}, nil, nil, err
	}
	component, err := s.loadComponent(ctx, class, req.ComponentID)
	if err != nil {
		return models.EntryGroupKey{}, nil, nil, err
	}
	date, err := parseDate(req.DateRecorded)
	if err != nil {
		return models.EntryGroupKey{}, nil, nil, err
	}
	return models.EntryGroupKey{ClassID: class.ID, ComponentID: component.ID, Name: req.Name, DateRecorded: date}, class, component, nil
}

func (s *GradeEntryService) loadClass(ctx context.Context, actor Actor, classID int64) (*models.Class, error) {
	return loadAuthorizedClass(ctx, s.classes, actor, classID)
}

func (s *GradeEntryService) loadComponent(ctx context.Context, class *models.Class, componentID int64) (*models.GradeComponent, error) {
	return loadClassComponent(ctx, s.components, class, componentID)
}

func (s *GradeEntryService) loadEntry(ctx context.Context, actor Actor, entryID int64) (*models.GradeEntry, *models.Class, *models.GradeComponent, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "grade entry not found")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade entry")
	}
	class, err := s.loadClass(ctx, actor, entry.ClassID)
	if err != nil {
		return nil, nil, nil, err
	}
	component, err := s.components.GetByID(ctx, entry.ComponentID)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade component")
	}
	return entry, class, component, nil
}

func (s *GradeEntryService) resolveStudents(ctx context.Context, classID int64, requested []int64) ([]int64, error) {
	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class students")
	}
	enrolled := make(map[int64]struct{}, len(students))
	for _, st := range students {
		enrolled[st.ID] = struct{}{}
	}
	if len(requested) == 0 {
		if len(students) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class has no enrolled students")
		}
		ids := make([]int64, 0, len(students))
		for _, st := range students {
			ids = append(ids, st.ID)
		}
		return ids, nil
	}
	seen := make(map[int64]struct{}, len(requested))
	ids := make([]int64, 0, len(requested))
	for _, id := range requested {
		if _, ok := enrolled[id]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %d is not enrolled in this class", id))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// loadAuthorizedClass loads a class and checks the actor may manage it.
func loadAuthorizedClass(ctx context.Context, classes classReader, actor Actor, classID int64) (*models.Class, error) {
	class, err := classes.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := authorizeClass(actor, class); err != nil {
		return nil, err
	}
	return class, nil
}

// loadClassComponent loads a component and checks it grades the class,
// either directly or through the department template.
func loadClassComponent(ctx context.Context, components componentReader, class *models.Class, componentID int64) (*models.GradeComponent, error) {
	component, err := components.GetByID(ctx, componentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade component not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade component")
	}
	switch {
	case component.ClassID != nil:
		if *component.ClassID != class.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "grade component belongs to another class")
		}
	case component.DepartmentID != nil && *component.DepartmentID == class.DepartmentID:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade component does not apply to this class")
	}
	return component, nil
}

func markFromChange(component models.GradeComponent, entry models.GradeEntry, change dto.MarkChange) (models.Mark, error) {
	if component.IsAttendance {
		switch {
		case change.Attendance != nil:
			status := *change.Attendance
			return models.AttendanceMark{Status: &status}, nil
		case change.Score != nil:
			status := grading.StatusFromPoints(*change.Score)
			return models.AttendanceMark{Status: &status}, nil
		default:
			return models.AttendanceMark{}, nil
		}
	}
	if change.Attendance != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entry belongs to a score component")
	}
	return models.ScoreMark{Score: change.Score, MaxScore: derefFloat(entry.MaxScore)}, nil
}

func validateMark(mark models.Mark) error {
	switch m := mark.(type) {
	case models.ScoreMark:
		if m.Score == nil {
			return nil
		}
		if *m.Score < 0 {
			return appErrors.Clone(appErrors.ErrValidation, "score cannot be negative")
		}
		if m.MaxScore > 0 && *m.Score > m.MaxScore {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score cannot exceed the maximum of %g", m.MaxScore))
		}
	case models.AttendanceMark:
		if m.Status != nil && !m.Status.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "attendance must be present, late or absent")
		}
	}
	return nil
}

func rejectItem(entryID int64, studentName, entryName string, err error) gradebook.ItemResult {
	reason := err.Error()
	if appErr := appErrors.FromError(err); appErr != nil && appErr.Code != appErrors.ErrInternal.Code {
		reason = appErr.Message
	}
	return gradebook.ItemResult{
		EntryID:     entryID,
		StudentName: studentName,
		EntryName:   entryName,
		Outcome:     gradebook.OutcomeError,
		Reason:      reason,
		Err:         err,
	}
}

func parsePeriod(raw string) (models.GradePeriod, error) {
	period := models.GradePeriod(strings.ToLower(strings.TrimSpace(raw)))
	if period == "" || period.Valid() {
		return period, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "period must be midterm or final")
}

func parseDate(raw string) (time.Time, error) {
	date, err := time.Parse(dto.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	return date, nil
}

func normalizeTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	seen := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
