package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/repository"
)

func floatPtr(v float64) *float64 { return &v }

func int64Ptr(v int64) *int64 { return &v }

func statusPtr(s models.AttendanceStatus) *models.AttendanceStatus { return &s }

var (
	adminActor     = Actor{AccountID: 1, Role: models.RoleAdmin}
	professorActor = Actor{AccountID: 20, ProfileID: 7, Role: models.RoleProfessor}
	strangerActor  = Actor{AccountID: 21, ProfileID: 8, Role: models.RoleProfessor}
	studentActor   = Actor{AccountID: 30, ProfileID: 101, Role: models.RoleStudent}
)

type fakeClasses struct {
	classes map[int64]*models.Class
	linked  map[int64]string
}

func newFakeClasses(classes ...models.Class) *fakeClasses {
	f := &fakeClasses{classes: make(map[int64]*models.Class), linked: make(map[int64]string)}
	for i := range classes {
		c := classes[i]
		f.classes[c.ID] = &c
	}
	return f
}

func (f *fakeClasses) GetByID(_ context.Context, id int64) (*models.Class, error) {
	c, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *c
	return &out, nil
}

func (f *fakeClasses) ListByStudent(_ context.Context, studentID int64) ([]models.Class, error) {
	out := make([]models.Class, 0)
	for _, c := range f.classes {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectCode < out[j].SubjectCode })
	return out, nil
}

func (f *fakeClasses) LinkClassroomCourse(_ context.Context, classID int64, courseID string) error {
	c, ok := f.classes[classID]
	if !ok {
		return sql.ErrNoRows
	}
	c.ClassroomCourseID = &courseID
	f.linked[classID] = courseID
	return nil
}

type fakeComponents struct {
	byID map[int64]models.GradeComponent
}

func newFakeComponents(components ...models.GradeComponent) *fakeComponents {
	f := &fakeComponents{byID: make(map[int64]models.GradeComponent)}
	for _, c := range components {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeComponents) GetByID(_ context.Context, id int64) (*models.GradeComponent, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f *fakeComponents) ListForClass(_ context.Context, classID, departmentID int64) ([]models.GradeComponent, error) {
	var own, template []models.GradeComponent
	for _, c := range f.byID {
		if c.ClassID != nil && *c.ClassID == classID {
			own = append(own, c)
		}
		if c.ClassID == nil && c.DepartmentID != nil && *c.DepartmentID == departmentID {
			template = append(template, c)
		}
	}
	out := own
	if len(out) == 0 {
		out = template
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeRoster struct {
	byClass map[int64][]models.Student
}

func (f *fakeRoster) ListByClass(_ context.Context, classID int64) ([]models.Student, error) {
	return f.byClass[classID], nil
}

// fakeEntries is an in-memory grade entry store.
type fakeEntries struct {
	mu        sync.Mutex
	nextID    int64
	entries   map[int64]models.GradeEntry
	failScore map[int64]error
	mismatch  bool
	headerErr error
}

func newFakeEntries(entries ...models.GradeEntry) *fakeEntries {
	f := &fakeEntries{entries: make(map[int64]models.GradeEntry), failScore: make(map[int64]error), nextID: 1000}
	for _, e := range entries {
		f.entries[e.ID] = e
	}
	return f
}

// inPeriod mirrors the repository's period filter: entries without a period
// are visible in every view.
func inPeriod(e models.GradeEntry, period models.GradePeriod) bool {
	if period == "" || e.GradePeriod == nil {
		return true
	}
	return *e.GradePeriod == period
}

func (f *fakeEntries) List(_ context.Context, filter models.GradeEntryFilter) ([]models.GradeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.GradeEntry, 0)
	for _, e := range f.entries {
		if e.ClassID != filter.ClassID || !inPeriod(e, filter.Period) {
			continue
		}
		if filter.ComponentID != nil && e.ComponentID != *filter.ComponentID {
			continue
		}
		if filter.StudentID != nil && e.StudentID != *filter.StudentID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeEntries) GetByID(_ context.Context, id int64) (*models.GradeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (f *fakeEntries) ListGroup(_ context.Context, key models.EntryGroupKey) ([]models.GradeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.GradeEntry, 0)
	for _, e := range f.entries {
		if f.inGroup(e, key) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeEntries) CreateGroup(_ context.Context, entries []*models.GradeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.nextID++
		e.ID = f.nextID
		f.entries[e.ID] = *e
	}
	return nil
}

func (f *fakeEntries) inGroup(e models.GradeEntry, key models.EntryGroupKey) bool {
	return e.ClassID == key.ClassID && e.ComponentID == key.ComponentID && e.Name == key.Name && e.DateRecorded.Equal(key.DateRecorded)
}

func (f *fakeEntries) UpdateGroupHeader(_ context.Context, key models.EntryGroupKey, patch models.EntryHeaderPatch) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headerErr != nil {
		return 0, f.headerErr
	}
	var n int64
	for id, e := range f.entries {
		if !f.inGroup(e, key) {
			continue
		}
		n++
		if patch.Name != nil {
			e.Name = *patch.Name
		}
		if patch.DateRecorded != nil {
			e.DateRecorded = *patch.DateRecorded
		}
		if patch.MaxScore != nil {
			e.MaxScore = patch.MaxScore
		}
		if patch.TopicsSet {
			e.Topics = patch.Topics
		}
		f.entries[id] = e
	}
	if n == 0 {
		return 0, sql.ErrNoRows
	}
	if f.mismatch {
		return n - 1, repository.ErrGroupWriteMismatch
	}
	return n, nil
}

func (f *fakeEntries) DeleteGroup(_ context.Context, key models.EntryGroupKey) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, e := range f.entries {
		if f.inGroup(e, key) {
			delete(f.entries, id)
			n++
		}
	}
	if n == 0 {
		return 0, sql.ErrNoRows
	}
	return n, nil
}

func (f *fakeEntries) UpdateScore(_ context.Context, id int64, score *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failScore[id]; err != nil {
		return err
	}
	e, ok := f.entries[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Score = score
	f.entries[id] = e
	return nil
}

func (f *fakeEntries) UpdateAttendance(_ context.Context, id int64, status *models.AttendanceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Attendance = status
	f.entries[id] = e
	return nil
}

type fakeInvalidator struct {
	classes []int64
	all     int
}

func (f *fakeInvalidator) InvalidateClass(_ context.Context, classID int64) {
	f.classes = append(f.classes, classID)
}

func (f *fakeInvalidator) InvalidateAll(_ context.Context) {
	f.all++
}

type fakeActivity struct {
	logs []models.ActivityLog
}

func (f *fakeActivity) Record(_ context.Context, entry models.ActivityLog) {
	f.logs = append(f.logs, entry)
}

func (f *fakeActivity) actions() []models.ActivityAction {
	out := make([]models.ActivityAction, 0, len(f.logs))
	for _, l := range f.logs {
		out = append(out, l.Action)
	}
	return out
}

func (f *fakeEntries) ApplyImport(ctx context.Context, creates []*models.GradeEntry, updates []repository.ScoreUpdate) error {
	if err := f.CreateGroup(ctx, creates); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range updates {
		e, ok := f.entries[u.EntryID]
		if !ok {
			return sql.ErrNoRows
		}
		score, ceiling := u.Score, u.MaxScore
		e.Score, e.MaxScore = &score, &ceiling
		f.entries[u.EntryID] = e
	}
	return nil
}
