package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/repository"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

type componentRepoStub struct {
	*fakeComponents
	nextID     int64
	inUse      map[int64]bool
	replaced   []models.GradeComponent
	replaceErr error
}

func newComponentRepoStub(components ...models.GradeComponent) *componentRepoStub {
	return &componentRepoStub{fakeComponents: newFakeComponents(components...), nextID: 500, inUse: map[int64]bool{}}
}

func (s *componentRepoStub) ListByDepartment(_ context.Context, departmentID int64) ([]models.GradeComponent, error) {
	out := make([]models.GradeComponent, 0)
	for _, c := range s.byID {
		if c.ClassID == nil && c.DepartmentID != nil && *c.DepartmentID == departmentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *componentRepoStub) Create(_ context.Context, c *models.GradeComponent) error {
	s.nextID++
	c.ID = s.nextID
	s.byID[c.ID] = *c
	return nil
}

func (s *componentRepoStub) Update(_ context.Context, c *models.GradeComponent) error {
	if _, ok := s.byID[c.ID]; !ok {
		return sql.ErrNoRows
	}
	s.byID[c.ID] = *c
	return nil
}

func (s *componentRepoStub) Delete(_ context.Context, id int64) error {
	if _, ok := s.byID[id]; !ok {
		return sql.ErrNoRows
	}
	if s.inUse[id] {
		return repository.ErrComponentInUse
	}
	delete(s.byID, id)
	return nil
}

func (s *componentRepoStub) ReplaceForDepartment(_ context.Context, departmentID int64, components []models.GradeComponent) ([]models.GradeComponent, error) {
	if s.replaceErr != nil {
		return nil, s.replaceErr
	}
	s.replaced = components
	return components, nil
}

func (s *componentRepoStub) CountByComponent(_ context.Context, id int64) (int, error) {
	if s.inUse[id] {
		return 4, nil
	}
	return 0, nil
}

func newComponentService(repo *componentRepoStub) (*GradeComponentService, *fakeInvalidator, *fakeActivity) {
	cache := &fakeInvalidator{}
	activity := &fakeActivity{}
	return NewGradeComponentService(repo, repo, cache, activity, nil, nil), cache, activity
}

func TestReplaceDepartmentComponentsValidatesWeights(t *testing.T) {
	repo := newComponentRepoStub()
	svc, cache, _ := newComponentService(repo)

	_, err := svc.ReplaceDepartmentComponents(context.Background(), adminActor, 3, dto.ReplaceComponentsRequest{Components: []dto.GradeComponentInput{
		{Name: "Quizzes", WeightPercentage: 40},
		{Name: "Exams", WeightPercentage: 50},
	}})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, appErr.Code)
	assert.Equal(t, "total weight is 90%, components must sum to 100%", appErr.Message)
	assert.Zero(t, cache.all)

	_, err = svc.ReplaceDepartmentComponents(context.Background(), adminActor, 3, dto.ReplaceComponentsRequest{Components: []dto.GradeComponentInput{
		{Name: "Quizzes", WeightPercentage: 50},
		{Name: "quizzes", WeightPercentage: 50},
	}})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReplaceDepartmentComponentsSaves(t *testing.T) {
	repo := newComponentRepoStub()
	svc, cache, activity := newComponentService(repo)

	saved, err := svc.ReplaceDepartmentComponents(context.Background(), adminActor, 3, dto.ReplaceComponentsRequest{Components: []dto.GradeComponentInput{
		{ID: 11, Name: " Quizzes ", WeightPercentage: 40},
		{Name: "Exams", WeightPercentage: 50},
		{Name: "Attendance", WeightPercentage: 10, IsAttendance: true},
	}})
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, "Quizzes", repo.replaced[0].Name)
	assert.True(t, repo.replaced[2].IsAttendance)
	assert.Equal(t, 1, cache.all)
	assert.Equal(t, []models.ActivityAction{models.ActivityComponentsEdited}, activity.actions())
}

func TestReplaceDepartmentComponentsInUse(t *testing.T) {
	repo := newComponentRepoStub()
	repo.replaceErr = repository.ErrComponentInUse
	svc, _, _ := newComponentService(repo)

	_, err := svc.ReplaceDepartmentComponents(context.Background(), adminActor, 3, dto.ReplaceComponentsRequest{Components: []dto.GradeComponentInput{
		{Name: "Exams", WeightPercentage: 100},
	}})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestCreateDepartmentComponentGuardsCeiling(t *testing.T) {
	repo := newComponentRepoStub(
		models.GradeComponent{ID: 1, DepartmentID: int64Ptr(3), Name: "Quizzes", WeightPercentage: 60},
		models.GradeComponent{ID: 2, DepartmentID: int64Ptr(3), Name: "Exams", WeightPercentage: 30},
	)
	svc, _, _ := newComponentService(repo)

	_, err := svc.CreateDepartmentComponent(context.Background(), adminActor, 3, dto.GradeComponentInput{Name: "Projects", WeightPercentage: 20})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidWeights))

	_, err = svc.CreateDepartmentComponent(context.Background(), adminActor, 3, dto.GradeComponentInput{Name: "exams", WeightPercentage: 5})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	created, err := svc.CreateDepartmentComponent(context.Background(), adminActor, 3, dto.GradeComponentInput{Name: "Attendance", WeightPercentage: 10, IsAttendance: true})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, int64(3), *created.DepartmentID)
}

func TestUpdateComponent(t *testing.T) {
	repo := newComponentRepoStub(
		models.GradeComponent{ID: 1, DepartmentID: int64Ptr(3), Name: "Quizzes", WeightPercentage: 60},
		models.GradeComponent{ID: 2, DepartmentID: int64Ptr(3), Name: "Exams", WeightPercentage: 40},
	)
	repo.inUse[1] = true
	svc, _, _ := newComponentService(repo)
	ctx := context.Background()

	updated, err := svc.UpdateComponent(ctx, adminActor, 1, dto.UpdateComponentRequest{WeightPercentage: floatPtr(55), Name: stringPtr("Short quizzes")})
	require.NoError(t, err)
	assert.Equal(t, 55.0, updated.WeightPercentage)
	assert.Equal(t, "Short quizzes", repo.byID[1].Name)

	_, err = svc.UpdateComponent(ctx, adminActor, 1, dto.UpdateComponentRequest{WeightPercentage: floatPtr(70)})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidWeights))

	flag := true
	_, err = svc.UpdateComponent(ctx, adminActor, 1, dto.UpdateComponentRequest{IsAttendance: &flag})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.UpdateComponent(ctx, adminActor, 9, dto.UpdateComponentRequest{WeightPercentage: floatPtr(1)})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDeleteComponent(t *testing.T) {
	repo := newComponentRepoStub(
		models.GradeComponent{ID: 1, DepartmentID: int64Ptr(3), Name: "Quizzes", WeightPercentage: 60},
		models.GradeComponent{ID: 2, DepartmentID: int64Ptr(3), Name: "Exams", WeightPercentage: 40},
	)
	repo.inUse[1] = true
	svc, cache, _ := newComponentService(repo)

	err := svc.DeleteComponent(context.Background(), adminActor, 1)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	require.NoError(t, svc.DeleteComponent(context.Background(), adminActor, 2))
	assert.Equal(t, 1, cache.all)

	err = svc.DeleteComponent(context.Background(), adminActor, 2)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
