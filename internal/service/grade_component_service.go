package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/grading"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/repository"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

type gradeComponentRepo interface {
	ListByDepartment(ctx context.Context, departmentID int64) ([]models.GradeComponent, error)
	ListForClass(ctx context.Context, classID, departmentID int64) ([]models.GradeComponent, error)
	GetByID(ctx context.Context, id int64) (*models.GradeComponent, error)
	Create(ctx context.Context, component *models.GradeComponent) error
	Update(ctx context.Context, component *models.GradeComponent) error
	Delete(ctx context.Context, id int64) error
	ReplaceForDepartment(ctx context.Context, departmentID int64, components []models.GradeComponent) ([]models.GradeComponent, error)
}

type componentUsage interface {
	CountByComponent(ctx context.Context, componentID int64) (int, error)
}

type summaryPurger interface {
	InvalidateAll(ctx context.Context)
}

// GradeComponentService manages department component templates and single
// component edits.
type GradeComponentService struct {
	repo      gradeComponentRepo
	usage     componentUsage
	cache     summaryPurger
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeComponentService constructs service.
func NewGradeComponentService(repo gradeComponentRepo, usage componentUsage, cache summaryPurger, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *GradeComponentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeComponentService{repo: repo, usage: usage, cache: cache, activity: activity, validator: validate, logger: logger}
}

// ListByDepartment returns the department template.
func (s *GradeComponentService) ListByDepartment(ctx context.Context, departmentID int64) ([]models.GradeComponent, error) {
	components, err := s.repo.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade components")
	}
	return components, nil
}

// ReplaceDepartmentComponents swaps the whole template for the given set. The
// set must sum to 100 and carry unique names.
func (s *GradeComponentService) ReplaceDepartmentComponents(ctx context.Context, actor Actor, departmentID int64, req dto.ReplaceComponentsRequest) ([]models.GradeComponent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade component payload")
	}
	components := make([]models.GradeComponent, 0, len(req.Components))
	weights := make([]float64, 0, len(req.Components))
	names := make(map[string]struct{}, len(req.Components))
	for _, in := range req.Components {
		name := strings.TrimSpace(in.Name)
		key := strings.ToLower(name)
		if _, dup := names[key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("component name %q is used more than once", name))
		}
		names[key] = struct{}{}
		weights = append(weights, in.WeightPercentage)
		components = append(components, models.GradeComponent{
			ID:               in.ID,
			Name:             name,
			WeightPercentage: in.WeightPercentage,
			IsAttendance:     in.IsAttendance,
		})
	}
	if err := grading.ValidateWeights(weights); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidWeights.Code, appErrors.ErrInvalidWeights.Status, err.Error())
	}

	saved, err := s.repo.ReplaceForDepartment(ctx, departmentID, components)
	if err != nil {
		if errors.Is(err, repository.ErrComponentInUse) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "cannot remove a grade component that already has grade entries")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade components")
	}

	s.afterChange(ctx, actor, fmt.Sprintf("Replaced grade components of department %d (%s)", departmentID, pluralize(len(saved), "component")),
		map[string]interface{}{"department_id": departmentID, "count": len(saved)})
	return saved, nil
}

// CreateDepartmentComponent adds one template component, keeping the total at
// or below 100.
func (s *GradeComponentService) CreateDepartmentComponent(ctx context.Context, actor Actor, departmentID int64, req dto.GradeComponentInput) (*models.GradeComponent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade component payload")
	}
	siblings, err := s.repo.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade components")
	}
	component := &models.GradeComponent{
		DepartmentID:     &departmentID,
		Name:             strings.TrimSpace(req.Name),
		WeightPercentage: req.WeightPercentage,
		IsAttendance:     req.IsAttendance,
	}
	if err := checkSiblings(siblings, *component); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, component); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade component")
	}
	s.afterChange(ctx, actor, fmt.Sprintf("Added grade component %q", component.Name),
		map[string]interface{}{"department_id": departmentID, "component_id": component.ID})
	return component, nil
}

// UpdateComponent edits one component. Flipping the attendance flag is refused
// once entries exist because their mark shape would no longer match.
func (s *GradeComponentService) UpdateComponent(ctx context.Context, actor Actor, id int64, req dto.UpdateComponentRequest) (*models.GradeComponent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade component payload")
	}
	component, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *component
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.WeightPercentage != nil {
		updated.WeightPercentage = *req.WeightPercentage
	}
	if req.IsAttendance != nil && *req.IsAttendance != component.IsAttendance {
		refs, err := s.usage.CountByComponent(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade component usage")
		}
		if refs > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot change the type of a component with %s", pluralize(refs, "grade entry")))
		}
		updated.IsAttendance = *req.IsAttendance
	}

	siblings, err := s.siblings(ctx, component)
	if err != nil {
		return nil, err
	}
	if err := checkSiblings(siblings, updated); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade component not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade component")
	}
	s.afterChange(ctx, actor, fmt.Sprintf("Updated grade component %q", updated.Name),
		map[string]interface{}{"component_id": id})
	return &updated, nil
}

// DeleteComponent removes a component nothing references.
func (s *GradeComponentService) DeleteComponent(ctx context.Context, actor Actor, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "grade component not found")
		case errors.Is(err, repository.ErrComponentInUse):
			return appErrors.Clone(appErrors.ErrConflict, "cannot delete a grade component that already has grade entries")
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade component")
		}
	}
	s.afterChange(ctx, actor, fmt.Sprintf("Deleted grade component %d", id), map[string]interface{}{"component_id": id})
	return nil
}

func (s *GradeComponentService) load(ctx context.Context, id int64) (*models.GradeComponent, error) {
	component, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade component not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade component")
	}
	return component, nil
}

func (s *GradeComponentService) siblings(ctx context.Context, component *models.GradeComponent) ([]models.GradeComponent, error) {
	var (
		list []models.GradeComponent
		err  error
	)
	switch {
	case component.ClassID != nil:
		list, err = s.repo.ListForClass(ctx, *component.ClassID, 0)
	case component.DepartmentID != nil:
		list, err = s.repo.ListByDepartment(ctx, *component.DepartmentID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade components")
	}
	return list, nil
}

func (s *GradeComponentService) afterChange(ctx context.Context, actor Actor, description string, metadata map[string]interface{}) {
	s.cache.InvalidateAll(ctx)
	s.activity.Record(ctx, newActivity(actor, nil, models.ActivityComponentsEdited, description, metadata))
}

// checkSiblings validates candidate against the rest of its set: the name must
// be unique and the weights must not exceed 100.
func checkSiblings(siblings []models.GradeComponent, candidate models.GradeComponent) error {
	weights := []float64{candidate.WeightPercentage}
	for _, c := range siblings {
		if c.ID == candidate.ID && candidate.ID != 0 {
			continue
		}
		if strings.EqualFold(c.Name, candidate.Name) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("component name %q already exists", candidate.Name))
		}
		weights = append(weights, c.WeightPercentage)
	}
	if err := grading.ValidateWeightCeiling(weights); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidWeights.Code, appErrors.ErrInvalidWeights.Status, err.Error())
	}
	return nil
}
