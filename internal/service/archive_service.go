package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/repository"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

type archiveStore interface {
	Supports(entity models.ArchiveEntity) bool
	ListInactive(ctx context.Context, entity models.ArchiveEntity) ([]models.ArchivedRecord, error)
	SetStatus(ctx context.Context, entity models.ArchiveEntity, id int64, status models.RecordStatus) error
	PermanentDelete(ctx context.Context, entity models.ArchiveEntity, id int64) error
	Relationships(ctx context.Context, entity models.ArchiveEntity, id int64) (map[string]int, error)
}

// ArchiveEntities lists every type the archive endpoints accept, in display
// order.
var ArchiveEntities = []models.ArchiveEntity{
	models.ArchiveDepartments,
	models.ArchiveCourses,
	models.ArchiveYearLevel,
	models.ArchiveSemester,
	models.ArchiveSections,
	models.ArchiveSubjects,
	models.ArchiveClasses,
	models.ArchiveProfessors,
	models.ArchiveStudents,
}

// ArchiveService lists archived curriculum records and applies archive,
// restore and permanent delete transitions.
type ArchiveService struct {
	repo      archiveStore
	cache     summaryPurger
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewArchiveService constructs ArchiveService.
func NewArchiveService(repo archiveStore, cache summaryPurger, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *ArchiveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveService{repo: repo, cache: cache, activity: activity, validator: validate, logger: logger}
}

// List returns archived records of one type, or of every type when rawType is
// empty.
func (s *ArchiveService) List(ctx context.Context, rawType string) ([]models.ArchivedRecord, error) {
	types := ArchiveEntities
	if t := strings.TrimSpace(rawType); t != "" {
		entity := models.ArchiveEntity(t)
		if !s.repo.Supports(entity) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported archive type %q", t))
		}
		types = []models.ArchiveEntity{entity}
	}

	records := make([]models.ArchivedRecord, 0)
	for _, entity := range types {
		items, err := s.repo.ListInactive(ctx, entity)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archived records")
		}
		records = append(records, items...)
	}
	if len(types) > 1 {
		sort.SliceStable(records, func(i, j int) bool {
			a, b := records[i].ArchivedAt, records[j].ArchivedAt
			if a == nil || b == nil {
				return a != nil
			}
			return a.After(*b)
		})
	}
	return records, nil
}

// Relationships reports the dependent row counts of one record.
func (s *ArchiveService) Relationships(ctx context.Context, rawType string, id int64) (map[string]int, error) {
	entity := models.ArchiveEntity(strings.TrimSpace(rawType))
	if !s.repo.Supports(entity) || id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Missing or invalid type/id")
	}
	counts, err := s.repo.Relationships(ctx, entity, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count related records")
	}
	return counts, nil
}

// Apply runs the requested transition.
func (s *ArchiveService) Apply(ctx context.Context, actor Actor, req dto.ArchiveActionRequest) (*dto.ArchiveActionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid archive request")
	}
	if !s.repo.Supports(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported archive type %q", req.Type))
	}

	var (
		err     error
		message string
	)
	switch req.Action {
	case models.ActionArchive:
		err = s.repo.SetStatus(ctx, req.Type, req.ID, models.StatusInactive)
		message = "Record archived"
	case models.ActionRestore:
		err = s.repo.SetStatus(ctx, req.Type, req.ID, models.StatusActive)
		message = "Record restored"
	case models.ActionPermanentDelete:
		err = s.repo.PermanentDelete(ctx, req.Type, req.ID)
		message = "Record permanently deleted"
	}
	if err != nil {
		return nil, s.mapError(err, req)
	}

	s.cache.InvalidateAll(ctx)
	s.activity.Record(ctx, newActivity(actor, nil, models.ActivityArchiveApplied,
		fmt.Sprintf("%s %s %d", message, req.Type, req.ID),
		map[string]interface{}{"type": req.Type, "id": req.ID, "action": req.Action}))
	s.logger.Info("archive action applied",
		zap.String("type", string(req.Type)),
		zap.Int64("id", req.ID),
		zap.String("action", string(req.Action)))

	return &dto.ArchiveActionResponse{Type: req.Type, ID: req.ID, Action: req.Action, Message: message}, nil
}

func (s *ArchiveService) mapError(err error, req dto.ArchiveActionRequest) error {
	var depErr *repository.DependencyError
	switch {
	case errors.As(err, &depErr):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, depErr.Error())
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s record %d not found", req.Type, req.ID))
	case errors.Is(err, repository.ErrUnknownArchiveEntity):
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported archive type %q", req.Type))
	default:
		s.logger.Error("archive action failed",
			zap.String("type", string(req.Type)),
			zap.Int64("id", req.ID),
			zap.String("action", string(req.Action)),
			zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply archive action")
	}
}
