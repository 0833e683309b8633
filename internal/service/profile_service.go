package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-gradebook-api/internal/dto"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

type privacyStore interface {
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	UpdatePrivacySettings(ctx context.Context, id int64, settings models.JSONB) error
}

type accountStore interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// ProfileService manages the signed-in user's own settings.
type ProfileService struct {
	students  privacyStore
	accounts  accountStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs ProfileService.
func NewProfileService(students privacyStore, accounts accountStore, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{students: students, accounts: accounts, validator: validate, logger: logger}
}

// Privacy returns the student's privacy settings. Missing or unreadable
// settings read as public.
func (s *ProfileService) Privacy(ctx context.Context, actor Actor) (models.PrivacySettings, error) {
	student, err := s.student(ctx, actor)
	if err != nil {
		return models.PrivacySettings{}, err
	}
	return decodePrivacy(student.PrivacySettings), nil
}

// UpdatePrivacy stores new privacy settings.
func (s *ProfileService) UpdatePrivacy(ctx context.Context, actor Actor, req dto.UpdatePrivacyRequest) (models.PrivacySettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.PrivacySettings{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "profileVisibility must be public or private")
	}
	if _, err := s.student(ctx, actor); err != nil {
		return models.PrivacySettings{}, err
	}
	settings := models.PrivacySettings{ProfileVisibility: req.ProfileVisibility}
	raw, err := json.Marshal(settings)
	if err != nil {
		return models.PrivacySettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode privacy settings")
	}
	if err := s.students.UpdatePrivacySettings(ctx, actor.ProfileID, raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PrivacySettings{}, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return models.PrivacySettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update privacy settings")
	}
	return settings, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *ProfileService) ChangePassword(ctx context.Context, actor Actor, req dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "new password must be between 8 and 72 characters")
	}
	account, err := s.accounts.GetByID(ctx, actor.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return appErrors.ErrInvalidCredentials
	}
	if req.CurrentPassword == req.NewPassword {
		return appErrors.Clone(appErrors.ErrValidation, "new password must differ from the current password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	s.logger.Info("password changed", zap.Int64("account_id", account.ID))
	return nil
}

func (s *ProfileService) student(ctx context.Context, actor Actor) (*models.Student, error) {
	if actor.Role != models.RoleStudent || actor.ProfileID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "privacy settings are only available to students")
	}
	student, err := s.students.GetByID(ctx, actor.ProfileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func decodePrivacy(raw models.JSONB) models.PrivacySettings {
	settings := models.PrivacySettings{ProfileVisibility: models.VisibilityPublic}
	if len(raw) == 0 {
		return settings
	}
	var stored models.PrivacySettings
	if err := json.Unmarshal(raw, &stored); err != nil {
		return settings
	}
	if stored.ProfileVisibility == models.VisibilityPrivate {
		settings.ProfileVisibility = models.VisibilityPrivate
	}
	return settings
}
