package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
	"github.com/noah-isme/campus-gradebook-api/pkg/jobs"
)

const (
	activityJobType     = "activity_log"
	defaultActivityPage = 50
	maxActivityPage     = 200
)

type activityStore interface {
	Create(ctx context.Context, log *models.ActivityLog) error
	ListByClass(ctx context.Context, classID int64, limit int) ([]models.ActivityLog, error)
}

// ActivityService writes gradebook activity logs on a background queue so a
// failing log never fails the request that produced it.
type ActivityService struct {
	repo    activityStore
	classes classReader
	queue   *jobs.Queue
	logger  *zap.Logger
}

// NewActivityService constructs the service and its queue. Start must be
// called before records are persisted.
func NewActivityService(repo activityStore, classes classReader, cfg jobs.QueueConfig, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ActivityService{repo: repo, classes: classes, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("activity-log", s.persist, cfg)
	return s
}

// Start launches the queue workers.
func (s *ActivityService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains buffered records and stops the workers.
func (s *ActivityService) Stop() {
	s.queue.Stop()
}

// Record enqueues a log entry. It never blocks and never returns an error.
func (s *ActivityService) Record(_ context.Context, entry models.ActivityLog) {
	if s == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	err := s.queue.TryEnqueue(jobs.Job{Type: activityJobType, Payload: entry})
	if err != nil {
		level := s.logger.Warn
		if errors.Is(err, jobs.ErrQueueFull) {
			level = s.logger.Error
		}
		level("activity log dropped",
			zap.String("action", string(entry.Action)),
			zap.String("description", entry.Description),
			zap.Error(err))
	}
}

// List returns the latest activity of a class the actor may view.
func (s *ActivityService) List(ctx context.Context, actor Actor, classID int64, limit int) ([]models.ActivityLog, error) {
	if _, err := loadAuthorizedClass(ctx, s.classes, actor, classID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxActivityPage {
		limit = defaultActivityPage
	}
	logs, err := s.repo.ListByClass(ctx, classID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}
	return logs, nil
}

func (s *ActivityService) persist(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.ActivityLog)
	if !ok {
		s.logger.Error("unexpected activity payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, &entry)
}

// newActivity builds a log entry, encoding metadata as JSON. Metadata that
// cannot be encoded is dropped.
func newActivity(actor Actor, classID *int64, action models.ActivityAction, description string, metadata map[string]interface{}) models.ActivityLog {
	entry := models.ActivityLog{
		AccountID:   actor.accountRef(),
		ClassID:     classID,
		Action:      action,
		Description: description,
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = raw
		}
	}
	return entry
}

func classRef(id int64) *int64 {
	return &id
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	if strings.HasSuffix(noun, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(noun, "y"))
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
