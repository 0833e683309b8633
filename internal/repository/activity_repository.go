package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
)

// ActivityRepository persists activity logs.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends a log row.
func (r *ActivityRepository) Create(ctx context.Context, log *models.ActivityLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_logs (account_id, class_id, action, description, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6) RETURNING log_id`
	if err := r.db.QueryRowxContext(ctx, query, log.AccountID, log.ClassID, log.Action, log.Description, log.Metadata, log.CreatedAt).Scan(&log.ID); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// ListByClass returns the newest logs of a class.
func (r *ActivityRepository) ListByClass(ctx context.Context, classID int64, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `SELECT log_id, account_id, class_id, action, description, metadata, created_at
	FROM activity_logs WHERE class_id = $1 ORDER BY created_at DESC, log_id DESC LIMIT $2`
	logs := make([]models.ActivityLog, 0)
	if err := r.db.SelectContext(ctx, &logs, query, classID, limit); err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return logs, nil
}
