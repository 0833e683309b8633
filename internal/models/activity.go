package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// ActivityAction enumerates the gradebook events that are logged.
type ActivityAction string

const (
	ActivityEntryCreated     ActivityAction = "grade_entry_created"
	ActivityEntryUpdated     ActivityAction = "grade_entry_updated"
	ActivityEntryDeleted     ActivityAction = "grade_entry_deleted"
	ActivityScoreChanged     ActivityAction = "score_changed"
	ActivityScoresImported   ActivityAction = "scores_imported"
	ActivityComponentsEdited ActivityAction = "components_updated"
	ActivityArchiveApplied   ActivityAction = "archive_applied"
)

// ActivityLog is an append-only audit row.
type ActivityLog struct {
	ID          int64          `db:"log_id" json:"log_id"`
	AccountID   *int64         `db:"account_id" json:"account_id,omitempty"`
	ClassID     *int64         `db:"class_id" json:"class_id,omitempty"`
	Action      ActivityAction `db:"action" json:"action"`
	Description string         `db:"description" json:"description"`
	Metadata    JSONB          `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// JSONB is a raw JSON column value.
type JSONB []byte

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner. The bytes are copied because drivers reuse
// their buffers.
func (j *JSONB) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSONB(nil), v...)
	case string:
		*j = JSONB(v)
	default:
		return fmt.Errorf("unsupported JSONB source %T", src)
	}
	return nil
}

// MarshalJSON emits the raw document.
func (j JSONB) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores the raw document.
func (j *JSONB) UnmarshalJSON(data []byte) error {
	*j = append(JSONB(nil), data...)
	return nil
}
