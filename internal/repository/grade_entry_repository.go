package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/pkg/database"
)

// ErrGroupWriteMismatch is returned when a group update or delete touched a
// different number of rows than the group holds. The transaction is rolled
// back before it is returned.
var ErrGroupWriteMismatch = errors.New("grade entry group write affected an unexpected number of rows")

// ErrScoreAboveMaximum is returned when a header update would lower
// max_score below a score already recorded in the group.
var ErrScoreAboveMaximum = errors.New("grade entry group holds a score above the new max_score")

const dateLayout = "2006-01-02"

var gradeEntryColumns = []string{
	"grade_id", "student_id", "component_id", "class_id", "name", "date_recorded", "grade_period",
	"score", "max_score", "attendance", "topics", "entry_type", "created_at", "updated_at",
}

// ScoreUpdate rewrites the score of an existing entry during an import.
type ScoreUpdate struct {
	EntryID  int64
	Score    float64
	MaxScore float64
}

// GradeEntryRepository persists grade entries.
type GradeEntryRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewGradeEntryRepository constructs the repository.
func NewGradeEntryRepository(db *sqlx.DB) *GradeEntryRepository {
	return &GradeEntryRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// List returns entries matching the filter. A period filter keeps entries of
// that period and entries without a period.
func (r *GradeEntryRepository) List(ctx context.Context, filter models.GradeEntryFilter) ([]models.GradeEntry, error) {
	builder := r.sb.Select(gradeEntryColumns...).From("grade_entries")
	if filter.ClassID > 0 {
		builder = builder.Where(squirrel.Eq{"class_id": filter.ClassID})
	}
	if filter.Period != "" {
		builder = builder.Where(squirrel.Or{
			squirrel.Eq{"grade_period": string(filter.Period)},
			squirrel.Eq{"grade_period": nil},
		})
	}
	if filter.ComponentID != nil {
		builder = builder.Where(squirrel.Eq{"component_id": *filter.ComponentID})
	}
	if filter.StudentID != nil {
		builder = builder.Where(squirrel.Eq{"student_id": *filter.StudentID})
	}
	query, args, err := builder.OrderBy("date_recorded ASC", "grade_id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list grade entries: %w", err)
	}
	entries := make([]models.GradeEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list grade entries: %w", err)
	}
	return entries, nil
}

// GetByID loads one entry.
func (r *GradeEntryRepository) GetByID(ctx context.Context, id int64) (*models.GradeEntry, error) {
	query, args, err := r.sb.Select(gradeEntryColumns...).From("grade_entries").Where(squirrel.Eq{"grade_id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get grade entry: %w", err)
	}
	var entry models.GradeEntry
	if err := r.db.GetContext(ctx, &entry, query, args...); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListGroup returns the entries sharing a group key.
func (r *GradeEntryRepository) ListGroup(ctx context.Context, key models.EntryGroupKey) ([]models.GradeEntry, error) {
	query, args, err := r.sb.Select(gradeEntryColumns...).From("grade_entries").Where(groupWhere(key)).OrderBy("grade_id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list grade entry group: %w", err)
	}
	entries := make([]models.GradeEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list grade entry group: %w", err)
	}
	return entries, nil
}

// CreateGroup inserts one entry per student in a single transaction and fills
// in the generated ids.
func (r *GradeEntryRepository) CreateGroup(ctx context.Context, entries []*models.GradeEntry) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, entry := range entries {
			if err := r.insert(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GradeEntryRepository) insert(ctx context.Context, tx *sqlx.Tx, entry *models.GradeEntry) error {
	now := time.Now().UTC()
	entry.CreatedAt, entry.UpdatedAt = now, now
	if entry.Topics == nil {
		entry.Topics = pq.StringArray{}
	}
	query, args, err := r.sb.Insert("grade_entries").
		Columns("student_id", "component_id", "class_id", "name", "date_recorded", "grade_period",
			"score", "max_score", "attendance", "topics", "entry_type", "created_at", "updated_at").
		Values(entry.StudentID, entry.ComponentID, entry.ClassID, entry.Name, entry.DateRecorded.Format(dateLayout), entry.GradePeriod,
			entry.Score, entry.MaxScore, entry.Attendance, entry.Topics, entry.EntryType, entry.CreatedAt, entry.UpdatedAt).
		Suffix("RETURNING grade_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert grade entry: %w", err)
	}
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&entry.ID); err != nil {
		return fmt.Errorf("insert grade entry for student %d: %w", entry.StudentID, err)
	}
	return nil
}

// UpdateGroupHeader rewrites the header of every entry in the group. It
// returns sql.ErrNoRows for an empty group and ErrGroupWriteMismatch when the
// update does not cover the whole group. Lowering max_score below a score the
// group already holds fails with ErrScoreAboveMaximum.
func (r *GradeEntryRepository) UpdateGroupHeader(ctx context.Context, key models.EntryGroupKey, patch models.EntryHeaderPatch) (int64, error) {
	var affected int64
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		size, err := r.lockGroup(ctx, tx, key)
		if err != nil {
			return err
		}
		if patch.MaxScore != nil {
			highest, err := r.highestScore(ctx, tx, key)
			if err != nil {
				return err
			}
			if highest > *patch.MaxScore {
				return fmt.Errorf("%w: %g > %g", ErrScoreAboveMaximum, highest, *patch.MaxScore)
			}
		}
		update := r.sb.Update("grade_entries").Set("updated_at", time.Now().UTC()).Where(groupWhere(key))
		if patch.Name != nil {
			update = update.Set("name", *patch.Name)
		}
		if patch.DateRecorded != nil {
			update = update.Set("date_recorded", patch.DateRecorded.Format(dateLayout))
		}
		if patch.MaxScore != nil {
			update = update.Set("max_score", *patch.MaxScore)
		}
		if patch.TopicsSet {
			update = update.Set("topics", pq.StringArray(patch.Topics))
		}
		query, args, err := update.ToSql()
		if err != nil {
			return fmt.Errorf("build update grade entry group: %w", err)
		}
		affected, err = execAffected(ctx, tx, query, args...)
		if err != nil {
			return fmt.Errorf("update grade entry group: %w", err)
		}
		if affected != size {
			return ErrGroupWriteMismatch
		}
		return nil
	})
	return affected, err
}

// DeleteGroup removes every entry in the group with the same guarantees as
// UpdateGroupHeader.
func (r *GradeEntryRepository) DeleteGroup(ctx context.Context, key models.EntryGroupKey) (int64, error) {
	var affected int64
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		size, err := r.lockGroup(ctx, tx, key)
		if err != nil {
			return err
		}
		query, args, err := r.sb.Delete("grade_entries").Where(groupWhere(key)).ToSql()
		if err != nil {
			return fmt.Errorf("build delete grade entry group: %w", err)
		}
		affected, err = execAffected(ctx, tx, query, args...)
		if err != nil {
			return fmt.Errorf("delete grade entry group: %w", err)
		}
		if affected != size {
			return ErrGroupWriteMismatch
		}
		return nil
	})
	return affected, err
}

func (r *GradeEntryRepository) lockGroup(ctx context.Context, tx *sqlx.Tx, key models.EntryGroupKey) (int64, error) {
	query, args, err := r.sb.Select("grade_id").From("grade_entries").Where(groupWhere(key)).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build lock grade entry group: %w", err)
	}
	var ids []int64
	if err := tx.SelectContext(ctx, &ids, query, args...); err != nil {
		return 0, fmt.Errorf("lock grade entry group: %w", err)
	}
	if len(ids) == 0 {
		return 0, sql.ErrNoRows
	}
	return int64(len(ids)), nil
}

func (r *GradeEntryRepository) highestScore(ctx context.Context, tx *sqlx.Tx, key models.EntryGroupKey) (float64, error) {
	query, args, err := r.sb.Select("COALESCE(MAX(score), 0)").From("grade_entries").Where(groupWhere(key)).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build highest group score: %w", err)
	}
	var highest float64
	if err := tx.GetContext(ctx, &highest, query, args...); err != nil {
		return 0, fmt.Errorf("highest group score: %w", err)
	}
	return highest, nil
}

// UpdateScore sets the score of one entry.
func (r *GradeEntryRepository) UpdateScore(ctx context.Context, id int64, score *float64) error {
	return r.updateOne(ctx, id, "score", score)
}

// UpdateAttendance sets the attendance status of one entry.
func (r *GradeEntryRepository) UpdateAttendance(ctx context.Context, id int64, status *models.AttendanceStatus) error {
	return r.updateOne(ctx, id, "attendance", status)
}

func (r *GradeEntryRepository) updateOne(ctx context.Context, id int64, column string, value interface{}) error {
	query, args, err := r.sb.Update("grade_entries").
		Set(column, value).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"grade_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update grade entry %s: %w", column, err)
	}
	affected, err := execAffected(ctx, r.db, query, args...)
	if err != nil {
		return fmt.Errorf("update grade entry %s: %w", column, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyImport inserts new entries and rewrites matched scores atomically.
func (r *GradeEntryRepository) ApplyImport(ctx context.Context, creates []*models.GradeEntry, updates []ScoreUpdate) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, entry := range creates {
			if err := r.insert(ctx, tx, entry); err != nil {
				return err
			}
		}
		for _, u := range updates {
			query, args, err := r.sb.Update("grade_entries").
				Set("score", u.Score).
				Set("max_score", u.MaxScore).
				Set("updated_at", time.Now().UTC()).
				Where(squirrel.Eq{"grade_id": u.EntryID}).
				ToSql()
			if err != nil {
				return fmt.Errorf("build import score update: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("import score update for entry %d: %w", u.EntryID, err)
			}
		}
		return nil
	})
}

// CountByComponent returns how many entries reference the component.
func (r *GradeEntryRepository) CountByComponent(ctx context.Context, componentID int64) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").From("grade_entries").Where(squirrel.Eq{"component_id": componentID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count grade entries: %w", err)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count grade entries: %w", err)
	}
	return count, nil
}

func groupWhere(key models.EntryGroupKey) squirrel.Eq {
	return squirrel.Eq{
		"class_id":      key.ClassID,
		"component_id":  key.ComponentID,
		"name":          key.Name,
		"date_recorded": key.DateRecorded.Format(dateLayout),
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func execAffected(ctx context.Context, db execer, query string, args ...interface{}) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
