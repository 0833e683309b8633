package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/pkg/database"
)

// ErrComponentInUse is returned when removing a component that grade entries
// still reference.
var ErrComponentInUse = errors.New("grade component is referenced by grade entries")

var gradeComponentColumns = []string{
	"component_id", "department_id", "class_id", "component_name", "weight_percentage", "is_attendance", "created_at", "updated_at",
}

// GradeComponentRepository persists grade components.
type GradeComponentRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewGradeComponentRepository constructs the repository.
func NewGradeComponentRepository(db *sqlx.DB) *GradeComponentRepository {
	return &GradeComponentRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// ListByDepartment returns the department template components.
func (r *GradeComponentRepository) ListByDepartment(ctx context.Context, departmentID int64) ([]models.GradeComponent, error) {
	return r.list(ctx, squirrel.And{squirrel.Eq{"department_id": departmentID}, squirrel.Eq{"class_id": nil}})
}

// ListForClass returns the class's own components, or the department template
// when the class has none.
func (r *GradeComponentRepository) ListForClass(ctx context.Context, classID, departmentID int64) ([]models.GradeComponent, error) {
	own, err := r.list(ctx, squirrel.Eq{"class_id": classID})
	if err != nil {
		return nil, err
	}
	if len(own) > 0 {
		return own, nil
	}
	return r.ListByDepartment(ctx, departmentID)
}

func (r *GradeComponentRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]models.GradeComponent, error) {
	query, args, err := r.sb.Select(gradeComponentColumns...).From("grade_components").Where(where).OrderBy("component_id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list grade components: %w", err)
	}
	components := make([]models.GradeComponent, 0)
	if err := r.db.SelectContext(ctx, &components, query, args...); err != nil {
		return nil, fmt.Errorf("list grade components: %w", err)
	}
	return components, nil
}

// GetByID loads one component.
func (r *GradeComponentRepository) GetByID(ctx context.Context, id int64) (*models.GradeComponent, error) {
	query, args, err := r.sb.Select(gradeComponentColumns...).From("grade_components").Where(squirrel.Eq{"component_id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get grade component: %w", err)
	}
	var component models.GradeComponent
	if err := r.db.GetContext(ctx, &component, query, args...); err != nil {
		return nil, err
	}
	return &component, nil
}

// Create inserts a component.
func (r *GradeComponentRepository) Create(ctx context.Context, component *models.GradeComponent) error {
	return r.insert(ctx, r.db, component)
}

// Update rewrites name, weight and attendance flag.
func (r *GradeComponentRepository) Update(ctx context.Context, component *models.GradeComponent) error {
	component.UpdatedAt = time.Now().UTC()
	query, args, err := r.sb.Update("grade_components").
		Set("component_name", component.Name).
		Set("weight_percentage", component.WeightPercentage).
		Set("is_attendance", component.IsAttendance).
		Set("updated_at", component.UpdatedAt).
		Where(squirrel.Eq{"component_id": component.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update grade component: %w", err)
	}
	affected, err := execAffected(ctx, r.db, query, args...)
	if err != nil {
		return fmt.Errorf("update grade component: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a component that has no entries.
func (r *GradeComponentRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := r.sb.Delete("grade_components").
		Where(squirrel.Eq{"component_id": id}).
		Where("NOT EXISTS (SELECT 1 FROM grade_entries ge WHERE ge.component_id = grade_components.component_id)").
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete grade component: %w", err)
	}
	affected, err := execAffected(ctx, r.db, query, args...)
	if err != nil {
		return fmt.Errorf("delete grade component: %w", err)
	}
	if affected == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return ErrComponentInUse
		}
		return sql.ErrNoRows
	}
	return nil
}

// ReplaceForDepartment makes the department template equal to components:
// rows with an id are updated, rows without one are inserted and existing
// rows missing from the list are deleted. Removing a referenced component
// fails with ErrComponentInUse and nothing is changed.
func (r *GradeComponentRepository) ReplaceForDepartment(ctx context.Context, departmentID int64, components []models.GradeComponent) ([]models.GradeComponent, error) {
	out := make([]models.GradeComponent, 0, len(components))
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query, args, err := r.sb.Select("component_id").From("grade_components").
			Where(squirrel.Eq{"department_id": departmentID, "class_id": nil}).
			Suffix("FOR UPDATE").ToSql()
		if err != nil {
			return fmt.Errorf("build lock department components: %w", err)
		}
		var existing []int64
		if err := tx.SelectContext(ctx, &existing, query, args...); err != nil {
			return fmt.Errorf("lock department components: %w", err)
		}
		keep := make(map[int64]struct{}, len(components))
		for _, c := range components {
			if c.ID > 0 {
				keep[c.ID] = struct{}{}
			}
		}
		for _, id := range existing {
			if _, ok := keep[id]; ok {
				continue
			}
			var refs int
			countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("grade_entries").Where(squirrel.Eq{"component_id": id}).ToSql()
			if err != nil {
				return fmt.Errorf("build count component entries: %w", err)
			}
			if err := tx.GetContext(ctx, &refs, countQuery, countArgs...); err != nil {
				return fmt.Errorf("count component entries: %w", err)
			}
			if refs > 0 {
				return ErrComponentInUse
			}
			delQuery, delArgs, err := r.sb.Delete("grade_components").Where(squirrel.Eq{"component_id": id}).ToSql()
			if err != nil {
				return fmt.Errorf("build delete department component: %w", err)
			}
			if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
				return fmt.Errorf("delete department component: %w", err)
			}
		}

		known := make(map[int64]struct{}, len(existing))
		for _, id := range existing {
			known[id] = struct{}{}
		}
		for _, c := range components {
			c.DepartmentID = &departmentID
			c.ClassID = nil
			if _, ok := known[c.ID]; ok {
				c.UpdatedAt = time.Now().UTC()
				upQuery, upArgs, err := r.sb.Update("grade_components").
					Set("component_name", c.Name).
					Set("weight_percentage", c.WeightPercentage).
					Set("is_attendance", c.IsAttendance).
					Set("updated_at", c.UpdatedAt).
					Where(squirrel.Eq{"component_id": c.ID}).
					ToSql()
				if err != nil {
					return fmt.Errorf("build update department component: %w", err)
				}
				if _, err := tx.ExecContext(ctx, upQuery, upArgs...); err != nil {
					return fmt.Errorf("update department component: %w", err)
				}
			} else {
				c.ID = 0
				if err := r.insert(ctx, tx, &c); err != nil {
					return err
				}
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type queryRower interface {
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

func (r *GradeComponentRepository) insert(ctx context.Context, db queryRower, component *models.GradeComponent) error {
	now := time.Now().UTC()
	component.CreatedAt, component.UpdatedAt = now, now
	query, args, err := r.sb.Insert("grade_components").
		Columns("department_id", "class_id", "component_name", "weight_percentage", "is_attendance", "created_at", "updated_at").
		Values(component.DepartmentID, component.ClassID, component.Name, component.WeightPercentage, component.IsAttendance, now, now).
		Suffix("RETURNING component_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert grade component: %w", err)
	}
	if err := db.QueryRowxContext(ctx, query, args...).Scan(&component.ID); err != nil {
		return fmt.Errorf("insert grade component: %w", err)
	}
	return nil
}
