package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
)

const classSelect = `SELECT c.class_id, c.class_name, c.subject_id, c.section_id, c.prof_id, co.department_id,
       s.subject_code, s.subject_name, s.units, c.status, c.classroom_course_id
FROM classes c
JOIN subjects s ON s.subject_id = c.subject_id
JOIN courses co ON co.course_id = s.course_id`

// ClassRepository reads classes together with their subject and department.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// GetByID loads one class.
func (r *ClassRepository) GetByID(ctx context.Context, id int64) (*models.Class, error) {
	var class models.Class
	if err := r.db.GetContext(ctx, &class, classSelect+` WHERE c.class_id = $1`, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListByStudent returns the active classes of the student's section.
func (r *ClassRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.Class, error) {
	query := classSelect + `
JOIN students st ON st.section_id = c.section_id
WHERE st.student_id = $1 AND c.status = 'active'
ORDER BY s.subject_code`
	classes := make([]models.Class, 0)
	if err := r.db.SelectContext(ctx, &classes, query, studentID); err != nil {
		return nil, fmt.Errorf("list student classes: %w", err)
	}
	return classes, nil
}

// LinkClassroomCourse records the external course a class syncs with.
func (r *ClassRepository) LinkClassroomCourse(ctx context.Context, classID int64, courseID string) error {
	const query = `UPDATE classes SET classroom_course_id = $2 WHERE class_id = $1`
	affected, err := execAffected(ctx, r.db, query, classID, courseID)
	if err != nil {
		return fmt.Errorf("link classroom course: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
