package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
)

const studentSelect = `SELECT st.student_id, st.account_id, st.section_id, st.first_name, st.middle_name, st.last_name,
       COALESCE(a.email, '') AS email, st.privacy_settings, st.status
FROM students st
LEFT JOIN accounts a ON a.account_id = st.account_id`

// StudentRepository reads students and their account emails.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByClass returns the active students enrolled in the class's section,
// ordered by last name.
func (r *StudentRepository) ListByClass(ctx context.Context, classID int64) ([]models.Student, error) {
	query := studentSelect + `
JOIN classes c ON c.section_id = st.section_id
WHERE c.class_id = $1 AND st.status = 'active' AND (a.status IS NULL OR a.status = 'active')
ORDER BY st.last_name, st.first_name, st.student_id`
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return students, nil
}

// GetByID loads one student.
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, studentSelect+` WHERE st.student_id = $1`, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// UpdatePrivacySettings stores the student's privacy document.
func (r *StudentRepository) UpdatePrivacySettings(ctx context.Context, id int64, settings models.JSONB) error {
	const query = `UPDATE students SET privacy_settings = $2 WHERE student_id = $1`
	affected, err := execAffected(ctx, r.db, query, id, settings)
	if err != nil {
		return fmt.Errorf("update privacy settings: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
