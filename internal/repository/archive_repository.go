package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/pkg/database"
)

// ErrUnknownArchiveEntity is returned for entity types outside the registry.
var ErrUnknownArchiveEntity = errors.New("unknown archive entity")

// DependencyError reports rows that block a permanent delete.
type DependencyError struct {
	Entity string
	Label  string
	Count  int
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("Cannot permanently delete %s. It has %d %s(s).", e.Entity, e.Count, e.Label)
}

type archiveDependency struct {
	label string
	query string
}

type archiveTable struct {
	table    string
	idColumn string
	singular string
	// accountLinked rows mirror their status onto the login account and take
	// the account with them on permanent delete.
	accountLinked bool
	listQuery     string
	dependencies  []archiveDependency
	// cascades run with the record id as $1 before the record is deleted.
	cascades []string
}

var archiveRegistry = map[models.ArchiveEntity]archiveTable{
	models.ArchiveStudents: {
		table: "students", idColumn: "student_id", singular: "student", accountLinked: true,
		listQuery: `SELECT st.student_id AS id, st.last_name || ', ' || st.first_name AS name, a.email AS detail, st.status, st.updated_at
FROM students st JOIN accounts a ON a.account_id = st.account_id
WHERE st.status = 'inactive' ORDER BY st.updated_at DESC`,
		dependencies: []archiveDependency{
			{label: "grade entry", query: `SELECT COUNT(*) FROM grade_entries WHERE student_id = $1`},
		},
	},
	models.ArchiveProfessors: {
		table: "professors", idColumn: "prof_id", singular: "professor", accountLinked: true,
		listQuery: `SELECT p.prof_id AS id, p.last_name || ', ' || p.first_name AS name, a.email AS detail, p.status, p.updated_at
FROM professors p JOIN accounts a ON a.account_id = p.account_id
WHERE p.status = 'inactive' ORDER BY p.updated_at DESC`,
		dependencies: []archiveDependency{
			{label: "class", query: `SELECT COUNT(*) FROM classes WHERE prof_id = $1`},
		},
	},
	models.ArchiveDepartments: {
		table: "departments", idColumn: "department_id", singular: "department",
		listQuery: `SELECT department_id AS id, department_name AS name, dean_name AS detail, status, updated_at
FROM departments WHERE status = 'inactive' ORDER BY updated_at DESC`,
		dependencies: []archiveDependency{
			{label: "course", query: `SELECT COUNT(*) FROM courses WHERE department_id = $1`},
			{label: "professor", query: `SELECT COUNT(*) FROM professors WHERE department_id = $1`},
		},
		cascades: []string{
			`DELETE FROM grade_entries WHERE component_id IN (SELECT component_id FROM grade_components WHERE department_id = $1)`,
			`DELETE FROM grade_components WHERE department_id = $1`,
		},
	},
	models.ArchiveCourses: {
		table: "courses", idColumn: "course_id", singular: "course",
		listQuery: `SELECT c.course_id AS id, c.course_code || ' - ' || c.course_name AS name, d.department_name AS detail, c.status, c.updated_at
FROM courses c LEFT JOIN departments d ON d.department_id = c.department_id
WHERE c.status = 'inactive' ORDER BY c.updated_at DESC`,
		dependencies: []archiveDependency{
			{label: "year level", query: `SELECT COUNT(*) FROM year_level WHERE course_id = $1`},
			{label: "section", query: `SELECT COUNT(*) FROM sections WHERE course_id = $1`},
			{label: "subject", query: `SELECT COUNT(*) FROM subjects WHERE course_id = $1`},
		},
	},
	models.ArchiveYearLevel: {
		table: "year_level", idColumn: "year_level_id", singular: "year level",
		listQuery: `SELECT y.year_level_id AS id, y.name, c.course_name AS detail, y.status, y.updated_at
FROM year_level y LEFT JOIN courses c ON c.course_id = y.course_id
WHERE y.status = 'inactive' ORDER BY y.updated_at DESC`,
		dependencies: []archiveDependency{
			{label: "semester", query: `SELECT COUNT(*) FROM semester WHERE year_level_id = $1`},
			{label: "section", query: `SELECT COUNT(*) FROM sections WHERE year_level_id = $1`},
		},
	},
	models.ArchiveSemester: {
		table: "semester", idColumn: "semester_id", singular: "semester",
		listQuery: `SELECT s.semester_id AS id, s.semester_name AS name, y.name AS detail, s.status, s.updated_at
FROM semester s LEFT JOIN year_level y ON y.year_level_id = s.year_level_id
WHERE s.status = 'inactive' ORDER BY s.updated_at DESC`,
		dependencies: []archiveDependency{
			{label: "subject", query: `SELECT COUNT(*) FROM subjects WHERE semester_id = $1`},
		},
	},
	models.ArchiveSubjects: {
		table: "subjects", idColumn: "subject_id", singular: "subject",
		listQuery: `SELECT subject_id AS id, subject_code || ' - ' || subject_name AS name, NULL::text AS detail, status, updated_at
FROM subjects WHERE status = 'inactive' ORDER BY updated_at DESC`,
		dependencies: []archiveDependency{
			{label: "class", query: `SELECT COUNT(*) FROM classes WHERE subject_id = $1`},
		},
	},
	models.ArchiveSections: {
		table: "sections", idColumn: "section_id", singular: "section",
		listQuery: `SELECT s.section_id AS id, s.section_name AS name, c.course_name AS detail, s.status, s.updated_at
FROM sections s LEFT JOIN courses c ON c.course_id = s.course_id
WHERE s.status = 'inactive' ORDER BY s.updated_at DESC`,
		dependencies: []archiveDependency{
			{label: "student", query: `SELECT COUNT(*) FROM students WHERE section_id = $1`},
			{label: "class", query: `SELECT COUNT(*) FROM classes WHERE section_id = $1`},
		},
	},
	models.ArchiveClasses: {
		table: "classes", idColumn: "class_id", singular: "class",
		listQuery: `SELECT c.class_id AS id, c.class_name AS name, s.subject_name AS detail, c.status, c.updated_at
FROM classes c LEFT JOIN subjects s ON s.subject_id = c.subject_id
WHERE c.status = 'inactive' ORDER BY c.updated_at DESC`,
		cascades: []string{
			`DELETE FROM grade_entries WHERE class_id = $1`,
			`DELETE FROM grade_components WHERE class_id = $1`,
		},
	},
}

// ArchiveRepository applies archive lifecycle transitions across curriculum tables.
type ArchiveRepository struct {
	db *sqlx.DB
}

// NewArchiveRepository constructs the repository.
func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Supports reports whether the entity is registered.
func (r *ArchiveRepository) Supports(entity models.ArchiveEntity) bool {
	_, ok := archiveRegistry[entity]
	return ok
}

// ListInactive returns the archived rows of one entity type.
func (r *ArchiveRepository) ListInactive(ctx context.Context, entity models.ArchiveEntity) ([]models.ArchivedRecord, error) {
	meta, ok := archiveRegistry[entity]
	if !ok {
		return nil, ErrUnknownArchiveEntity
	}
	records := make([]models.ArchivedRecord, 0)
	if err := r.db.SelectContext(ctx, &records, meta.listQuery); err != nil {
		return nil, fmt.Errorf("list archived %s: %w", meta.table, err)
	}
	for i := range records {
		records[i].EntityType = string(entity)
	}
	return records, nil
}

// SetStatus archives or restores a record. Account-linked rows update the
// linked account in the same transaction.
func (r *ArchiveRepository) SetStatus(ctx context.Context, entity models.ArchiveEntity, id int64, status models.RecordStatus) error {
	meta, ok := archiveRegistry[entity]
	if !ok {
		return ErrUnknownArchiveEntity
	}
	now := time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf(`UPDATE %s SET status = $2, updated_at = $3 WHERE %s = $1`, meta.table, meta.idColumn)
		affected, err := execAffected(ctx, tx, query, id, status, now)
		if err != nil {
			return fmt.Errorf("update %s status: %w", meta.table, err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		if meta.accountLinked {
			accountQuery := fmt.Sprintf(`UPDATE accounts SET status = $2, updated_at = $3
WHERE account_id = (SELECT account_id FROM %s WHERE %s = $1)`, meta.table, meta.idColumn)
			if _, err := tx.ExecContext(ctx, accountQuery, id, status, now); err != nil {
				return fmt.Errorf("update account status: %w", err)
			}
		}
		return nil
	})
}

// PermanentDelete removes a record after checking its dependencies, running
// registered cascades first. A *DependencyError aborts the transaction.
func (r *ArchiveRepository) PermanentDelete(ctx context.Context, entity models.ArchiveEntity, id int64) error {
	meta, ok := archiveRegistry[entity]
	if !ok {
		return ErrUnknownArchiveEntity
	}
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var accountID sql.NullInt64
		lockQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 FOR UPDATE`, lockColumn(meta), meta.table, meta.idColumn)
		if err := tx.QueryRowxContext(ctx, lockQuery, id).Scan(&accountID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sql.ErrNoRows
			}
			return fmt.Errorf("lock %s: %w", meta.table, err)
		}

		for _, dep := range meta.dependencies {
			var count int
			if err := tx.GetContext(ctx, &count, dep.query, id); err != nil {
				return fmt.Errorf("count %s dependencies: %w", meta.singular, err)
			}
			if count > 0 {
				return &DependencyError{Entity: meta.singular, Label: dep.label, Count: count}
			}
		}

		for _, stmt := range meta.cascades {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("cascade %s delete: %w", meta.singular, err)
			}
		}

		deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, meta.table, meta.idColumn)
		if _, err := tx.ExecContext(ctx, deleteQuery, id); err != nil {
			return fmt.Errorf("delete %s: %w", meta.table, err)
		}

		if meta.accountLinked && accountID.Valid {
			if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE account_id = $1`, accountID.Int64); err != nil {
				return fmt.Errorf("delete account: %w", err)
			}
		}
		return nil
	})
}

// Relationships counts the rows that would block a permanent delete, keyed by
// dependency label.
func (r *ArchiveRepository) Relationships(ctx context.Context, entity models.ArchiveEntity, id int64) (map[string]int, error) {
	meta, ok := archiveRegistry[entity]
	if !ok {
		return nil, ErrUnknownArchiveEntity
	}
	counts := make(map[string]int, len(meta.dependencies))
	for _, dep := range meta.dependencies {
		var count int
		if err := r.db.GetContext(ctx, &count, dep.query, id); err != nil {
			return nil, fmt.Errorf("count %s dependencies: %w", meta.singular, err)
		}
		counts[dep.label] = count
	}
	return counts, nil
}

func lockColumn(meta archiveTable) string {
	if meta.accountLinked {
		return "account_id"
	}
	return "NULL::bigint"
}
