package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleProfessor UserRole = "professor"
	RoleStudent   UserRole = "student"
)

// Account is the login identity behind a student, professor or admin.
type Account struct {
	ID           int64        `db:"account_id" json:"account_id"`
	Email        string       `db:"email" json:"email"`
	PasswordHash string       `db:"password_hash" json:"-"`
	Role         UserRole     `db:"role" json:"role"`
	Status       RecordStatus `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
