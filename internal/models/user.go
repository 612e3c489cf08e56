package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleCR      UserRole = "cr"
	RoleAdmin   UserRole = "admin"
)

// CanManageRooms reports whether the role may change occupancy and timetable data.
func (r UserRole) CanManageRooms() bool {
	return r == RoleCR || r == RoleAdmin
}

// Profile represents an account stored in the profiles table.
type Profile struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Branch       Branch    `db:"branch" json:"branch"`
	Role         UserRole  `db:"role" json:"role"`
	CRCode       *string   `db:"cr_code" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CRCode is the shared per-branch secret checked when a class representative signs up.
type CRCode struct {
	ID        string    `db:"id" json:"id"`
	Branch    Branch    `db:"branch" json:"branch"`
	Code      string    `db:"code" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
