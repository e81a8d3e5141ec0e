package domain

import (
	"database/sql"
	"time"
)

// User account domain model (users table).
type User struct {
	UserID       string `db:"user_id"`
	Username     string `db:"username"` // unique
	Email        string `db:"email"`    // unique
	PasswordHash string `db:"password_hash"`
	FullName     string `db:"full_name"`
	University   sql.NullString `db:"university"`

	Role   Role       `db:"role"`
	Status UserStatus `db:"status"`

	// Provisioning: operators are created by an admin and start with a temporary
	// password that must be rotated on first login.
	RegistrationType RegistrationType `db:"registration_type"`
	CreatedBy        sql.NullString   `db:"created_by"` // owning admin, never cascading
	InitialPassword  bool             `db:"initial_password"`

	PlatformAccess PlatformAccess `db:"platform_access"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// AdminActionLog append-only audit record for admin-initiated account mutations
// and initial-password completion (user_registration_logs table). Never mutated
// or deleted.
type AdminActionLog struct {
	LogID      string    `db:"id"`
	AdminID    string    `db:"admin_id"`
	OperatorID string    `db:"operator_id"`
	Action     string    `db:"action"` // create, status_update, password_reset, password_change
	Notes      string    `db:"notes"`
	IPAddress  string    `db:"ip_address"`
	CreatedAt  time.Time `db:"created_at"`
}
