package domain

import (
	"database/sql"
	"time"
)

// Respondent demographic profile of a measured subject (respondents table).
// Owned by exactly one operator; immutable once created.
type Respondent struct {
	RespondentID string `db:"respondent_id"`
	GuestName    string `db:"guest_name"`

	Gender sql.NullString `db:"gender"` // male, female, other
	Age    sql.NullInt64  `db:"age"`
	Height sql.NullInt64  `db:"height"` // cm
	Weight sql.NullInt64  `db:"weight"` // kg

	Status     string         `db:"status"` // student, guest
	University sql.NullString `db:"university"`

	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}
