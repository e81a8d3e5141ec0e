package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Session one respondent's data-collection run of a given test type
// (sessions table).
//
// Lifecycle invariants enforced by the service layer:
//   - StartedAt is set iff the session has reached active-or-later
//   - EndedAt is set iff the session is completed
//   - TrialsCompleted is monotonically non-decreasing
type Session struct {
	SessionID    string `db:"session_id"`
	SessionCode  string `db:"session_code"` // unique, RT-YYYYMMDD-XXX
	OperatorID   string `db:"operator_id"`
	RespondentID string `db:"respondent_id"`

	TestType TestType      `db:"test_type"`
	Status   SessionStatus `db:"status"`

	DeviceID   sql.NullString `db:"device_id"`
	DeviceName sql.NullString `db:"device_name"`

	MeasurementContext sql.NullString `db:"measurement_context"`
	EnvironmentNotes   sql.NullString `db:"environment_notes"`
	AdditionalNotes    sql.NullString `db:"additional_notes"`

	// Opaque client blob, replaced wholesale on update (never merged).
	LocalData json.RawMessage `db:"local_data"`

	TrialsCompleted int `db:"trials_completed"`
	TotalTrials     int `db:"total_trials"`

	StartedAt sql.NullTime `db:"started_at"`
	EndedAt   sql.NullTime `db:"ended_at"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

// SessionConfig one measurement-configuration entry of a session
// (session_configs table). OrderIndex is caller-supplied and defines replay
// order; it is stored as given, never re-sequenced.
type SessionConfig struct {
	ConfigID   string `db:"config_id"`
	SessionID  string `db:"session_id"`
	ConfigType string `db:"config_type"` // reaction_time, tympanic, vitals

	// Reaction-time parameters
	StimulusType      sql.NullString `db:"stimulus_type"`
	StimulusCategory  sql.NullString `db:"stimulus_category"`
	TrialsPerStimulus int            `db:"trials_per_stimulus"`
	OrderIndex        int            `db:"order_index"`

	// Tympanic / vitals parameters
	MeasurementDuration sql.NullInt64  `db:"measurement_duration"` // minutes
	SamplingInterval    sql.NullInt64  `db:"sampling_interval"`    // seconds
	TargetCondition     sql.NullString `db:"target_condition"`

	CreatedAt time.Time `db:"created_at"`
}
