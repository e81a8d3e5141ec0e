package domain

import (
	"database/sql"
	"time"
)

// Measurement records are immutable and append-only. Trial/reading numbers are
// caller-supplied, not server-generated: the mobile client numbers trials as it
// runs them, and the server stores whatever it is given.

// ReactionTrial one reaction-time trial (reaction_trials table).
type ReactionTrial struct {
	TrialID          string           `db:"trial_id"`
	SessionID        string           `db:"session_id"`
	StimulusType     StimulusType     `db:"stimulus_type"`
	StimulusCategory StimulusCategory `db:"stimulus_category"`
	ResponseTime     int              `db:"response_time"` // milliseconds
	TrialNumber      int              `db:"trial_number"`
	ReactionType     string           `db:"reaction_type"` // correct, incorrect, timeout
	CreatedAt        time.Time        `db:"created_at"`
}

// TympanicReading one tympanic temperature reading (tympani_readings table).
type TympanicReading struct {
	ReadingID        string          `db:"reading_id"`
	SessionID        string          `db:"session_id"`
	Temperature      float64         `db:"temperature"`
	ReadingNumber    int             `db:"reading_number"`
	MeasurementPhase sql.NullString  `db:"measurement_phase"` // baseline, intervention, recovery
	BodyPosition     sql.NullString  `db:"body_position"`     // sitting, standing, lying_down
	EnvironmentTemp  sql.NullFloat64 `db:"environment_temp"`
	ReadingTime      time.Time       `db:"reading_time"`
	CreatedAt        time.Time       `db:"created_at"`
}

// VitalReading one vital-signs reading (vital_readings table).
type VitalReading struct {
	ReadingID            string          `db:"reading_id"`
	SessionID            string          `db:"session_id"`
	HeartRate            sql.NullInt64   `db:"heart_rate"`
	HeartRateVariability sql.NullFloat64 `db:"heart_rate_variability"`
	SpO2                 sql.NullInt64   `db:"spo2"`
	ReadingNumber        int             `db:"reading_number"`
	MeasurementPhase     sql.NullString  `db:"measurement_phase"` // baseline, exercise, recovery, sleep
	ActivityContext      sql.NullString  `db:"activity_context"`
	BodyPosition         sql.NullString  `db:"body_position"`
	ReadingTime          time.Time       `db:"reading_time"`
	CreatedAt            time.Time       `db:"created_at"`
}
