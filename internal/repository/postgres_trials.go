package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ergoquipt-data/internal/domain"
)

// PostgresTrialsRepository TrialsRepository backed by the reaction_trials,
// tympani_readings and vital_readings tables.
type PostgresTrialsRepository struct {
	db *sql.DB
}

func NewPostgresTrialsRepository(db *sql.DB) *PostgresTrialsRepository {
	return &PostgresTrialsRepository{db: db}
}

var _ TrialsRepository = (*PostgresTrialsRepository)(nil)

func (p *PostgresTrialsRepository) AppendReactionTrials(ctx context.Context, sessionID string, trials []*domain.ReactionTrial) error {
	if len(trials) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trial batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reaction_trials (
			session_id, stimulus_type, stimulus_category, response_time,
			trial_number, reaction_type
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING trial_id::text`)
	if err != nil {
		return fmt.Errorf("prepare trial insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trials {
		if err := stmt.QueryRowContext(ctx,
			sessionID, t.StimulusType, t.StimulusCategory, t.ResponseTime,
			t.TrialNumber, t.ReactionType,
		).Scan(&t.TrialID); err != nil {
			return fmt.Errorf("insert reaction trial: %w", err)
		}
		t.SessionID = sessionID
	}

	// Counter increment is a single SQL expression so concurrent batches
	// serialize on the row instead of losing updates.
	res, err := tx.ExecContext(ctx, `
		UPDATE sessions
		SET trials_completed = trials_completed + $2, updated_at = NOW()
		WHERE session_id = $1`,
		sessionID, len(trials))
	if err != nil {
		return fmt.Errorf("increment trials_completed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (p *PostgresTrialsRepository) AddTympanicReading(ctx context.Context, r *domain.TympanicReading) (string, error) {
	var readingID string
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO tympani_readings (
			session_id, temperature, reading_number, measurement_phase,
			body_position, environment_temp, reading_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING reading_id::text`,
		r.SessionID, r.Temperature, r.ReadingNumber, r.MeasurementPhase,
		r.BodyPosition, r.EnvironmentTemp, r.ReadingTime,
	).Scan(&readingID)
	if err != nil {
		return "", fmt.Errorf("insert tympanic reading: %w", err)
	}
	return readingID, nil
}

func (p *PostgresTrialsRepository) AddVitalReading(ctx context.Context, r *domain.VitalReading) (string, error) {
	var readingID string
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO vital_readings (
			session_id, heart_rate, heart_rate_variability, spo2,
			reading_number, measurement_phase, activity_context,
			body_position, reading_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING reading_id::text`,
		r.SessionID, r.HeartRate, r.HeartRateVariability, r.SpO2,
		r.ReadingNumber, r.MeasurementPhase, r.ActivityContext,
		r.BodyPosition, r.ReadingTime,
	).Scan(&readingID)
	if err != nil {
		return "", fmt.Errorf("insert vital reading: %w", err)
	}
	return readingID, nil
}

func (p *PostgresTrialsRepository) ListReactionTrials(ctx context.Context, sessionID string) ([]*domain.ReactionTrial, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT trial_id::text, session_id::text, stimulus_type,
		       stimulus_category, response_time, trial_number,
		       reaction_type, created_at
		FROM reaction_trials
		WHERE session_id = $1
		ORDER BY trial_number ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list reaction trials: %w", err)
	}
	defer rows.Close()

	trials := []*domain.ReactionTrial{}
	for rows.Next() {
		var t domain.ReactionTrial
		if err := rows.Scan(&t.TrialID, &t.SessionID, &t.StimulusType,
			&t.StimulusCategory, &t.ResponseTime, &t.TrialNumber,
			&t.ReactionType, &t.CreatedAt); err != nil {
			return nil, err
		}
		trials = append(trials, &t)
	}
	return trials, rows.Err()
}

func (p *PostgresTrialsRepository) ListTympanicReadings(ctx context.Context, sessionID string) ([]*domain.TympanicReading, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT reading_id::text, session_id::text, temperature,
		       reading_number, measurement_phase, body_position,
		       environment_temp, reading_time, created_at
		FROM tympani_readings
		WHERE session_id = $1
		ORDER BY reading_number ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list tympanic readings: %w", err)
	}
	defer rows.Close()

	readings := []*domain.TympanicReading{}
	for rows.Next() {
		var r domain.TympanicReading
		if err := rows.Scan(&r.ReadingID, &r.SessionID, &r.Temperature,
			&r.ReadingNumber, &r.MeasurementPhase, &r.BodyPosition,
			&r.EnvironmentTemp, &r.ReadingTime, &r.CreatedAt); err != nil {
			return nil, err
		}
		readings = append(readings, &r)
	}
	return readings, rows.Err()
}

func (p *PostgresTrialsRepository) ListVitalReadings(ctx context.Context, sessionID string) ([]*domain.VitalReading, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT reading_id::text, session_id::text, heart_rate,
		       heart_rate_variability, spo2, reading_number,
		       measurement_phase, activity_context, body_position,
		       reading_time, created_at
		FROM vital_readings
		WHERE session_id = $1
		ORDER BY reading_number ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list vital readings: %w", err)
	}
	defer rows.Close()

	readings := []*domain.VitalReading{}
	for rows.Next() {
		var r domain.VitalReading
		if err := rows.Scan(&r.ReadingID, &r.SessionID, &r.HeartRate,
			&r.HeartRateVariability, &r.SpO2, &r.ReadingNumber,
			&r.MeasurementPhase, &r.ActivityContext, &r.BodyPosition,
			&r.ReadingTime, &r.CreatedAt); err != nil {
			return nil, err
		}
		readings = append(readings, &r)
	}
	return readings, rows.Err()
}
