package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ergoquipt-data/internal/domain"
)

// PostgresSessionsRepository SessionsRepository backed by the sessions and
// session_configs tables.
type PostgresSessionsRepository struct {
	db *sql.DB
}

func NewPostgresSessionsRepository(db *sql.DB) *PostgresSessionsRepository {
	return &PostgresSessionsRepository{db: db}
}

var _ SessionsRepository = (*PostgresSessionsRepository)(nil)

const sessionColumns = `
	session_id::text,
	session_code,
	operator_id::text,
	respondent_id::text,
	test_type,
	status,
	device_id,
	device_name,
	measurement_context,
	environment_notes,
	additional_notes,
	COALESCE(local_data, 'null'::jsonb),
	trials_completed,
	total_trials,
	started_at,
	ended_at,
	created_at,
	updated_at`

func scanSession(row interface{ Scan(...any) error }) (*domain.Session, error) {
	var s domain.Session
	var localData []byte
	err := row.Scan(
		&s.SessionID,
		&s.SessionCode,
		&s.OperatorID,
		&s.RespondentID,
		&s.TestType,
		&s.Status,
		&s.DeviceID,
		&s.DeviceName,
		&s.MeasurementContext,
		&s.EnvironmentNotes,
		&s.AdditionalNotes,
		&localData,
		&s.TrialsCompleted,
		&s.TotalTrials,
		&s.StartedAt,
		&s.EndedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.LocalData = json.RawMessage(localData)
	return &s, nil
}

func (p *PostgresSessionsRepository) CreateSession(ctx context.Context, s *domain.Session) (string, error) {
	var sessionID string
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO sessions (
			session_code, operator_id, respondent_id, test_type, status,
			device_id, device_name, measurement_context, environment_notes,
			additional_notes, total_trials
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING session_id::text`,
		s.SessionCode, s.OperatorID, s.RespondentID, s.TestType, s.Status,
		s.DeviceID, s.DeviceName, s.MeasurementContext, s.EnvironmentNotes,
		s.AdditionalNotes, s.TotalTrials,
	).Scan(&sessionID)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("insert session: %w", err)
	}
	return sessionID, nil
}

func (p *PostgresSessionsRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = $1`
	s, err := scanSession(p.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (p *PostgresSessionsRepository) GetOwnedSession(ctx context.Context, operatorID, sessionID string) (*domain.Session, error) {
	if operatorID == "" || sessionID == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE session_id = $1 AND operator_id = $2`
	s, err := scanSession(p.db.QueryRowContext(ctx, query, sessionID, operatorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (p *PostgresSessionsRepository) AddConfig(ctx context.Context, cfg *domain.SessionConfig) (string, error) {
	var configID string
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO session_configs (
			session_id, config_type, stimulus_type, stimulus_category,
			trials_per_stimulus, order_index, measurement_duration,
			sampling_interval, target_condition
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING config_id::text`,
		cfg.SessionID, cfg.ConfigType, cfg.StimulusType, cfg.StimulusCategory,
		cfg.TrialsPerStimulus, cfg.OrderIndex, cfg.MeasurementDuration,
		cfg.SamplingInterval, cfg.TargetCondition,
	).Scan(&configID)
	if err != nil {
		return "", fmt.Errorf("insert session config: %w", err)
	}
	return configID, nil
}

func (p *PostgresSessionsRepository) ListConfigs(ctx context.Context, sessionID string) ([]*domain.SessionConfig, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT config_id::text, session_id::text, config_type,
		       stimulus_type, stimulus_category, trials_per_stimulus,
		       order_index, measurement_duration, sampling_interval,
		       target_condition, created_at
		FROM session_configs
		WHERE session_id = $1
		ORDER BY order_index ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session configs: %w", err)
	}
	defer rows.Close()

	configs := []*domain.SessionConfig{}
	for rows.Next() {
		var c domain.SessionConfig
		if err := rows.Scan(&c.ConfigID, &c.SessionID, &c.ConfigType,
			&c.StimulusType, &c.StimulusCategory, &c.TrialsPerStimulus,
			&c.OrderIndex, &c.MeasurementDuration, &c.SamplingInterval,
			&c.TargetCondition, &c.CreatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, &c)
	}
	return configs, rows.Err()
}

func (p *PostgresSessionsRepository) StartSession(ctx context.Context, sessionID string, at time.Time) error {
	// The draft guard lives in the WHERE clause: of two concurrent starts only
	// one sees a draft row, the other gets zero rows affected.
	res, err := p.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = 'active', started_at = $2, updated_at = $2
		WHERE session_id = $1 AND status = 'draft'`,
		sessionID, at)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresSessionsRepository) CompleteSession(ctx context.Context, sessionID string, at time.Time) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = 'completed', ended_at = $2, updated_at = $2
		WHERE session_id = $1`,
		sessionID, at)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresSessionsRepository) UpdateLocalData(ctx context.Context, sessionID string, blob json.RawMessage, at time.Time) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE sessions
		SET local_data = $2, updated_at = $3
		WHERE session_id = $1`,
		sessionID, []byte(blob), at)
	if err != nil {
		return fmt.Errorf("update session local data: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresSessionsRepository) ListForOperator(ctx context.Context, operatorID string, filters SessionFilters, page, limit int) ([]*domain.Session, int, error) {
	where := ` FROM sessions WHERE operator_id = $1`
	args := []any{operatorID}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	return p.listSessions(ctx, where, args, page, limit)
}

func (p *PostgresSessionsRepository) ListForAdmin(ctx context.Context, adminID string, filters AdminSessionFilters, page, limit int) ([]*domain.Session, int, error) {
	where := ` FROM sessions WHERE operator_id IN (
		SELECT user_id FROM users WHERE created_by = $1 AND role = 'operator')`
	args := []any{adminID}
	if filters.OperatorID != "" {
		args = append(args, filters.OperatorID)
		where += fmt.Sprintf(" AND operator_id = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.TestType != "" {
		args = append(args, filters.TestType)
		where += fmt.Sprintf(" AND test_type = $%d", len(args))
	}
	if !filters.StartDate.IsZero() {
		args = append(args, filters.StartDate)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filters.EndDate.IsZero() {
		args = append(args, filters.EndDate)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	return p.listSessions(ctx, where, args, page, limit)
}

func (p *PostgresSessionsRepository) listSessions(ctx context.Context, where string, args []any, page, limit int) ([]*domain.Session, int, error) {
	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	query := `SELECT ` + sessionColumns + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*domain.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	return sessions, total, rows.Err()
}
