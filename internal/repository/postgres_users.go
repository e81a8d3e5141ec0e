package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ergoquipt-data/internal/domain"

	"github.com/lib/pq"
)

// PostgresUsersRepository UsersRepository backed by the users and
// user_registration_logs tables.
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `
	user_id::text,
	username,
	email,
	password_hash,
	full_name,
	university,
	role,
	status,
	registration_type,
	created_by::text,
	initial_password,
	platform_access,
	created_at,
	updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.UserID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.University,
		&user.Role,
		&user.Status,
		&user.RegistrationType,
		&user.CreatedBy,
		&user.InitialPassword,
		&user.PlatformAccess,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return user, err
}

func (r *PostgresUsersRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if username == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return user, err
}

func (r *PostgresUsersRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $2 LIMIT 1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return user, err
}

func (r *PostgresUsersRepository) CreateUser(ctx context.Context, user *domain.User, log *domain.AdminActionLog) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (
			username, email, password_hash, full_name, university,
			role, status, registration_type, created_by, initial_password,
			platform_access
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING user_id::text`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.University,
		user.Role,
		user.Status,
		user.RegistrationType,
		user.CreatedBy,
		user.InitialPassword,
		user.PlatformAccess,
	).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("insert user: %w", err)
	}

	if log != nil {
		log.OperatorID = userID
		if err := insertActionLog(ctx, tx, log); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit create user: %w", err)
	}
	return userID, nil
}

func (r *PostgresUsersRepository) GetOwnedOperator(ctx context.Context, adminID, operatorID string) (*domain.User, error) {
	if adminID == "" || operatorID == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE user_id = $1 AND created_by = $2 AND role = 'operator'`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, operatorID, adminID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return user, err
}

func (r *PostgresUsersRepository) ListOperators(ctx context.Context, adminID string, filters OperatorFilters, page, limit int) ([]*domain.User, int, error) {
	where := ` FROM users WHERE created_by = $1 AND role = 'operator'`
	args := []any{adminID}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count operators: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	query := `SELECT ` + userColumns + where +
		fmt.Sprintf(` ORDER BY created_at ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list operators: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

func (r *PostgresUsersRepository) ListOperatorIDs(ctx context.Context, adminID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id::text FROM users WHERE created_by = $1 AND role = 'operator'`, adminID)
	if err != nil {
		return nil, fmt.Errorf("list operator ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresUsersRepository) UpdateStatus(ctx context.Context, userID string, status domain.UserStatus, log *domain.AdminActionLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET status = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, status)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if log != nil {
		if err := insertActionLog(ctx, tx, log); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PostgresUsersRepository) ResetPassword(ctx context.Context, userID, passwordHash string, log *domain.AdminActionLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin password reset: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2, initial_password = TRUE, updated_at = NOW()
		WHERE user_id = $1`,
		userID, passwordHash)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if log != nil {
		if err := insertActionLog(ctx, tx, log); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PostgresUsersRepository) RotatePassword(ctx context.Context, userID, passwordHash string, log *domain.AdminActionLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin password rotation: %w", err)
	}
	defer tx.Rollback()

	// Clearing the temporary flag and promoting pending -> active happen in the
	// same statement as the hash swap: no window where a rotated credential
	// still reads as temporary.
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2,
		    initial_password = FALSE,
		    status = CASE WHEN status = 'pending' THEN 'active' ELSE status END,
		    updated_at = NOW()
		WHERE user_id = $1`,
		userID, passwordHash)
	if err != nil {
		return fmt.Errorf("rotate password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if log != nil {
		if err := insertActionLog(ctx, tx, log); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PostgresUsersRepository) ListLogsForOperator(ctx context.Context, operatorID string) ([]*domain.AdminActionLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id::text, admin_id::text, operator_id::text, action,
		       COALESCE(notes, ''), COALESCE(ip_address, ''), created_at
		FROM user_registration_logs
		WHERE operator_id = $1
		ORDER BY created_at ASC`,
		operatorID)
	if err != nil {
		return nil, fmt.Errorf("list action logs: %w", err)
	}
	defer rows.Close()

	logs := []*domain.AdminActionLog{}
	for rows.Next() {
		var l domain.AdminActionLog
		if err := rows.Scan(&l.LogID, &l.AdminID, &l.OperatorID, &l.Action,
			&l.Notes, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func insertActionLog(ctx context.Context, tx *sql.Tx, log *domain.AdminActionLog) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_registration_logs (admin_id, operator_id, action, notes, ip_address)
		VALUES ($1, $2, $3, $4, $5)`,
		log.AdminID, log.OperatorID, log.Action, log.Notes, log.IPAddress)
	if err != nil {
		return fmt.Errorf("insert action log: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
