package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ergoquipt-data/internal/domain"
)

// PostgresRespondentsRepository RespondentsRepository backed by the
// respondents table.
type PostgresRespondentsRepository struct {
	db *sql.DB
}

func NewPostgresRespondentsRepository(db *sql.DB) *PostgresRespondentsRepository {
	return &PostgresRespondentsRepository{db: db}
}

var _ RespondentsRepository = (*PostgresRespondentsRepository)(nil)

const respondentColumns = `
	respondent_id::text,
	guest_name,
	gender,
	age,
	height,
	weight,
	status,
	university,
	created_by::text,
	created_at`

func scanRespondent(row interface{ Scan(...any) error }) (*domain.Respondent, error) {
	var r domain.Respondent
	err := row.Scan(
		&r.RespondentID,
		&r.GuestName,
		&r.Gender,
		&r.Age,
		&r.Height,
		&r.Weight,
		&r.Status,
		&r.University,
		&r.CreatedBy,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *PostgresRespondentsRepository) CreateRespondent(ctx context.Context, r *domain.Respondent) (string, error) {
	var respondentID string
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO respondents (
			guest_name, gender, age, height, weight, status, university, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING respondent_id::text`,
		r.GuestName, r.Gender, r.Age, r.Height, r.Weight, r.Status, r.University, r.CreatedBy,
	).Scan(&respondentID)
	if err != nil {
		return "", fmt.Errorf("insert respondent: %w", err)
	}
	return respondentID, nil
}

func (p *PostgresRespondentsRepository) GetOwnedRespondent(ctx context.Context, operatorID, respondentID string) (*domain.Respondent, error) {
	if operatorID == "" || respondentID == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + respondentColumns + `
		FROM respondents
		WHERE respondent_id = $1 AND created_by = $2`
	r, err := scanRespondent(p.db.QueryRowContext(ctx, query, respondentID, operatorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (p *PostgresRespondentsRepository) ListRespondents(ctx context.Context, operatorID, search string, page, limit int) ([]*domain.Respondent, int, error) {
	where := ` FROM respondents WHERE created_by = $1`
	args := []any{operatorID}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(" AND guest_name ILIKE $%d", len(args))
	}

	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count respondents: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	query := `SELECT ` + respondentColumns + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list respondents: %w", err)
	}
	defer rows.Close()

	respondents := []*domain.Respondent{}
	for rows.Next() {
		r, err := scanRespondent(rows)
		if err != nil {
			return nil, 0, err
		}
		respondents = append(respondents, r)
	}
	return respondents, total, rows.Err()
}
