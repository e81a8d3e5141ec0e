package repository

import (
	"context"

	"ergoquipt-data/internal/domain"
)

// RespondentsRepository respondent storage. Respondents are immutable once
// created; there is no update or delete path.
type RespondentsRepository interface {
	CreateRespondent(ctx context.Context, r *domain.Respondent) (string, error)

	// GetOwnedRespondent scope predicate: ErrNotFound unless respondentID was
	// created by operatorID.
	GetOwnedRespondent(ctx context.Context, operatorID, respondentID string) (*domain.Respondent, error)

	// ListRespondents returns the operator's respondents, optionally filtered by
	// a case-insensitive name search, newest first.
	ListRespondents(ctx context.Context, operatorID, search string, page, limit int) ([]*domain.Respondent, int, error)
}
