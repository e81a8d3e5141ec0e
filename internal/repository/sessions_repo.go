package repository

import (
	"context"
	"encoding/json"
	"time"

	"ergoquipt-data/internal/domain"
)

// SessionsRepository session and session-config storage.
type SessionsRepository interface {
	// CreateSession returns ErrDuplicate when the session code collides, so the
	// service can retry with a fresh code.
	CreateSession(ctx context.Context, s *domain.Session) (string, error)

	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// GetOwnedSession scope predicate: ErrNotFound unless sessionID belongs to
	// operatorID.
	GetOwnedSession(ctx context.Context, operatorID, sessionID string) (*domain.Session, error)

	AddConfig(ctx context.Context, cfg *domain.SessionConfig) (string, error)

	// ListConfigs returns configs in caller-supplied order_index order.
	ListConfigs(ctx context.Context, sessionID string) ([]*domain.SessionConfig, error)

	// StartSession transitions draft -> active and stamps started_at. The guard
	// is part of the update itself so concurrent starts cannot both succeed;
	// returns ErrNotFound when the session is not in draft.
	StartSession(ctx context.Context, sessionID string, at time.Time) error

	// CompleteSession stamps ended_at and sets completed from any state.
	CompleteSession(ctx context.Context, sessionID string, at time.Time) error

	// UpdateLocalData replaces the opaque blob wholesale and stamps updated_at.
	UpdateLocalData(ctx context.Context, sessionID string, blob json.RawMessage, at time.Time) error

	ListForOperator(ctx context.Context, operatorID string, filters SessionFilters, page, limit int) ([]*domain.Session, int, error)

	// ListForAdmin scopes by the set of operators created by adminID before
	// applying the remaining filters.
	ListForAdmin(ctx context.Context, adminID string, filters AdminSessionFilters, page, limit int) ([]*domain.Session, int, error)
}

// SessionFilters operator-facing listing filters.
type SessionFilters struct {
	Status domain.SessionStatus // empty = all
}

// AdminSessionFilters admin-facing listing filters. Zero time values disable the
// date-range bounds.
type AdminSessionFilters struct {
	OperatorID string
	Status     domain.SessionStatus
	TestType   domain.TestType
	StartDate  time.Time
	EndDate    time.Time
}
