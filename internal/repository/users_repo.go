package repository

import (
	"context"

	"ergoquipt-data/internal/domain"
)

// UsersRepository account storage. Mutations that the audit trail covers take
// the AdminActionLog alongside the change and persist both in one transaction;
// a failed log write rolls the mutation back.
type UsersRepository interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByUsernameOrEmail conflict probe used before provisioning. Returns
	// ErrNotFound when neither identity is taken.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)

	// CreateUser inserts the account and, when log is non-nil, the audit entry.
	// Returns ErrDuplicate on a username/email collision.
	CreateUser(ctx context.Context, user *domain.User, log *domain.AdminActionLog) (string, error)

	// GetOwnedOperator is the scope predicate for account administration:
	// ErrNotFound unless operatorID is an operator created by adminID.
	GetOwnedOperator(ctx context.Context, adminID, operatorID string) (*domain.User, error)

	// ListOperators returns operators created by adminID, optionally filtered by
	// status, creation-time ascending for stable paging.
	ListOperators(ctx context.Context, adminID string, filters OperatorFilters, page, limit int) ([]*domain.User, int, error)

	// ListOperatorIDs resolves the transitive set of operators owned by adminID.
	ListOperatorIDs(ctx context.Context, adminID string) ([]string, error)

	UpdateStatus(ctx context.Context, userID string, status domain.UserStatus, log *domain.AdminActionLog) error

	// ResetPassword stores a new temporary credential: sets the hash and flags
	// initial_password, in one transaction with the audit entry.
	ResetPassword(ctx context.Context, userID, passwordHash string, log *domain.AdminActionLog) error

	// RotatePassword completes the credential lifecycle: stores the hash, clears
	// initial_password and promotes a pending account to active, atomically with
	// the audit entry.
	RotatePassword(ctx context.Context, userID, passwordHash string, log *domain.AdminActionLog) error

	// ListLogsForOperator returns the append-only audit trail for one account,
	// oldest first.
	ListLogsForOperator(ctx context.Context, operatorID string) ([]*domain.AdminActionLog, error)
}

// OperatorFilters optional operator listing filters.
type OperatorFilters struct {
	Status domain.UserStatus // empty = all statuses
}
