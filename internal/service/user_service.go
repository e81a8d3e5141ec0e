package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"ergoquipt-data/internal/domain"
	"ergoquipt-data/internal/repository"

	"go.uber.org/zap"
)

// UserService admin-side operator account administration. Every mutation is
// scoped to operators the acting admin created and leaves an audit entry.
type UserService interface {
	RegisterOperator(ctx context.Context, req RegisterOperatorRequest) (*RegisterOperatorResponse, error)
	GetOperator(ctx context.Context, adminID, operatorID string) (*OperatorDetail, error)
	ListOperators(ctx context.Context, req ListOperatorsRequest) (*ListOperatorsResponse, error)
	UpdateOperatorStatus(ctx context.Context, req UpdateOperatorStatusRequest) error
	ResetOperatorPassword(ctx context.Context, req ResetOperatorPasswordRequest) (*ResetOperatorPasswordResponse, error)
}

type userService struct {
	usersRepo repository.UsersRepository
	logger    *zap.Logger
}

func NewUserService(usersRepo repository.UsersRepository, logger *zap.Logger) UserService {
	return &userService{usersRepo: usersRepo, logger: logger}
}

type RegisterOperatorRequest struct {
	AdminID        string
	Username       string
	Email          string
	FullName       string
	University     string
	PlatformAccess string // defaults to mobile
	Notes          string
	IPAddress      string
}

type RegisterOperatorResponse struct {
	OperatorID string `json:"operator_id"`
	Username   string `json:"username"`

	// TemporaryPassword is shown exactly once; only its hash is stored.
	TemporaryPassword string `json:"temporary_password"`
}

func (s *userService) RegisterOperator(ctx context.Context, req RegisterOperatorRequest) (*RegisterOperatorResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	if req.Username == "" {
		return nil, NewInvalidError("username is required")
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return nil, NewInvalidError("a valid email is required")
	}
	if req.FullName == "" {
		return nil, NewInvalidError("full_name is required")
	}

	platformAccess := domain.PlatformMobile
	if req.PlatformAccess != "" {
		parsed, err := domain.ParsePlatformAccess(req.PlatformAccess)
		if err != nil {
			return nil, NewInvalidError("platform_access must be mobile, web or both")
		}
		platformAccess = parsed
	}

	if _, err := s.usersRepo.FindByUsernameOrEmail(ctx, req.Username, req.Email); err == nil {
		return nil, NewConflictError("username or email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	tempPassword, err := GenerateTemporaryPassword(DefaultTemporaryPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:         req.Username,
		Email:            req.Email,
		PasswordHash:     hash,
		FullName:         req.FullName,
		University:       nullString(req.University),
		Role:             domain.RoleOperator,
		Status:           domain.UserStatusPending,
		RegistrationType: domain.RegistrationAdminCreated,
		CreatedBy:        nullString(req.AdminID),
		InitialPassword:  true,
		PlatformAccess:   platformAccess,
	}
	log := &domain.AdminActionLog{
		AdminID:   req.AdminID,
		Action:    "create",
		Notes:     req.Notes,
		IPAddress: req.IPAddress,
	}

	operatorID, err := s.usersRepo.CreateUser(ctx, user, log)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewConflictError("username or email already registered")
		}
		return nil, err
	}

	s.logger.Info("Operator registered",
		zap.String("operator_id", operatorID),
		zap.String("username", req.Username),
		zap.String("admin_id", req.AdminID),
	)

	return &RegisterOperatorResponse{
		OperatorID:        operatorID,
		Username:          req.Username,
		TemporaryPassword: tempPassword,
	}, nil
}

// OperatorDetail one operator plus its full audit trail.
type OperatorDetail struct {
	Operator UserSummary              `json:"operator"`
	Logs     []*domain.AdminActionLog `json:"logs"`
}

func (s *userService) GetOperator(ctx context.Context, adminID, operatorID string) (*OperatorDetail, error) {
	operator, err := s.usersRepo.GetOwnedOperator(ctx, adminID, operatorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("operator not found")
		}
		return nil, err
	}
	logs, err := s.usersRepo.ListLogsForOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	return &OperatorDetail{Operator: summarizeUser(operator), Logs: logs}, nil
}

type ListOperatorsRequest struct {
	AdminID string
	Status  string // optional filter
	Page    int
	Limit   int
}

type ListOperatorsResponse struct {
	Operators []UserSummary `json:"operators"`
	Total     int           `json:"total"`
	Page      int           `json:"page"`
	Limit     int           `json:"limit"`
}

func (s *userService) ListOperators(ctx context.Context, req ListOperatorsRequest) (*ListOperatorsResponse, error) {
	filters := repository.OperatorFilters{}
	if req.Status != "" {
		status, err := domain.ParseUserStatus(req.Status)
		if err != nil {
			return nil, NewInvalidError("invalid status filter")
		}
		filters.Status = status
	}
	page, limit := normalizePaging(req.Page, req.Limit)

	operators, total, err := s.usersRepo.ListOperators(ctx, req.AdminID, filters, page, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]UserSummary, 0, len(operators))
	for _, op := range operators {
		summaries = append(summaries, summarizeUser(op))
	}
	return &ListOperatorsResponse{Operators: summaries, Total: total, Page: page, Limit: limit}, nil
}

type UpdateOperatorStatusRequest struct {
	AdminID    string
	OperatorID string
	Status     string
	Notes      string
	IPAddress  string
}

func (s *userService) UpdateOperatorStatus(ctx context.Context, req UpdateOperatorStatusRequest) error {
	status, err := domain.ParseUserStatus(req.Status)
	if err != nil {
		return NewInvalidError("status must be pending, active, inactive or suspended")
	}

	if _, err := s.usersRepo.GetOwnedOperator(ctx, req.AdminID, req.OperatorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("operator not found")
		}
		return err
	}

	log := &domain.AdminActionLog{
		AdminID:    req.AdminID,
		OperatorID: req.OperatorID,
		Action:     "status_update",
		Notes:      req.Notes,
		IPAddress:  req.IPAddress,
	}
	if err := s.usersRepo.UpdateStatus(ctx, req.OperatorID, status, log); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("operator not found")
		}
		return err
	}

	s.logger.Info("Operator status updated",
		zap.String("operator_id", req.OperatorID),
		zap.String("status", string(status)),
		zap.String("admin_id", req.AdminID),
	)
	return nil
}

type ResetOperatorPasswordRequest struct {
	AdminID    string
	OperatorID string
	IPAddress  string
}

type ResetOperatorPasswordResponse struct {
	TemporaryPassword string `json:"temporary_password"`
}

func (s *userService) ResetOperatorPassword(ctx context.Context, req ResetOperatorPasswordRequest) (*ResetOperatorPasswordResponse, error) {
	if _, err := s.usersRepo.GetOwnedOperator(ctx, req.AdminID, req.OperatorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("operator not found")
		}
		return nil, err
	}

	tempPassword, err := GenerateTemporaryPassword(DefaultTemporaryPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	log := &domain.AdminActionLog{
		AdminID:    req.AdminID,
		OperatorID: req.OperatorID,
		Action:     "password_reset",
		Notes:      "temporary password issued",
		IPAddress:  req.IPAddress,
	}
	if err := s.usersRepo.ResetPassword(ctx, req.OperatorID, hash, log); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("operator not found")
		}
		return nil, err
	}

	s.logger.Info("Operator password reset",
		zap.String("operator_id", req.OperatorID),
		zap.String("admin_id", req.AdminID),
	)
	return &ResetOperatorPasswordResponse{TemporaryPassword: tempPassword}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// normalizePaging clamps paging parameters to sane bounds.
func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
