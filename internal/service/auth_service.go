package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ergoquipt-data/internal/domain"
	"ergoquipt-data/internal/repository"
	"ergoquipt-data/internal/token"

	"go.uber.org/zap"
)

// AuthService credential lifecycle: login with platform gating and forced
// first-login password rotation.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) (*ChangePasswordResponse, error)
	GetProfile(ctx context.Context, userID string) (*UserSummary, error)
}

type authService struct {
	usersRepo repository.UsersRepository
	tokens    *token.Manager
	logger    *zap.Logger
}

func NewAuthService(usersRepo repository.UsersRepository, tokens *token.Manager, logger *zap.Logger) AuthService {
	return &authService{
		usersRepo: usersRepo,
		tokens:    tokens,
		logger:    logger,
	}
}

type LoginRequest struct {
	Username  string
	Password  string
	Platform  string // "mobile" | "web"
	IPAddress string
	UserAgent string
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserSummary `json:"user"`

	// RequiresPasswordChange signals the client to route straight to the
	// password-change screen. The token above is fully valid either way.
	RequiresPasswordChange bool `json:"requires_password_change"`
}

// UserSummary caller-facing account view. Never carries the password hash.
type UserSummary struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	University     string `json:"university,omitempty"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	PlatformAccess string `json:"platform_access"`
}

func summarizeUser(u *domain.User) UserSummary {
	return UserSummary{
		UserID:         u.UserID,
		Username:       u.Username,
		Email:          u.Email,
		FullName:       u.FullName,
		University:     u.University.String,
		Role:           string(u.Role),
		Status:         string(u.Status),
		PlatformAccess: string(u.PlatformAccess),
	}
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		s.logger.Warn("Login failed: missing credentials",
			zap.String("ip_address", req.IPAddress),
			zap.String("reason", "missing_credentials"),
		)
		return nil, NewInvalidCredentialsError()
	}

	platform, err := domain.ParsePlatform(strings.ToLower(strings.TrimSpace(req.Platform)))
	if err != nil {
		return nil, NewInvalidError("platform must be mobile or web")
	}

	user, err := s.usersRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Login failed: unknown username",
				zap.String("username", req.Username),
				zap.String("ip_address", req.IPAddress),
				zap.String("reason", "unknown_username"),
			)
			return nil, NewInvalidCredentialsError()
		}
		return nil, err
	}

	if !VerifyPassword(req.Password, user.PasswordHash) {
		s.logger.Warn("Login failed: wrong password",
			zap.String("username", req.Username),
			zap.String("ip_address", req.IPAddress),
			zap.String("reason", "wrong_password"),
		)
		return nil, NewInvalidCredentialsError()
	}

	if !user.Status.CanLogin() {
		s.logger.Warn("Login failed: account not permitted to log in",
			zap.String("username", req.Username),
			zap.String("status", string(user.Status)),
			zap.String("ip_address", req.IPAddress),
			zap.String("reason", "account_status"),
		)
		return nil, NewInvalidCredentialsError()
	}

	if !user.PlatformAccess.Permits(platform) {
		s.logger.Warn("Login failed: platform not permitted",
			zap.String("username", req.Username),
			zap.String("platform", string(platform)),
			zap.String("platform_access", string(user.PlatformAccess)),
			zap.String("ip_address", req.IPAddress),
			zap.String("reason", "platform_access"),
		)
		return nil, NewInvalidCredentialsError()
	}

	signed, expiresAt, err := s.tokens.Issue(user.UserID, user.Username, user.Role, platform)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.UserID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
		zap.String("platform", string(platform)),
		zap.Bool("requires_password_change", user.InitialPassword),
	)

	return &LoginResponse{
		Token:                  signed,
		ExpiresAt:              expiresAt,
		User:                   summarizeUser(user),
		RequiresPasswordChange: user.InitialPassword,
	}, nil
}

type ChangePasswordRequest struct {
	UserID          string // authenticated caller
	Platform        string // platform claim of the presenting token
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
	IPAddress       string
}

type ChangePasswordResponse struct {
	// Fresh token so clients do not have to re-login after rotation.
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *authService) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*ChangePasswordResponse, error) {
	if req.OldPassword == "" || req.NewPassword == "" {
		return nil, NewInvalidError("old and new password are required")
	}
	if req.NewPassword != req.ConfirmPassword {
		return nil, NewConfirmationMismatchError()
	}
	if ok, reason := ValidatePasswordStrength(req.NewPassword); !ok {
		return nil, NewWeakPasswordError(reason)
	}

	user, err := s.usersRepo.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewUnauthenticatedError("account no longer exists")
		}
		return nil, err
	}

	if !VerifyPassword(req.OldPassword, user.PasswordHash) {
		s.logger.Warn("Password change failed: wrong current password",
			zap.String("user_id", user.UserID),
			zap.String("ip_address", req.IPAddress),
		)
		return nil, NewInvalidCredentialsError()
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return nil, err
	}

	log := &domain.AdminActionLog{
		AdminID:    user.UserID, // self-initiated
		OperatorID: user.UserID,
		Action:     "password_change",
		Notes:      "password rotated by account owner",
		IPAddress:  req.IPAddress,
	}
	if err := s.usersRepo.RotatePassword(ctx, user.UserID, hash, log); err != nil {
		return nil, err
	}

	platform, err := domain.ParsePlatform(req.Platform)
	if err != nil {
		platform = domain.PlatformRequestWeb
	}
	signed, expiresAt, err := s.tokens.Issue(user.UserID, user.Username, user.Role, platform)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Password changed",
		zap.String("user_id", user.UserID),
		zap.Bool("was_initial_password", user.InitialPassword),
	)

	return &ChangePasswordResponse{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *authService) GetProfile(ctx context.Context, userID string) (*UserSummary, error) {
	user, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("user not found")
		}
		return nil, err
	}
	summary := summarizeUser(user)
	return &summary, nil
}
