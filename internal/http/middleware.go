package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ergoquipt-data/internal/domain"
	"ergoquipt-data/internal/repository"
	"ergoquipt-data/internal/service"
	"ergoquipt-data/internal/token"

	"go.uber.org/zap"
)

type contextKey string

const (
	claimsContextKey contextKey = "auth_claims"
	userContextKey   contextKey = "auth_user"
)

// AuthMiddleware verifies bearer tokens and enforces role and platform gates
// on protected routes. The account is re-read from the store on every request,
// so suspending or deactivating an account revokes its outstanding tokens.
type AuthMiddleware struct {
	tokens *token.Manager
	users  repository.UsersRepository
	logger *zap.Logger
}

func NewAuthMiddleware(tokens *token.Manager, users repository.UsersRepository, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, logger: logger}
}

// Authenticate rejects requests without a valid bearer token and stores the
// claims and the current account record on the request context.
func (m *AuthMiddleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, service.NewUnauthenticatedError("missing bearer token"))
			return
		}

		claims, err := m.tokens.Parse(raw)
		if err != nil {
			m.logger.Warn("Rejected token",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			writeError(w, service.NewUnauthenticatedError("invalid or expired token"))
			return
		}

		user, err := m.users.GetUser(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, service.NewUnauthenticatedError("invalid or expired token"))
				return
			}
			writeError(w, err)
			return
		}
		if !user.Status.CanLogin() {
			m.logger.Warn("Rejected token for disabled account",
				zap.String("user_id", user.UserID),
				zap.String("status", string(user.Status)),
			)
			writeError(w, service.NewUnauthenticatedError("account is not active"))
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		ctx = context.WithValue(ctx, userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole authenticates and then gates on the account's role.
func (m *AuthMiddleware) RequireRole(roles ...domain.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			for _, role := range roles {
				if user.Role == role {
					next(w, r)
					return
				}
			}
			m.logger.Warn("Role gate rejected request",
				zap.String("path", r.URL.Path),
				zap.String("role", string(user.Role)),
				zap.String("user_id", user.UserID),
			)
			writeError(w, service.NewUnauthorizedError("insufficient role"))
		})
	}
}

// requirePlatform gates on the account's platform_access grant.
func (m *AuthMiddleware) requirePlatform(platform domain.Platform, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if !user.PlatformAccess.Permits(platform) {
			m.logger.Warn("Platform gate rejected request",
				zap.String("path", r.URL.Path),
				zap.String("platform_access", string(user.PlatformAccess)),
				zap.String("user_id", user.UserID),
			)
			writeError(w, service.NewUnauthorizedError("platform access denied"))
			return
		}
		next(w, r)
	}
}

// RequireAdmin gate for the web administration surface: admin-and-above with
// web platform access.
func (m *AuthMiddleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)(m.requirePlatform(domain.PlatformRequestWeb, next))
}

// RequireOperator gate for the mobile data-collection surface.
func (m *AuthMiddleware) RequireOperator(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireRole(domain.RoleOperator)(m.requirePlatform(domain.PlatformRequestMobile, next))
}

// ClaimsFromContext returns the verified claims stored by Authenticate; nil on
// unauthenticated requests.
func ClaimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*token.Claims)
	return claims
}

// UserFromContext returns the account record stored by Authenticate.
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}
