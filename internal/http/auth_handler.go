package httpapi

import (
	"net/http"

	"ergoquipt-data/internal/service"

	"go.uber.org/zap"
)

// AuthHandler login, password rotation and profile routes.
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// Login POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Platform string `json:"platform"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, service.NewInvalidError("malformed request body"))
		return
	}

	resp, err := h.authService.Login(r.Context(), service.LoginRequest{
		Username:  body.Username,
		Password:  body.Password,
		Platform:  body.Platform,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChangePassword POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body struct {
		OldPassword     string `json:"old_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, service.NewInvalidError("malformed request body"))
		return
	}

	resp, err := h.authService.ChangePassword(r.Context(), service.ChangePasswordRequest{
		UserID:          claims.Subject,
		Platform:        claims.Platform,
		OldPassword:     body.OldPassword,
		NewPassword:     body.NewPassword,
		ConfirmPassword: body.ConfirmPassword,
		IPAddress:       clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	profile, err := h.authService.GetProfile(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
