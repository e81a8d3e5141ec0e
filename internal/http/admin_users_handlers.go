package httpapi

import (
	"net/http"

	"ergoquipt-data/internal/service"

	"go.uber.org/zap"
)

// AdminUsersHandler operator account administration routes. Role gating happens
// in the router; every operation here is additionally scoped to operators the
// acting admin created.
type AdminUsersHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

func NewAdminUsersHandler(userService service.UserService, logger *zap.Logger) *AdminUsersHandler {
	return &AdminUsersHandler{userService: userService, logger: logger}
}

// RegisterOperator POST /api/v1/admin/users/register
func (h *AdminUsersHandler) RegisterOperator(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body struct {
		Username       string `json:"username"`
		Email          string `json:"email"`
		FullName       string `json:"full_name"`
		University     string `json:"university"`
		PlatformAccess string `json:"platform_access"`
		Notes          string `json:"notes"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, service.NewInvalidError("malformed request body"))
		return
	}

	resp, err := h.userService.RegisterOperator(r.Context(), service.RegisterOperatorRequest{
		AdminID:        claims.Subject,
		Username:       body.Username,
		Email:          body.Email,
		FullName:       body.FullName,
		University:     body.University,
		PlatformAccess: body.PlatformAccess,
		Notes:          body.Notes,
		IPAddress:      clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListOperators GET /api/v1/admin/users
func (h *AdminUsersHandler) ListOperators(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	q := r.URL.Query()

	resp, err := h.userService.ListOperators(r.Context(), service.ListOperatorsRequest{
		AdminID: claims.Subject,
		Status:  q.Get("status"),
		Page:    parseInt(q.Get("page"), 1),
		Limit:   parseInt(q.Get("limit"), 20),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOperator GET /api/v1/admin/users/{id}
func (h *AdminUsersHandler) GetOperator(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	resp, err := h.userService.GetOperator(r.Context(), claims.Subject, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateOperatorStatus PATCH /api/v1/admin/users/{id}/status
func (h *AdminUsersHandler) UpdateOperatorStatus(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, service.NewInvalidError("malformed request body"))
		return
	}

	err := h.userService.UpdateOperatorStatus(r.Context(), service.UpdateOperatorStatusRequest{
		AdminID:    claims.Subject,
		OperatorID: r.PathValue("id"),
		Status:     body.Status,
		Notes:      body.Notes,
		IPAddress:  clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})
}

// ResetOperatorPassword POST /api/v1/admin/users/{id}/reset-password
func (h *AdminUsersHandler) ResetOperatorPassword(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	resp, err := h.userService.ResetOperatorPassword(r.Context(), service.ResetOperatorPasswordRequest{
		AdminID:    claims.Subject,
		OperatorID: r.PathValue("id"),
		IPAddress:  clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
