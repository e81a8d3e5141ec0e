package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"ergoquipt-data/internal/service"

	"go.uber.org/zap"
)

// SessionsHandler session lifecycle routes for operators plus the admin-wide
// session listing.
type SessionsHandler struct {
	sessionService service.SessionService
	logger         *zap.Logger
}

func NewSessionsHandler(sessionService service.SessionService, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{sessionService: sessionService, logger: logger}
}

// CreateSession POST /api/v1/sessions
func (h *SessionsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body struct {
		RespondentID       string                       `json:"respondent_id"`
		TestType           string                       `json:"test_type"`
		DeviceID           string                       `json:"device_id"`
		DeviceName         string                       `json:"device_name"`
		MeasurementContext string                       `json:"measurement_context"`
		EnvironmentNotes   string                       `json:"environment_notes"`
		AdditionalNotes    string                       `json:"additional_notes"`
		TotalTrials        int                          `json:"total_trials"`
		Configs            []service.SessionConfigInput `json:"configs"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, service.NewInvalidError("malformed request body"))
		return
	}

	detail, err := h.sessionService.CreateSession(r.Context(), service.CreateSessionRequest{
		OperatorID:         claims.Subject,
		RespondentID:       body.RespondentID,
		TestType:           body.TestType,
		DeviceID:           body.DeviceID,
		DeviceName:         body.DeviceName,
		MeasurementContext: body.MeasurementContext,
		EnvironmentNotes:   body.EnvironmentNotes,
		AdditionalNotes:    body.AdditionalNotes,
		TotalTrials:        body.TotalTrials,
		Configs:            body.Configs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// AddConfig POST /api/v1/sessions/{id}/configs
func (h *SessionsHandler) AddConfig(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body service.SessionConfigInput
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, service.NewInvalidError("malformed request body"))
		return
	}

	cfg, err := h.sessionService.AddConfig(r.Context(), claims.Subject, r.PathValue("id"), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

// GetSession GET /api/v1/sessions/{id}
func (h *SessionsHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	detail, err := h.sessionService.GetSession(r.Context(), claims.Subject, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// StartSession PATCH /api/v1/sessions/{id}/start
func (h *SessionsHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	session, err := h.sessionService.StartSession(r.Context(), claims.Subject, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// CompleteSession PATCH /api/v1/sessions/{id}/complete
func (h *SessionsHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	session, err := h.sessionService.CompleteSession(r.Context(), claims.Subject, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// UpdateLocalData PATCH /api/v1/sessions/{id}/local-data
func (h *SessionsHandler) UpdateLocalData(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body struct {
		LocalData json.RawMessage `json:"local_data"`
	}
	if err := readBodyJSON(r, 4<<20, &body); err != nil {
		writeError(w, service.NewInvalidError("malformed request body"))
		return
	}

	session, err := h.sessionService.UpdateLocalData(r.Context(), claims.Subject, r.PathValue("id"), body.LocalData)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// ListSessions GET /api/v1/sessions
func (h *SessionsHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	q := r.URL.Query()

	resp, err := h.sessionService.ListSessions(r.Context(), service.ListSessionsRequest{
		OperatorID: claims.Subject,
		Status:     q.Get("status"),
		Page:       parseInt(q.Get("page"), 1),
		Limit:      parseInt(q.Get("limit"), 20),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListSessionsForAdmin GET /api/v1/admin/sessions
func (h *SessionsHandler) ListSessionsForAdmin(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	q := r.URL.Query()

	startDate, err := parseDate(q.Get("start_date"))
	if err != nil {
		writeError(w, service.NewInvalidError("start_date must be YYYY-MM-DD"))
		return
	}
	endDate, err := parseDate(q.Get("end_date"))
	if err != nil {
		writeError(w, service.NewInvalidError("end_date must be YYYY-MM-DD"))
		return
	}

	resp, err := h.sessionService.ListSessionsForAdmin(r.Context(), service.AdminListSessionsRequest{
		AdminID:    claims.Subject,
		OperatorID: q.Get("operator_id"),
		Status:     q.Get("status"),
		TestType:   q.Get("test_type"),
		StartDate:  startDate,
		EndDate:    endDate,
		Page:       parseInt(q.Get("page"), 1),
		Limit:      parseInt(q.Get("limit"), 20),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseDate accepts YYYY-MM-DD; empty input yields the zero time, which
// disables the bound.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
