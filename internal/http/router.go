package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router stdlib http.ServeMux with method-qualified patterns; no third-party
// routing dependency.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

type Handlers struct {
	Auth        *AuthHandler
	AdminUsers  *AdminUsersHandler
	Respondents *RespondentsHandler
	Sessions    *SessionsHandler
	Trials      *TrialsHandler
	Export      *ExportHandler
}

func NewRouter(auth *AuthMiddleware, h Handlers, logger *zap.Logger) *Router {
	r := &Router{mux: http.NewServeMux(), logger: logger}

	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// auth
	r.mux.HandleFunc("POST /api/v1/auth/login", h.Auth.Login)
	r.mux.HandleFunc("POST /api/v1/auth/change-password", auth.Authenticate(h.Auth.ChangePassword))
	r.mux.HandleFunc("GET /api/v1/auth/me", auth.Authenticate(h.Auth.Me))

	// admin: operator accounts
	r.mux.HandleFunc("POST /api/v1/admin/users/register", auth.RequireAdmin(h.AdminUsers.RegisterOperator))
	r.mux.HandleFunc("GET /api/v1/admin/users", auth.RequireAdmin(h.AdminUsers.ListOperators))
	r.mux.HandleFunc("GET /api/v1/admin/users/{id}", auth.RequireAdmin(h.AdminUsers.GetOperator))
	r.mux.HandleFunc("PATCH /api/v1/admin/users/{id}/status", auth.RequireAdmin(h.AdminUsers.UpdateOperatorStatus))
	r.mux.HandleFunc("POST /api/v1/admin/users/{id}/reset-password", auth.RequireAdmin(h.AdminUsers.ResetOperatorPassword))

	// admin: cross-operator visibility and exports
	r.mux.HandleFunc("GET /api/v1/admin/sessions", auth.RequireAdmin(h.Sessions.ListSessionsForAdmin))
	r.mux.HandleFunc("GET /api/v1/export/sessions", auth.RequireAdmin(h.Export.ExportSessions))
	r.mux.HandleFunc("GET /api/v1/export/operator-performance", auth.RequireAdmin(h.Export.ExportOperatorPerformance))

	// single-session export is scope-checked in the service so both operators
	// and owning admins can download it
	r.mux.HandleFunc("GET /api/v1/export/sessions/{id}/csv", auth.Authenticate(h.Export.ExportSessionCSV))

	// operator: respondents
	r.mux.HandleFunc("POST /api/v1/respondents", auth.RequireOperator(h.Respondents.CreateRespondent))
	r.mux.HandleFunc("GET /api/v1/respondents", auth.RequireOperator(h.Respondents.ListRespondents))
	r.mux.HandleFunc("GET /api/v1/respondents/{id}", auth.RequireOperator(h.Respondents.GetRespondent))

	// operator: session lifecycle
	r.mux.HandleFunc("POST /api/v1/sessions", auth.RequireOperator(h.Sessions.CreateSession))
	r.mux.HandleFunc("GET /api/v1/sessions", auth.RequireOperator(h.Sessions.ListSessions))
	r.mux.HandleFunc("GET /api/v1/sessions/{id}", auth.RequireOperator(h.Sessions.GetSession))
	r.mux.HandleFunc("POST /api/v1/sessions/{id}/configs", auth.RequireOperator(h.Sessions.AddConfig))
	r.mux.HandleFunc("PATCH /api/v1/sessions/{id}/start", auth.RequireOperator(h.Sessions.StartSession))
	r.mux.HandleFunc("PATCH /api/v1/sessions/{id}/complete", auth.RequireOperator(h.Sessions.CompleteSession))
	r.mux.HandleFunc("PATCH /api/v1/sessions/{id}/local-data", auth.RequireOperator(h.Sessions.UpdateLocalData))

	// operator: measurement records
	r.mux.HandleFunc("POST /api/v1/sessions/{id}/trials/batch", auth.RequireOperator(h.Trials.AppendReactionTrials))
	r.mux.HandleFunc("POST /api/v1/sessions/{id}/tympani-readings", auth.RequireOperator(h.Trials.AddTympanicReading))
	r.mux.HandleFunc("POST /api/v1/sessions/{id}/vital-readings", auth.RequireOperator(h.Trials.AddVitalReading))
	r.mux.HandleFunc("GET /api/v1/sessions/{id}/records", auth.RequireOperator(h.Trials.GetSessionRecords))

	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
