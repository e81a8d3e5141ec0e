package httpapi

import (
	"net/http"

	"ergoquipt-data/internal/service"

	"go.uber.org/zap"
)

// RespondentsHandler respondent profile routes, operator-scoped.
type RespondentsHandler struct {
	respondentService service.RespondentService
	logger            *zap.Logger
}

func NewRespondentsHandler(respondentService service.RespondentService, logger *zap.Logger) *RespondentsHandler {
	return &RespondentsHandler{respondentService: respondentService, logger: logger}
}

// CreateRespondent POST /api/v1/respondents
func (h *RespondentsHandler) CreateRespondent(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body struct {
		GuestName  string `json:"guest_name"`
		Gender     string `json:"gender"`
		Age        int    `json:"age"`
		Height     int    `json:"height"`
		Weight     int    `json:"weight"`
		Status     string `json:"status"`
		University string `json:"university"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, service.NewInvalidError("malformed request body"))
		return
	}

	respondent, err := h.respondentService.CreateRespondent(r.Context(), service.CreateRespondentRequest{
		OperatorID: claims.Subject,
		GuestName:  body.GuestName,
		Gender:     body.Gender,
		Age:        body.Age,
		Height:     body.Height,
		Weight:     body.Weight,
		Status:     body.Status,
		University: body.University,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, respondent)
}

// GetRespondent GET /api/v1/respondents/{id}
func (h *RespondentsHandler) GetRespondent(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	respondent, err := h.respondentService.GetRespondent(r.Context(), claims.Subject, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, respondent)
}

// ListRespondents GET /api/v1/respondents
func (h *RespondentsHandler) ListRespondents(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	q := r.URL.Query()

	resp, err := h.respondentService.ListRespondents(r.Context(), service.ListRespondentsRequest{
		OperatorID: claims.Subject,
		Search:     q.Get("search"),
		Page:       parseInt(q.Get("page"), 1),
		Limit:      parseInt(q.Get("limit"), 20),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
