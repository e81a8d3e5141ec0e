package httpapi

import (
	"net/http"
	"time"

	"ergoquipt-data/internal/service"

	"go.uber.org/zap"
)

// TrialsHandler measurement record routes. All appends are scoped to sessions
// owned by the caller.
type TrialsHandler struct {
	trialService service.TrialService
	logger       *zap.Logger
}

func NewTrialsHandler(trialService service.TrialService, logger *zap.Logger) *TrialsHandler {
	return &TrialsHandler{trialService: trialService, logger: logger}
}

// AppendReactionTrials POST /api/v1/sessions/{id}/trials/batch
func (h *TrialsHandler) AppendReactionTrials(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body struct {
		Trials []service.ReactionTrialInput `json:"trials"`
	}
	if err := readBodyJSON(r, 4<<20, &body); err != nil {
		writeError(w, service.NewInvalidError("malformed request body"))
		return
	}

	resp, err := h.trialService.AppendReactionTrials(r.Context(), service.AppendReactionTrialsRequest{
		OperatorID: claims.Subject,
		SessionID:  r.PathValue("id"),
		Trials:     body.Trials,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// AddTympanicReading POST /api/v1/sessions/{id}/tympani-readings
func (h *TrialsHandler) AddTympanicReading(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body struct {
		Temperature      float64   `json:"temperature"`
		ReadingNumber    int       `json:"reading_number"`
		MeasurementPhase string    `json:"measurement_phase"`
		BodyPosition     string    `json:"body_position"`
		EnvironmentTemp  *float64  `json:"environment_temp"`
		ReadingTime      time.Time `json:"reading_time"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, service.NewInvalidError("malformed request body"))
		return
	}

	reading, err := h.trialService.AddTympanicReading(r.Context(), service.AddTympanicReadingRequest{
		OperatorID:       claims.Subject,
		SessionID:        r.PathValue("id"),
		Temperature:      body.Temperature,
		ReadingNumber:    body.ReadingNumber,
		MeasurementPhase: body.MeasurementPhase,
		BodyPosition:     body.BodyPosition,
		EnvironmentTemp:  body.EnvironmentTemp,
		ReadingTime:      body.ReadingTime,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

// AddVitalReading POST /api/v1/sessions/{id}/vital-readings
func (h *TrialsHandler) AddVitalReading(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body struct {
		HeartRate            int       `json:"heart_rate"`
		HeartRateVariability *float64  `json:"heart_rate_variability"`
		SpO2                 int       `json:"spo2"`
		ReadingNumber        int       `json:"reading_number"`
		MeasurementPhase     string    `json:"measurement_phase"`
		ActivityContext      string    `json:"activity_context"`
		BodyPosition         string    `json:"body_position"`
		ReadingTime          time.Time `json:"reading_time"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, service.NewInvalidError("malformed request body"))
		return
	}

	reading, err := h.trialService.AddVitalReading(r.Context(), service.AddVitalReadingRequest{
		OperatorID:           claims.Subject,
		SessionID:            r.PathValue("id"),
		HeartRate:            body.HeartRate,
		HeartRateVariability: body.HeartRateVariability,
		SpO2:                 body.SpO2,
		ReadingNumber:        body.ReadingNumber,
		MeasurementPhase:     body.MeasurementPhase,
		ActivityContext:      body.ActivityContext,
		BodyPosition:         body.BodyPosition,
		ReadingTime:          body.ReadingTime,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

// GetSessionRecords GET /api/v1/sessions/{id}/records
func (h *TrialsHandler) GetSessionRecords(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	records, err := h.trialService.GetSessionRecords(r.Context(), claims.Subject, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
