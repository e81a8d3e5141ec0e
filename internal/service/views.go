package service

import (
	"database/sql"
	"encoding/json"
	"time"

	"ergoquipt-data/internal/domain"
)

// Caller-facing views of the domain models. The repositories work in sql.Null*
// terms; the API surface flattens those to plain values and pointers.

type RespondentView struct {
	RespondentID string    `json:"respondent_id"`
	GuestName    string    `json:"guest_name"`
	Gender       string    `json:"gender,omitempty"`
	Age          int       `json:"age,omitempty"`
	Height       int       `json:"height,omitempty"`
	Weight       int       `json:"weight,omitempty"`
	Status       string    `json:"status"`
	University   string    `json:"university,omitempty"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

func respondentView(r *domain.Respondent) *RespondentView {
	return &RespondentView{
		RespondentID: r.RespondentID,
		GuestName:    r.GuestName,
		Gender:       r.Gender.String,
		Age:          int(r.Age.Int64),
		Height:       int(r.Height.Int64),
		Weight:       int(r.Weight.Int64),
		Status:       r.Status,
		University:   r.University.String,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
	}
}

type SessionView struct {
	SessionID          string          `json:"session_id"`
	SessionCode        string          `json:"session_code"`
	OperatorID         string          `json:"operator_id"`
	RespondentID       string          `json:"respondent_id"`
	TestType           string          `json:"test_type"`
	Status             string          `json:"status"`
	DeviceID           string          `json:"device_id,omitempty"`
	DeviceName         string          `json:"device_name,omitempty"`
	MeasurementContext string          `json:"measurement_context,omitempty"`
	EnvironmentNotes   string          `json:"environment_notes,omitempty"`
	AdditionalNotes    string          `json:"additional_notes,omitempty"`
	LocalData          json.RawMessage `json:"local_data,omitempty"`
	TrialsCompleted    int             `json:"trials_completed"`
	TotalTrials        int             `json:"total_trials"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	EndedAt            *time.Time      `json:"ended_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func sessionView(s *domain.Session) *SessionView {
	v := &SessionView{
		SessionID:          s.SessionID,
		SessionCode:        s.SessionCode,
		OperatorID:         s.OperatorID,
		RespondentID:       s.RespondentID,
		TestType:           string(s.TestType),
		Status:             string(s.Status),
		DeviceID:           s.DeviceID.String,
		DeviceName:         s.DeviceName.String,
		MeasurementContext: s.MeasurementContext.String,
		EnvironmentNotes:   s.EnvironmentNotes.String,
		AdditionalNotes:    s.AdditionalNotes.String,
		LocalData:          s.LocalData,
		TrialsCompleted:    s.TrialsCompleted,
		TotalTrials:        s.TotalTrials,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	if s.StartedAt.Valid {
		t := s.StartedAt.Time
		v.StartedAt = &t
	}
	if s.EndedAt.Valid {
		t := s.EndedAt.Time
		v.EndedAt = &t
	}
	return v
}

func sessionViews(sessions []*domain.Session) []*SessionView {
	views := make([]*SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView(s))
	}
	return views
}

type SessionConfigView struct {
	ConfigID            string    `json:"config_id"`
	SessionID           string    `json:"session_id"`
	ConfigType          string    `json:"config_type"`
	StimulusType        string    `json:"stimulus_type,omitempty"`
	StimulusCategory    string    `json:"stimulus_category,omitempty"`
	TrialsPerStimulus   int       `json:"trials_per_stimulus,omitempty"`
	OrderIndex          int       `json:"order_index"`
	MeasurementDuration int       `json:"measurement_duration,omitempty"`
	SamplingInterval    int       `json:"sampling_interval,omitempty"`
	TargetCondition     string    `json:"target_condition,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

func configViews(configs []*domain.SessionConfig) []*SessionConfigView {
	views := make([]*SessionConfigView, 0, len(configs))
	for _, c := range configs {
		views = append(views, &SessionConfigView{
			ConfigID:            c.ConfigID,
			SessionID:           c.SessionID,
			ConfigType:          c.ConfigType,
			StimulusType:        c.StimulusType.String,
			StimulusCategory:    c.StimulusCategory.String,
			TrialsPerStimulus:   c.TrialsPerStimulus,
			OrderIndex:          c.OrderIndex,
			MeasurementDuration: int(c.MeasurementDuration.Int64),
			SamplingInterval:    int(c.SamplingInterval.Int64),
			TargetCondition:     c.TargetCondition.String,
			CreatedAt:           c.CreatedAt,
		})
	}
	return views
}

type ReactionTrialView struct {
	TrialID          string    `json:"trial_id"`
	SessionID        string    `json:"session_id"`
	StimulusType     string    `json:"stimulus_type"`
	StimulusCategory string    `json:"stimulus_category"`
	ResponseTime     int       `json:"response_time"`
	TrialNumber      int       `json:"trial_number"`
	ReactionType     string    `json:"reaction_type"`
	CreatedAt        time.Time `json:"created_at"`
}

func trialViews(trials []*domain.ReactionTrial) []*ReactionTrialView {
	views := make([]*ReactionTrialView, 0, len(trials))
	for _, t := range trials {
		views = append(views, &ReactionTrialView{
			TrialID:          t.TrialID,
			SessionID:        t.SessionID,
			StimulusType:     string(t.StimulusType),
			StimulusCategory: string(t.StimulusCategory),
			ResponseTime:     t.ResponseTime,
			TrialNumber:      t.TrialNumber,
			ReactionType:     t.ReactionType,
			CreatedAt:        t.CreatedAt,
		})
	}
	return views
}

type TympanicReadingView struct {
	ReadingID        string    `json:"reading_id"`
	SessionID        string    `json:"session_id"`
	Temperature      float64   `json:"temperature"`
	ReadingNumber    int       `json:"reading_number"`
	MeasurementPhase string    `json:"measurement_phase,omitempty"`
	BodyPosition     string    `json:"body_position,omitempty"`
	EnvironmentTemp  *float64  `json:"environment_temp,omitempty"`
	ReadingTime      time.Time `json:"reading_time"`
	CreatedAt        time.Time `json:"created_at"`
}

func tympanicView(r *domain.TympanicReading) *TympanicReadingView {
	return &TympanicReadingView{
		ReadingID:        r.ReadingID,
		SessionID:        r.SessionID,
		Temperature:      r.Temperature,
		ReadingNumber:    r.ReadingNumber,
		MeasurementPhase: r.MeasurementPhase.String,
		BodyPosition:     r.BodyPosition.String,
		EnvironmentTemp:  floatPtr(r.EnvironmentTemp),
		ReadingTime:      r.ReadingTime,
		CreatedAt:        r.CreatedAt,
	}
}

func tympanicViews(readings []*domain.TympanicReading) []*TympanicReadingView {
	views := make([]*TympanicReadingView, 0, len(readings))
	for _, r := range readings {
		views = append(views, tympanicView(r))
	}
	return views
}

type VitalReadingView struct {
	ReadingID            string    `json:"reading_id"`
	SessionID            string    `json:"session_id"`
	HeartRate            int       `json:"heart_rate,omitempty"`
	HeartRateVariability *float64  `json:"heart_rate_variability,omitempty"`
	SpO2                 int       `json:"spo2,omitempty"`
	ReadingNumber        int       `json:"reading_number"`
	MeasurementPhase     string    `json:"measurement_phase,omitempty"`
	ActivityContext      string    `json:"activity_context,omitempty"`
	BodyPosition         string    `json:"body_position,omitempty"`
	ReadingTime          time.Time `json:"reading_time"`
	CreatedAt            time.Time `json:"created_at"`
}

func vitalView(r *domain.VitalReading) *VitalReadingView {
	return &VitalReadingView{
		ReadingID:            r.ReadingID,
		SessionID:            r.SessionID,
		HeartRate:            int(r.HeartRate.Int64),
		HeartRateVariability: floatPtr(r.HeartRateVariability),
		SpO2:                 int(r.SpO2.Int64),
		ReadingNumber:        r.ReadingNumber,
		MeasurementPhase:     r.MeasurementPhase.String,
		ActivityContext:      r.ActivityContext.String,
		BodyPosition:         r.BodyPosition.String,
		ReadingTime:          r.ReadingTime,
		CreatedAt:            r.CreatedAt,
	}
}

func vitalViews(readings []*domain.VitalReading) []*VitalReadingView {
	views := make([]*VitalReadingView, 0, len(readings))
	for _, r := range readings {
		views = append(views, vitalView(r))
	}
	return views
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}
