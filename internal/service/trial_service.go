package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ergoquipt-data/internal/domain"
	"ergoquipt-data/internal/repository"

	"go.uber.org/zap"
)

// TrialService immutable measurement record appends. Appends are scoped to the
// caller's own sessions in any state; once stored, records are never updated
// or deleted.
type TrialService interface {
	AppendReactionTrials(ctx context.Context, req AppendReactionTrialsRequest) (*AppendReactionTrialsResponse, error)
	AddTympanicReading(ctx context.Context, req AddTympanicReadingRequest) (*TympanicReadingView, error)
	AddVitalReading(ctx context.Context, req AddVitalReadingRequest) (*VitalReadingView, error)
	GetSessionRecords(ctx context.Context, operatorID, sessionID string) (*SessionRecords, error)
}

type trialService struct {
	trialsRepo   repository.TrialsRepository
	sessionsRepo repository.SessionsRepository
	logger       *zap.Logger
}

func NewTrialService(trialsRepo repository.TrialsRepository, sessionsRepo repository.SessionsRepository, logger *zap.Logger) TrialService {
	return &trialService{
		trialsRepo:   trialsRepo,
		sessionsRepo: sessionsRepo,
		logger:       logger,
	}
}

// ownedSession resolves the session with owner scoping. Appends have no state
// precondition; clients may buffer records locally and upload them after the
// session has moved on.
func (s *trialService) ownedSession(ctx context.Context, operatorID, sessionID string) (*domain.Session, error) {
	session, err := s.sessionsRepo.GetOwnedSession(ctx, operatorID, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("session not found")
		}
		return nil, err
	}
	return session, nil
}

// ReactionTrialInput one client-recorded trial.
type ReactionTrialInput struct {
	StimulusType     string `json:"stimulus_type"`
	StimulusCategory string `json:"stimulus_category"`
	ResponseTime     int    `json:"response_time"` // milliseconds
	TrialNumber      int    `json:"trial_number"`
	ReactionType     string `json:"reaction_type"` // correct, incorrect, timeout
}

type AppendReactionTrialsRequest struct {
	OperatorID string
	SessionID  string
	Trials     []ReactionTrialInput
}

type AppendReactionTrialsResponse struct {
	Appended        int `json:"appended"`
	TrialsCompleted int `json:"trials_completed"`
}

func (s *trialService) AppendReactionTrials(ctx context.Context, req AppendReactionTrialsRequest) (*AppendReactionTrialsResponse, error) {
	if len(req.Trials) == 0 {
		return nil, NewInvalidError("at least one trial is required")
	}

	trials := make([]*domain.ReactionTrial, 0, len(req.Trials))
	for i, in := range req.Trials {
		stimulusType := domain.StimulusType(in.StimulusType)
		if !stimulusType.Valid() {
			return nil, NewInvalidError(fmt.Sprintf("trial %d: invalid stimulus_type", i))
		}
		category := domain.StimulusCategory(in.StimulusCategory)
		if !category.Valid() {
			return nil, NewInvalidError(fmt.Sprintf("trial %d: invalid stimulus_category", i))
		}
		if in.ResponseTime < 0 {
			return nil, NewInvalidError(fmt.Sprintf("trial %d: response_time must be non-negative", i))
		}
		if in.TrialNumber < 1 {
			return nil, NewInvalidError(fmt.Sprintf("trial %d: trial_number must be positive", i))
		}
		switch in.ReactionType {
		case "correct", "incorrect", "timeout":
		default:
			return nil, NewInvalidError(fmt.Sprintf("trial %d: reaction_type must be correct, incorrect or timeout", i))
		}
		trials = append(trials, &domain.ReactionTrial{
			StimulusType:     stimulusType,
			StimulusCategory: category,
			ResponseTime:     in.ResponseTime,
			TrialNumber:      in.TrialNumber,
			ReactionType:     in.ReactionType,
		})
	}

	if _, err := s.ownedSession(ctx, req.OperatorID, req.SessionID); err != nil {
		return nil, err
	}

	if err := s.trialsRepo.AppendReactionTrials(ctx, req.SessionID, trials); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("session not found")
		}
		return nil, err
	}

	// Re-read for the post-increment counter; concurrent batches may have
	// advanced it further, which is fine.
	session, err := s.sessionsRepo.GetOwnedSession(ctx, req.OperatorID, req.SessionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reaction trials appended",
		zap.String("session_id", req.SessionID),
		zap.Int("appended", len(trials)),
		zap.Int("trials_completed", session.TrialsCompleted),
	)
	return &AppendReactionTrialsResponse{
		Appended:        len(trials),
		TrialsCompleted: session.TrialsCompleted,
	}, nil
}

type AddTympanicReadingRequest struct {
	OperatorID       string
	SessionID        string
	Temperature      float64
	ReadingNumber    int
	MeasurementPhase string // baseline, intervention, recovery
	BodyPosition     string // sitting, standing, lying_down
	EnvironmentTemp  *float64 // nil when not measured; 0 degrees C is a real value
	ReadingTime      time.Time
}

func (s *trialService) AddTympanicReading(ctx context.Context, req AddTympanicReadingRequest) (*TympanicReadingView, error) {
	if req.Temperature < 30 || req.Temperature > 45 {
		return nil, NewInvalidError("temperature is out of physiological range")
	}
	if req.ReadingNumber < 1 {
		return nil, NewInvalidError("reading_number must be positive")
	}
	switch req.MeasurementPhase {
	case "", "baseline", "intervention", "recovery":
	default:
		return nil, NewInvalidError("measurement_phase must be baseline, intervention or recovery")
	}
	if err := validateBodyPosition(req.BodyPosition); err != nil {
		return nil, err
	}

	if _, err := s.ownedSession(ctx, req.OperatorID, req.SessionID); err != nil {
		return nil, err
	}

	readingTime := req.ReadingTime
	if readingTime.IsZero() {
		readingTime = time.Now()
	}
	reading := &domain.TympanicReading{
		SessionID:        req.SessionID,
		Temperature:      req.Temperature,
		ReadingNumber:    req.ReadingNumber,
		MeasurementPhase: nullString(req.MeasurementPhase),
		BodyPosition:     nullString(req.BodyPosition),
		EnvironmentTemp:  nullFloat(req.EnvironmentTemp),
		ReadingTime:      readingTime,
	}

	readingID, err := s.trialsRepo.AddTympanicReading(ctx, reading)
	if err != nil {
		return nil, err
	}
	reading.ReadingID = readingID

	s.logger.Info("Tympanic reading stored",
		zap.String("session_id", req.SessionID),
		zap.Int("reading_number", req.ReadingNumber),
	)
	return tympanicView(reading), nil
}

type AddVitalReadingRequest struct {
	OperatorID           string
	SessionID            string
	HeartRate            int
	HeartRateVariability *float64
	SpO2                 int
	ReadingNumber        int
	MeasurementPhase     string // baseline, exercise, recovery, sleep
	ActivityContext      string
	BodyPosition         string
	ReadingTime          time.Time
}

func (s *trialService) AddVitalReading(ctx context.Context, req AddVitalReadingRequest) (*VitalReadingView, error) {
	if req.HeartRate == 0 && req.SpO2 == 0 && req.HeartRateVariability == nil {
		return nil, NewInvalidError("at least one vital measurement is required")
	}
	if req.HeartRate < 0 || req.HeartRate > 300 {
		return nil, NewInvalidError("heart_rate is out of range")
	}
	if req.SpO2 < 0 || req.SpO2 > 100 {
		return nil, NewInvalidError("spo2 must be between 0 and 100")
	}
	if req.ReadingNumber < 1 {
		return nil, NewInvalidError("reading_number must be positive")
	}
	switch req.MeasurementPhase {
	case "", "baseline", "exercise", "recovery", "sleep":
	default:
		return nil, NewInvalidError("measurement_phase must be baseline, exercise, recovery or sleep")
	}
	if err := validateBodyPosition(req.BodyPosition); err != nil {
		return nil, err
	}

	if _, err := s.ownedSession(ctx, req.OperatorID, req.SessionID); err != nil {
		return nil, err
	}

	readingTime := req.ReadingTime
	if readingTime.IsZero() {
		readingTime = time.Now()
	}
	reading := &domain.VitalReading{
		SessionID:            req.SessionID,
		HeartRate:            nullInt(req.HeartRate),
		HeartRateVariability: nullFloat(req.HeartRateVariability),
		SpO2:                 nullInt(req.SpO2),
		ReadingNumber:        req.ReadingNumber,
		MeasurementPhase:     nullString(req.MeasurementPhase),
		ActivityContext:      nullString(req.ActivityContext),
		BodyPosition:         nullString(req.BodyPosition),
		ReadingTime:          readingTime,
	}

	readingID, err := s.trialsRepo.AddVitalReading(ctx, reading)
	if err != nil {
		return nil, err
	}
	reading.ReadingID = readingID

	s.logger.Info("Vital reading stored",
		zap.String("session_id", req.SessionID),
		zap.Int("reading_number", req.ReadingNumber),
	)
	return vitalView(reading), nil
}

// SessionRecords every stored measurement of one session, each list ordered by
// its number.
type SessionRecords struct {
	ReactionTrials   []*ReactionTrialView   `json:"reaction_trials"`
	TympanicReadings []*TympanicReadingView `json:"tympanic_readings"`
	VitalReadings    []*VitalReadingView    `json:"vital_readings"`
}

func (s *trialService) GetSessionRecords(ctx context.Context, operatorID, sessionID string) (*SessionRecords, error) {
	if _, err := s.sessionsRepo.GetOwnedSession(ctx, operatorID, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("session not found")
		}
		return nil, err
	}

	trials, err := s.trialsRepo.ListReactionTrials(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	tympanic, err := s.trialsRepo.ListTympanicReadings(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	vitals, err := s.trialsRepo.ListVitalReadings(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionRecords{
		ReactionTrials:   trialViews(trials),
		TympanicReadings: tympanicViews(tympanic),
		VitalReadings:    vitalViews(vitals),
	}, nil
}

func validateBodyPosition(p string) error {
	switch p {
	case "", "sitting", "standing", "lying_down":
		return nil
	}
	return NewInvalidError("body_position must be sitting, standing or lying_down")
}

func nullFloat(f *float64) (nf sql.NullFloat64) {
	if f != nil {
		nf.Float64 = *f
		nf.Valid = true
	}
	return nf
}
