package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"ergoquipt-data/internal/domain"
	"ergoquipt-data/internal/repository"

	"go.uber.org/zap"
)

// sessionCodeAlphabet characters drawn for the random suffix of a session code.
const sessionCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// sessionCodeRetries attempts before a code collision is surfaced as a
// conflict. Collisions are rare (36^3 per day) so two retries is plenty.
const sessionCodeRetries = 3

// SessionService session lifecycle: draft on creation, explicit start and
// complete transitions, opaque client-state snapshots. All operations are
// scoped to the owning operator.
type SessionService interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionDetail, error)
	AddConfig(ctx context.Context, operatorID, sessionID string, in SessionConfigInput) (*SessionConfigView, error)
	GetSession(ctx context.Context, operatorID, sessionID string) (*SessionDetail, error)
	StartSession(ctx context.Context, operatorID, sessionID string) (*SessionView, error)
	CompleteSession(ctx context.Context, operatorID, sessionID string) (*SessionView, error)
	UpdateLocalData(ctx context.Context, operatorID, sessionID string, blob json.RawMessage) (*SessionView, error)
	ListSessions(ctx context.Context, req ListSessionsRequest) (*ListSessionsResponse, error)
	ListSessionsForAdmin(ctx context.Context, req AdminListSessionsRequest) (*ListSessionsResponse, error)
}

type sessionService struct {
	sessionsRepo    repository.SessionsRepository
	respondentsRepo repository.RespondentsRepository
	logger          *zap.Logger

	// injectable clock; session codes embed the current date
	now func() time.Time
}

func NewSessionService(sessionsRepo repository.SessionsRepository, respondentsRepo repository.RespondentsRepository, logger *zap.Logger) SessionService {
	return &sessionService{
		sessionsRepo:    sessionsRepo,
		respondentsRepo: respondentsRepo,
		logger:          logger,
		now:             time.Now,
	}
}

// SessionConfigInput one measurement-configuration entry supplied at session
// creation.
type SessionConfigInput struct {
	ConfigType          string `json:"config_type"`
	StimulusType        string `json:"stimulus_type,omitempty"`
	StimulusCategory    string `json:"stimulus_category,omitempty"`
	TrialsPerStimulus   int    `json:"trials_per_stimulus,omitempty"`
	OrderIndex          int    `json:"order_index"`
	MeasurementDuration int    `json:"measurement_duration,omitempty"`
	SamplingInterval    int    `json:"sampling_interval,omitempty"`
	TargetCondition     string `json:"target_condition,omitempty"`
}

type CreateSessionRequest struct {
	OperatorID         string
	RespondentID       string
	TestType           string
	DeviceID           string
	DeviceName         string
	MeasurementContext string
	EnvironmentNotes   string
	AdditionalNotes    string
	TotalTrials        int
	Configs            []SessionConfigInput
}

// SessionDetail one session plus its configuration entries.
type SessionDetail struct {
	Session *SessionView         `json:"session"`
	Configs []*SessionConfigView `json:"configs"`
}

func (s *sessionService) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionDetail, error) {
	testType, err := domain.ParseTestType(req.TestType)
	if err != nil {
		return nil, NewInvalidError("test_type must be reaction_time, tympanic, vitals or combined")
	}
	if req.TotalTrials < 0 {
		return nil, NewInvalidError("total_trials must be non-negative")
	}
	if err := validateConfigs(req.Configs); err != nil {
		return nil, err
	}

	// Respondent must exist and belong to the caller.
	if _, err := s.respondentsRepo.GetOwnedRespondent(ctx, req.OperatorID, req.RespondentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("respondent not found")
		}
		return nil, err
	}

	session := &domain.Session{
		OperatorID:         req.OperatorID,
		RespondentID:       req.RespondentID,
		TestType:           testType,
		Status:             domain.SessionDraft,
		DeviceID:           nullString(req.DeviceID),
		DeviceName:         nullString(req.DeviceName),
		MeasurementContext: nullString(req.MeasurementContext),
		EnvironmentNotes:   nullString(req.EnvironmentNotes),
		AdditionalNotes:    nullString(req.AdditionalNotes),
		TotalTrials:        req.TotalTrials,
	}

	// The random suffix can collide with an existing code; regenerate and retry
	// a bounded number of times before giving up.
	var sessionID string
	for attempt := 0; ; attempt++ {
		code, err := s.generateSessionCode()
		if err != nil {
			return nil, err
		}
		session.SessionCode = code

		sessionID, err = s.sessionsRepo.CreateSession(ctx, session)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicate) && attempt < sessionCodeRetries {
			continue
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewConflictError("could not allocate a unique session code")
		}
		return nil, err
	}

	for _, in := range req.Configs {
		cfg := &domain.SessionConfig{
			SessionID:           sessionID,
			ConfigType:          in.ConfigType,
			StimulusType:        nullString(in.StimulusType),
			StimulusCategory:    nullString(in.StimulusCategory),
			TrialsPerStimulus:   in.TrialsPerStimulus,
			OrderIndex:          in.OrderIndex,
			MeasurementDuration: nullInt(in.MeasurementDuration),
			SamplingInterval:    nullInt(in.SamplingInterval),
			TargetCondition:     nullString(in.TargetCondition),
		}
		if _, err := s.sessionsRepo.AddConfig(ctx, cfg); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Session created",
		zap.String("session_id", sessionID),
		zap.String("session_code", session.SessionCode),
		zap.String("operator_id", req.OperatorID),
		zap.String("test_type", string(testType)),
		zap.Int("configs", len(req.Configs)),
	)
	return s.GetSession(ctx, req.OperatorID, sessionID)
}

// AddConfig appends one configuration entry to an existing session. Entries
// are never deduplicated and OrderIndex is stored as supplied.
func (s *sessionService) AddConfig(ctx context.Context, operatorID, sessionID string, in SessionConfigInput) (*SessionConfigView, error) {
	if err := validateConfigs([]SessionConfigInput{in}); err != nil {
		return nil, err
	}
	if _, err := s.sessionsRepo.GetOwnedSession(ctx, operatorID, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("session not found")
		}
		return nil, err
	}

	cfg := &domain.SessionConfig{
		SessionID:           sessionID,
		ConfigType:          in.ConfigType,
		StimulusType:        nullString(in.StimulusType),
		StimulusCategory:    nullString(in.StimulusCategory),
		TrialsPerStimulus:   in.TrialsPerStimulus,
		OrderIndex:          in.OrderIndex,
		MeasurementDuration: nullInt(in.MeasurementDuration),
		SamplingInterval:    nullInt(in.SamplingInterval),
		TargetCondition:     nullString(in.TargetCondition),
	}
	configID, err := s.sessionsRepo.AddConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cfg.ConfigID = configID

	s.logger.Info("Session config added",
		zap.String("session_id", sessionID),
		zap.String("config_type", in.ConfigType),
	)
	views := configViews([]*domain.SessionConfig{cfg})
	return views[0], nil
}

func validateConfigs(configs []SessionConfigInput) error {
	for i, cfg := range configs {
		switch cfg.ConfigType {
		case "reaction_time":
			if !domain.StimulusType(cfg.StimulusType).Valid() {
				return NewInvalidError(fmt.Sprintf("config %d: invalid stimulus_type", i))
			}
			if !domain.StimulusCategory(cfg.StimulusCategory).Valid() {
				return NewInvalidError(fmt.Sprintf("config %d: invalid stimulus_category", i))
			}
			if cfg.TrialsPerStimulus < 1 {
				return NewInvalidError(fmt.Sprintf("config %d: trials_per_stimulus must be positive", i))
			}
		case "tympanic", "vitals":
			if cfg.MeasurementDuration < 0 || cfg.SamplingInterval < 0 {
				return NewInvalidError(fmt.Sprintf("config %d: durations must be non-negative", i))
			}
		default:
			return NewInvalidError(fmt.Sprintf("config %d: config_type must be reaction_time, tympanic or vitals", i))
		}
	}
	return nil
}

// generateSessionCode builds a code of the form RT-YYYYMMDD-XXX where XXX is a
// random upper-alphanumeric suffix.
func (s *sessionService) generateSessionCode() (string, error) {
	max := big.NewInt(int64(len(sessionCodeAlphabet)))
	suffix := make([]byte, 3)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = sessionCodeAlphabet[n.Int64()]
	}
	return fmt.Sprintf("RT-%s-%s", s.now().Format("20060102"), suffix), nil
}

func (s *sessionService) GetSession(ctx context.Context, operatorID, sessionID string) (*SessionDetail, error) {
	session, err := s.sessionsRepo.GetOwnedSession(ctx, operatorID, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("session not found")
		}
		return nil, err
	}
	configs, err := s.sessionsRepo.ListConfigs(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{Session: sessionView(session), Configs: configViews(configs)}, nil
}

func (s *sessionService) StartSession(ctx context.Context, operatorID, sessionID string) (*SessionView, error) {
	session, err := s.sessionsRepo.GetOwnedSession(ctx, operatorID, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("session not found")
		}
		return nil, err
	}

	if err := s.sessionsRepo.StartSession(ctx, sessionID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Session exists and is owned by the caller, so the guard failure
			// means it already left draft.
			return nil, NewInvalidStateError("session is not in draft state")
		}
		return nil, err
	}

	s.logger.Info("Session started",
		zap.String("session_id", sessionID),
		zap.String("session_code", session.SessionCode),
		zap.String("operator_id", operatorID),
	)
	return s.refreshView(ctx, operatorID, sessionID)
}

func (s *sessionService) CompleteSession(ctx context.Context, operatorID, sessionID string) (*SessionView, error) {
	session, err := s.sessionsRepo.GetOwnedSession(ctx, operatorID, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("session not found")
		}
		return nil, err
	}

	// Completion is accepted from any state; a draft completed without ever
	// starting simply ends with no records.
	if err := s.sessionsRepo.CompleteSession(ctx, sessionID, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("Session completed",
		zap.String("session_id", sessionID),
		zap.String("session_code", session.SessionCode),
		zap.String("operator_id", operatorID),
		zap.Int("trials_completed", session.TrialsCompleted),
	)
	return s.refreshView(ctx, operatorID, sessionID)
}

func (s *sessionService) UpdateLocalData(ctx context.Context, operatorID, sessionID string, blob json.RawMessage) (*SessionView, error) {
	if len(blob) == 0 {
		return nil, NewInvalidError("local_data is required")
	}
	if !json.Valid(blob) {
		return nil, NewInvalidError("local_data must be valid JSON")
	}

	if _, err := s.sessionsRepo.GetOwnedSession(ctx, operatorID, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("session not found")
		}
		return nil, err
	}

	if err := s.sessionsRepo.UpdateLocalData(ctx, sessionID, blob, s.now()); err != nil {
		return nil, err
	}
	return s.refreshView(ctx, operatorID, sessionID)
}

// refreshView re-reads the session after a mutation.
func (s *sessionService) refreshView(ctx context.Context, operatorID, sessionID string) (*SessionView, error) {
	session, err := s.sessionsRepo.GetOwnedSession(ctx, operatorID, sessionID)
	if err != nil {
		return nil, err
	}
	return sessionView(session), nil
}

type ListSessionsRequest struct {
	OperatorID string
	Status     string // optional filter
	Page       int
	Limit      int
}

type ListSessionsResponse struct {
	Sessions []*SessionView `json:"sessions"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	Limit    int            `json:"limit"`
}

func (s *sessionService) ListSessions(ctx context.Context, req ListSessionsRequest) (*ListSessionsResponse, error) {
	filters := repository.SessionFilters{}
	if req.Status != "" {
		status, err := domain.ParseSessionStatus(req.Status)
		if err != nil {
			return nil, NewInvalidError("invalid status filter")
		}
		filters.Status = status
	}
	page, limit := normalizePaging(req.Page, req.Limit)

	sessions, total, err := s.sessionsRepo.ListForOperator(ctx, req.OperatorID, filters, page, limit)
	if err != nil {
		return nil, err
	}
	return &ListSessionsResponse{Sessions: sessionViews(sessions), Total: total, Page: page, Limit: limit}, nil
}

type AdminListSessionsRequest struct {
	AdminID    string
	OperatorID string // optional, must still be owned by AdminID
	Status     string
	TestType   string
	StartDate  time.Time
	EndDate    time.Time
	Page       int
	Limit      int
}

func (s *sessionService) ListSessionsForAdmin(ctx context.Context, req AdminListSessionsRequest) (*ListSessionsResponse, error) {
	filters := repository.AdminSessionFilters{
		OperatorID: req.OperatorID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	}
	if req.Status != "" {
		status, err := domain.ParseSessionStatus(req.Status)
		if err != nil {
			return nil, NewInvalidError("invalid status filter")
		}
		filters.Status = status
	}
	if req.TestType != "" {
		testType, err := domain.ParseTestType(req.TestType)
		if err != nil {
			return nil, NewInvalidError("invalid test_type filter")
		}
		filters.TestType = testType
	}
	page, limit := normalizePaging(req.Page, req.Limit)

	sessions, total, err := s.sessionsRepo.ListForAdmin(ctx, req.AdminID, filters, page, limit)
	if err != nil {
		return nil, err
	}
	return &ListSessionsResponse{Sessions: sessionViews(sessions), Total: total, Page: page, Limit: limit}, nil
}
