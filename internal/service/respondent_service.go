package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"ergoquipt-data/internal/domain"
	"ergoquipt-data/internal/repository"

	"go.uber.org/zap"
)

// RespondentService respondent profiles, scoped to the operator who created
// them.
type RespondentService interface {
	CreateRespondent(ctx context.Context, req CreateRespondentRequest) (*RespondentView, error)
	GetRespondent(ctx context.Context, operatorID, respondentID string) (*RespondentView, error)
	ListRespondents(ctx context.Context, req ListRespondentsRequest) (*ListRespondentsResponse, error)
}

type respondentService struct {
	respondentsRepo repository.RespondentsRepository
	logger          *zap.Logger
}

func NewRespondentService(respondentsRepo repository.RespondentsRepository, logger *zap.Logger) RespondentService {
	return &respondentService{respondentsRepo: respondentsRepo, logger: logger}
}

type CreateRespondentRequest struct {
	OperatorID string
	GuestName  string
	Gender     string // optional: male, female, other
	Age        int    // optional, 0 = unset
	Height     int    // cm, optional
	Weight     int    // kg, optional
	Status     string // student | guest, defaults to guest
	University string
}

func (s *respondentService) CreateRespondent(ctx context.Context, req CreateRespondentRequest) (*RespondentView, error) {
	req.GuestName = strings.TrimSpace(req.GuestName)
	if req.GuestName == "" {
		return nil, NewInvalidError("guest_name is required")
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = "guest"
	}
	if status != "student" && status != "guest" {
		return nil, NewInvalidError("status must be student or guest")
	}

	switch req.Gender {
	case "", "male", "female", "other":
	default:
		return nil, NewInvalidError("gender must be male, female or other")
	}
	if req.Age < 0 || req.Age > 150 {
		return nil, NewInvalidError("age is out of range")
	}
	if req.Height < 0 || req.Weight < 0 {
		return nil, NewInvalidError("height and weight must be non-negative")
	}

	respondent := &domain.Respondent{
		GuestName:  req.GuestName,
		Gender:     nullString(req.Gender),
		Age:        nullInt(req.Age),
		Height:     nullInt(req.Height),
		Weight:     nullInt(req.Weight),
		Status:     status,
		University: nullString(req.University),
		CreatedBy:  req.OperatorID,
	}

	respondentID, err := s.respondentsRepo.CreateRespondent(ctx, respondent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Respondent created",
		zap.String("respondent_id", respondentID),
		zap.String("operator_id", req.OperatorID),
	)
	return s.GetRespondent(ctx, req.OperatorID, respondentID)
}

func (s *respondentService) GetRespondent(ctx context.Context, operatorID, respondentID string) (*RespondentView, error) {
	respondent, err := s.respondentsRepo.GetOwnedRespondent(ctx, operatorID, respondentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("respondent not found")
		}
		return nil, err
	}
	return respondentView(respondent), nil
}

type ListRespondentsRequest struct {
	OperatorID string
	Search     string
	Page       int
	Limit      int
}

type ListRespondentsResponse struct {
	Respondents []*RespondentView `json:"respondents"`
	Total       int               `json:"total"`
	Page        int               `json:"page"`
	Limit       int               `json:"limit"`
}

func (s *respondentService) ListRespondents(ctx context.Context, req ListRespondentsRequest) (*ListRespondentsResponse, error) {
	page, limit := normalizePaging(req.Page, req.Limit)
	respondents, total, err := s.respondentsRepo.ListRespondents(ctx, req.OperatorID, strings.TrimSpace(req.Search), page, limit)
	if err != nil {
		return nil, err
	}
	views := make([]*RespondentView, 0, len(respondents))
	for _, r := range respondents {
		views = append(views, respondentView(r))
	}
	return &ListRespondentsResponse{Respondents: views, Total: total, Page: page, Limit: limit}, nil
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
