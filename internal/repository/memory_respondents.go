package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"ergoquipt-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryRespondentsRepository in-memory RespondentsRepository.
type MemoryRespondentsRepository struct {
	mu          sync.RWMutex
	respondents map[string]*domain.Respondent
}

func NewMemoryRespondentsRepository() *MemoryRespondentsRepository {
	return &MemoryRespondentsRepository{respondents: make(map[string]*domain.Respondent)}
}

var _ RespondentsRepository = (*MemoryRespondentsRepository)(nil)

func cloneRespondent(r *domain.Respondent) *domain.Respondent {
	c := *r
	return &c
}

func (m *MemoryRespondentsRepository) CreateRespondent(ctx context.Context, r *domain.Respondent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := cloneRespondent(r)
	stored.RespondentID = uuid.New().String()
	stored.CreatedAt = time.Now()
	m.respondents[stored.RespondentID] = stored
	return stored.RespondentID, nil
}

func (m *MemoryRespondentsRepository) GetOwnedRespondent(ctx context.Context, operatorID, respondentID string) (*domain.Respondent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.respondents[respondentID]
	if !ok || r.CreatedBy != operatorID {
		return nil, ErrNotFound
	}
	return cloneRespondent(r), nil
}

func (m *MemoryRespondentsRepository) ListRespondents(ctx context.Context, operatorID, search string, page, limit int) ([]*domain.Respondent, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []*domain.Respondent{}
	for _, r := range m.respondents {
		if r.CreatedBy != operatorID {
			continue
		}
		if search != "" && !containsFold(r.GuestName, search) {
			continue
		}
		matched = append(matched, cloneRespondent(r))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	return paginate(matched, page, limit), total, nil
}
