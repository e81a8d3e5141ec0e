package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"ergoquipt-data/internal/domain"

	"github.com/google/uuid"
)

// MemorySessionsRepository in-memory SessionsRepository.
type MemorySessionsRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	configs  map[string][]*domain.SessionConfig // session_id -> configs

	// owners resolves admin scoping the way the SQL subquery does; set by the
	// wiring code when the users repo is also in memory.
	owners OperatorResolver
}

// OperatorResolver looks up the operator IDs owned by an admin.
type OperatorResolver interface {
	ListOperatorIDs(ctx context.Context, adminID string) ([]string, error)
}

func NewMemorySessionsRepository(owners OperatorResolver) *MemorySessionsRepository {
	return &MemorySessionsRepository{
		sessions: make(map[string]*domain.Session),
		configs:  make(map[string][]*domain.SessionConfig),
		owners:   owners,
	}
}

var _ SessionsRepository = (*MemorySessionsRepository)(nil)

func cloneSession(s *domain.Session) *domain.Session {
	c := *s
	if s.LocalData != nil {
		c.LocalData = append(json.RawMessage(nil), s.LocalData...)
	}
	return &c
}

func (m *MemorySessionsRepository) CreateSession(ctx context.Context, s *domain.Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sessions {
		if existing.SessionCode == s.SessionCode {
			return "", ErrDuplicate
		}
	}
	stored := cloneSession(s)
	stored.SessionID = uuid.New().String()
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.sessions[stored.SessionID] = stored
	return stored.SessionID, nil
}

func (m *MemorySessionsRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[sessionID]; ok {
		return cloneSession(s), nil
	}
	return nil, ErrNotFound
}

func (m *MemorySessionsRepository) GetOwnedSession(ctx context.Context, operatorID, sessionID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.OperatorID != operatorID {
		return nil, ErrNotFound
	}
	return cloneSession(s), nil
}

func (m *MemorySessionsRepository) AddConfig(ctx context.Context, cfg *domain.SessionConfig) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[cfg.SessionID]; !ok {
		return "", ErrNotFound
	}
	c := *cfg
	c.ConfigID = uuid.New().String()
	c.CreatedAt = time.Now()
	m.configs[cfg.SessionID] = append(m.configs[cfg.SessionID], &c)
	return c.ConfigID, nil
}

func (m *MemorySessionsRepository) ListConfigs(ctx context.Context, sessionID string) ([]*domain.SessionConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	configs := []*domain.SessionConfig{}
	for _, c := range m.configs[sessionID] {
		cc := *c
		configs = append(configs, &cc)
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].OrderIndex < configs[j].OrderIndex
	})
	return configs, nil
}

func (m *MemorySessionsRepository) StartSession(ctx context.Context, sessionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.Status != domain.SessionDraft {
		return ErrNotFound
	}
	s.Status = domain.SessionActive
	s.StartedAt = sqlTime(at)
	s.UpdatedAt = at
	return nil
}

func (m *MemorySessionsRepository) CompleteSession(ctx context.Context, sessionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.Status = domain.SessionCompleted
	s.EndedAt = sqlTime(at)
	s.UpdatedAt = at
	return nil
}

func (m *MemorySessionsRepository) UpdateLocalData(ctx context.Context, sessionID string, blob json.RawMessage, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.LocalData = append(json.RawMessage(nil), blob...)
	s.UpdatedAt = at
	return nil
}

func (m *MemorySessionsRepository) ListForOperator(ctx context.Context, operatorID string, filters SessionFilters, page, limit int) ([]*domain.Session, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []*domain.Session{}
	for _, s := range m.sessions {
		if s.OperatorID != operatorID {
			continue
		}
		if filters.Status != "" && s.Status != filters.Status {
			continue
		}
		matched = append(matched, cloneSession(s))
	}
	sortSessionsNewestFirst(matched)
	total := len(matched)
	return paginate(matched, page, limit), total, nil
}

func (m *MemorySessionsRepository) ListForAdmin(ctx context.Context, adminID string, filters AdminSessionFilters, page, limit int) ([]*domain.Session, int, error) {
	operatorIDs, err := m.owners.ListOperatorIDs(ctx, adminID)
	if err != nil {
		return nil, 0, err
	}
	owned := make(map[string]bool, len(operatorIDs))
	for _, id := range operatorIDs {
		owned[id] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []*domain.Session{}
	for _, s := range m.sessions {
		if !owned[s.OperatorID] {
			continue
		}
		if filters.OperatorID != "" && s.OperatorID != filters.OperatorID {
			continue
		}
		if filters.Status != "" && s.Status != filters.Status {
			continue
		}
		if filters.TestType != "" && s.TestType != filters.TestType {
			continue
		}
		if !filters.StartDate.IsZero() && s.CreatedAt.Before(filters.StartDate) {
			continue
		}
		if !filters.EndDate.IsZero() && s.CreatedAt.After(filters.EndDate) {
			continue
		}
		matched = append(matched, cloneSession(s))
	}
	sortSessionsNewestFirst(matched)
	total := len(matched)
	return paginate(matched, page, limit), total, nil
}

// incrementTrials is the memory-side counterpart of the SQL increment; the
// trials repository calls it under its own batch lock.
func (m *MemorySessionsRepository) incrementTrials(sessionID string, n int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.TrialsCompleted += n
	s.UpdatedAt = at
	return nil
}

func sortSessionsNewestFirst(sessions []*domain.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}

func sqlTime(t time.Time) (nt sql.NullTime) {
	nt.Time = t
	nt.Valid = true
	return nt
}
