package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ergoquipt-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryUsersRepository in-memory UsersRepository. Used by tests and as the
// storage fallback when the database is disabled.
type MemoryUsersRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	logs  []*domain.AdminActionLog
}

func NewMemoryUsersRepository() *MemoryUsersRepository {
	return &MemoryUsersRepository{users: make(map[string]*domain.User)}
}

var _ UsersRepository = (*MemoryUsersRepository)(nil)

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (m *MemoryUsersRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[userID]; ok {
		return cloneUser(u), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryUsersRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryUsersRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryUsersRepository) CreateUser(ctx context.Context, user *domain.User, log *domain.AdminActionLog) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return "", ErrDuplicate
		}
	}

	stored := cloneUser(user)
	stored.UserID = uuid.New().String()
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.users[stored.UserID] = stored

	if log != nil {
		m.appendLogLocked(log, stored.UserID)
	}
	return stored.UserID, nil
}

func (m *MemoryUsersRepository) GetOwnedOperator(ctx context.Context, adminID, operatorID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[operatorID]
	if !ok || u.Role != domain.RoleOperator || !u.CreatedBy.Valid || u.CreatedBy.String != adminID {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *MemoryUsersRepository) ListOperators(ctx context.Context, adminID string, filters OperatorFilters, page, limit int) ([]*domain.User, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []*domain.User{}
	for _, u := range m.users {
		if u.Role != domain.RoleOperator || !u.CreatedBy.Valid || u.CreatedBy.String != adminID {
			continue
		}
		if filters.Status != "" && u.Status != filters.Status {
			continue
		}
		matched = append(matched, cloneUser(u))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	total := len(matched)
	return paginate(matched, page, limit), total, nil
}

func (m *MemoryUsersRepository) ListOperatorIDs(ctx context.Context, adminID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := []string{}
	for _, u := range m.users {
		if u.Role == domain.RoleOperator && u.CreatedBy.Valid && u.CreatedBy.String == adminID {
			ids = append(ids, u.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryUsersRepository) UpdateStatus(ctx context.Context, userID string, status domain.UserStatus, log *domain.AdminActionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = time.Now()
	if log != nil {
		m.appendLogLocked(log, userID)
	}
	return nil
}

func (m *MemoryUsersRepository) ResetPassword(ctx context.Context, userID, passwordHash string, log *domain.AdminActionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.InitialPassword = true
	u.UpdatedAt = time.Now()
	if log != nil {
		m.appendLogLocked(log, userID)
	}
	return nil
}

func (m *MemoryUsersRepository) RotatePassword(ctx context.Context, userID, passwordHash string, log *domain.AdminActionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.InitialPassword = false
	if u.Status == domain.UserStatusPending {
		u.Status = domain.UserStatusActive
	}
	u.UpdatedAt = time.Now()
	if log != nil {
		m.appendLogLocked(log, userID)
	}
	return nil
}

func (m *MemoryUsersRepository) ListLogsForOperator(ctx context.Context, operatorID string) ([]*domain.AdminActionLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	logs := []*domain.AdminActionLog{}
	for _, l := range m.logs {
		if l.OperatorID == operatorID {
			c := *l
			logs = append(logs, &c)
		}
	}
	return logs, nil
}

func (m *MemoryUsersRepository) appendLogLocked(log *domain.AdminActionLog, operatorID string) {
	c := *log
	c.LogID = uuid.New().String()
	c.OperatorID = operatorID
	c.CreatedAt = time.Now()
	m.logs = append(m.logs, &c)
}

// paginate slices one page out of an already-ordered result set.
func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// containsFold case-insensitive substring match for search filters.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
