package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"ergoquipt-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryTrialsRepository in-memory TrialsRepository. Holds a reference to the
// sessions repository so a trial batch and its counter increment commit under
// one lock ordering, mirroring the SQL transaction.
type MemoryTrialsRepository struct {
	mu       sync.Mutex
	sessions *MemorySessionsRepository

	reactionTrials   map[string][]*domain.ReactionTrial
	tympanicReadings map[string][]*domain.TympanicReading
	vitalReadings    map[string][]*domain.VitalReading
}

func NewMemoryTrialsRepository(sessions *MemorySessionsRepository) *MemoryTrialsRepository {
	return &MemoryTrialsRepository{
		sessions:         sessions,
		reactionTrials:   make(map[string][]*domain.ReactionTrial),
		tympanicReadings: make(map[string][]*domain.TympanicReading),
		vitalReadings:    make(map[string][]*domain.VitalReading),
	}
}

var _ TrialsRepository = (*MemoryTrialsRepository)(nil)

func (m *MemoryTrialsRepository) AppendReactionTrials(ctx context.Context, sessionID string, trials []*domain.ReactionTrial) error {
	if len(trials) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if err := m.sessions.incrementTrials(sessionID, len(trials), now); err != nil {
		return err
	}
	for _, t := range trials {
		c := *t
		c.TrialID = uuid.New().String()
		c.SessionID = sessionID
		c.CreatedAt = now
		m.reactionTrials[sessionID] = append(m.reactionTrials[sessionID], &c)
		t.TrialID = c.TrialID
		t.SessionID = sessionID
	}
	return nil
}

func (m *MemoryTrialsRepository) AddTympanicReading(ctx context.Context, r *domain.TympanicReading) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *r
	c.ReadingID = uuid.New().String()
	c.CreatedAt = time.Now()
	m.tympanicReadings[r.SessionID] = append(m.tympanicReadings[r.SessionID], &c)
	return c.ReadingID, nil
}

func (m *MemoryTrialsRepository) AddVitalReading(ctx context.Context, r *domain.VitalReading) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *r
	c.ReadingID = uuid.New().String()
	c.CreatedAt = time.Now()
	m.vitalReadings[r.SessionID] = append(m.vitalReadings[r.SessionID], &c)
	return c.ReadingID, nil
}

func (m *MemoryTrialsRepository) ListReactionTrials(ctx context.Context, sessionID string) ([]*domain.ReactionTrial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trials := []*domain.ReactionTrial{}
	for _, t := range m.reactionTrials[sessionID] {
		c := *t
		trials = append(trials, &c)
	}
	sort.Slice(trials, func(i, j int) bool {
		return trials[i].TrialNumber < trials[j].TrialNumber
	})
	return trials, nil
}

func (m *MemoryTrialsRepository) ListTympanicReadings(ctx context.Context, sessionID string) ([]*domain.TympanicReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	readings := []*domain.TympanicReading{}
	for _, r := range m.tympanicReadings[sessionID] {
		c := *r
		readings = append(readings, &c)
	}
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].ReadingNumber < readings[j].ReadingNumber
	})
	return readings, nil
}

func (m *MemoryTrialsRepository) ListVitalReadings(ctx context.Context, sessionID string) ([]*domain.VitalReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	readings := []*domain.VitalReading{}
	for _, r := range m.vitalReadings[sessionID] {
		c := *r
		readings = append(readings, &c)
	}
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].ReadingNumber < readings[j].ReadingNumber
	})
	return readings, nil
}
