package repository

import (
	"context"

	"ergoquipt-data/internal/domain"
)

// TrialsRepository immutable measurement record storage.
type TrialsRepository interface {
	// AppendReactionTrials inserts every trial and increments the session's
	// trials_completed counter by len(trials) in a single transaction. The
	// increment must be atomic under concurrent writers (SQL increment
	// expression, not read-modify-write), so two concurrent batches never lose
	// an update.
	AppendReactionTrials(ctx context.Context, sessionID string, trials []*domain.ReactionTrial) error

	AddTympanicReading(ctx context.Context, r *domain.TympanicReading) (string, error)
	AddVitalReading(ctx context.Context, r *domain.VitalReading) (string, error)

	// Ordered record sequences for export: trial_number / reading_number
	// ascending.
	ListReactionTrials(ctx context.Context, sessionID string) ([]*domain.ReactionTrial, error)
	ListTympanicReadings(ctx context.Context, sessionID string) ([]*domain.TympanicReading, error)
	ListVitalReadings(ctx context.Context, sessionID string) ([]*domain.VitalReading, error)
}
