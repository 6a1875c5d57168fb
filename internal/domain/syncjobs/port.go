package syncjobs

import (
	"context"
	"time"
)

// JobRepository port
type JobRepository interface {
	Create(ctx context.Context, j *SyncJob) error
	Update(ctx context.Context, j *SyncJob) error
	// Pending returns pending jobs started at or after since, oldest first.
	Pending(ctx context.Context, customerID string, since time.Time) ([]*SyncJob, error)
}

// BackfillRepository port. Get returns nil, nil when no row exists.
type BackfillRepository interface {
	Get(ctx context.Context, customerID string) (*BackfillStatus, error)
	Create(ctx context.Context, b *BackfillStatus) error
}

// PhaseErrorRepository port
type PhaseErrorRepository interface {
	Save(ctx context.Context, e *PhaseError) error
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]*PhaseError, error)
}
