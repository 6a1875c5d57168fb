package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/sellerpulse/internal/domain/syncjobs"
)

type BackfillRepository struct {
	s *Store
}

func NewBackfillRepository(s *Store) *BackfillRepository { return &BackfillRepository{s: s} }

// Get returns nil, nil when the customer has no backfill row
func (r *BackfillRepository) Get(ctx context.Context, customerID string) (*domain.BackfillStatus, error) {
	q := r.s.rebind(`
SELECT customer_id, backfill_completed, oldest_date_fetched, completed_at
FROM backfill_status
WHERE customer_id = ?`)
	var b domain.BackfillStatus
	var oldest time.Time
	var completed sql.NullTime
	err := r.s.db.QueryRowContext(ctx, q, customerID).Scan(&b.CustomerID, &b.BackfillCompleted, &oldest, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backfill status: %w", err)
	}
	b.OldestDateFetched = oldest.UTC()
	b.CompletedAt = timePtr(completed)
	return &b, nil
}

func (r *BackfillRepository) Create(ctx context.Context, b *domain.BackfillStatus) error {
	q := r.s.rebind(`
INSERT INTO backfill_status
  (customer_id, backfill_completed, oldest_date_fetched, completed_at)
VALUES (?,?,?,?)`)
	_, err := r.s.db.ExecContext(ctx, q, b.CustomerID, b.BackfillCompleted, b.OldestDateFetched.UTC(), nullTime(b.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert backfill status: %w", err)
	}
	return nil
}
