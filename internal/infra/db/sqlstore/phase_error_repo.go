package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/sellerpulse/internal/domain/syncjobs"
)

type PhaseErrorRepository struct {
	s *Store
}

func NewPhaseErrorRepository(s *Store) *PhaseErrorRepository { return &PhaseErrorRepository{s: s} }

func (r *PhaseErrorRepository) Save(ctx context.Context, e *domain.PhaseError) error {
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	e.CreatedAt = nowIfZero(e.CreatedAt)
	q := r.s.rebind(`
INSERT INTO sync_phase_errors
  (customer_id, sync_type, phase, message, created_at)
VALUES (?,?,?,?,?)`)
	_, err := r.s.db.ExecContext(ctx, q,
		stringOrDash(e.CustomerID), stringOrDash(e.SyncType), stringOrDash(e.Phase), msg, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert phase error: %w", err)
	}
	return nil
}

func (r *PhaseErrorRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.PhaseError, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.s.rebind(`
SELECT id, customer_id, sync_type, phase, message, created_at
FROM sync_phase_errors
WHERE customer_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`)
	rows, err := r.s.db.QueryContext(ctx, q, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list phase errors: %w", err)
	}
	defer rows.Close()
	var out []*domain.PhaseError
	for rows.Next() {
		var e domain.PhaseError
		var created time.Time
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.SyncType, &e.Phase, &e.Message, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = created.UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}
