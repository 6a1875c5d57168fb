package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/sellerpulse/internal/domain/health"
)

type SnapshotRepository struct {
	s *Store
}

func NewSnapshotRepository(s *Store) *SnapshotRepository { return &SnapshotRepository{s: s} }

// Create appends a snapshot; the payload must already be JSON
func (r *SnapshotRepository) Create(ctx context.Context, snap *domain.RawSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	snap.CreatedAt = nowIfZero(snap.CreatedAt)
	payload := snap.RawPayload
	if len(payload) == 0 {
		payload = []byte("null")
	}
	q := r.s.rebind(`
INSERT INTO raw_snapshots
  (id, customer_id, data_type, raw_payload, payload_url, record_count, quality_score, created_at)
VALUES (?,?,?,?,?,?,?,?)`)
	_, err := r.s.db.ExecContext(ctx, q,
		snap.ID, snap.CustomerID, string(snap.DataType), string(payload),
		stringOrDash(snap.PayloadURL), snap.RecordCount, snap.QualityScore, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.DataType, err)
	}
	return nil
}

// Latest returns nil, nil when no snapshot of that type exists
func (r *SnapshotRepository) Latest(ctx context.Context, customerID string, dataType domain.DataType) (*domain.RawSnapshot, error) {
	q := r.s.rebind(`
SELECT id, customer_id, data_type, raw_payload, payload_url, record_count, quality_score, created_at
FROM raw_snapshots
WHERE customer_id = ? AND data_type = ?
ORDER BY created_at DESC, id DESC
LIMIT 1`)
	var snap domain.RawSnapshot
	var dt, payload string
	var created time.Time
	err := r.s.db.QueryRowContext(ctx, q, customerID, string(dataType)).Scan(
		&snap.ID, &snap.CustomerID, &dt, &payload, &snap.PayloadURL,
		&snap.RecordCount, &snap.QualityScore, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot %s: %w", dataType, err)
	}
	snap.DataType = domain.DataType(dt)
	snap.RawPayload = []byte(payload)
	snap.PayloadURL = dashToEmpty(snap.PayloadURL)
	snap.CreatedAt = created.UTC()
	return &snap, nil
}
