package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/sellerpulse/internal/domain/syncjobs"
)

type JobRepository struct {
	s *Store
}

func NewJobRepository(s *Store) *JobRepository { return &JobRepository{s: s} }

func (r *JobRepository) Create(ctx context.Context, j *domain.SyncJob) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = domain.StatusPending
	}
	j.StartedAt = nowIfZero(j.StartedAt)
	q := r.s.rebind(`
INSERT INTO sync_jobs
  (id, customer_id, data_type, external_job_id, status, attempts, started_at, completed_at, error_message)
VALUES (?,?,?,?,?,?,?,?,?)`)
	_, err := r.s.db.ExecContext(ctx, q,
		j.ID, j.CustomerID, j.DataType, j.ExternalJobID, string(j.Status), j.Attempts,
		j.StartedAt, nullTime(j.CompletedAt), j.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert sync job: %w", err)
	}
	return nil
}

// Update persists the mutable job state
func (r *JobRepository) Update(ctx context.Context, j *domain.SyncJob) error {
	q := r.s.rebind(`
UPDATE sync_jobs
SET status = ?, attempts = ?, completed_at = ?, error_message = ?
WHERE id = ?`)
	_, err := r.s.db.ExecContext(ctx, q,
		string(j.Status), j.Attempts, nullTime(j.CompletedAt), j.ErrorMessage, j.ID)
	if err != nil {
		return fmt.Errorf("update sync job %s: %w", j.ID, err)
	}
	return nil
}

func (r *JobRepository) Pending(ctx context.Context, customerID string, since time.Time) ([]*domain.SyncJob, error) {
	q := r.s.rebind(`
SELECT id, customer_id, data_type, external_job_id, status, attempts, started_at, completed_at, error_message
FROM sync_jobs
WHERE customer_id = ? AND status = ? AND started_at >= ?
ORDER BY started_at ASC, id ASC`)
	rows, err := r.s.db.QueryContext(ctx, q, customerID, string(domain.StatusPending), since.UTC())
	if err != nil {
		return nil, fmt.Errorf("pending sync jobs: %w", err)
	}
	defer rows.Close()
	var out []*domain.SyncJob
	for rows.Next() {
		var j domain.SyncJob
		var status string
		var started time.Time
		var completed sql.NullTime
		if err := rows.Scan(&j.ID, &j.CustomerID, &j.DataType, &j.ExternalJobID, &status,
			&j.Attempts, &started, &completed, &j.ErrorMessage); err != nil {
			return nil, err
		}
		j.Status = domain.Status(status)
		j.StartedAt = started.UTC()
		j.CompletedAt = timePtr(completed)
		out = append(out, &j)
	}
	return out, rows.Err()
}
