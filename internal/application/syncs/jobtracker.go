package syncs

import (
	"context"
	"fmt"

	"github.com/bryanwahyu/sellerpulse/internal/application"
	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
	"github.com/bryanwahyu/sellerpulse/internal/domain/syncjobs"
)

// PollOutcome of a single status check
type PollOutcome string

const (
	PollPending   PollOutcome = "pending"
	PollSucceeded PollOutcome = "succeeded"
	PollFailed    PollOutcome = "failed"
)

// PollResult carries the report id once the export succeeded
type PollResult struct {
	Outcome  PollOutcome
	ReportID string
}

// JobTracker owns the lifecycle of asynchronous upstream exports
type JobTracker struct {
	Jobs  syncjobs.JobRepository
	Clock application.Clock
}

// Submit starts an export upstream and records it as pending
func (t *JobTracker) Submit(ctx context.Context, r marketplace.Retailer, customerID, dataType string) (*syncjobs.SyncJob, error) {
	processID, err := r.ExportOffers(ctx)
	if err != nil {
		return nil, err
	}
	job := &syncjobs.SyncJob{
		CustomerID:    customerID,
		DataType:      dataType,
		ExternalJobID: processID,
		Status:        syncjobs.StatusPending,
		StartedAt:     t.Clock.Now().UTC(),
	}
	if err := t.Jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("record export job: %w", err)
	}
	return job, nil
}

// Poll counts one attempt and checks upstream once. At MaxAttempts the job is
// failed without asking upstream. An upstream error leaves the job pending
// with the attempt counted.
func (t *JobTracker) Poll(ctx context.Context, r marketplace.Retailer, job *syncjobs.SyncJob) (PollResult, error) {
	if job.Terminal() {
		return PollResult{Outcome: PollFailed}, fmt.Errorf("job %s is already %s", job.ID, job.Status)
	}

	job.Attempts++
	if job.Attempts >= syncjobs.MaxAttempts {
		job.Status = syncjobs.StatusFailed
		job.ErrorMessage = fmt.Sprintf("exceeded max attempts (%d)", syncjobs.MaxAttempts)
		now := t.Clock.Now().UTC()
		job.CompletedAt = &now
		if err := t.Jobs.Update(ctx, job); err != nil {
			return PollResult{Outcome: PollFailed}, err
		}
		return PollResult{Outcome: PollFailed}, nil
	}
	if err := t.Jobs.Update(ctx, job); err != nil {
		return PollResult{Outcome: PollPending}, err
	}

	st, err := r.CheckExportStatus(ctx, job.ExternalJobID)
	if err != nil {
		return PollResult{Outcome: PollPending}, err
	}

	switch st.Status {
	case marketplace.ExportFailure, marketplace.ExportTimeout:
		job.Status = syncjobs.StatusFailed
		job.ErrorMessage = st.ErrorMessage
		if job.ErrorMessage == "" {
			job.ErrorMessage = "export " + st.Status
		}
		now := t.Clock.Now().UTC()
		job.CompletedAt = &now
		if err := t.Jobs.Update(ctx, job); err != nil {
			return PollResult{Outcome: PollFailed}, err
		}
		return PollResult{Outcome: PollFailed}, nil
	case marketplace.ExportSuccess:
		if st.EntityID == "" {
			return PollResult{Outcome: PollPending}, nil
		}
		return PollResult{Outcome: PollSucceeded, ReportID: st.EntityID}, nil
	}
	return PollResult{Outcome: PollPending}, nil
}

// Complete is called only after the export result was processed
func (t *JobTracker) Complete(ctx context.Context, job *syncjobs.SyncJob) error {
	now := t.Clock.Now().UTC()
	job.Status = syncjobs.StatusCompleted
	job.CompletedAt = &now
	job.ErrorMessage = ""
	return t.Jobs.Update(ctx, job)
}

// Pending jobs started within the retention window. Older pending jobs are
// never returned and never failed.
func (t *JobTracker) Pending(ctx context.Context, customerID string) ([]*syncjobs.SyncJob, error) {
	return t.Jobs.Pending(ctx, customerID, t.Clock.Now().UTC().Add(-syncjobs.RetentionWindow))
}
