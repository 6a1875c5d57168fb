package syncjobs

import (
	"time"
)

// Status enum
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Polling limits
const (
	MaxAttempts     = 50
	RetentionWindow = 24 * time.Hour
)

// SyncJob tracks one asynchronous upstream export
type SyncJob struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customer_id"`
	DataType      string     `json:"data_type"`
	ExternalJobID string     `json:"external_job_id"`
	Status        Status     `json:"status"`
	Attempts      int        `json:"attempts"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
}

// Terminal once the job left pending
func (j *SyncJob) Terminal() bool {
	return j.Status != StatusPending
}

// BackfillStatus per customer advertising account
type BackfillStatus struct {
	CustomerID        string     `json:"customer_id"`
	BackfillCompleted bool       `json:"backfill_completed"`
	OldestDateFetched time.Time  `json:"oldest_date_fetched"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// PhaseError is an operator-facing record of a failed sync phase
type PhaseError struct {
	ID         int64     `json:"id"`
	CustomerID string    `json:"customer_id"`
	SyncType   string    `json:"sync_type"`
	Phase      string    `json:"phase"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
