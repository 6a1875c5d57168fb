package syncs

import (
	"errors"
	"fmt"
	"time"
)

// SyncType selects which phase list a run executes
type SyncType string

const (
	SyncMain     SyncType = "main"
	SyncComplete SyncType = "complete"
	SyncExtended SyncType = "extended"
)

// ErrInvalidSyncType for anything outside main/complete/extended
var ErrInvalidSyncType = errors.New("invalid sync type")

// ParseSyncType defaults an empty value to main
func ParseSyncType(s string) (SyncType, error) {
	switch SyncType(s) {
	case "":
		return SyncMain, nil
	case SyncMain, SyncComplete, SyncExtended:
		return SyncType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSyncType, s)
}

// PhaseStatus outcome of one phase
type PhaseStatus string

const (
	PhaseOK      PhaseStatus = "ok"
	PhaseFailed  PhaseStatus = "failed"
	PhaseSkipped PhaseStatus = "skipped"
)

// PhaseResult is one line of the run report
type PhaseResult struct {
	Name    string      `json:"name"`
	Status  PhaseStatus `json:"status"`
	Detail  string      `json:"detail,omitempty"`
	Records int         `json:"records"`
	Score   *int        `json:"score,omitempty"`
}

// Report of one customer run. A run always produces a report; individual
// phases carry their own failures.
type Report struct {
	CustomerID string        `json:"customerId"`
	SyncType   SyncType      `json:"syncType"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Phases     []PhaseResult `json:"phases"`
}

// Failed counts failed phases
func (r *Report) Failed() int {
	n := 0
	for _, p := range r.Phases {
		if p.Status == PhaseFailed {
			n++
		}
	}
	return n
}

// Phase by name, nil when the run did not include it
func (r *Report) Phase(name string) *PhaseResult {
	for i := range r.Phases {
		if r.Phases[i].Name == name {
			return &r.Phases[i]
		}
	}
	return nil
}

// CronResult per customer of a scheduled run
type CronResult struct {
	CustomerID string `json:"customerId"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
}
