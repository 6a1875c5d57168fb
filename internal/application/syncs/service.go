// Package syncs runs the per-customer sync: fetch upstream data, persist raw
// snapshots, score every category and record per-phase outcomes.
package syncs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/sellerpulse/internal/application"
	"github.com/bryanwahyu/sellerpulse/internal/domain/customers"
	"github.com/bryanwahyu/sellerpulse/internal/domain/health"
	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
	"github.com/bryanwahyu/sellerpulse/internal/domain/syncjobs"
	"github.com/bryanwahyu/sellerpulse/internal/domain/timeseries"
)

// PhaseObserver receives one call per finished phase
type PhaseObserver interface {
	ObservePhase(phase, status string)
}

// Service wires the orchestrator. Archive and Metrics are optional.
type Service struct {
	Customers   customers.Repository
	Snapshots   health.SnapshotRepository
	Analyses    health.AnalysisRepository
	Timeseries  timeseries.Repository
	Jobs        *JobTracker
	Backfill    *BackfillPlanner
	PhaseErrors syncjobs.PhaseErrorRepository
	Connector   marketplace.Connector
	Archive     health.PayloadStore
	Metrics     PhaseObserver
	Clock       application.Clock
}

// runState is shared by the phases of one run
type runState struct {
	customer *customers.Customer
	syncType SyncType

	retailerOnce sync.Once
	retailer     marketplace.Retailer
	retailerErr  error

	offersOnce sync.Once
	offers     []marketplace.Offer
	offersErr  error
}

func (st *runState) retailerClient(ctx context.Context, c marketplace.Connector) (marketplace.Retailer, error) {
	st.retailerOnce.Do(func() {
		st.retailer, st.retailerErr = c.Retailer(ctx, st.customer)
	})
	return st.retailer, st.retailerErr
}

// Run executes one sync for one customer. It only returns an error when the
// run cannot start (unknown customer or sync type); phase failures are in the
// report.
func (s *Service) Run(ctx context.Context, customerID string, syncType SyncType) (*Report, error) {
	phases, err := s.phasesFor(syncType)
	if err != nil {
		return nil, err
	}
	cust, err := s.Customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	st := &runState{customer: cust, syncType: syncType}
	rep := &Report{
		CustomerID: cust.ID,
		SyncType:   syncType,
		StartedAt:  s.Clock.Now().UTC(),
	}
	rep.Phases = s.runPhases(ctx, st, phases)
	rep.FinishedAt = s.Clock.Now().UTC()

	log.Info().
		Str("customer_id", cust.ID).
		Str("sync_type", string(syncType)).
		Int("phases", len(rep.Phases)).
		Int("failed", rep.Failed()).
		Dur("took", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("sync finished")
	return rep, nil
}

func (s *Service) phasesFor(t SyncType) ([]phase, error) {
	switch t {
	case SyncMain:
		return s.mainPhases(), nil
	case SyncComplete:
		return s.completePhases(), nil
	case SyncExtended:
		return s.extendedPhases(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidSyncType, t)
}

// RunAll runs syncType for every active customer, one after another. A
// customer whose run fails to start is reported and the loop moves on.
func (s *Service) RunAll(ctx context.Context, syncType SyncType) ([]CronResult, error) {
	if _, err := s.phasesFor(syncType); err != nil {
		return nil, err
	}
	list, err := s.Customers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active customers: %w", err)
	}
	out := make([]CronResult, 0, len(list))
	for _, c := range list {
		if err := ctx.Err(); err != nil {
			out = append(out, CronResult{CustomerID: c.ID, Status: "error", Detail: err.Error()})
			continue
		}
		rep, err := s.Run(ctx, c.ID, syncType)
		switch {
		case err != nil:
			out = append(out, CronResult{CustomerID: c.ID, Status: "error", Detail: err.Error()})
		case rep.Failed() > 0:
			out = append(out, CronResult{CustomerID: c.ID, Status: "ok", Detail: fmt.Sprintf("%d phase(s) failed", rep.Failed())})
		default:
			out = append(out, CronResult{CustomerID: c.ID, Status: "ok"})
		}
	}
	return out, nil
}

// IsNotFound reports whether err means the customer does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, customers.ErrNotFound)
}
