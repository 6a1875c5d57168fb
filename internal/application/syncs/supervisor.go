package syncs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
	"github.com/bryanwahyu/sellerpulse/internal/domain/syncjobs"
)

// phase is one independently failing step of a run
type phase struct {
	name string
	run  func(ctx context.Context, st *runState) (PhaseResult, error)
}

type skipError struct{ reason string }

func (e skipError) Error() string { return e.reason }

// skip marks a phase as skipped instead of failed
func skip(format string, args ...any) error {
	return skipError{reason: fmt.Sprintf(format, args...)}
}

// runPhases executes every phase in order. A failing or panicking phase is
// recorded and never stops the phases after it.
func (s *Service) runPhases(ctx context.Context, st *runState, phases []phase) []PhaseResult {
	out := make([]PhaseResult, 0, len(phases))
	for _, p := range phases {
		res := s.runPhase(ctx, st, p)
		logger := log.With().
			Str("customer_id", st.customer.ID).
			Str("sync_type", string(st.syncType)).
			Str("phase", p.name).
			Str("status", string(res.Status)).
			Int("records", res.Records).
			Logger()
		switch res.Status {
		case PhaseFailed:
			logger.Error().Str("detail", res.Detail).Msg("sync phase failed")
			s.recordPhaseError(ctx, st, res)
		case PhaseSkipped:
			logger.Info().Str("detail", res.Detail).Msg("sync phase skipped")
		default:
			logger.Info().Msg("sync phase done")
		}
		if s.Metrics != nil {
			s.Metrics.ObservePhase(p.name, string(res.Status))
		}
		out = append(out, res)
	}
	return out
}

func (s *Service) runPhase(ctx context.Context, st *runState, p phase) (res PhaseResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("customer_id", st.customer.ID).
				Str("phase", p.name).
				Str("stack", string(debug.Stack())).
				Msgf("sync phase panic: %v", r)
			res = PhaseResult{Name: p.name, Status: PhaseFailed, Detail: fmt.Sprintf("panic: %v", r)}
		}
	}()

	res, err := p.run(ctx, st)
	res.Name = p.name
	var se skipError
	switch {
	case err == nil:
		if res.Status == "" {
			res.Status = PhaseOK
		}
	case errors.As(err, &se):
		res.Status = PhaseSkipped
		res.Detail = se.reason
	case errors.Is(err, marketplace.ErrNoCredentials):
		res.Status = PhaseSkipped
		res.Detail = err.Error()
	default:
		res.Status = PhaseFailed
		res.Detail = err.Error()
	}
	return res
}

func (s *Service) recordPhaseError(ctx context.Context, st *runState, res PhaseResult) {
	if s.PhaseErrors == nil {
		return
	}
	err := s.PhaseErrors.Save(ctx, &syncjobs.PhaseError{
		CustomerID: st.customer.ID,
		SyncType:   string(st.syncType),
		Phase:      res.Name,
		Message:    res.Detail,
		CreatedAt:  s.Clock.Now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("customer_id", st.customer.ID).Str("phase", res.Name).Msg("failed to record phase error")
	}
}
