package syncs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/sellerpulse/internal/domain/health"
)

// snapshot stores payload as the raw record of one successful fetch
func (s *Service) snapshot(ctx context.Context, customerID string, dt health.DataType, payload any, count int, payloadURL string) (*health.RawSnapshot, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s snapshot: %w", dt, err)
	}
	snap := &health.RawSnapshot{
		CustomerID:   customerID,
		DataType:     dt,
		RawPayload:   raw,
		PayloadURL:   payloadURL,
		RecordCount:  count,
		QualityScore: health.QualityScore(count),
		CreatedAt:    s.Clock.Now().UTC(),
	}
	if err := s.Snapshots.Create(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// analysis stores one category result linked to its snapshot
func (s *Service) analysis(ctx context.Context, customerID string, snap *health.RawSnapshot, cat health.Category, res health.Result) error {
	a := &health.Analysis{
		CustomerID:      customerID,
		Category:        cat,
		Score:           res.Score,
		Findings:        res.Findings,
		Recommendations: res.Recommendations,
		AnalyzedAt:      s.Clock.Now().UTC(),
	}
	if snap != nil {
		id := snap.ID
		a.SnapshotID = &id
	}
	return s.Analyses.Create(ctx, a)
}

// persistScored writes snapshot plus analysis and builds the phase result
func (s *Service) persistScored(ctx context.Context, customerID string, dt health.DataType, payload any, count int, cat health.Category, res health.Result) (PhaseResult, error) {
	snap, err := s.snapshot(ctx, customerID, dt, payload, count, "")
	if err != nil {
		return PhaseResult{Records: count}, err
	}
	if err := s.analysis(ctx, customerID, snap, cat, res); err != nil {
		return PhaseResult{Records: count}, err
	}
	score := res.Score
	return PhaseResult{Records: count, Score: &score}, nil
}
