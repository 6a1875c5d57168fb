// Package health serves the read side: latest scores per category and the
// time-series written by the sync.
package health

import (
	"context"
	"time"

	"github.com/bryanwahyu/sellerpulse/internal/domain/customers"
	domain "github.com/bryanwahyu/sellerpulse/internal/domain/health"
	"github.com/bryanwahyu/sellerpulse/internal/domain/syncjobs"
	"github.com/bryanwahyu/sellerpulse/internal/domain/timeseries"
)

// Service implements read use-cases for dashboards
type Service struct {
	Customers   customers.Repository
	Analyses    domain.AnalysisRepository
	Timeseries  timeseries.Repository
	PhaseErrors syncjobs.PhaseErrorRepository
}

// Overview of one customer's account health
type Overview struct {
	CustomerID   string                               `json:"customer_id"`
	OverallScore *int                                 `json:"overall_score"`
	Categories   map[domain.Category]*domain.Analysis `json:"categories"`
	LastSyncAt   *time.Time                           `json:"last_sync_at,omitempty"`
}

// Overview aggregates on read, so a category that never synced does not drag
// the overall score down.
func (s *Service) Overview(ctx context.Context, customerID string) (*Overview, error) {
	cust, err := s.Customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	latest, err := s.Analyses.LatestPerCategory(ctx, customerID)
	if err != nil {
		return nil, err
	}
	scores := make(map[domain.Category]int, len(latest))
	for cat, a := range latest {
		scores[cat] = a.Score
	}
	return &Overview{
		CustomerID:   cust.ID,
		OverallScore: domain.Aggregate(scores),
		Categories:   latest,
		LastSyncAt:   cust.LastSyncAt,
	}, nil
}

// CampaignPerformance latest row per campaign
func (s *Service) CampaignPerformance(ctx context.Context, customerID string) ([]timeseries.CampaignPerformanceRow, error) {
	if _, err := s.Customers.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.Timeseries.LatestCampaignRows(ctx, customerID)
}

// KeywordPerformance latest row per keyword
func (s *Service) KeywordPerformance(ctx context.Context, customerID string) ([]timeseries.KeywordPerformanceRow, error) {
	if _, err := s.Customers.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.Timeseries.LatestKeywordRows(ctx, customerID)
}

// Competitors latest snapshot per product
func (s *Service) Competitors(ctx context.Context, customerID string) ([]timeseries.CompetitorSnapshot, error) {
	if _, err := s.Customers.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.Timeseries.LatestCompetitors(ctx, customerID)
}

// KeywordRankings latest rank per product, search term and rank type
func (s *Service) KeywordRankings(ctx context.Context, customerID string) ([]timeseries.KeywordRanking, error) {
	if _, err := s.Customers.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.Timeseries.LatestRankings(ctx, customerID)
}

// SyncErrors most recent failed phases, newest first
func (s *Service) SyncErrors(ctx context.Context, customerID string, limit int) ([]*syncjobs.PhaseError, error) {
	if _, err := s.Customers.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.PhaseErrors.ListByCustomer(ctx, customerID, limit)
}
