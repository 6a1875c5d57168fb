package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/sellerpulse/internal/domain/timeseries"
)

// TimeseriesRepository stores append-only metric rows. Readers resolve the
// newest row per key in Go so the queries stay portable across dialects.
type TimeseriesRepository struct {
	s *Store
}

func NewTimeseriesRepository(s *Store) *TimeseriesRepository { return &TimeseriesRepository{s: s} }

func (r *TimeseriesRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *TimeseriesRepository) AppendCampaignRows(ctx context.Context, rows []domain.CampaignPerformanceRow) error {
	if len(rows) == 0 {
		return nil
	}
	q := r.s.rebind(`
INSERT INTO campaign_performance
  (customer_id, campaign_id, period_start, period_end, impressions, clicks, conversions, spend, sales, fetched_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`)
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, q, row.CustomerID, row.CampaignID,
				row.PeriodStart.UTC(), row.PeriodEnd.UTC(), row.Impressions, row.Clicks,
				row.Conversions, row.Spend, row.Sales, nowIfZero(row.FetchedAt)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append campaign rows: %w", err)
	}
	return nil
}

func (r *TimeseriesRepository) AppendKeywordRows(ctx context.Context, rows []domain.KeywordPerformanceRow) error {
	if len(rows) == 0 {
		return nil
	}
	q := r.s.rebind(`
INSERT INTO keyword_performance
  (customer_id, keyword_id, period_start, period_end, impressions, clicks, conversions, spend, sales, fetched_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`)
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, q, row.CustomerID, row.KeywordID,
				row.PeriodStart.UTC(), row.PeriodEnd.UTC(), row.Impressions, row.Clicks,
				row.Conversions, row.Spend, row.Sales, nowIfZero(row.FetchedAt)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append keyword rows: %w", err)
	}
	return nil
}

func (r *TimeseriesRepository) AppendCompetitor(ctx context.Context, c *domain.CompetitorSnapshot) error {
	q := r.s.rebind(`
INSERT INTO competitor_snapshots
  (customer_id, product_id, offer_count, lowest_price, buy_box_winner, average_rating, rating_count, fetched_at)
VALUES (?,?,?,?,?,?,?,?)`)
	_, err := r.s.db.ExecContext(ctx, q, c.CustomerID, c.ProductID, c.OfferCount, c.LowestPrice,
		c.BuyBoxWinner, c.AverageRating, c.RatingCount, nowIfZero(c.FetchedAt))
	if err != nil {
		return fmt.Errorf("append competitor snapshot: %w", err)
	}
	return nil
}

func (r *TimeseriesRepository) AppendRankings(ctx context.Context, rows []domain.KeywordRanking) error {
	if len(rows) == 0 {
		return nil
	}
	q := r.s.rebind(`
INSERT INTO keyword_rankings
  (customer_id, product_id, search_term, rank_type, rank_position, impressions, fetched_at)
VALUES (?,?,?,?,?,?,?)`)
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, q, row.CustomerID, row.ProductID, stringOrDash(row.SearchTerm),
				stringOrDash(row.RankType), row.Rank, row.Impressions, nowIfZero(row.FetchedAt)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append rankings: %w", err)
	}
	return nil
}

func (r *TimeseriesRepository) LatestCampaignRows(ctx context.Context, customerID string) ([]domain.CampaignPerformanceRow, error) {
	q := r.s.rebind(`
SELECT customer_id, campaign_id, period_start, period_end, impressions, clicks, conversions, spend, sales, fetched_at
FROM campaign_performance
WHERE customer_id = ?
ORDER BY fetched_at DESC`)
	rows, err := r.s.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, fmt.Errorf("campaign rows: %w", err)
	}
	defer rows.Close()
	seen := map[string]bool{}
	out := []domain.CampaignPerformanceRow{}
	for rows.Next() {
		var row domain.CampaignPerformanceRow
		var ps, pe, fa time.Time
		if err := rows.Scan(&row.CustomerID, &row.CampaignID, &ps, &pe, &row.Impressions, &row.Clicks,
			&row.Conversions, &row.Spend, &row.Sales, &fa); err != nil {
			return nil, err
		}
		if seen[row.CampaignID] {
			continue
		}
		seen[row.CampaignID] = true
		row.PeriodStart, row.PeriodEnd, row.FetchedAt = ps.UTC(), pe.UTC(), fa.UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *TimeseriesRepository) LatestKeywordRows(ctx context.Context, customerID string) ([]domain.KeywordPerformanceRow, error) {
	q := r.s.rebind(`
SELECT customer_id, keyword_id, period_start, period_end, impressions, clicks, conversions, spend, sales, fetched_at
FROM keyword_performance
WHERE customer_id = ?
ORDER BY fetched_at DESC`)
	rows, err := r.s.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, fmt.Errorf("keyword rows: %w", err)
	}
	defer rows.Close()
	seen := map[string]bool{}
	out := []domain.KeywordPerformanceRow{}
	for rows.Next() {
		var row domain.KeywordPerformanceRow
		var ps, pe, fa time.Time
		if err := rows.Scan(&row.CustomerID, &row.KeywordID, &ps, &pe, &row.Impressions, &row.Clicks,
			&row.Conversions, &row.Spend, &row.Sales, &fa); err != nil {
			return nil, err
		}
		if seen[row.KeywordID] {
			continue
		}
		seen[row.KeywordID] = true
		row.PeriodStart, row.PeriodEnd, row.FetchedAt = ps.UTC(), pe.UTC(), fa.UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *TimeseriesRepository) LatestCompetitors(ctx context.Context, customerID string) ([]domain.CompetitorSnapshot, error) {
	q := r.s.rebind(`
SELECT customer_id, product_id, offer_count, lowest_price, buy_box_winner, average_rating, rating_count, fetched_at
FROM competitor_snapshots
WHERE customer_id = ?
ORDER BY fetched_at DESC`)
	rows, err := r.s.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, fmt.Errorf("competitor snapshots: %w", err)
	}
	defer rows.Close()
	seen := map[string]bool{}
	out := []domain.CompetitorSnapshot{}
	for rows.Next() {
		var c domain.CompetitorSnapshot
		var fa time.Time
		if err := rows.Scan(&c.CustomerID, &c.ProductID, &c.OfferCount, &c.LowestPrice, &c.BuyBoxWinner,
			&c.AverageRating, &c.RatingCount, &fa); err != nil {
			return nil, err
		}
		if seen[c.ProductID] {
			continue
		}
		seen[c.ProductID] = true
		c.FetchedAt = fa.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *TimeseriesRepository) LatestRankings(ctx context.Context, customerID string) ([]domain.KeywordRanking, error) {
	q := r.s.rebind(`
SELECT customer_id, product_id, search_term, rank_type, rank_position, impressions, fetched_at
FROM keyword_rankings
WHERE customer_id = ?
ORDER BY fetched_at DESC`)
	rows, err := r.s.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, fmt.Errorf("keyword rankings: %w", err)
	}
	defer rows.Close()
	seen := map[string]bool{}
	out := []domain.KeywordRanking{}
	for rows.Next() {
		var k domain.KeywordRanking
		var fa time.Time
		if err := rows.Scan(&k.CustomerID, &k.ProductID, &k.SearchTerm, &k.RankType, &k.Rank, &k.Impressions, &fa); err != nil {
			return nil, err
		}
		key := k.ProductID + "\x00" + k.SearchTerm + "\x00" + k.RankType
		if seen[key] {
			continue
		}
		seen[key] = true
		k.SearchTerm = dashToEmpty(k.SearchTerm)
		k.RankType = dashToEmpty(k.RankType)
		k.FetchedAt = fa.UTC()
		out = append(out, k)
	}
	return out, rows.Err()
}
