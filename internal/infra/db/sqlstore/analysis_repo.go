package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/sellerpulse/internal/domain/health"
)

type AnalysisRepository struct {
	s *Store
}

func NewAnalysisRepository(s *Store) *AnalysisRepository { return &AnalysisRepository{s: s} }

func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.AnalyzedAt = nowIfZero(a.AnalyzedAt)
	findings := a.Findings
	if findings == nil {
		findings = map[string]any{}
	}
	fj, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}
	recs := a.Recommendations
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	rj, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}
	q := r.s.rebind(`
INSERT INTO analyses
  (id, customer_id, snapshot_id, category, score, findings, recommendations, analyzed_at)
VALUES (?,?,?,?,?,?,?,?)`)
	_, err = r.s.db.ExecContext(ctx, q,
		a.ID, a.CustomerID, nullString(a.SnapshotID), string(a.Category), a.Score,
		string(fj), string(rj), a.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("insert analysis %s: %w", a.Category, err)
	}
	return nil
}

// Latest returns nil, nil when the category was never analysed
func (r *AnalysisRepository) Latest(ctx context.Context, customerID string, category domain.Category) (*domain.Analysis, error) {
	q := r.s.rebind(`
SELECT id, customer_id, snapshot_id, category, score, findings, recommendations, analyzed_at
FROM analyses
WHERE customer_id = ? AND category = ?
ORDER BY analyzed_at DESC, id DESC
LIMIT 1`)
	var a domain.Analysis
	var snapID sql.NullString
	var cat, fj, rj string
	var analyzed time.Time
	err := r.s.db.QueryRowContext(ctx, q, customerID, string(category)).Scan(
		&a.ID, &a.CustomerID, &snapID, &cat, &a.Score, &fj, &rj, &analyzed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest analysis %s: %w", category, err)
	}
	a.Category = domain.Category(cat)
	if snapID.Valid {
		id := snapID.String
		a.SnapshotID = &id
	}
	if err := json.Unmarshal([]byte(fj), &a.Findings); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	if err := json.Unmarshal([]byte(rj), &a.Recommendations); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	a.AnalyzedAt = analyzed.UTC()
	return &a, nil
}

// LatestPerCategory leaves categories without any analysis out of the map
func (r *AnalysisRepository) LatestPerCategory(ctx context.Context, customerID string) (map[domain.Category]*domain.Analysis, error) {
	out := make(map[domain.Category]*domain.Analysis, len(domain.Categories))
	for _, c := range domain.Categories {
		a, err := r.Latest(ctx, customerID, c)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out[c] = a
		}
	}
	return out, nil
}
