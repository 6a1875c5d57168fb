package timeseries

import (
	"context"
	"time"
)

// CampaignPerformanceRow campaign metrics for one period. Rows are appended on
// every sync; readers keep the latest per campaign by FetchedAt.
type CampaignPerformanceRow struct {
	CustomerID  string    `json:"customer_id"`
	CampaignID  string    `json:"campaign_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Conversions int64     `json:"conversions"`
	Spend       float64   `json:"spend"`
	Sales       float64   `json:"sales"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// KeywordPerformanceRow keyword metrics for one period
type KeywordPerformanceRow struct {
	CustomerID  string    `json:"customer_id"`
	KeywordID   string    `json:"keyword_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Conversions int64     `json:"conversions"`
	Spend       float64   `json:"spend"`
	Sales       float64   `json:"sales"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// CompetitorSnapshot of the offers competing on one product
type CompetitorSnapshot struct {
	CustomerID    string    `json:"customer_id"`
	ProductID     string    `json:"product_id"`
	OfferCount    int       `json:"offer_count"`
	LowestPrice   float64   `json:"lowest_price"`
	BuyBoxWinner  bool      `json:"buy_box_winner"`
	AverageRating float64   `json:"average_rating"`
	RatingCount   int       `json:"rating_count"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// KeywordRanking of a product for one search term
type KeywordRanking struct {
	CustomerID  string    `json:"customer_id"`
	ProductID   string    `json:"product_id"`
	SearchTerm  string    `json:"search_term"`
	RankType    string    `json:"rank_type"`
	Rank        int       `json:"rank"`
	Impressions int64     `json:"impressions"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Repository port. Latest* methods resolve duplicates to the newest row per key.
type Repository interface {
	AppendCampaignRows(ctx context.Context, rows []CampaignPerformanceRow) error
	AppendKeywordRows(ctx context.Context, rows []KeywordPerformanceRow) error
	AppendCompetitor(ctx context.Context, s *CompetitorSnapshot) error
	AppendRankings(ctx context.Context, rows []KeywordRanking) error

	LatestCampaignRows(ctx context.Context, customerID string) ([]CampaignPerformanceRow, error)
	LatestKeywordRows(ctx context.Context, customerID string) ([]KeywordPerformanceRow, error)
	LatestCompetitors(ctx context.Context, customerID string) ([]CompetitorSnapshot, error)
	LatestRankings(ctx context.Context, customerID string) ([]KeywordRanking, error)
}
