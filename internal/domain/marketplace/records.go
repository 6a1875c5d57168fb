package marketplace

import (
	"time"
)

// FulfilmentMethod enum. Empty means upstream did not say.
type FulfilmentMethod string

const (
	FulfilmentFBB     FulfilmentMethod = "FBB"
	FulfilmentFBR     FulfilmentMethod = "FBR"
	FulfilmentUnknown FulfilmentMethod = ""
)

// ParseFulfilment normalises the spellings seen in exports and JSON payloads.
func ParseFulfilment(s string) FulfilmentMethod {
	switch s {
	case "FBB", "fbb", "Fbb", "PLATFORM", "platform":
		return FulfilmentFBB
	case "FBR", "fbr", "Fbr", "SELLER", "seller":
		return FulfilmentFBR
	default:
		return FulfilmentUnknown
	}
}

// Window is an inclusive range of calendar days.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Days between From and To
func (w Window) Days() int {
	return int(w.To.Sub(w.From).Hours() / 24)
}

// Offer is one row of the offers export, optionally enriched with insights.
type Offer struct {
	OfferID          string           `json:"offer_id"`
	EAN              string           `json:"ean"`
	Title            string           `json:"title"`
	Price            float64          `json:"price"`
	Stock            int              `json:"stock"`
	FulfilmentMethod FulfilmentMethod `json:"fulfilment_method"`
	Insights         *OfferInsight    `json:"insights,omitempty"`
}

// OfferInsight per-offer traffic metrics
type OfferInsight struct {
	OfferID          string  `json:"offer_id"`
	Impressions      int64   `json:"impressions"`
	Visits           int64   `json:"visits"`
	BuyBoxPercentage float64 `json:"buy_box_percentage"`
}

// OfferInsightResult pairs a requested offer id with its insight (nil when the
// batch response did not contain it).
type OfferInsightResult struct {
	OfferID  string        `json:"offer_id"`
	Insights *OfferInsight `json:"insights"`
}

// InventoryItem stock line. DailySales is zero when unknown.
type InventoryItem struct {
	EAN              string           `json:"ean"`
	Title            string           `json:"title"`
	Stock            int              `json:"stock"`
	FulfilmentMethod FulfilmentMethod `json:"fulfilment_method"`
	DailySales       float64          `json:"daily_sales,omitempty"`
}

// OrderItem line within an order
type OrderItem struct {
	OrderItemID         string           `json:"order_item_id"`
	EAN                 string           `json:"ean"`
	Quantity            int              `json:"quantity"`
	FulfilmentMethod    FulfilmentMethod `json:"fulfilment_method"`
	CancellationRequest bool             `json:"cancellation_request"`
}

// Order placed by a buyer
type Order struct {
	OrderID   string      `json:"order_id"`
	PlacedAt  time.Time   `json:"placed_at"`
	Cancelled bool        `json:"cancelled"`
	Items     []OrderItem `json:"items"`
}

// IsCancelled when the order or any of its items was cancelled
func (o Order) IsCancelled() bool {
	if o.Cancelled {
		return true
	}
	for _, it := range o.Items {
		if it.CancellationRequest {
			return true
		}
	}
	return false
}

// IsPlatformFulfilled when any item ships from the marketplace warehouse
func (o Order) IsPlatformFulfilled() bool {
	for _, it := range o.Items {
		if it.FulfilmentMethod == FulfilmentFBB {
			return true
		}
	}
	return false
}

// Return registered by a buyer
type Return struct {
	ReturnID     string    `json:"return_id"`
	EAN          string    `json:"ean"`
	Quantity     int       `json:"quantity"`
	Reason       string    `json:"reason"`
	Handled      bool      `json:"handled"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Indicator conclusions
const (
	ConclusionExcellent        = "EXCELLENT"
	ConclusionGood             = "GOOD"
	ConclusionFair             = "FAIR"
	ConclusionNeedsImprovement = "NEEDS_IMPROVEMENT"
	ConclusionPoor             = "POOR"
	ConclusionAtRisk           = "AT_RISK"
	ConclusionNotEnoughData    = "NOT_ENOUGH_DATA"
)

// IndicatorNames fetched every main sync
var IndicatorNames = []string{
	"CANCELLATIONS",
	"FULFILMENT",
	"PHONE_AVAILABILITY",
	"CASE_ITEM_RATIO",
	"TRACKING",
	"RETURNS",
	"REVIEWS",
}

// PerformanceIndicator weekly seller KPI
type PerformanceIndicator struct {
	Name       string  `json:"name"`
	Year       int     `json:"year"`
	Week       int     `json:"week"`
	Score      float64 `json:"score"`
	Norm       float64 `json:"norm"`
	Conclusion string  `json:"conclusion"`
}

// Export process states
const (
	ExportPending = "PENDING"
	ExportSuccess = "SUCCESS"
	ExportFailure = "FAILURE"
	ExportTimeout = "TIMEOUT"
)

// ExportStatus from the process-status endpoint. EntityID is the report id once
// the export succeeded.
type ExportStatus struct {
	ProcessID    string `json:"process_id"`
	Status       string `json:"status"`
	EntityID     string `json:"entity_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Campaign sponsored products campaign
type Campaign struct {
	CampaignID  string  `json:"campaign_id"`
	Name        string  `json:"name"`
	State       string  `json:"state"`
	DailyBudget float64 `json:"daily_budget"`
}

// AdGroup within a campaign
type AdGroup struct {
	AdGroupID  string `json:"ad_group_id"`
	CampaignID string `json:"campaign_id"`
	Name       string `json:"name"`
	State      string `json:"state"`
}

// Keyword within an ad group
type Keyword struct {
	KeywordID string  `json:"keyword_id"`
	AdGroupID string  `json:"ad_group_id"`
	Text      string  `json:"text"`
	MatchType string  `json:"match_type"`
	Bid       float64 `json:"bid"`
}

// PerformanceSubTotal metrics over a window
type PerformanceSubTotal struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Spend       float64 `json:"spend"`
	Sales       float64 `json:"sales"`
}

// PerformanceResult pairs a requested id with its metrics (nil when absent upstream).
type PerformanceResult struct {
	ID      string               `json:"id"`
	Metrics *PerformanceSubTotal `json:"metrics"`
}

// CampaignStats campaign plus its metrics for the window
type CampaignStats struct {
	Campaign
	Metrics *PerformanceSubTotal `json:"metrics"`
}

// KeywordStats keyword plus its metrics for the window
type KeywordStats struct {
	Keyword
	Metrics *PerformanceSubTotal `json:"metrics"`
}

// AdvertisingReport is the aggregate blob analysed and persisted per sync
type AdvertisingReport struct {
	Window       Window          `json:"window"`
	Backfill     bool            `json:"backfill"`
	Campaigns    []CampaignStats `json:"campaigns"`
	AdGroupCount int             `json:"ad_group_count"`
	Keywords     []KeywordStats  `json:"keywords"`
}

// CompetingOffer on the same product
type CompetingOffer struct {
	OfferID          string           `json:"offer_id"`
	RetailerID       string           `json:"retailer_id"`
	Price            float64          `json:"price"`
	Condition        string           `json:"condition"`
	FulfilmentMethod FulfilmentMethod `json:"fulfilment_method"`
	BestOffer        bool             `json:"best_offer"`
}

// ProductRating summary
type ProductRating struct {
	EAN     string  `json:"ean"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// ProductRank search or browse rank for a product
type ProductRank struct {
	SearchTerm  string `json:"search_term"`
	Type        string `json:"type"`
	Rank        int    `json:"rank"`
	Impressions int64  `json:"impressions"`
}

// CatalogProduct content as known by the marketplace catalog
type CatalogProduct struct {
	EAN         string            `json:"ean"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	ImageCount  int               `json:"image_count"`
}

// SalesForecast expected sales for an offer
type SalesForecast struct {
	OfferID    string  `json:"offer_id"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Confidence float64 `json:"confidence"`
}
