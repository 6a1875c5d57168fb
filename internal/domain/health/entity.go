package health

import (
	"time"
)

// Category enum
type Category string

const (
	CategoryContent     Category = "content"
	CategoryInventory   Category = "inventory"
	CategoryOrders      Category = "orders"
	CategoryAdvertising Category = "advertising"
	CategoryReturns     Category = "returns"
	CategoryPerformance Category = "performance"
)

// Categories in display order
var Categories = []Category{
	CategoryContent,
	CategoryInventory,
	CategoryOrders,
	CategoryAdvertising,
	CategoryReturns,
	CategoryPerformance,
}

// DataType identifies what a RawSnapshot holds
type DataType string

const (
	DataOffers          DataType = "offers"
	DataInventory       DataType = "inventory"
	DataOrders          DataType = "orders"
	DataAdvertising     DataType = "advertising"
	DataReturns         DataType = "returns"
	DataPerformance     DataType = "performance"
	DataCatalogForecast DataType = "catalog_forecast"
)

// Priority enum
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Recommendation value object
type Recommendation struct {
	Priority Priority `json:"priority"`
	Title    string   `json:"title"`
	Action   string   `json:"action"`
	Impact   string   `json:"impact"`
}

// RawSnapshot is one successful upstream fetch, never updated after insert.
type RawSnapshot struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	DataType     DataType  `json:"data_type"`
	RawPayload   []byte    `json:"raw_payload"`
	PayloadURL   string    `json:"payload_url,omitempty"`
	RecordCount  int       `json:"record_count"`
	QualityScore float64   `json:"quality_score"`
	CreatedAt    time.Time `json:"created_at"`
}

// Analysis is the scored output of one analyzer run. Newer rows supersede older
// ones per category; rows are never updated.
type Analysis struct {
	ID              string           `json:"id"`
	CustomerID      string           `json:"customer_id"`
	SnapshotID      *string          `json:"snapshot_id,omitempty"`
	Category        Category         `json:"category"`
	Score           int              `json:"score"`
	Findings        map[string]any   `json:"findings"`
	Recommendations []Recommendation `json:"recommendations"`
	AnalyzedAt      time.Time        `json:"analyzed_at"`
}

// Result is what every analyzer returns
type Result struct {
	Score           int              `json:"score"`
	Findings        map[string]any   `json:"findings"`
	Recommendations []Recommendation `json:"recommendations"`
}

// QualityScore heuristic: full confidence when records came back, half when an
// empty result is plausible.
func QualityScore(recordCount int) float64 {
	if recordCount > 0 {
		return 1.0
	}
	return 0.5
}
