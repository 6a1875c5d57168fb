package health

import (
	"fmt"

	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
)

// Inventory thresholds in days of cover
const (
	CriticalLowDays = 7
	LowStockDays    = 15
	OverstockDays   = 180

	// SelfFulfilledScore is fixed because upstream does not track stock for
	// sellers that ship themselves.
	SelfFulfilledScore = 75

	defaultDailySales = 1.0
)

// DaysOfCover is how long the stock lasts at the item's sales rate, assuming one
// unit per day when the rate is unknown.
func DaysOfCover(it marketplace.InventoryItem) float64 {
	rate := it.DailySales
	if rate <= 0 {
		rate = defaultDailySales
	}
	return float64(it.Stock) / rate
}

// IsSelfFulfilledOnly reports whether the seller ships every item themselves, or
// gives no fulfilment info at all and reports zero stock everywhere.
func IsSelfFulfilledOnly(items []marketplace.InventoryItem) bool {
	if len(items) == 0 {
		return false
	}
	allFBR, allUnknown, allZero := true, true, true
	for _, it := range items {
		if it.FulfilmentMethod != marketplace.FulfilmentFBR {
			allFBR = false
		}
		if it.FulfilmentMethod != marketplace.FulfilmentUnknown {
			allUnknown = false
		}
		if it.Stock != 0 {
			allZero = false
		}
	}
	return allFBR || (allUnknown && allZero)
}

// AnalyzeInventory scores stock health over platform-fulfilled items
func AnalyzeInventory(items []marketplace.InventoryItem) Result {
	if len(items) == 0 {
		return Result{
			Score:    DefaultInventoryScore,
			Findings: map[string]any{"total_items": 0},
			Recommendations: []Recommendation{{
				Priority: PriorityLow,
				Title:    "No inventory data",
				Action:   "Connect platform fulfilment or check the inventory endpoint access",
				Impact:   "Stock risks cannot be detected",
			}},
		}
	}

	if IsSelfFulfilledOnly(items) {
		return Result{
			Score: SelfFulfilledScore,
			Findings: map[string]any{
				"total_items":      len(items),
				"fulfilment_model": "FBR",
				"stock_tracked":    false,
				"platform_items":   0,
				"fbr_items":        len(items),
			},
			Recommendations: []Recommendation{},
		}
	}

	// unknown fulfilment with stock reported is treated as platform-fulfilled;
	// non-empty because the all-FBR case returned above
	var tracked []marketplace.InventoryItem
	for _, it := range items {
		if it.FulfilmentMethod != marketplace.FulfilmentFBR {
			tracked = append(tracked, it)
		}
	}

	var out, critical, low, over int
	var outEANs, criticalEANs []string
	for _, it := range tracked {
		if it.Stock <= 0 {
			out++
			outEANs = append(outEANs, it.EAN)
			continue
		}
		days := DaysOfCover(it)
		switch {
		case days <= CriticalLowDays:
			critical++
			criticalEANs = append(criticalEANs, it.EAN)
		case days <= LowStockDays:
			low++
		case days > OverstockDays:
			over++
		}
	}

	total := len(tracked)
	healthy := float64(total-out-critical) / float64(total)
	score := roundScore(healthy * 100)

	findings := map[string]any{
		"total_items":       len(items),
		"platform_items":    total,
		"fbr_items":         len(items) - total,
		"fulfilment_model":  "FBB",
		"stock_tracked":     true,
		"out_of_stock":      out,
		"critical_low":      critical,
		"low_stock":         low,
		"overstock":         over,
		"healthy_pct":       round2(healthy * 100),
		"out_of_stock_eans": outEANs,
		"critical_low_eans": criticalEANs,
	}

	var recs []Recommendation
	if out > 0 {
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Title:    "Restock out-of-stock items",
			Action:   fmt.Sprintf("%d platform-fulfilled items have no stock; send a replenishment", out),
			Impact:   "Out-of-stock items lose the Buy Box and sales",
		})
	}
	if critical > 0 {
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Title:    "Replenish critically low stock",
			Action:   fmt.Sprintf("%d items have %d days of stock or less", critical, CriticalLowDays),
			Impact:   "These items will sell out before a shipment arrives",
		})
	}
	if low > 0 {
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Title:    "Plan replenishment for low stock",
			Action:   fmt.Sprintf("%d items have between %d and %d days of stock", low, CriticalLowDays, LowStockDays),
			Impact:   "Avoids stock-outs in the coming weeks",
		})
	}
	if over > 0 {
		recs = append(recs, Recommendation{
			Priority: PriorityLow,
			Title:    "Reduce overstock",
			Action:   fmt.Sprintf("%d items have more than %d days of stock; consider promotions", over, OverstockDays),
			Impact:   "Long-stored stock adds storage fees",
		})
	}

	return Result{Score: score, Findings: findings, Recommendations: sortRecommendations(recs)}
}
