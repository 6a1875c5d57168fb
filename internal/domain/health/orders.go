package health

import (
	"fmt"

	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
)

// Cancellation rate thresholds in percent
const (
	CancelRateHigh    = 5.0
	CancelRateWarning = 2.0
	minOrdersForFBB   = 10
)

// AnalyzeOrders scores cancellations and fulfilment mix
func AnalyzeOrders(orders []marketplace.Order) Result {
	if len(orders) == 0 {
		return Result{
			Score:           DefaultOrdersScore,
			Findings:        map[string]any{"total_orders": 0},
			Recommendations: []Recommendation{},
		}
	}

	var cancelled, fbb, items int
	for _, o := range orders {
		if o.IsCancelled() {
			cancelled++
		}
		if o.IsPlatformFulfilled() {
			fbb++
		}
		for _, it := range o.Items {
			q := it.Quantity
			if q <= 0 {
				q = 1
			}
			items += q
		}
	}

	total := len(orders)
	cancelRate := float64(cancelled*100) / float64(total)
	fbbRate := float64(fbb*100) / float64(total)

	score := 100
	var recs []Recommendation
	switch {
	case cancelRate > CancelRateHigh:
		score -= 30
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Title:    "Reduce cancellation rate",
			Action:   fmt.Sprintf("Cancellation rate is %.1f%%, above the %.0f%% norm; keep stock levels accurate and avoid cancelling orders", cancelRate, CancelRateHigh),
			Impact:   "High cancellation rates can lead to account restrictions",
		})
	case cancelRate > CancelRateWarning:
		score -= 15
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Title:    "Watch cancellation rate",
			Action:   fmt.Sprintf("Cancellation rate is %.1f%%; investigate the cancelled orders", cancelRate),
			Impact:   "Keeps the account within the cancellation norm",
		})
	}
	if fbb == 0 && total > minOrdersForFBB {
		score -= 10
		recs = append(recs, Recommendation{
			Priority: PriorityLow,
			Title:    "Consider platform fulfilment",
			Action:   "None of your orders are platform-fulfilled; move best sellers to platform fulfilment",
			Impact:   "Platform-fulfilled offers win the Buy Box more often",
		})
	}

	return Result{
		Score: clampScore(score),
		Findings: map[string]any{
			"total_orders":     total,
			"total_items":      items,
			"cancelled_orders": cancelled,
			"cancel_rate":      round2(cancelRate),
			"fbb_orders":       fbb,
			"fbb_rate":         round2(fbbRate),
		},
		Recommendations: sortRecommendations(recs),
	}
}

// DailySalesByEAN derives a per-EAN sales rate from orders over the given days.
// Cancelled orders are ignored.
func DailySalesByEAN(orders []marketplace.Order, days int) map[string]float64 {
	out := make(map[string]float64)
	if days <= 0 {
		return out
	}
	for _, o := range orders {
		if o.IsCancelled() {
			continue
		}
		for _, it := range o.Items {
			if it.EAN == "" {
				continue
			}
			q := it.Quantity
			if q <= 0 {
				q = 1
			}
			out[it.EAN] += float64(q)
		}
	}
	for k, v := range out {
		out[k] = v / float64(days)
	}
	return out
}
