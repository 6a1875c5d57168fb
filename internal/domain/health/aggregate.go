package health

import "math"

// Weights per category, summing to 1.0
var Weights = map[Category]float64{
	CategoryContent:     0.30,
	CategoryInventory:   0.25,
	CategoryOrders:      0.20,
	CategoryAdvertising: 0.15,
	CategoryReturns:     0.05,
	CategoryPerformance: 0.05,
}

// Aggregate returns the weighted mean of the categories present, re-normalised
// over their weights. Unknown categories are ignored. Nil when nothing counts.
func Aggregate(scores map[Category]int) *int {
	var sum, weight float64
	for cat, s := range scores {
		w, ok := Weights[cat]
		if !ok {
			continue
		}
		sum += float64(s) * w
		weight += w
	}
	if weight == 0 {
		return nil
	}
	v := int(math.Round(sum / weight))
	return &v
}
