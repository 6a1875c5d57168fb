package health

import (
	"math"
	"sort"
)

// Scores used when an analyzer receives no records. Missing data is not a
// failing grade.
const (
	DefaultContentScore     = 50
	DefaultInventoryScore   = 50
	DefaultOrdersScore      = 75
	DefaultAdvertisingScore = 50
	DefaultReturnsScore     = 90
	DefaultPerformanceScore = 100
)

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func roundScore(v float64) int {
	return clampScore(int(math.Round(v)))
}

// round2 keeps findings readable
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ratio returns 0 when the denominator is 0
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// sortRecommendations orders high before medium before low, keeping rule order
// inside a priority.
func sortRecommendations(recs []Recommendation) []Recommendation {
	if recs == nil {
		return []Recommendation{}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.rank() < recs[j].Priority.rank()
	})
	return recs
}
