package health

import (
	"fmt"

	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
)

func needsImprovement(conclusion string) bool {
	return conclusion == marketplace.ConclusionNeedsImprovement || conclusion == marketplace.ConclusionFair
}

func atRisk(conclusion string) bool {
	return conclusion == marketplace.ConclusionAtRisk || conclusion == marketplace.ConclusionPoor
}

// AnalyzeIndicators scores the weekly performance indicators
func AnalyzeIndicators(indicators []marketplace.PerformanceIndicator) Result {
	if len(indicators) == 0 {
		return Result{
			Score:           DefaultPerformanceScore,
			Findings:        map[string]any{"total_indicators": 0, "status": "no_data"},
			Recommendations: []Recommendation{},
		}
	}

	var ni, risk []string
	conclusions := map[string]string{}
	var recs []Recommendation
	for _, ind := range indicators {
		conclusions[ind.Name] = ind.Conclusion
		switch {
		case atRisk(ind.Conclusion):
			risk = append(risk, ind.Name)
			recs = append(recs, Recommendation{
				Priority: PriorityHigh,
				Title:    fmt.Sprintf("%s is at risk", ind.Name),
				Action:   fmt.Sprintf("Score %.2f misses the norm of %.2f; act this week", ind.Score, ind.Norm),
				Impact:   "Indicators at risk can lead to account suspension",
			})
		case needsImprovement(ind.Conclusion):
			ni = append(ni, ind.Name)
			recs = append(recs, Recommendation{
				Priority: PriorityMedium,
				Title:    fmt.Sprintf("Improve %s", ind.Name),
				Action:   fmt.Sprintf("Score %.2f against a norm of %.2f", ind.Score, ind.Norm),
				Impact:   "Keeps the indicator from sliding to at-risk",
			})
		}
	}

	score := 100 - 15*len(ni) - 25*len(risk)
	if score < 0 {
		score = 0
	}
	return Result{
		Score: score,
		Findings: map[string]any{
			"total_indicators":  len(indicators),
			"needs_improvement": ni,
			"at_risk":           risk,
			"conclusions":       conclusions,
		},
		Recommendations: sortRecommendations(recs),
	}
}
