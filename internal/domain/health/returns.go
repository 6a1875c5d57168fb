package health

import (
	"fmt"
	"sort"

	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
)

const (
	openReturnsHigh    = 50
	openReturnsWarning = 20
	topReasonMinTotal  = 5
	topReasonShare     = 0.3
)

type reasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// AnalyzeReturns scores the open return backlog
func AnalyzeReturns(returns []marketplace.Return) Result {
	var open, handled int
	counts := map[string]int{}
	for _, r := range returns {
		if r.Handled {
			handled++
		} else {
			open++
		}
		reason := r.Reason
		if reason == "" {
			reason = "unknown"
		}
		counts[reason]++
	}

	reasons := make([]reasonCount, 0, len(counts))
	for k, v := range counts {
		reasons = append(reasons, reasonCount{Reason: k, Count: v})
	}
	sort.Slice(reasons, func(i, j int) bool {
		if reasons[i].Count != reasons[j].Count {
			return reasons[i].Count > reasons[j].Count
		}
		return reasons[i].Reason < reasons[j].Reason
	})
	if len(reasons) > 5 {
		reasons = reasons[:5]
	}

	score := DefaultReturnsScore
	var recs []Recommendation
	switch {
	case open > openReturnsHigh:
		score -= 20
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Title:    "Process open returns",
			Action:   fmt.Sprintf("%d returns are still open; handle them to avoid automatic refunds", open),
			Impact:   "Slow return handling hurts customer reviews",
		})
	case open > openReturnsWarning:
		score -= 10
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Title:    "Reduce open return backlog",
			Action:   fmt.Sprintf("%d returns are still open", open),
			Impact:   "Keeps return handling within the norm",
		})
	}
	total := len(returns)
	if total >= topReasonMinTotal && len(reasons) > 0 &&
		float64(reasons[0].Count)/float64(total) > topReasonShare && reasons[0].Reason != "unknown" {
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Title:    "Address the main return reason",
			Action:   fmt.Sprintf("%q accounts for %d of %d returns; check product content and packaging", reasons[0].Reason, reasons[0].Count, total),
			Impact:   "Fewer returns protect margin",
		})
	}

	return Result{
		Score: clampScore(score),
		Findings: map[string]any{
			"total_returns":   total,
			"open_returns":    open,
			"handled_returns": handled,
			"top_reasons":     reasons,
		},
		Recommendations: sortRecommendations(recs),
	}
}
