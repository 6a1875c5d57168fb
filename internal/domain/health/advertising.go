package health

import (
	"fmt"
	"math"

	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
)

const (
	budgetDays            = 30
	budgetUtilizationHigh = 95.0
	wastedKeywordSpendMin = 10.0
)

// BudgetUtilization of a campaign over a 30-day budget, capped at 100
func BudgetUtilization(spend, dailyBudget float64) float64 {
	if dailyBudget <= 0 {
		return 0
	}
	return math.Min(100, spend/(dailyBudget*budgetDays)*100)
}

// AnalyzeAdvertising scores return on ad spend and budget pressure
func AnalyzeAdvertising(report marketplace.AdvertisingReport) Result {
	if len(report.Campaigns) == 0 {
		return Result{
			Score:    DefaultAdvertisingScore,
			Findings: map[string]any{"total_campaigns": 0},
			Recommendations: []Recommendation{{
				Priority: PriorityLow,
				Title:    "Start sponsored product campaigns",
				Action:   "Create a campaign for your best sellers",
				Impact:   "Advertising increases product visibility",
			}},
		}
	}

	var total marketplace.PerformanceSubTotal
	var active int
	var saturated []string
	for _, c := range report.Campaigns {
		if c.State == "" || c.State == "ENABLED" || c.State == "ACTIVE" {
			active++
		}
		if c.Metrics == nil {
			continue
		}
		total.Impressions += c.Metrics.Impressions
		total.Clicks += c.Metrics.Clicks
		total.Conversions += c.Metrics.Conversions
		total.Spend += c.Metrics.Spend
		total.Sales += c.Metrics.Sales
		if BudgetUtilization(c.Metrics.Spend, c.DailyBudget) > budgetUtilizationHigh {
			saturated = append(saturated, c.Name)
		}
	}

	var wasted float64
	var wastedKeywords []string
	for _, k := range report.Keywords {
		if k.Metrics == nil {
			continue
		}
		if k.Metrics.Conversions == 0 && k.Metrics.Spend >= wastedKeywordSpendMin {
			wasted += k.Metrics.Spend
			wastedKeywords = append(wastedKeywords, k.Text)
		}
	}

	roas := ratio(total.Sales, total.Spend)
	acos := ratio(total.Spend, total.Sales) * 100
	ctr := ratio(float64(total.Clicks), float64(total.Impressions)) * 100
	cpc := ratio(total.Spend, float64(total.Clicks))

	score := 70
	var recs []Recommendation
	switch {
	case roas >= 5:
		score += 20
	case roas >= 3:
		score += 10
	case roas < 1 && total.Spend > 0:
		score -= 20
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Title:    "Campaigns are losing money",
			Action:   fmt.Sprintf("ROAS is %.2f; pause or lower bids on campaigns with ACOS above 100%%", roas),
			Impact:   "Every euro spent returns less than a euro in sales",
		})
	default:
		if total.Spend > 0 {
			recs = append(recs, Recommendation{
				Priority: PriorityMedium,
				Title:    "Improve advertising efficiency",
				Action:   fmt.Sprintf("ROAS is %.2f; lower bids on keywords with high spend and few conversions", roas),
				Impact:   "A ROAS of 3 or more makes campaigns clearly profitable",
			})
		}
	}
	if len(saturated) > 0 {
		score -= 5
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Title:    "Raise budgets on capped campaigns",
			Action:   fmt.Sprintf("%d campaigns use more than %.0f%% of their budget", len(saturated), budgetUtilizationHigh),
			Impact:   "Campaigns stop showing when the budget runs out",
		})
	}
	if len(wastedKeywords) > 0 {
		recs = append(recs, Recommendation{
			Priority: PriorityLow,
			Title:    "Remove keywords without conversions",
			Action:   fmt.Sprintf("%d keywords spent %.2f without a single conversion; pause them or add negatives", len(wastedKeywords), wasted),
			Impact:   "Frees budget for converting keywords",
		})
	}

	return Result{
		Score: clampScore(score),
		Findings: map[string]any{
			"total_campaigns":      len(report.Campaigns),
			"active_campaigns":     active,
			"ad_groups":            report.AdGroupCount,
			"keywords":             len(report.Keywords),
			"window_from":          report.Window.From.Format("2006-01-02"),
			"window_to":            report.Window.To.Format("2006-01-02"),
			"backfill":             report.Backfill,
			"impressions":          total.Impressions,
			"clicks":               total.Clicks,
			"conversions":          total.Conversions,
			"spend":                round2(total.Spend),
			"sales":                round2(total.Sales),
			"roas":                 round2(roas),
			"acos":                 round2(acos),
			"ctr":                  round2(ctr),
			"cpc":                  round2(cpc),
			"budget_capped":        saturated,
			"wasted_keyword_spend": round2(wasted),
		},
		Recommendations: sortRecommendations(recs),
	}
}
