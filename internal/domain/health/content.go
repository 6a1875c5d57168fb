package health

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
)

// Title length bounds, inclusive
const (
	TitleMinOptimal = 150
	TitleMaxOptimal = 175
)

// RestrictedKeywords are sustainability claims the marketplace does not allow in
// titles without certification.
var RestrictedKeywords = []string{
	"eco-friendly",
	"eco friendly",
	"environmentally friendly",
	"environment friendly",
	"sustainable",
	"biodegradable",
	"climate neutral",
	"climate-neutral",
	"co2 neutral",
	"co2-neutral",
	"carbon neutral",
	"plastic free",
}

// TitleScore buckets a title by length in characters
func TitleScore(title string) int {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	switch {
	case n == 0:
		return 0
	case n < TitleMinOptimal:
		return 65
	case n <= TitleMaxOptimal:
		return 100
	default:
		return 80
	}
}

// RestrictedKeyword returns the first restricted keyword found in the title, or "".
func RestrictedKeyword(title string) string {
	lower := strings.ToLower(title)
	for _, kw := range RestrictedKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// AnalyzeContent scores listing content quality
func AnalyzeContent(offers []marketplace.Offer) Result {
	if len(offers) == 0 {
		return Result{
			Score:    DefaultContentScore,
			Findings: map[string]any{"total_offers": 0},
			Recommendations: []Recommendation{{
				Priority: PriorityMedium,
				Title:    "No offers found",
				Action:   "Check that the offers export completed and the account has active listings",
				Impact:   "Content cannot be scored without listings",
			}},
		}
	}

	var (
		titleTotal                            int
		short, optimal, long, missing, priced int
		restricted                            []string
		visits, impressions                   int64
		buyBoxSum                             float64
		withInsights                          int
	)
	for _, o := range offers {
		ts := TitleScore(o.Title)
		titleTotal += ts
		switch ts {
		case 0:
			missing++
		case 65:
			short++
		case 100:
			optimal++
		case 80:
			long++
		}
		if o.Price > 0 {
			priced++
		}
		if kw := RestrictedKeyword(o.Title); kw != "" {
			id := o.OfferID
			if id == "" {
				id = o.EAN
			}
			restricted = append(restricted, id)
		}
		if o.Insights != nil {
			withInsights++
			visits += o.Insights.Visits
			impressions += o.Insights.Impressions
			buyBoxSum += o.Insights.BuyBoxPercentage
		}
	}

	total := float64(len(offers))
	meanTitle := float64(titleTotal) / total
	pricedFrac := float64(priced) / total
	score := roundScore(0.7*meanTitle + 0.3*100*pricedFrac)

	findings := map[string]any{
		"total_offers":         len(offers),
		"avg_title_score":      round2(meanTitle),
		"optimal_titles":       optimal,
		"short_titles":         short,
		"long_titles":          long,
		"missing_titles":       missing,
		"priced_offers":        priced,
		"restricted_keywords":  len(restricted),
		"restricted_offer_ids": restricted,
	}
	if withInsights > 0 {
		findings["total_visits"] = visits
		findings["total_impressions"] = impressions
		findings["avg_buy_box_pct"] = round2(buyBoxSum / float64(withInsights))
	}

	var recs []Recommendation
	if missing > 0 {
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Title:    "Add missing product titles",
			Action:   fmt.Sprintf("%d offers have no title; write a descriptive title for each", missing),
			Impact:   "Listings without titles are hard to find in search",
		})
	}
	if len(restricted) > 0 {
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Title:    "Remove unsupported sustainability claims",
			Action:   fmt.Sprintf("%d titles contain restricted claims such as \"eco-friendly\"; remove them or provide certification", len(restricted)),
			Impact:   "Restricted claims can get listings blocked",
		})
	}
	if priced < len(offers) {
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Title:    "Set prices on all offers",
			Action:   fmt.Sprintf("%d offers have no price", len(offers)-priced),
			Impact:   "Offers without a price are not purchasable",
		})
	}
	if short > 0 {
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Title:    "Lengthen short titles",
			Action:   fmt.Sprintf("%d titles are under %d characters; add brand, model, key attributes", short, TitleMinOptimal),
			Impact:   "Titles of 150-175 characters rank best",
		})
	}
	if long > 0 {
		recs = append(recs, Recommendation{
			Priority: PriorityLow,
			Title:    "Shorten long titles",
			Action:   fmt.Sprintf("%d titles exceed %d characters", long, TitleMaxOptimal),
			Impact:   "Long titles are truncated in search results",
		})
	}

	return Result{Score: score, Findings: findings, Recommendations: sortRecommendations(recs)}
}
