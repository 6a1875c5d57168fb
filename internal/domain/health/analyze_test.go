package health

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
)

func title(n int) string {
	return strings.Repeat("a", n)
}

func TestTitleScoreBoundaries(t *testing.T) {
	cases := map[int]int{
		0:   0,
		1:   65,
		149: 65,
		150: 100,
		175: 100,
		176: 80,
		400: 80,
	}
	for n, want := range cases {
		assert.Equal(t, want, TitleScore(title(n)), "length %d", n)
	}
	assert.Equal(t, 0, TitleScore("   "), "whitespace only counts as missing")
	assert.Equal(t, 100, TitleScore(strings.Repeat("é", 150)), "length counts characters, not bytes")
}

func TestAnalyzeContent(t *testing.T) {
	offers := []marketplace.Offer{
		{OfferID: "1", Title: title(160), Price: 10},
		{OfferID: "2", Title: title(100), Price: 10},
		{OfferID: "3", Title: "", Price: 0},
		{OfferID: "4", Title: title(180), Price: 5},
	}
	res := AnalyzeContent(offers)

	// mean title (100+65+0+80)/4 = 61.25; priced 3/4
	// 0.7*61.25 + 0.3*75 = 42.875 + 22.5 = 65.375
	assert.Equal(t, 65, res.Score)
	assert.Equal(t, 1, res.Findings["missing_titles"])
	assert.Equal(t, 3, res.Findings["priced_offers"])
	require.NotEmpty(t, res.Recommendations)
	assert.Equal(t, PriorityHigh, res.Recommendations[0].Priority)
	assert.Equal(t, PriorityLow, res.Recommendations[len(res.Recommendations)-1].Priority)
}

func TestAnalyzeContentRestrictedKeyword(t *testing.T) {
	offers := []marketplace.Offer{
		{OfferID: "a", Title: "Bamboo toothbrush, ECO-Friendly and soft", Price: 3},
		{OfferID: "b", Title: "Plain toothbrush", Price: 3},
	}
	res := AnalyzeContent(offers)
	assert.Equal(t, 1, res.Findings["restricted_keywords"])
	assert.Equal(t, []string{"a"}, res.Findings["restricted_offer_ids"])

	var found bool
	for _, r := range res.Recommendations {
		if r.Title == "Remove unsupported sustainability claims" {
			found = true
			assert.Equal(t, PriorityHigh, r.Priority)
		}
	}
	assert.True(t, found)
}

func TestAnalyzeContentEmpty(t *testing.T) {
	res := AnalyzeContent(nil)
	assert.Equal(t, DefaultContentScore, res.Score)
}

func TestAnalyzeInventorySelfFulfilled(t *testing.T) {
	unknownZero := []marketplace.InventoryItem{
		{EAN: "1", Stock: 0},
		{EAN: "2", Stock: 0},
		{EAN: "3", Stock: 0},
	}
	res := AnalyzeInventory(unknownZero)
	assert.Equal(t, SelfFulfilledScore, res.Score)
	assert.Equal(t, false, res.Findings["stock_tracked"])

	allFBR := []marketplace.InventoryItem{
		{EAN: "1", Stock: 0, FulfilmentMethod: marketplace.FulfilmentFBR},
		{EAN: "2", Stock: 3, FulfilmentMethod: marketplace.FulfilmentFBR},
	}
	assert.Equal(t, SelfFulfilledScore, AnalyzeInventory(allFBR).Score)
}

func TestAnalyzeInventoryBuckets(t *testing.T) {
	items := []marketplace.InventoryItem{
		{EAN: "out", Stock: 0, FulfilmentMethod: marketplace.FulfilmentFBB},
		{EAN: "crit", Stock: 7, FulfilmentMethod: marketplace.FulfilmentFBB},
		{EAN: "low", Stock: 8, FulfilmentMethod: marketplace.FulfilmentFBB},
		{EAN: "low2", Stock: 15, FulfilmentMethod: marketplace.FulfilmentFBB},
		{EAN: "ok", Stock: 180, FulfilmentMethod: marketplace.FulfilmentFBB},
		{EAN: "over", Stock: 181, FulfilmentMethod: marketplace.FulfilmentFBB},
		{EAN: "own", Stock: 0, FulfilmentMethod: marketplace.FulfilmentFBR},
	}
	res := AnalyzeInventory(items)
	assert.Equal(t, 1, res.Findings["out_of_stock"])
	assert.Equal(t, 1, res.Findings["critical_low"])
	assert.Equal(t, 2, res.Findings["low_stock"])
	assert.Equal(t, 1, res.Findings["overstock"])
	assert.Equal(t, 6, res.Findings["platform_items"])
	// (6-1-1)/6 = 66.67
	assert.Equal(t, 67, res.Score)
}

func TestAnalyzeInventoryWorkedExample(t *testing.T) {
	items := []marketplace.InventoryItem{
		{Stock: 0, FulfilmentMethod: marketplace.FulfilmentFBB},
		{Stock: 5, FulfilmentMethod: marketplace.FulfilmentFBB},
		{Stock: 200, FulfilmentMethod: marketplace.FulfilmentFBB},
	}
	res := AnalyzeInventory(items)
	assert.Equal(t, 1, res.Findings["out_of_stock"])
	assert.Equal(t, 0, res.Findings["low_stock"])
	assert.Equal(t, 1, res.Findings["overstock"])
	// stock 5 at one unit per day is within the critical (0,7] band
	assert.Equal(t, 1, res.Findings["critical_low"])
	assert.Equal(t, 33, res.Score)

	// with a known slow sales rate the same stock lasts 20 days and is healthy
	items[1].DailySales = 0.25
	items[2].DailySales = 0.25
	res = AnalyzeInventory(items)
	assert.Equal(t, 0, res.Findings["critical_low"])
	assert.Equal(t, 1, res.Findings["overstock"])
	assert.Equal(t, 67, res.Score)
}

func TestAnalyzeInventoryOverstockIsLowPriorityOnly(t *testing.T) {
	items := []marketplace.InventoryItem{
		{EAN: "a", Stock: 500, FulfilmentMethod: marketplace.FulfilmentFBB},
	}
	res := AnalyzeInventory(items)
	assert.Equal(t, 100, res.Score)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, PriorityLow, res.Recommendations[0].Priority)
}

func orders(total, cancelled int, method marketplace.FulfilmentMethod) []marketplace.Order {
	out := make([]marketplace.Order, 0, total)
	for i := 0; i < total; i++ {
		out = append(out, marketplace.Order{
			OrderID: title(i + 1),
			Items: []marketplace.OrderItem{{
				EAN:                 "ean",
				Quantity:            1,
				FulfilmentMethod:    method,
				CancellationRequest: i < cancelled,
			}},
		})
	}
	return out
}

func TestAnalyzeOrdersCancellationBands(t *testing.T) {
	assert.Equal(t, 100, AnalyzeOrders(orders(100, 2, marketplace.FulfilmentFBB)).Score)
	assert.Equal(t, 85, AnalyzeOrders(orders(100, 3, marketplace.FulfilmentFBB)).Score)
	assert.Equal(t, 85, AnalyzeOrders(orders(100, 5, marketplace.FulfilmentFBB)).Score)
	assert.Equal(t, 70, AnalyzeOrders(orders(100, 6, marketplace.FulfilmentFBB)).Score)
}

func TestAnalyzeOrdersSelfFulfilledWithCancellations(t *testing.T) {
	res := AnalyzeOrders(orders(20, 2, marketplace.FulfilmentFBR))
	assert.Equal(t, 10.0, res.Findings["cancel_rate"])
	// -30 for a 10% cancel rate, -10 for no platform-fulfilled orders among >10
	assert.Equal(t, 60, res.Score)
	require.NotEmpty(t, res.Recommendations)
	assert.Equal(t, PriorityHigh, res.Recommendations[0].Priority)
	assert.Equal(t, "Reduce cancellation rate", res.Recommendations[0].Title)

	// the fulfilment penalty needs more than 10 orders
	small := AnalyzeOrders(orders(10, 1, marketplace.FulfilmentFBR))
	assert.Equal(t, 70, small.Score)
}

func TestAnalyzeOrdersEmpty(t *testing.T) {
	assert.Equal(t, DefaultOrdersScore, AnalyzeOrders(nil).Score)
}

func TestDailySalesByEAN(t *testing.T) {
	o := []marketplace.Order{
		{Items: []marketplace.OrderItem{{EAN: "a", Quantity: 3}, {EAN: "b", Quantity: 1}}},
		{Items: []marketplace.OrderItem{{EAN: "a", Quantity: 1}}},
		{Cancelled: true, Items: []marketplace.OrderItem{{EAN: "a", Quantity: 10}}},
	}
	rates := DailySalesByEAN(o, 4)
	assert.Equal(t, 1.0, rates["a"])
	assert.Equal(t, 0.25, rates["b"])
}

func campaign(name string, budget float64, spend, sales float64) marketplace.CampaignStats {
	return marketplace.CampaignStats{
		Campaign: marketplace.Campaign{CampaignID: name, Name: name, DailyBudget: budget},
		Metrics:  &marketplace.PerformanceSubTotal{Spend: spend, Sales: sales, Impressions: 1000, Clicks: 10},
	}
}

func TestAnalyzeAdvertisingROASBands(t *testing.T) {
	cases := []struct {
		spend, sales float64
		want         int
	}{
		{100, 500, 90},
		{100, 499, 80},
		{100, 300, 80},
		{100, 299, 70},
		{100, 100, 70},
		{100, 99, 50},
		{0, 0, 70},
	}
	for _, c := range cases {
		r := marketplace.AdvertisingReport{Campaigns: []marketplace.CampaignStats{campaign("c", 1000, c.spend, c.sales)}}
		assert.Equal(t, c.want, AnalyzeAdvertising(r).Score, "spend %v sales %v", c.spend, c.sales)
	}
}

func TestAnalyzeAdvertisingBudgetUtilization(t *testing.T) {
	assert.Equal(t, 50.0, BudgetUtilization(150, 10))
	assert.Equal(t, 100.0, BudgetUtilization(900, 10))
	assert.Equal(t, 0.0, BudgetUtilization(100, 0))

	r := marketplace.AdvertisingReport{Campaigns: []marketplace.CampaignStats{
		campaign("capped", 10, 290, 1500),
		campaign("missing", 10, 0, 0),
	}}
	r.Campaigns[1].Metrics = nil
	res := AnalyzeAdvertising(r)
	// ROAS 5.17 -> +20, utilisation 96.7% -> -5
	assert.Equal(t, 85, res.Score)
	assert.Equal(t, []string{"capped"}, res.Findings["budget_capped"])
}

func TestAnalyzeAdvertisingEmpty(t *testing.T) {
	assert.Equal(t, DefaultAdvertisingScore, AnalyzeAdvertising(marketplace.AdvertisingReport{}).Score)
}

func TestAnalyzeReturns(t *testing.T) {
	mk := func(open, handled int) []marketplace.Return {
		var out []marketplace.Return
		for i := 0; i < open; i++ {
			out = append(out, marketplace.Return{Reason: "damaged"})
		}
		for i := 0; i < handled; i++ {
			out = append(out, marketplace.Return{Reason: "other", Handled: true})
		}
		return out
	}
	assert.Equal(t, 90, AnalyzeReturns(nil).Score)
	assert.Equal(t, 90, AnalyzeReturns(mk(20, 5)).Score)
	assert.Equal(t, 80, AnalyzeReturns(mk(21, 0)).Score)
	assert.Equal(t, 80, AnalyzeReturns(mk(50, 0)).Score)
	res := AnalyzeReturns(mk(51, 3))
	assert.Equal(t, 70, res.Score)
	assert.Equal(t, 51, res.Findings["open_returns"])
	assert.Equal(t, 3, res.Findings["handled_returns"])
	require.NotEmpty(t, res.Recommendations)
	assert.Equal(t, PriorityHigh, res.Recommendations[0].Priority)
}

func TestAnalyzeIndicators(t *testing.T) {
	ind := []marketplace.PerformanceIndicator{
		{Name: "CANCELLATIONS", Conclusion: marketplace.ConclusionGood},
		{Name: "FULFILMENT", Conclusion: marketplace.ConclusionNeedsImprovement},
		{Name: "TRACKING", Conclusion: marketplace.ConclusionFair},
		{Name: "REVIEWS", Conclusion: marketplace.ConclusionAtRisk},
	}
	res := AnalyzeIndicators(ind)
	assert.Equal(t, 100-30-25, res.Score)
	require.Len(t, res.Recommendations, 3)
	assert.Equal(t, PriorityHigh, res.Recommendations[0].Priority)

	var many []marketplace.PerformanceIndicator
	for i := 0; i < 5; i++ {
		many = append(many, marketplace.PerformanceIndicator{Name: title(i + 1), Conclusion: marketplace.ConclusionAtRisk})
	}
	assert.Equal(t, 0, AnalyzeIndicators(many).Score)
	assert.Equal(t, DefaultPerformanceScore, AnalyzeIndicators(nil).Score)
}

func TestAnalyzersAreDeterministic(t *testing.T) {
	rets := []marketplace.Return{
		{Reason: "b"}, {Reason: "a"}, {Reason: "b"}, {Reason: "a"}, {Reason: "c"},
	}
	first := AnalyzeReturns(rets)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, AnalyzeReturns(rets))
	}
}

func TestScoresStayInRange(t *testing.T) {
	results := []Result{
		AnalyzeContent([]marketplace.Offer{{Title: title(160), Price: 1}}),
		AnalyzeInventory([]marketplace.InventoryItem{{Stock: 0, FulfilmentMethod: marketplace.FulfilmentFBB}}),
		AnalyzeOrders(orders(50, 50, marketplace.FulfilmentFBR)),
		AnalyzeAdvertising(marketplace.AdvertisingReport{Campaigns: []marketplace.CampaignStats{campaign("x", 1, 1000, 0)}}),
		AnalyzeReturns(make([]marketplace.Return, 200)),
	}
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0)
		assert.LessOrEqual(t, r.Score, 100)
	}
}
