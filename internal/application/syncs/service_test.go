package syncs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/sellerpulse/internal/domain/customers"
	"github.com/bryanwahyu/sellerpulse/internal/domain/health"
	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
	"github.com/bryanwahyu/sellerpulse/internal/domain/syncjobs"
	"github.com/bryanwahyu/sellerpulse/internal/infra/db/sqlstore"
)

func phaseNames(rep *Report) []string {
	out := make([]string, 0, len(rep.Phases))
	for _, p := range rep.Phases {
		out = append(out, p.Name)
	}
	return out
}

func addCustomer(t *testing.T, h *harness, c *customers.Customer) {
	t.Helper()
	require.NoError(t, h.svc.Customers.(*sqlstore.CustomerRepository).Create(context.Background(), c))
}

func TestMainSyncWithoutAdvertising(t *testing.T) {
	h := newHarness(t)
	h.retailer.inventory = []marketplace.InventoryItem{
		{EAN: "e1", Title: "Hose", Stock: 3, FulfilmentMethod: marketplace.FulfilmentFBB},
		{EAN: "e2", Title: "Rake", Stock: 0, FulfilmentMethod: marketplace.FulfilmentFBR},
	}
	h.retailer.orders = []marketplace.Order{
		{OrderID: "o1", PlacedAt: testNow.Add(-48 * time.Hour), Items: []marketplace.OrderItem{{EAN: "e1", Quantity: 2, FulfilmentMethod: marketplace.FulfilmentFBB}}},
		{OrderID: "o2", PlacedAt: testNow.Add(-24 * time.Hour), Cancelled: true, Items: []marketplace.OrderItem{{EAN: "e2", Quantity: 1}}},
	}
	h.retailer.openRet = []marketplace.Return{{ReturnID: "r1", EAN: "e1", Quantity: 1, Reason: "DEFECT"}}
	h.retailer.handledRet = []marketplace.Return{{ReturnID: "r2", EAN: "e1", Quantity: 1, Reason: "NOT_AS_DESCRIBED", Handled: true}}
	ctx := context.Background()

	rep, err := h.svc.Run(ctx, "cust-1", SyncMain)
	require.NoError(t, err)
	assert.Equal(t, []string{"export", "inventory", "orders", "advertising", "returns", "performance", "last_sync"}, phaseNames(rep))
	assert.Zero(t, rep.Failed())

	assert.Equal(t, PhaseOK, rep.Phase("export").Status)
	assert.Equal(t, "process proc-1", rep.Phase("export").Detail)

	adv := rep.Phase("advertising")
	assert.Equal(t, PhaseSkipped, adv.Status)
	assert.Contains(t, adv.Detail, "advertising")

	inv := rep.Phase("inventory")
	require.NotNil(t, inv.Score)
	assert.Equal(t, health.AnalyzeInventory(h.retailer.inventory).Score, *inv.Score)
	assert.Equal(t, 2, inv.Records)

	ord := rep.Phase("orders")
	require.NotNil(t, ord.Score)
	assert.Equal(t, health.AnalyzeOrders(h.retailer.orders).Score, *ord.Score)

	ret := rep.Phase("returns")
	assert.Equal(t, "1 open, 1 handled", ret.Detail)
	assert.Equal(t, 2, ret.Records)

	perf := rep.Phase("performance")
	require.NotNil(t, perf.Score)
	assert.Equal(t, 100, *perf.Score)

	cust, err := h.svc.Customers.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.NotNil(t, cust.LastSyncAt)
	assert.True(t, testNow.Equal(*cust.LastSyncAt))

	latest, err := h.svc.Analyses.LatestPerCategory(ctx, "cust-1")
	require.NoError(t, err)
	assert.Contains(t, latest, health.CategoryInventory)
	assert.Contains(t, latest, health.CategoryOrders)
	assert.Contains(t, latest, health.CategoryReturns)
	assert.Contains(t, latest, health.CategoryPerformance)
	assert.NotContains(t, latest, health.CategoryAdvertising)
	assert.NotContains(t, latest, health.CategoryContent)

	pending, err := h.svc.Jobs.Pending(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	assert.Equal(t, 1, h.metrics.seen["advertising/skipped"])
	assert.Equal(t, 1, h.metrics.seen["last_sync/ok"])
}

func TestMainSyncEnrichesInventoryFromPreviousOrders(t *testing.T) {
	h := newHarness(t)
	h.retailer.inventory = []marketplace.InventoryItem{{EAN: "e1", Stock: 4, FulfilmentMethod: marketplace.FulfilmentFBB}}
	h.retailer.orders = []marketplace.Order{
		{OrderID: "o1", PlacedAt: testNow.Add(-72 * time.Hour), Items: []marketplace.OrderItem{{EAN: "e1", Quantity: 3}}},
		{OrderID: "o2", PlacedAt: testNow.Add(-2 * time.Hour), Items: []marketplace.OrderItem{{EAN: "e1", Quantity: 3}}},
	}
	ctx := context.Background()

	_, err := h.svc.Run(ctx, "cust-1", SyncMain)
	require.NoError(t, err)
	snap, err := h.svc.Snapshots.Latest(ctx, "cust-1", health.DataInventory)
	require.NoError(t, err)
	var first []marketplace.InventoryItem
	require.NoError(t, json.Unmarshal(snap.RawPayload, &first))
	require.Len(t, first, 1)
	assert.Zero(t, first[0].DailySales)

	h.clock.Advance(time.Hour)
	_, err = h.svc.Run(ctx, "cust-1", SyncMain)
	require.NoError(t, err)
	snap, err = h.svc.Snapshots.Latest(ctx, "cust-1", health.DataInventory)
	require.NoError(t, err)
	var second []marketplace.InventoryItem
	require.NoError(t, json.Unmarshal(snap.RawPayload, &second))
	require.Len(t, second, 1)
	// six units over the three days spanned by the previous orders snapshot
	assert.InDelta(t, 2.0, second[0].DailySales, 1e-9)
}

func TestSalesWindowDays(t *testing.T) {
	asOf := testNow
	assert.Equal(t, 1, salesWindowDays(nil, asOf))
	assert.Equal(t, 1, salesWindowDays([]marketplace.Order{{PlacedAt: asOf.Add(-time.Hour)}}, asOf))
	assert.Equal(t, 3, salesWindowDays([]marketplace.Order{
		{PlacedAt: asOf.Add(-50 * time.Hour)},
		{PlacedAt: asOf.Add(-time.Hour)},
	}, asOf))
	assert.Equal(t, 1, salesWindowDays([]marketplace.Order{{PlacedAt: asOf.Add(time.Hour)}}, asOf))
}

func TestMainSyncPhaseFailureDoesNotStopRun(t *testing.T) {
	h := newHarness(t)
	h.retailer.ordersErr = errUpstream
	ctx := context.Background()

	rep, err := h.svc.Run(ctx, "cust-1", SyncMain)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed())
	ord := rep.Phase("orders")
	assert.Equal(t, PhaseFailed, ord.Status)
	assert.Contains(t, ord.Detail, "upstream unavailable")
	assert.Equal(t, PhaseOK, rep.Phase("returns").Status)
	assert.Equal(t, PhaseOK, rep.Phase("last_sync").Status)

	errs, err := h.svc.PhaseErrors.ListByCustomer(ctx, "cust-1", 0)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "orders", errs[0].Phase)
	assert.Equal(t, "main", errs[0].SyncType)
	assert.Equal(t, 1, h.metrics.seen["orders/failed"])
}

func TestMainSyncRecoversPanickingPhase(t *testing.T) {
	h := newHarness(t)
	h.retailer.panicOn = "ListInventory"

	rep, err := h.svc.Run(context.Background(), "cust-1", SyncMain)
	require.NoError(t, err)
	inv := rep.Phase("inventory")
	assert.Equal(t, PhaseFailed, inv.Status)
	assert.Contains(t, inv.Detail, "panic: inventory decoder exploded")
	assert.Equal(t, PhaseOK, rep.Phase("orders").Status)
	assert.Equal(t, 1, rep.Failed())
}

func TestIndicatorsPhase(t *testing.T) {
	t.Run("partial failure keeps the phase", func(t *testing.T) {
		h := newHarness(t)
		h.retailer.indicators = map[string]*marketplace.PerformanceIndicator{
			"FULFILMENT": {Name: "FULFILMENT", Conclusion: marketplace.ConclusionAtRisk, Score: 0.8, Norm: 0.95},
		}
		h.retailer.indicatorFn = func(name string) error {
			if name == "CANCELLATIONS" {
				return errUpstream
			}
			return nil
		}
		rep, err := h.svc.Run(context.Background(), "cust-1", SyncMain)
		require.NoError(t, err)
		perf := rep.Phase("performance")
		assert.Equal(t, PhaseOK, perf.Status)
		assert.Equal(t, 1, perf.Records)
		assert.Contains(t, perf.Detail, "CANCELLATIONS")
		require.NotNil(t, perf.Score)
		want := health.AnalyzeIndicators([]marketplace.PerformanceIndicator{*h.retailer.indicators["FULFILMENT"]})
		assert.Equal(t, want.Score, *perf.Score)
		assert.Equal(t, len(marketplace.IndicatorNames), h.retailer.count("GetPerformanceIndicator"))
	})

	t.Run("every fetch failing fails the phase", func(t *testing.T) {
		h := newHarness(t)
		h.retailer.indicatorFn = func(string) error { return errUpstream }
		rep, err := h.svc.Run(context.Background(), "cust-1", SyncMain)
		require.NoError(t, err)
		assert.Equal(t, PhaseFailed, rep.Phase("performance").Status)
	})
}

func TestReturnsPhaseFailsWhenEitherListFails(t *testing.T) {
	h := newHarness(t)
	h.retailer.returnsFn = func(handled bool) ([]marketplace.Return, error) {
		if handled {
			return nil, errUpstream
		}
		return []marketplace.Return{{ReturnID: "r1"}}, nil
	}
	rep, err := h.svc.Run(context.Background(), "cust-1", SyncMain)
	require.NoError(t, err)
	assert.Equal(t, PhaseFailed, rep.Phase("returns").Status)

	snap, err := h.svc.Snapshots.Latest(context.Background(), "cust-1", health.DataReturns)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestAdvertisingBackfillThenIncremental(t *testing.T) {
	h := newHarness(t)
	addCustomer(t, h, &customers.Customer{
		ID: "cust-ads", Name: "Ads BV", Active: true,
		RetailerClientID: "rid", RetailerClientSecret: "rs",
		AdvertiserClientID: "aid", AdvertiserClientSecret: "as",
	})
	h.conn.advertiser = &fakeAdvertiser{
		campaigns: []marketplace.Campaign{
			{CampaignID: "c1", Name: "Hoses", State: "ENABLED", DailyBudget: 10},
			{CampaignID: "c2", Name: "Rakes", State: "ENABLED", DailyBudget: 5},
		},
		groups: map[string][]marketplace.AdGroup{
			"c1": {{AdGroupID: "g1", CampaignID: "c1"}},
		},
		keywords: map[string][]marketplace.Keyword{
			"g1": {{KeywordID: "k1", AdGroupID: "g1", Text: "garden hose"}},
		},
		perf: map[string]*marketplace.PerformanceSubTotal{
			"c1": {Impressions: 1000, Clicks: 40, Conversions: 4, Spend: 20, Sales: 100},
			"k1": {Impressions: 500, Clicks: 20, Conversions: 2, Spend: 8, Sales: 50},
		},
	}
	ctx := context.Background()
	today := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	rep, err := h.svc.Run(ctx, "cust-ads", SyncMain)
	require.NoError(t, err)
	adv := rep.Phase("advertising")
	require.Equal(t, PhaseOK, adv.Status, adv.Detail)
	assert.Equal(t, 2, adv.Records)
	assert.Equal(t, "backfill "+today.AddDate(0, 0, -180).Format(time.DateOnly)+"..2026-03-04", adv.Detail)
	require.NotNil(t, adv.Score)

	windows := h.conn.advertiser.windows
	require.Len(t, windows, 2)
	assert.Equal(t, 180, windows[0].Days())
	assert.Equal(t, 180, windows[1].Days())

	rows, err := h.svc.Timeseries.LatestCampaignRows(ctx, "cust-ads")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c1", rows[0].CampaignID)
	assert.Equal(t, int64(40), rows[0].Clicks)
	kw, err := h.svc.Timeseries.LatestKeywordRows(ctx, "cust-ads")
	require.NoError(t, err)
	require.Len(t, kw, 1)
	assert.Equal(t, "k1", kw[0].KeywordID)

	h.clock.Advance(24 * time.Hour)
	rep, err = h.svc.Run(ctx, "cust-ads", SyncMain)
	require.NoError(t, err)
	adv = rep.Phase("advertising")
	assert.Equal(t, PhaseOK, adv.Status)
	assert.Empty(t, adv.Detail)
	windows = h.conn.advertiser.windows
	require.Len(t, windows, 4)
	assert.Equal(t, IncrementalDays, windows[2].Days())
	assert.True(t, today.AddDate(0, 0, 1).Equal(windows[2].To))
}

func TestAdvertisingBackfillSurvivesFailedListing(t *testing.T) {
	h := newHarness(t)
	addCustomer(t, h, &customers.Customer{
		ID: "cust-ads", Name: "Ads BV", Active: true,
		RetailerClientID: "rid", RetailerClientSecret: "rs",
		AdvertiserClientID: "aid", AdvertiserClientSecret: "as",
	})
	h.conn.advertiser = &fakeAdvertiser{
		campaigns: []marketplace.Campaign{{CampaignID: "c1", Name: "Hoses", State: "ENABLED"}},
		listErr:   errUpstream,
	}
	ctx := context.Background()

	rep, err := h.svc.Run(ctx, "cust-ads", SyncMain)
	require.NoError(t, err)
	assert.Equal(t, PhaseFailed, rep.Phase("advertising").Status)
	assert.Empty(t, h.conn.advertiser.windows)

	h.conn.advertiser.listErr = nil
	h.clock.Advance(24 * time.Hour)
	rep, err = h.svc.Run(ctx, "cust-ads", SyncMain)
	require.NoError(t, err)
	adv := rep.Phase("advertising")
	require.Equal(t, PhaseOK, adv.Status, adv.Detail)
	windows := h.conn.advertiser.windows
	require.NotEmpty(t, windows)
	assert.Equal(t, BackfillDays, windows[0].Days())
}

func TestAdvertisingCapsCampaigns(t *testing.T) {
	h := newHarness(t)
	addCustomer(t, h, &customers.Customer{
		ID: "cust-ads", Active: true, RetailerClientID: "rid", RetailerClientSecret: "rs",
		AdvertiserClientID: "aid", AdvertiserClientSecret: "as",
	})
	ad := &fakeAdvertiser{groups: map[string][]marketplace.AdGroup{}}
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("c%02d", i)
		ad.campaigns = append(ad.campaigns, marketplace.Campaign{CampaignID: id})
		ad.groups[id] = []marketplace.AdGroup{
			{AdGroupID: id + "-1", CampaignID: id},
			{AdGroupID: id + "-2", CampaignID: id},
			{AdGroupID: id + "-3", CampaignID: id},
		}
	}
	h.conn.advertiser = ad

	rep, err := h.svc.Run(context.Background(), "cust-ads", SyncMain)
	require.NoError(t, err)
	assert.Equal(t, MaxCampaigns, rep.Phase("advertising").Records)

	snap, err := h.svc.Snapshots.Latest(context.Background(), "cust-ads", health.DataAdvertising)
	require.NoError(t, err)
	var report marketplace.AdvertisingReport
	require.NoError(t, json.Unmarshal(snap.RawPayload, &report))
	assert.Len(t, report.Campaigns, MaxCampaigns)
	assert.Equal(t, MaxAdGroups, report.AdGroupCount)
	assert.True(t, report.Backfill)
}

const exportCSV = "offer-id,ean,title,price,fulfilment-method,stock\n" +
	"o1,8712345678901,Garden hose 20m with brass coupling and spray nozzle,19.99,FBB,12\n" +
	"o2,8712345678902,Rake,7.50,FBR,0\n"

func TestCompleteSyncProcessesFinishedExport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job, err := h.svc.Jobs.Submit(ctx, h.retailer, "cust-1", string(health.DataOffers))
	require.NoError(t, err)

	h.retailer.status = marketplace.ExportStatus{Status: marketplace.ExportSuccess, EntityID: "rep-9"}
	h.retailer.csv = []byte(exportCSV)
	h.retailer.insights = map[string]*marketplace.OfferInsight{
		"o1": {OfferID: "o1", Impressions: 900, Visits: 45, BuyBoxPercentage: 100},
	}

	rep, err := h.svc.Run(ctx, "cust-1", SyncComplete)
	require.NoError(t, err)
	assert.Equal(t, []string{"exports"}, phaseNames(rep))
	ex := rep.Phase("exports")
	require.Equal(t, PhaseOK, ex.Status, ex.Detail)
	assert.Equal(t, "1 completed, 0 failed, 0 pending", ex.Detail)
	assert.Equal(t, 1, ex.Records)

	offers, err := marketplace.ParseOffersCSV([]byte(exportCSV))
	require.NoError(t, err)
	offers[0].Insights = h.retailer.insights["o1"]
	want := health.AnalyzeContent(offers)
	require.NotNil(t, ex.Score)
	assert.Equal(t, want.Score, *ex.Score)

	assert.Equal(t, []string{"cust-1/offers/" + job.ExternalJobID + ".csv"}, h.archive.keys)
	snap, err := h.svc.Snapshots.Latest(ctx, "cust-1", health.DataOffers)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.RecordCount)
	assert.Equal(t, "http://minio/bucket/cust-1/offers/proc-1.csv", snap.PayloadURL)

	content, err := h.svc.Analyses.Latest(ctx, "cust-1", health.CategoryContent)
	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Equal(t, want.Score, content.Score)
	require.NotNil(t, content.SnapshotID)
	assert.Equal(t, snap.ID, *content.SnapshotID)

	pending, err := h.svc.Jobs.Pending(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCompleteSyncArchiveFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Jobs.Submit(ctx, h.retailer, "cust-1", string(health.DataOffers))
	require.NoError(t, err)
	h.retailer.status = marketplace.ExportStatus{Status: marketplace.ExportSuccess, EntityID: "rep-9"}
	h.retailer.csv = []byte(exportCSV)
	h.archive.err = errors.New("bucket gone")

	rep, err := h.svc.Run(ctx, "cust-1", SyncComplete)
	require.NoError(t, err)
	assert.Equal(t, PhaseOK, rep.Phase("exports").Status)

	snap, err := h.svc.Snapshots.Latest(ctx, "cust-1", health.DataOffers)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Empty(t, snap.PayloadURL)
}

func TestCompleteSyncDownloadErrorKeepsJobPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Jobs.Submit(ctx, h.retailer, "cust-1", string(health.DataOffers))
	require.NoError(t, err)
	h.retailer.status = marketplace.ExportStatus{Status: marketplace.ExportSuccess, EntityID: "rep-9"}
	h.retailer.downloadErr = errUpstream

	rep, err := h.svc.Run(ctx, "cust-1", SyncComplete)
	require.NoError(t, err)
	ex := rep.Phase("exports")
	assert.Equal(t, PhaseFailed, ex.Status)
	assert.Contains(t, ex.Detail, "upstream unavailable")

	pending, err := h.svc.Jobs.Pending(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, syncjobs.StatusPending, pending[0].Status)

	errs, err := h.svc.PhaseErrors.ListByCustomer(ctx, "cust-1", 10)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "exports", errs[0].Phase)
	assert.Equal(t, "complete", errs[0].SyncType)
}

func TestCompleteSyncCountsOutcomes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Jobs.Submit(ctx, h.retailer, "cust-1", string(health.DataOffers))
	require.NoError(t, err)
	h.retailer.status = marketplace.ExportStatus{Status: marketplace.ExportPending}

	rep, err := h.svc.Run(ctx, "cust-1", SyncComplete)
	require.NoError(t, err)
	ex := rep.Phase("exports")
	assert.Equal(t, PhaseOK, ex.Status)
	assert.Equal(t, "0 completed, 0 failed, 1 pending", ex.Detail)
	assert.Nil(t, ex.Score)

	h.retailer.status = marketplace.ExportStatus{Status: marketplace.ExportFailure, ErrorMessage: "export broke"}
	rep, err = h.svc.Run(ctx, "cust-1", SyncComplete)
	require.NoError(t, err)
	assert.Equal(t, "0 completed, 1 failed, 0 pending", rep.Phase("exports").Detail)

	rep, err = h.svc.Run(ctx, "cust-1", SyncComplete)
	require.NoError(t, err)
	assert.Equal(t, PhaseSkipped, rep.Phase("exports").Status)
	assert.Equal(t, "no pending exports", rep.Phase("exports").Detail)
}

func seedOffers(t *testing.T, h *harness, offers []marketplace.Offer) {
	t.Helper()
	_, err := h.svc.snapshot(context.Background(), "cust-1", health.DataOffers, offers, len(offers), "")
	require.NoError(t, err)
}

func TestExtendedSync(t *testing.T) {
	h := newHarness(t)
	seedOffers(t, h, []marketplace.Offer{
		{OfferID: "o1", EAN: "e1"},
		{OfferID: "o1b", EAN: "e1"},
		{OfferID: "o2", EAN: "e2"},
		{OfferID: "o3", EAN: "e3"},
	})
	h.retailer.failEAN = "e2"
	h.retailer.competing = map[string][]marketplace.CompetingOffer{
		"e1": {
			{OfferID: "o1", Price: 10, BestOffer: true},
			{OfferID: "x9", Price: 8},
		},
		"e3": {{OfferID: "x1", Price: 4, BestOffer: true}},
	}
	h.retailer.ranks = map[string][]marketplace.ProductRank{
		"e1": {
			{SearchTerm: "garden hose", Type: "SEARCH", Rank: 3, Impressions: 120},
			{SearchTerm: "hose", Type: "SEARCH", Rank: 11, Impressions: 40},
		},
	}
	h.retailer.catalog = map[string]*marketplace.CatalogProduct{
		"e1": {EAN: "e1", Title: "Garden hose", ImageCount: 3},
	}
	ctx := context.Background()

	rep, err := h.svc.Run(ctx, "cust-1", SyncExtended)
	require.NoError(t, err)
	assert.Equal(t, []string{"competitors", "rankings", "catalog_forecast"}, phaseNames(rep))
	assert.Zero(t, rep.Failed())

	comp := rep.Phase("competitors")
	assert.Equal(t, 2, comp.Records)
	assert.Equal(t, "3 products, 1 skipped", comp.Detail)

	snaps, err := h.svc.Timeseries.LatestCompetitors(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	byProduct := map[string]float64{}
	for _, s := range snaps {
		byProduct[s.ProductID] = s.LowestPrice
		switch s.ProductID {
		case "e1":
			assert.True(t, s.BuyBoxWinner)
			assert.Equal(t, 2, s.OfferCount)
			assert.InDelta(t, 4.5, s.AverageRating, 1e-9)
		case "e3":
			assert.False(t, s.BuyBoxWinner)
		}
	}
	assert.InDelta(t, 8.0, byProduct["e1"], 1e-9)

	assert.Equal(t, 2, rep.Phase("rankings").Records)
	ranks, err := h.svc.Timeseries.LatestRankings(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, ranks, 2)

	cf := rep.Phase("catalog_forecast")
	assert.Equal(t, 2, cf.Records)
	snap, err := h.svc.Snapshots.Latest(ctx, "cust-1", health.DataCatalogForecast)
	require.NoError(t, err)
	require.NotNil(t, snap)
	var entries []CatalogForecast
	require.NoError(t, json.Unmarshal(snap.RawPayload, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "e1", entries[0].EAN)
	require.NotNil(t, entries[0].Catalog)
	assert.Equal(t, 3, entries[0].Catalog.ImageCount)
	require.NotNil(t, entries[0].Forecast)
	assert.InDelta(t, 5.0, entries[0].Forecast.Max, 1e-9)
	assert.Nil(t, entries[1].Catalog)
}

func TestCatalogForecastKeepsProductWhenForecastFails(t *testing.T) {
	h := newHarness(t)
	seedOffers(t, h, []marketplace.Offer{
		{OfferID: "o1", EAN: "e1"},
		{OfferID: "o2", EAN: "e2"},
	})
	h.retailer.failOffer = "o1"
	h.retailer.catalog = map[string]*marketplace.CatalogProduct{
		"e1": {EAN: "e1", Title: "Garden hose", ImageCount: 2},
	}
	ctx := context.Background()

	rep, err := h.svc.Run(ctx, "cust-1", SyncExtended)
	require.NoError(t, err)
	cf := rep.Phase("catalog_forecast")
	assert.Equal(t, PhaseOK, cf.Status, cf.Detail)
	assert.Equal(t, 2, cf.Records)

	snap, err := h.svc.Snapshots.Latest(ctx, "cust-1", health.DataCatalogForecast)
	require.NoError(t, err)
	require.NotNil(t, snap)
	var entries []CatalogForecast
	require.NoError(t, json.Unmarshal(snap.RawPayload, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "e1", entries[0].EAN)
	require.NotNil(t, entries[0].Catalog)
	assert.Equal(t, 2, entries[0].Catalog.ImageCount)
	assert.Nil(t, entries[0].Forecast)
	require.NotNil(t, entries[1].Forecast)
}

func TestExtendedSyncWithoutOffersSkips(t *testing.T) {
	h := newHarness(t)
	rep, err := h.svc.Run(context.Background(), "cust-1", SyncExtended)
	require.NoError(t, err)
	for _, p := range rep.Phases {
		assert.Equal(t, PhaseSkipped, p.Status, p.Name)
		assert.Equal(t, "no offers snapshot", p.Detail)
	}
	assert.Zero(t, h.retailer.count("GetCompetingOffers"))
}

func TestRunRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Run(ctx, "cust-1", SyncType("weekly"))
	assert.ErrorIs(t, err, ErrInvalidSyncType)

	_, err = h.svc.Run(ctx, "nobody", SyncMain)
	assert.True(t, IsNotFound(err))
}

func TestParseSyncType(t *testing.T) {
	st, err := ParseSyncType("")
	require.NoError(t, err)
	assert.Equal(t, SyncMain, st)

	st, err = ParseSyncType("extended")
	require.NoError(t, err)
	assert.Equal(t, SyncExtended, st)

	_, err = ParseSyncType("MAIN")
	assert.ErrorIs(t, err, ErrInvalidSyncType)
}

func TestRunAll(t *testing.T) {
	h := newHarness(t)
	addCustomer(t, h, &customers.Customer{ID: "cust-2", Active: true, RetailerClientID: "r2", RetailerClientSecret: "s2"})
	addCustomer(t, h, &customers.Customer{ID: "cust-off", Active: false, RetailerClientID: "r3", RetailerClientSecret: "s3"})
	h.retailer.ordersErr = errUpstream
	ctx := context.Background()

	results, err := h.svc.RunAll(ctx, SyncMain)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cust-1", results[0].CustomerID)
	assert.Equal(t, "cust-2", results[1].CustomerID)
	for _, r := range results {
		assert.Equal(t, "ok", r.Status)
		assert.Equal(t, "1 phase(s) failed", r.Detail)
	}

	_, err = h.svc.RunAll(ctx, SyncType("hourly"))
	assert.ErrorIs(t, err, ErrInvalidSyncType)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	results, err = h.svc.RunAll(cancelled, SyncComplete)
	if err == nil {
		for _, r := range results {
			assert.Equal(t, "error", r.Status)
		}
	}
}
