package syncs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/sellerpulse/internal/domain/health"
	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
	"github.com/bryanwahyu/sellerpulse/internal/domain/timeseries"
)

// Advertising fetch caps per run
const (
	MaxCampaigns = 20
	MaxAdGroups  = 40
)

func (s *Service) mainPhases() []phase {
	return []phase{
		{name: "export", run: s.phaseExport},
		{name: "inventory", run: s.phaseInventory},
		{name: "orders", run: s.phaseOrders},
		{name: "advertising", run: s.phaseAdvertising},
		{name: "returns", run: s.phaseReturns},
		{name: "performance", run: s.phaseIndicators},
		{name: "last_sync", run: s.phaseTouch},
	}
}

func (s *Service) phaseExport(ctx context.Context, st *runState) (PhaseResult, error) {
	r, err := st.retailerClient(ctx, s.Connector)
	if err != nil {
		return PhaseResult{}, err
	}
	job, err := s.Jobs.Submit(ctx, r, st.customer.ID, string(health.DataOffers))
	if err != nil {
		return PhaseResult{}, err
	}
	return PhaseResult{Detail: "process " + job.ExternalJobID}, nil
}

func (s *Service) phaseInventory(ctx context.Context, st *runState) (PhaseResult, error) {
	r, err := st.retailerClient(ctx, s.Connector)
	if err != nil {
		return PhaseResult{}, err
	}
	items, err := r.ListInventory(ctx)
	if err != nil {
		return PhaseResult{}, err
	}
	if sales := s.recentDailySales(ctx, st.customer.ID); len(sales) > 0 {
		for i := range items {
			items[i].DailySales = sales[items[i].EAN]
		}
	}
	if items == nil {
		items = []marketplace.InventoryItem{}
	}
	return s.persistScored(ctx, st.customer.ID, health.DataInventory, items, len(items),
		health.CategoryInventory, health.AnalyzeInventory(items))
}

// recentDailySales derives per-EAN sales from the last orders snapshot. Any
// problem reading it just means no sales data.
func (s *Service) recentDailySales(ctx context.Context, customerID string) map[string]float64 {
	snap, err := s.Snapshots.Latest(ctx, customerID, health.DataOrders)
	if err != nil || snap == nil {
		return nil
	}
	var orders []marketplace.Order
	if err := json.Unmarshal(snap.RawPayload, &orders); err != nil {
		log.Debug().Err(err).Str("customer_id", customerID).Msg("orders snapshot unreadable")
		return nil
	}
	return health.DailySalesByEAN(orders, salesWindowDays(orders, snap.CreatedAt))
}

// salesWindowDays spans from the oldest order to asOf, at least one day
func salesWindowDays(orders []marketplace.Order, asOf time.Time) int {
	var oldest time.Time
	for _, o := range orders {
		if o.PlacedAt.IsZero() {
			continue
		}
		if oldest.IsZero() || o.PlacedAt.Before(oldest) {
			oldest = o.PlacedAt
		}
	}
	if oldest.IsZero() || !asOf.After(oldest) {
		return 1
	}
	days := int(math.Ceil(asOf.Sub(oldest).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}

func (s *Service) phaseOrders(ctx context.Context, st *runState) (PhaseResult, error) {
	r, err := st.retailerClient(ctx, s.Connector)
	if err != nil {
		return PhaseResult{}, err
	}
	orders, err := r.ListOrders(ctx)
	if err != nil {
		return PhaseResult{}, err
	}
	if orders == nil {
		orders = []marketplace.Order{}
	}
	return s.persistScored(ctx, st.customer.ID, health.DataOrders, orders, len(orders),
		health.CategoryOrders, health.AnalyzeOrders(orders))
}

func (s *Service) phaseAdvertising(ctx context.Context, st *runState) (PhaseResult, error) {
	if !st.customer.HasAdvertising() {
		return PhaseResult{}, skip("advertising credentials not configured")
	}
	ad, err := s.Connector.Advertiser(ctx, st.customer)
	if err != nil {
		return PhaseResult{}, err
	}

	campaigns, err := ad.ListCampaigns(ctx)
	if err != nil {
		return PhaseResult{}, err
	}
	if len(campaigns) > MaxCampaigns {
		campaigns = campaigns[:MaxCampaigns]
	}

	var groups []marketplace.AdGroup
	for _, c := range campaigns {
		if len(groups) >= MaxAdGroups {
			break
		}
		gs, err := ad.ListAdGroups(ctx, c.CampaignID)
		if err != nil {
			return PhaseResult{}, err
		}
		groups = append(groups, gs...)
	}
	if len(groups) > MaxAdGroups {
		groups = groups[:MaxAdGroups]
	}

	var keywords []marketplace.Keyword
	for _, g := range groups {
		ks, err := ad.ListKeywords(ctx, g.AdGroupID)
		if err != nil {
			return PhaseResult{}, err
		}
		keywords = append(keywords, ks...)
	}

	w, backfill, err := s.Backfill.Plan(ctx, st.customer.ID)
	if err != nil {
		return PhaseResult{}, fmt.Errorf("plan window: %w", err)
	}

	campaignIDs := make([]string, 0, len(campaigns))
	for _, c := range campaigns {
		campaignIDs = append(campaignIDs, c.CampaignID)
	}
	cperf, err := ad.CampaignPerformance(ctx, campaignIDs, w)
	if err != nil {
		return PhaseResult{}, err
	}
	keywordIDs := make([]string, 0, len(keywords))
	for _, k := range keywords {
		keywordIDs = append(keywordIDs, k.KeywordID)
	}
	kperf, err := ad.KeywordPerformance(ctx, keywordIDs, w)
	if err != nil {
		return PhaseResult{}, err
	}

	report := buildAdvertisingReport(w, backfill, campaigns, len(groups), keywords, cperf, kperf)
	res, err := s.persistScored(ctx, st.customer.ID, health.DataAdvertising, report, len(report.Campaigns),
		health.CategoryAdvertising, health.AnalyzeAdvertising(report))
	if err != nil {
		return res, err
	}

	now := s.Clock.Now().UTC()
	if err := s.Timeseries.AppendCampaignRows(ctx, campaignRows(st.customer.ID, report, now)); err != nil {
		return res, err
	}
	if err := s.Timeseries.AppendKeywordRows(ctx, keywordRows(st.customer.ID, report, now)); err != nil {
		return res, err
	}
	if backfill {
		res.Detail = fmt.Sprintf("backfill %s..%s", w.From.Format(time.DateOnly), w.To.Format(time.DateOnly))
	}
	return res, nil
}

func buildAdvertisingReport(w marketplace.Window, backfill bool, campaigns []marketplace.Campaign, groupCount int,
	keywords []marketplace.Keyword, cperf, kperf []marketplace.PerformanceResult) marketplace.AdvertisingReport {
	cm := make(map[string]*marketplace.PerformanceSubTotal, len(cperf))
	for _, p := range cperf {
		cm[p.ID] = p.Metrics
	}
	km := make(map[string]*marketplace.PerformanceSubTotal, len(kperf))
	for _, p := range kperf {
		km[p.ID] = p.Metrics
	}
	rep := marketplace.AdvertisingReport{
		Window:       w,
		Backfill:     backfill,
		Campaigns:    make([]marketplace.CampaignStats, 0, len(campaigns)),
		AdGroupCount: groupCount,
		Keywords:     make([]marketplace.KeywordStats, 0, len(keywords)),
	}
	for _, c := range campaigns {
		rep.Campaigns = append(rep.Campaigns, marketplace.CampaignStats{Campaign: c, Metrics: cm[c.CampaignID]})
	}
	for _, k := range keywords {
		rep.Keywords = append(rep.Keywords, marketplace.KeywordStats{Keyword: k, Metrics: km[k.KeywordID]})
	}
	return rep
}

func campaignRows(customerID string, rep marketplace.AdvertisingReport, at time.Time) []timeseries.CampaignPerformanceRow {
	var out []timeseries.CampaignPerformanceRow
	for _, c := range rep.Campaigns {
		if c.Metrics == nil {
			continue
		}
		out = append(out, timeseries.CampaignPerformanceRow{
			CustomerID:  customerID,
			CampaignID:  c.CampaignID,
			PeriodStart: rep.Window.From,
			PeriodEnd:   rep.Window.To,
			Impressions: c.Metrics.Impressions,
			Clicks:      c.Metrics.Clicks,
			Conversions: c.Metrics.Conversions,
			Spend:       c.Metrics.Spend,
			Sales:       c.Metrics.Sales,
			FetchedAt:   at,
		})
	}
	return out
}

func keywordRows(customerID string, rep marketplace.AdvertisingReport, at time.Time) []timeseries.KeywordPerformanceRow {
	var out []timeseries.KeywordPerformanceRow
	for _, k := range rep.Keywords {
		if k.Metrics == nil {
			continue
		}
		out = append(out, timeseries.KeywordPerformanceRow{
			CustomerID:  customerID,
			KeywordID:   k.KeywordID,
			PeriodStart: rep.Window.From,
			PeriodEnd:   rep.Window.To,
			Impressions: k.Metrics.Impressions,
			Clicks:      k.Metrics.Clicks,
			Conversions: k.Metrics.Conversions,
			Spend:       k.Metrics.Spend,
			Sales:       k.Metrics.Sales,
			FetchedAt:   at,
		})
	}
	return out
}

func (s *Service) phaseReturns(ctx context.Context, st *runState) (PhaseResult, error) {
	r, err := st.retailerClient(ctx, s.Connector)
	if err != nil {
		return PhaseResult{}, err
	}
	var open, handled []marketplace.Return
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		open, err = r.ListReturns(gctx, false)
		return err
	})
	g.Go(func() error {
		var err error
		handled, err = r.ListReturns(gctx, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return PhaseResult{}, err
	}
	all := make([]marketplace.Return, 0, len(open)+len(handled))
	all = append(all, open...)
	all = append(all, handled...)
	res, err := s.persistScored(ctx, st.customer.ID, health.DataReturns, all, len(all),
		health.CategoryReturns, health.AnalyzeReturns(all))
	res.Detail = fmt.Sprintf("%d open, %d handled", len(open), len(handled))
	return res, err
}

// phaseIndicators fetches every indicator for last ISO week concurrently. The
// phase only fails when every fetch failed.
func (s *Service) phaseIndicators(ctx context.Context, st *runState) (PhaseResult, error) {
	r, err := st.retailerClient(ctx, s.Connector)
	if err != nil {
		return PhaseResult{}, err
	}
	year, week := s.Clock.Now().UTC().AddDate(0, 0, -7).ISOWeek()

	results := make([]*marketplace.PerformanceIndicator, len(marketplace.IndicatorNames))
	var mu sync.Mutex
	var errs []string
	var g errgroup.Group
	for i, name := range marketplace.IndicatorNames {
		i, name := i, name
		g.Go(func() error {
			pi, err := r.GetPerformanceIndicator(ctx, name, year, week)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
				mu.Unlock()
				return nil
			}
			results[i] = pi
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) == len(marketplace.IndicatorNames) {
		return PhaseResult{}, errors.New(strings.Join(errs, "; "))
	}
	indicators := make([]marketplace.PerformanceIndicator, 0, len(results))
	for _, pi := range results {
		if pi != nil {
			indicators = append(indicators, *pi)
		}
	}
	res, err := s.persistScored(ctx, st.customer.ID, health.DataPerformance, indicators, len(indicators),
		health.CategoryPerformance, health.AnalyzeIndicators(indicators))
	if len(errs) > 0 {
		res.Detail = strings.Join(errs, "; ")
	}
	return res, err
}

func (s *Service) phaseTouch(ctx context.Context, st *runState) (PhaseResult, error) {
	return PhaseResult{}, s.Customers.TouchLastSync(ctx, st.customer.ID, s.Clock.Now().UTC())
}
