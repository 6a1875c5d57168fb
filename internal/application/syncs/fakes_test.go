package syncs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/sellerpulse/internal/domain/customers"
	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
	"github.com/bryanwahyu/sellerpulse/internal/infra/db/sqlite"
	"github.com/bryanwahyu/sellerpulse/internal/infra/db/sqlstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errUpstream = errors.New("upstream unavailable")

// fakeRetailer returns canned data; a nil func falls back to the zero value.
type fakeRetailer struct {
	mu    sync.Mutex
	calls map[string]int

	exportID    string
	status      marketplace.ExportStatus
	statusErr   error
	csv         []byte
	downloadErr error
	inventory   []marketplace.InventoryItem
	orders      []marketplace.Order
	ordersErr   error
	openRet     []marketplace.Return
	handledRet  []marketplace.Return
	returnsFn   func(handled bool) ([]marketplace.Return, error)
	indicators  map[string]*marketplace.PerformanceIndicator
	indicatorFn func(name string) error
	insights    map[string]*marketplace.OfferInsight
	competing   map[string][]marketplace.CompetingOffer
	ranks       map[string][]marketplace.ProductRank
	catalog     map[string]*marketplace.CatalogProduct
	failEAN     string
	failOffer   string
	panicOn     string
}

func (f *fakeRetailer) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeRetailer) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRetailer) ExportOffers(context.Context) (string, error) {
	f.hit("ExportOffers")
	if f.exportID == "" {
		return "proc-1", nil
	}
	return f.exportID, nil
}

func (f *fakeRetailer) CheckExportStatus(_ context.Context, id string) (marketplace.ExportStatus, error) {
	f.hit("CheckExportStatus")
	if f.statusErr != nil {
		return marketplace.ExportStatus{}, f.statusErr
	}
	st := f.status
	st.ProcessID = id
	return st, nil
}

func (f *fakeRetailer) DownloadExport(context.Context, string) ([]byte, error) {
	f.hit("DownloadExport")
	return f.csv, f.downloadErr
}

func (f *fakeRetailer) ListInventory(context.Context) ([]marketplace.InventoryItem, error) {
	f.hit("ListInventory")
	if f.panicOn == "ListInventory" {
		panic("inventory decoder exploded")
	}
	return f.inventory, nil
}

func (f *fakeRetailer) ListOrders(context.Context) ([]marketplace.Order, error) {
	f.hit("ListOrders")
	return f.orders, f.ordersErr
}

func (f *fakeRetailer) ListReturns(_ context.Context, handled bool) ([]marketplace.Return, error) {
	f.hit("ListReturns")
	if f.returnsFn != nil {
		return f.returnsFn(handled)
	}
	if handled {
		return f.handledRet, nil
	}
	return f.openRet, nil
}

func (f *fakeRetailer) GetPerformanceIndicator(_ context.Context, name string, year, week int) (*marketplace.PerformanceIndicator, error) {
	f.hit("GetPerformanceIndicator")
	if f.indicatorFn != nil {
		if err := f.indicatorFn(name); err != nil {
			return nil, err
		}
	}
	return f.indicators[name], nil
}

func (f *fakeRetailer) GetOfferInsights(_ context.Context, ids []string) ([]marketplace.OfferInsightResult, error) {
	f.hit("GetOfferInsights")
	out := make([]marketplace.OfferInsightResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, marketplace.OfferInsightResult{OfferID: id, Insights: f.insights[id]})
	}
	return out, nil
}

func (f *fakeRetailer) GetCompetingOffers(_ context.Context, ean string) ([]marketplace.CompetingOffer, error) {
	f.hit("GetCompetingOffers")
	if ean == f.failEAN {
		return nil, errUpstream
	}
	return f.competing[ean], nil
}

func (f *fakeRetailer) GetRatings(_ context.Context, ean string) (*marketplace.ProductRating, error) {
	f.hit("GetRatings")
	return &marketplace.ProductRating{EAN: ean, Average: 4.5, Count: 10}, nil
}

func (f *fakeRetailer) GetProductRanks(_ context.Context, ean string) ([]marketplace.ProductRank, error) {
	f.hit("GetProductRanks")
	if ean == f.failEAN {
		return nil, errUpstream
	}
	return f.ranks[ean], nil
}

func (f *fakeRetailer) GetCatalogProduct(_ context.Context, ean string) (*marketplace.CatalogProduct, error) {
	f.hit("GetCatalogProduct")
	if ean == f.failEAN {
		return nil, errUpstream
	}
	return f.catalog[ean], nil
}

func (f *fakeRetailer) GetSalesForecast(_ context.Context, offerID string) (*marketplace.SalesForecast, error) {
	f.hit("GetSalesForecast")
	if offerID == f.failOffer {
		return nil, errUpstream
	}
	return &marketplace.SalesForecast{OfferID: offerID, Min: 1, Max: 5}, nil
}

type fakeAdvertiser struct {
	campaigns []marketplace.Campaign
	groups    map[string][]marketplace.AdGroup
	keywords  map[string][]marketplace.Keyword
	perf      map[string]*marketplace.PerformanceSubTotal
	windows   []marketplace.Window
	listErr   error
}

func (f *fakeAdvertiser) ListCampaigns(context.Context) ([]marketplace.Campaign, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.campaigns, nil
}

func (f *fakeAdvertiser) ListAdGroups(_ context.Context, id string) ([]marketplace.AdGroup, error) {
	return f.groups[id], nil
}

func (f *fakeAdvertiser) ListKeywords(_ context.Context, id string) ([]marketplace.Keyword, error) {
	return f.keywords[id], nil
}

func (f *fakeAdvertiser) results(ids []string, w marketplace.Window) []marketplace.PerformanceResult {
	f.windows = append(f.windows, w)
	out := make([]marketplace.PerformanceResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, marketplace.PerformanceResult{ID: id, Metrics: f.perf[id]})
	}
	return out
}

func (f *fakeAdvertiser) CampaignPerformance(_ context.Context, ids []string, w marketplace.Window) ([]marketplace.PerformanceResult, error) {
	return f.results(ids, w), nil
}

func (f *fakeAdvertiser) KeywordPerformance(_ context.Context, ids []string, w marketplace.Window) ([]marketplace.PerformanceResult, error) {
	return f.results(ids, w), nil
}

type fakeConnector struct {
	retailer   *fakeRetailer
	advertiser *fakeAdvertiser
}

func (c *fakeConnector) Retailer(context.Context, *customers.Customer) (marketplace.Retailer, error) {
	return c.retailer, nil
}

func (c *fakeConnector) Advertiser(_ context.Context, cust *customers.Customer) (marketplace.Advertiser, error) {
	if c.advertiser == nil || !cust.HasAdvertising() {
		return nil, marketplace.ErrNoCredentials
	}
	return c.advertiser, nil
}

type fakeArchive struct {
	keys []string
	err  error
}

func (a *fakeArchive) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.keys = append(a.keys, key)
	return "http://minio/bucket/" + key, nil
}

type phaseCounter struct {
	mu   sync.Mutex
	seen map[string]int
}

func (p *phaseCounter) ObservePhase(phase, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen == nil {
		p.seen = map[string]int{}
	}
	p.seen[phase+"/"+status]++
}

type harness struct {
	svc      *Service
	store    *sqlstore.Store
	clock    *fakeClock
	retailer *fakeRetailer
	conn     *fakeConnector
	archive  *fakeArchive
	metrics  *phaseCounter
}

var testNow = time.Date(2026, 3, 4, 6, 30, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := sqlite.Connect(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := sqlstore.New(db, sqlstore.SQLite)

	clock := &fakeClock{now: testNow}
	retailer := &fakeRetailer{}
	conn := &fakeConnector{retailer: retailer}
	archive := &fakeArchive{}
	metrics := &phaseCounter{}

	svc := &Service{
		Customers:   sqlstore.NewCustomerRepository(store),
		Snapshots:   sqlstore.NewSnapshotRepository(store),
		Analyses:    sqlstore.NewAnalysisRepository(store),
		Timeseries:  sqlstore.NewTimeseriesRepository(store),
		Jobs:        &JobTracker{Jobs: sqlstore.NewJobRepository(store), Clock: clock},
		Backfill:    &BackfillPlanner{Repo: sqlstore.NewBackfillRepository(store), Clock: clock},
		PhaseErrors: sqlstore.NewPhaseErrorRepository(store),
		Connector:   conn,
		Archive:     archive,
		Metrics:     metrics,
		Clock:       clock,
	}

	require.NoError(t, svc.Customers.(*sqlstore.CustomerRepository).Create(context.Background(), &customers.Customer{
		ID: "cust-1", Name: "Garden BV", Active: true, RetailerClientID: "rid", RetailerClientSecret: "rs",
	}))
	return &harness{svc: svc, store: store, clock: clock, retailer: retailer, conn: conn, archive: archive, metrics: metrics}
}
