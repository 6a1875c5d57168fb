package marketplace

import (
	"context"
	"errors"

	"github.com/bryanwahyu/sellerpulse/internal/domain/customers"
)

// ErrNoCredentials means the customer has no credentials for that API. Callers
// treat it as a skip, not a failure.
var ErrNoCredentials = errors.New("marketplace credentials not configured")

// Retailer port for the seller-facing API. Implementations pace every
// upstream request, including each page and batch.
type Retailer interface {
	ExportOffers(ctx context.Context) (string, error)
	CheckExportStatus(ctx context.Context, processID string) (ExportStatus, error)
	DownloadExport(ctx context.Context, reportID string) ([]byte, error)

	ListInventory(ctx context.Context) ([]InventoryItem, error)
	ListOrders(ctx context.Context) ([]Order, error)
	ListReturns(ctx context.Context, handled bool) ([]Return, error)
	GetPerformanceIndicator(ctx context.Context, name string, year, week int) (*PerformanceIndicator, error)

	GetOfferInsights(ctx context.Context, offerIDs []string) ([]OfferInsightResult, error)
	GetCompetingOffers(ctx context.Context, ean string) ([]CompetingOffer, error)
	GetRatings(ctx context.Context, ean string) (*ProductRating, error)
	GetProductRanks(ctx context.Context, ean string) ([]ProductRank, error)
	GetCatalogProduct(ctx context.Context, ean string) (*CatalogProduct, error)
	GetSalesForecast(ctx context.Context, offerID string) (*SalesForecast, error)
}

// Advertiser port for the sponsored products API
type Advertiser interface {
	ListCampaigns(ctx context.Context) ([]Campaign, error)
	ListAdGroups(ctx context.Context, campaignID string) ([]AdGroup, error)
	ListKeywords(ctx context.Context, adGroupID string) ([]Keyword, error)
	CampaignPerformance(ctx context.Context, campaignIDs []string, w Window) ([]PerformanceResult, error)
	KeywordPerformance(ctx context.Context, keywordIDs []string, w Window) ([]PerformanceResult, error)
}

// Connector builds authenticated clients for one customer. Advertiser returns
// ErrNoCredentials when the customer is not advertising-enabled.
type Connector interface {
	Retailer(ctx context.Context, c *customers.Customer) (Retailer, error)
	Advertiser(ctx context.Context, c *customers.Customer) (Advertiser, error)
}
