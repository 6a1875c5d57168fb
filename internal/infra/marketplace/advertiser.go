package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	domain "github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
)

// AdvertiserClient talks to the sponsored products API
type AdvertiserClient struct {
	c *client
}

var _ domain.Advertiser = (*AdvertiserClient)(nil)

// NewAdvertiserClient validates opts and builds the client
func NewAdvertiserClient(opts ClientOptions) (*AdvertiserClient, error) {
	c, err := newClient(opts)
	if err != nil {
		return nil, err
	}
	return &AdvertiserClient{c: c}, nil
}

type wireCampaign struct {
	CampaignID  flexString `json:"campaignId"`
	ID          flexString `json:"id"`
	Name        string     `json:"name"`
	State       string     `json:"state"`
	DailyBudget flexFloat  `json:"dailyBudget"`
}

func (a *AdvertiserClient) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := paginate[wireCampaign](ctx, a.c, "/campaigns", nil, "campaigns")
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	out := make([]domain.Campaign, 0, len(rows))
	for _, w := range rows {
		id := firstNonEmpty(w.CampaignID, w.ID)
		if id == "" {
			continue
		}
		out = append(out, domain.Campaign{
			CampaignID:  id,
			Name:        strings.TrimSpace(w.Name),
			State:       strings.ToUpper(w.State),
			DailyBudget: float64(w.DailyBudget),
		})
	}
	return out, nil
}

type wireAdGroup struct {
	AdGroupID  flexString `json:"adGroupId"`
	ID         flexString `json:"id"`
	CampaignID flexString `json:"campaignId"`
	Name       string     `json:"name"`
	State      string     `json:"state"`
}

func (a *AdvertiserClient) ListAdGroups(ctx context.Context, campaignID string) ([]domain.AdGroup, error) {
	q := url.Values{}
	q.Set("campaign-id", campaignID)
	rows, err := paginate[wireAdGroup](ctx, a.c, "/ad-groups", q, "adGroups")
	if err != nil {
		return nil, fmt.Errorf("list ad groups %s: %w", campaignID, err)
	}
	out := make([]domain.AdGroup, 0, len(rows))
	for _, w := range rows {
		id := firstNonEmpty(w.AdGroupID, w.ID)
		if id == "" {
			continue
		}
		cid := firstNonEmpty(w.CampaignID)
		if cid == "" {
			cid = campaignID
		}
		out = append(out, domain.AdGroup{
			AdGroupID:  id,
			CampaignID: cid,
			Name:       strings.TrimSpace(w.Name),
			State:      strings.ToUpper(w.State),
		})
	}
	return out, nil
}

type wireKeyword struct {
	KeywordID   flexString `json:"keywordId"`
	ID          flexString `json:"id"`
	AdGroupID   flexString `json:"adGroupId"`
	KeywordText string     `json:"keywordText"`
	MatchType   string     `json:"matchType"`
	Bid         flexFloat  `json:"bid"`
}

func (a *AdvertiserClient) ListKeywords(ctx context.Context, adGroupID string) ([]domain.Keyword, error) {
	q := url.Values{}
	q.Set("ad-group-id", adGroupID)
	rows, err := paginate[wireKeyword](ctx, a.c, "/keywords", q, "keywords")
	if err != nil {
		return nil, fmt.Errorf("list keywords %s: %w", adGroupID, err)
	}
	out := make([]domain.Keyword, 0, len(rows))
	for _, w := range rows {
		id := firstNonEmpty(w.KeywordID, w.ID)
		if id == "" {
			continue
		}
		gid := firstNonEmpty(w.AdGroupID)
		if gid == "" {
			gid = adGroupID
		}
		out = append(out, domain.Keyword{
			KeywordID: id,
			AdGroupID: gid,
			Text:      strings.TrimSpace(w.KeywordText),
			MatchType: strings.ToUpper(w.MatchType),
			Bid:       float64(w.Bid),
		})
	}
	return out, nil
}

type wireSubTotal struct {
	EntityID    flexString `json:"entityId"`
	CampaignID  flexString `json:"campaignId"`
	KeywordID   flexString `json:"keywordId"`
	Impressions flexFloat  `json:"impressions"`
	Clicks      flexFloat  `json:"clicks"`
	Conversions flexFloat  `json:"conversions"`
	Cost        *flexFloat `json:"cost"`
	Spend       *flexFloat `json:"spend"`
	Sales       *flexFloat `json:"sales"`
	Sales14d    *flexFloat `json:"sales14d"`
}

func pick(vals ...*flexFloat) float64 {
	for _, v := range vals {
		if v != nil {
			return float64(*v)
		}
	}
	return 0
}

type performanceRequest struct {
	EntityIDs []string `json:"entityIds"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
}

// CampaignPerformance sub-totals per campaign over w
func (a *AdvertiserClient) CampaignPerformance(ctx context.Context, campaignIDs []string, w domain.Window) ([]domain.PerformanceResult, error) {
	return a.performance(ctx, "/campaigns/performance", campaignIDs, w)
}

// KeywordPerformance sub-totals per keyword over w
func (a *AdvertiserClient) KeywordPerformance(ctx context.Context, keywordIDs []string, w domain.Window) ([]domain.PerformanceResult, error) {
	return a.performance(ctx, "/keywords/performance", keywordIDs, w)
}

// performance requests ids in batches of BatchSize and matches the sub-totals
// back by id. Results follow the request order; an id missing from the
// response gets nil metrics.
func (a *AdvertiserClient) performance(ctx context.Context, path string, ids []string, w domain.Window) ([]domain.PerformanceResult, error) {
	found := make(map[string]*domain.PerformanceSubTotal, len(ids))
	for _, batch := range chunk(ids, BatchSize) {
		body := performanceRequest{
			EntityIDs: batch,
			StartDate: w.From.Format("2006-01-02"),
			EndDate:   w.To.Format("2006-01-02"),
		}
		b, err := a.c.do(ctx, http.MethodPost, path, nil, body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rows, err := decodeList[wireSubTotal](b, "subtotals", "subTotals", "results")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, r := range rows {
			id := firstNonEmpty(r.EntityID, r.CampaignID, r.KeywordID)
			if id == "" {
				continue
			}
			found[id] = &domain.PerformanceSubTotal{
				Impressions: int64(r.Impressions),
				Clicks:      int64(r.Clicks),
				Conversions: int64(r.Conversions),
				Spend:       pick(r.Cost, r.Spend),
				Sales:       pick(r.Sales, r.Sales14d),
			}
		}
	}

	out := make([]domain.PerformanceResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.PerformanceResult{ID: id, Metrics: found[id]})
	}
	return out, nil
}
