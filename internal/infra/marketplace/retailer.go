package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
)

const csvAccept = "text/csv, application/octet-stream, */*"

// RetailerClient talks to the seller-facing API
type RetailerClient struct {
	c *client
}

var _ domain.Retailer = (*RetailerClient)(nil)

// NewRetailerClient validates opts and builds the client
func NewRetailerClient(opts ClientOptions) (*RetailerClient, error) {
	c, err := newClient(opts)
	if err != nil {
		return nil, err
	}
	return &RetailerClient{c: c}, nil
}

// flexFulfilment accepts "FBB" or {"method": "FBB"}
type flexFulfilment string

func (f *flexFulfilment) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Method string `json:"method"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			*f = ""
			return nil
		}
		*f = flexFulfilment(obj.Method)
		return nil
	}
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		*f = ""
		return nil
	}
	*f = flexFulfilment(s)
	return nil
}

func (f flexFulfilment) method() domain.FulfilmentMethod {
	return domain.ParseFulfilment(strings.TrimSpace(string(f)))
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ExportOffers starts an asynchronous offers export and returns the process id
func (r *RetailerClient) ExportOffers(ctx context.Context) (string, error) {
	var resp struct {
		ProcessStatusID flexString `json:"processStatusId"`
		ID              flexString `json:"id"`
	}
	if err := r.c.postJSON(ctx, "/offers/export", map[string]string{"format": "CSV"}, &resp); err != nil {
		return "", fmt.Errorf("export offers: %w", err)
	}
	id := firstNonEmpty(resp.ProcessStatusID, resp.ID)
	if id == "" {
		return "", fmt.Errorf("export offers: response without process id")
	}
	return id, nil
}

// CheckExportStatus reads the process status once
func (r *RetailerClient) CheckExportStatus(ctx context.Context, processID string) (domain.ExportStatus, error) {
	var resp struct {
		ProcessStatusID flexString `json:"processStatusId"`
		ID              flexString `json:"id"`
		Status          string     `json:"status"`
		EntityID        flexString `json:"entityId"`
		ErrorMessage    string     `json:"errorMessage"`
	}
	if err := r.c.getJSON(ctx, "/process-status/"+url.PathEscape(processID), nil, &resp); err != nil {
		return domain.ExportStatus{}, fmt.Errorf("process status %s: %w", processID, err)
	}
	pid := firstNonEmpty(resp.ProcessStatusID, resp.ID)
	if pid == "" {
		pid = processID
	}
	return domain.ExportStatus{
		ProcessID:    pid,
		Status:       strings.ToUpper(strings.TrimSpace(resp.Status)),
		EntityID:     strings.TrimSpace(string(resp.EntityID)),
		ErrorMessage: resp.ErrorMessage,
	}, nil
}

// DownloadExport returns the raw CSV of a finished export
func (r *RetailerClient) DownloadExport(ctx context.Context, reportID string) ([]byte, error) {
	b, err := r.c.send(ctx, http.MethodGet, "/offers/export/"+url.PathEscape(reportID), nil, nil, csvAccept)
	if err != nil {
		return nil, fmt.Errorf("download export %s: %w", reportID, err)
	}
	return b, nil
}

type wireInventory struct {
	EAN              flexString     `json:"ean"`
	Title            flexString     `json:"title"`
	Stock            *flexFloat     `json:"stock"`
	RegularStock     *flexFloat     `json:"regularStock"`
	FulfilmentMethod flexFulfilment `json:"fulfilmentMethod"`
	Fulfilment       flexFulfilment `json:"fulfilment"`
}

// ListInventory follows all inventory pages
func (r *RetailerClient) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := paginate[wireInventory](ctx, r.c, "/inventory", nil, "inventory", "items")
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	out := make([]domain.InventoryItem, 0, len(rows))
	for _, w := range rows {
		var stock flexFloat
		switch {
		case w.Stock != nil:
			stock = *w.Stock
		case w.RegularStock != nil:
			stock = *w.RegularStock
		}
		fm := w.FulfilmentMethod.method()
		if fm == domain.FulfilmentUnknown {
			fm = w.Fulfilment.method()
		}
		out = append(out, domain.InventoryItem{
			EAN:              strings.TrimSpace(string(w.EAN)),
			Title:            strings.TrimSpace(string(w.Title)),
			Stock:            int(stock),
			FulfilmentMethod: fm,
		})
	}
	return out, nil
}

type wireOrderItem struct {
	OrderItemID         flexString     `json:"orderItemId"`
	EAN                 flexString     `json:"ean"`
	Quantity            flexFloat      `json:"quantity"`
	Fulfilment          flexFulfilment `json:"fulfilment"`
	FulfilmentMethod    flexFulfilment `json:"fulfilmentMethod"`
	CancellationRequest bool           `json:"cancellationRequest"`
	Product             *struct {
		EAN flexString `json:"ean"`
	} `json:"product"`
}

type wireOrder struct {
	OrderID  flexString      `json:"orderId"`
	PlacedAt string          `json:"orderPlacedDateTime"`
	Status   string          `json:"status"`
	Items    []wireOrderItem `json:"orderItems"`
}

// ListOrders follows all order pages, open and shipped alike
func (r *RetailerClient) ListOrders(ctx context.Context) ([]domain.Order, error) {
	q := url.Values{}
	q.Set("status", "ALL")
	rows, err := paginate[wireOrder](ctx, r.c, "/orders", q, "orders")
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]domain.Order, 0, len(rows))
	for _, w := range rows {
		o := domain.Order{
			OrderID:   strings.TrimSpace(string(w.OrderID)),
			PlacedAt:  parseTime(w.PlacedAt),
			Cancelled: strings.EqualFold(w.Status, "CANCELLED"),
			Items:     make([]domain.OrderItem, 0, len(w.Items)),
		}
		for _, it := range w.Items {
			ean := strings.TrimSpace(string(it.EAN))
			if ean == "" && it.Product != nil {
				ean = strings.TrimSpace(string(it.Product.EAN))
			}
			fm := it.Fulfilment.method()
			if fm == domain.FulfilmentUnknown {
				fm = it.FulfilmentMethod.method()
			}
			o.Items = append(o.Items, domain.OrderItem{
				OrderItemID:         strings.TrimSpace(string(it.OrderItemID)),
				EAN:                 ean,
				Quantity:            int(it.Quantity),
				FulfilmentMethod:    fm,
				CancellationRequest: it.CancellationRequest,
			})
		}
		out = append(out, o)
	}
	return out, nil
}

type wireReturn struct {
	ReturnID     flexString `json:"returnId"`
	RegisteredAt string     `json:"registrationDateTime"`
	Items        []struct {
		EAN              flexString `json:"ean"`
		ExpectedQuantity flexFloat  `json:"expectedQuantity"`
		Handled          bool       `json:"handled"`
		ReturnReason     *struct {
			MainReason   string `json:"mainReason"`
			DetailReason string `json:"detailedReason"`
		} `json:"returnReason"`
	} `json:"returnItems"`
}

// ListReturns follows all return pages for the given handled state. A return
// with several items is reported once, with the first item's reason.
func (r *RetailerClient) ListReturns(ctx context.Context, handled bool) ([]domain.Return, error) {
	q := url.Values{}
	q.Set("handled", fmt.Sprint(handled))
	rows, err := paginate[wireReturn](ctx, r.c, "/returns", q, "returns")
	if err != nil {
		return nil, fmt.Errorf("list returns (handled=%t): %w", handled, err)
	}
	out := make([]domain.Return, 0, len(rows))
	for _, w := range rows {
		ret := domain.Return{
			ReturnID:     strings.TrimSpace(string(w.ReturnID)),
			Handled:      handled,
			RegisteredAt: parseTime(w.RegisteredAt),
		}
		for i, it := range w.Items {
			ret.Quantity += int(it.ExpectedQuantity)
			if i > 0 {
				continue
			}
			ret.EAN = strings.TrimSpace(string(it.EAN))
			if it.ReturnReason != nil {
				ret.Reason = strings.TrimSpace(it.ReturnReason.MainReason)
			}
		}
		if ret.Quantity == 0 {
			ret.Quantity = 1
		}
		out = append(out, ret)
	}
	return out, nil
}

type wireIndicator struct {
	Name    string `json:"name"`
	Details struct {
		Period struct {
			Week flexFloat `json:"week"`
			Year flexFloat `json:"year"`
		} `json:"period"`
		Score *struct {
			Conclusion string    `json:"conclusion"`
			Value      flexFloat `json:"value"`
		} `json:"score"`
		Norm *struct {
			Value flexFloat `json:"value"`
		} `json:"norm"`
	} `json:"details"`
}

// GetPerformanceIndicator returns nil when upstream has no value for the week
func (r *RetailerClient) GetPerformanceIndicator(ctx context.Context, name string, year, week int) (*domain.PerformanceIndicator, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("year", fmt.Sprint(year))
	q.Set("week", fmt.Sprint(week))
	b, err := r.c.do(ctx, http.MethodGet, "/insights/performance/indicator", q, nil)
	if err != nil {
		return nil, fmt.Errorf("indicator %s: %w", name, err)
	}
	rows, err := decodeList[wireIndicator](b, "performanceIndicators", "indicators")
	if err != nil {
		return nil, fmt.Errorf("indicator %s: %w", name, err)
	}
	for _, w := range rows {
		if w.Name != "" && !strings.EqualFold(w.Name, name) {
			continue
		}
		pi := &domain.PerformanceIndicator{
			Name: name,
			Year: year,
			Week: week,
		}
		if w.Details.Period.Year > 0 {
			pi.Year = int(w.Details.Period.Year)
		}
		if w.Details.Period.Week > 0 {
			pi.Week = int(w.Details.Period.Week)
		}
		if w.Details.Score != nil {
			pi.Score = float64(w.Details.Score.Value)
			pi.Conclusion = strings.ToUpper(strings.TrimSpace(w.Details.Score.Conclusion))
		}
		if w.Details.Norm != nil {
			pi.Norm = float64(w.Details.Norm.Value)
		}
		return pi, nil
	}
	return nil, nil
}

type wireOfferInsight struct {
	OfferID flexString `json:"offerId"`
	Name    string     `json:"name"`
	Total   flexFloat  `json:"total"`
}

// GetOfferInsights fetches last-week insights in batches of BatchSize. Results
// keep the request order; ids absent from the response carry nil insights.
func (r *RetailerClient) GetOfferInsights(ctx context.Context, offerIDs []string) ([]domain.OfferInsightResult, error) {
	found := make(map[string]*domain.OfferInsight, len(offerIDs))
	for _, batch := range chunk(offerIDs, BatchSize) {
		q := url.Values{}
		for _, id := range batch {
			q.Add("offer-id", id)
		}
		q.Set("period", "WEEK")
		q.Set("number-of-periods", "1")
		for _, n := range []string{"IMPRESSIONS", "PRODUCT_VISITS", "BUY_BOX_PERCENTAGE"} {
			q.Add("name", n)
		}
		b, err := r.c.do(ctx, http.MethodGet, "/insights/offer", q, nil)
		if err != nil {
			return nil, fmt.Errorf("offer insights: %w", err)
		}
		rows, err := decodeList[wireOfferInsight](b, "offerInsights", "insights")
		if err != nil {
			return nil, fmt.Errorf("offer insights: %w", err)
		}
		for _, w := range rows {
			id := strings.TrimSpace(string(w.OfferID))
			if id == "" {
				continue
			}
			in := found[id]
			if in == nil {
				in = &domain.OfferInsight{OfferID: id}
				found[id] = in
			}
			switch strings.ToUpper(w.Name) {
			case "IMPRESSIONS":
				in.Impressions = int64(w.Total)
			case "PRODUCT_VISITS":
				in.Visits = int64(w.Total)
			case "BUY_BOX_PERCENTAGE":
				in.BuyBoxPercentage = float64(w.Total)
			}
		}
	}

	out := make([]domain.OfferInsightResult, 0, len(offerIDs))
	for _, id := range offerIDs {
		out = append(out, domain.OfferInsightResult{OfferID: id, Insights: found[id]})
	}
	return out, nil
}

type wireCompetingOffer struct {
	OfferID          flexString     `json:"offerId"`
	RetailerID       flexString     `json:"retailerId"`
	Price            flexFloat      `json:"price"`
	Condition        string         `json:"condition"`
	FulfilmentMethod flexFulfilment `json:"fulfilmentMethod"`
	BestOffer        bool           `json:"bestOffer"`
}

// GetCompetingOffers lists all offers on the product
func (r *RetailerClient) GetCompetingOffers(ctx context.Context, ean string) ([]domain.CompetingOffer, error) {
	b, err := r.c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(ean)+"/offers", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("competing offers %s: %w", ean, err)
	}
	rows, err := decodeList[wireCompetingOffer](b, "offers")
	if err != nil {
		return nil, fmt.Errorf("competing offers %s: %w", ean, err)
	}
	out := make([]domain.CompetingOffer, 0, len(rows))
	for _, w := range rows {
		out = append(out, domain.CompetingOffer{
			OfferID:          strings.TrimSpace(string(w.OfferID)),
			RetailerID:       strings.TrimSpace(string(w.RetailerID)),
			Price:            float64(w.Price),
			Condition:        w.Condition,
			FulfilmentMethod: w.FulfilmentMethod.method(),
			BestOffer:        w.BestOffer,
		})
	}
	return out, nil
}

// GetRatings summarises the star distribution into an average
func (r *RetailerClient) GetRatings(ctx context.Context, ean string) (*domain.ProductRating, error) {
	b, err := r.c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(ean)+"/ratings", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("ratings %s: %w", ean, err)
	}
	rows, err := decodeList[struct {
		Rating flexFloat `json:"rating"`
		Count  flexFloat `json:"count"`
	}](b, "ratings")
	if err != nil {
		return nil, fmt.Errorf("ratings %s: %w", ean, err)
	}
	out := &domain.ProductRating{EAN: ean}
	var weighted float64
	for _, w := range rows {
		out.Count += int(w.Count)
		weighted += float64(w.Rating) * float64(w.Count)
	}
	if out.Count > 0 {
		out.Average = weighted / float64(out.Count)
	}
	return out, nil
}

// GetProductRanks returns yesterday's search and browse ranks
func (r *RetailerClient) GetProductRanks(ctx context.Context, ean string) ([]domain.ProductRank, error) {
	q := url.Values{}
	q.Set("date", r.c.now().UTC().AddDate(0, 0, -1).Format("2006-01-02"))
	b, err := r.c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(ean)+"/product-ranks", q, nil)
	if err != nil {
		return nil, fmt.Errorf("product ranks %s: %w", ean, err)
	}
	rows, err := decodeList[struct {
		SearchTerm  string    `json:"searchTerm"`
		Type        string    `json:"type"`
		Rank        flexFloat `json:"rank"`
		Impressions flexFloat `json:"impressions"`
	}](b, "ranks")
	if err != nil {
		return nil, fmt.Errorf("product ranks %s: %w", ean, err)
	}
	out := make([]domain.ProductRank, 0, len(rows))
	for _, w := range rows {
		out = append(out, domain.ProductRank{
			SearchTerm:  w.SearchTerm,
			Type:        strings.ToUpper(w.Type),
			Rank:        int(w.Rank),
			Impressions: int64(w.Impressions),
		})
	}
	return out, nil
}

// GetCatalogProduct returns nil when the catalog does not know the EAN
func (r *RetailerClient) GetCatalogProduct(ctx context.Context, ean string) (*domain.CatalogProduct, error) {
	var resp struct {
		Attributes []struct {
			ID     string `json:"id"`
			Values []struct {
				Value flexString `json:"value"`
			} `json:"values"`
		} `json:"attributes"`
		Assets []json.RawMessage `json:"assets"`
	}
	if err := r.c.getJSON(ctx, "/content/catalog-products/"+url.PathEscape(ean), nil, &resp); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog product %s: %w", ean, err)
	}
	p := &domain.CatalogProduct{
		EAN:        ean,
		Attributes: map[string]string{},
		ImageCount: len(resp.Assets),
	}
	for _, a := range resp.Attributes {
		if len(a.Values) == 0 {
			continue
		}
		v := strings.TrimSpace(string(a.Values[0].Value))
		switch strings.ToLower(a.ID) {
		case "title":
			p.Title = v
		case "description":
			p.Description = v
		default:
			p.Attributes[a.ID] = v
		}
	}
	return p, nil
}

// GetSalesForecast for the next four weeks
func (r *RetailerClient) GetSalesForecast(ctx context.Context, offerID string) (*domain.SalesForecast, error) {
	q := url.Values{}
	q.Set("offer-id", offerID)
	q.Set("weeks-ahead", "4")
	var resp struct {
		OfferID    flexString `json:"offerId"`
		Confidence flexFloat  `json:"confidence"`
		Total      *struct {
			Minimum flexFloat `json:"minimum"`
			Maximum flexFloat `json:"maximum"`
		} `json:"total"`
	}
	if err := r.c.getJSON(ctx, "/insights/sales-forecast", q, &resp); err != nil {
		return nil, fmt.Errorf("sales forecast %s: %w", offerID, err)
	}
	f := &domain.SalesForecast{
		OfferID:    offerID,
		Confidence: float64(resp.Confidence),
	}
	if resp.Total != nil {
		f.Min = float64(resp.Total.Minimum)
		f.Max = float64(resp.Total.Maximum)
	}
	return f, nil
}
