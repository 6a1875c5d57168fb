package syncs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/sellerpulse/internal/domain/health"
	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
	"github.com/bryanwahyu/sellerpulse/internal/domain/timeseries"
)

// Extended sync caps
const (
	MaxExtendedProducts = 50
	MaxCatalogProducts  = 20
)

// CatalogForecast is one entry of the combined catalog snapshot
type CatalogForecast struct {
	EAN      string                      `json:"ean"`
	OfferID  string                      `json:"offer_id"`
	Catalog  *marketplace.CatalogProduct `json:"catalog,omitempty"`
	Forecast *marketplace.SalesForecast  `json:"forecast,omitempty"`
}

func (s *Service) extendedPhases() []phase {
	return []phase{
		{name: "competitors", run: s.phaseCompetitors},
		{name: "rankings", run: s.phaseRankings},
		{name: "catalog_forecast", run: s.phaseCatalogForecast},
	}
}

// latestOffers reads the offers of the last completed export once per run
func (s *Service) latestOffers(ctx context.Context, st *runState) ([]marketplace.Offer, error) {
	st.offersOnce.Do(func() {
		snap, err := s.Snapshots.Latest(ctx, st.customer.ID, health.DataOffers)
		if err != nil {
			st.offersErr = err
			return
		}
		if snap == nil {
			return
		}
		if err := json.Unmarshal(snap.RawPayload, &st.offers); err != nil {
			st.offersErr = fmt.Errorf("decode offers snapshot: %w", err)
		}
	})
	return st.offers, st.offersErr
}

type product struct {
	ean     string
	offerID string
}

// products returns up to limit unique EANs in export order
func (s *Service) products(ctx context.Context, st *runState, limit int) ([]product, error) {
	offers, err := s.latestOffers(ctx, st)
	if err != nil {
		return nil, err
	}
	if len(offers) == 0 {
		return nil, skip("no offers snapshot")
	}
	seen := map[string]bool{}
	var out []product
	for _, o := range offers {
		if o.EAN == "" || seen[o.EAN] {
			continue
		}
		seen[o.EAN] = true
		out = append(out, product{ean: o.EAN, offerID: o.OfferID})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Service) phaseCompetitors(ctx context.Context, st *runState) (PhaseResult, error) {
	r, err := st.retailerClient(ctx, s.Connector)
	if err != nil {
		return PhaseResult{}, err
	}
	products, err := s.products(ctx, st, MaxExtendedProducts)
	if err != nil {
		return PhaseResult{}, err
	}
	own := map[string]bool{}
	offers, _ := s.latestOffers(ctx, st)
	for _, o := range offers {
		own[o.OfferID] = true
	}

	var stored, skipped int
	for _, p := range products {
		competing, err := r.GetCompetingOffers(ctx, p.ean)
		if err != nil {
			skipped++
			log.Debug().Err(err).Str("ean", p.ean).Msg("competing offers skipped")
			continue
		}
		rating, err := r.GetRatings(ctx, p.ean)
		if err != nil {
			skipped++
			log.Debug().Err(err).Str("ean", p.ean).Msg("ratings skipped")
			continue
		}
		snap := competitorSnapshot(st.customer.ID, p.ean, competing, rating, own)
		snap.FetchedAt = s.Clock.Now().UTC()
		if err := s.Timeseries.AppendCompetitor(ctx, snap); err != nil {
			return PhaseResult{Records: stored}, err
		}
		stored++
	}
	return PhaseResult{Records: stored, Detail: fmt.Sprintf("%d products, %d skipped", len(products), skipped)}, nil
}

func competitorSnapshot(customerID, ean string, offers []marketplace.CompetingOffer, rating *marketplace.ProductRating, own map[string]bool) *timeseries.CompetitorSnapshot {
	snap := &timeseries.CompetitorSnapshot{
		CustomerID: customerID,
		ProductID:  ean,
		OfferCount: len(offers),
	}
	for i, o := range offers {
		if i == 0 || o.Price < snap.LowestPrice {
			snap.LowestPrice = o.Price
		}
		if o.BestOffer && own[o.OfferID] {
			snap.BuyBoxWinner = true
		}
	}
	if rating != nil {
		snap.AverageRating = rating.Average
		snap.RatingCount = rating.Count
	}
	return snap
}

func (s *Service) phaseRankings(ctx context.Context, st *runState) (PhaseResult, error) {
	r, err := st.retailerClient(ctx, s.Connector)
	if err != nil {
		return PhaseResult{}, err
	}
	products, err := s.products(ctx, st, MaxExtendedProducts)
	if err != nil {
		return PhaseResult{}, err
	}
	var stored, skipped int
	for _, p := range products {
		ranks, err := r.GetProductRanks(ctx, p.ean)
		if err != nil {
			skipped++
			log.Debug().Err(err).Str("ean", p.ean).Msg("product ranks skipped")
			continue
		}
		now := s.Clock.Now().UTC()
		rows := make([]timeseries.KeywordRanking, 0, len(ranks))
		for _, rk := range ranks {
			rows = append(rows, timeseries.KeywordRanking{
				CustomerID:  st.customer.ID,
				ProductID:   p.ean,
				SearchTerm:  rk.SearchTerm,
				RankType:    rk.Type,
				Rank:        rk.Rank,
				Impressions: rk.Impressions,
				FetchedAt:   now,
			})
		}
		if err := s.Timeseries.AppendRankings(ctx, rows); err != nil {
			return PhaseResult{Records: stored}, err
		}
		stored += len(rows)
	}
	return PhaseResult{Records: stored, Detail: fmt.Sprintf("%d products, %d skipped", len(products), skipped)}, nil
}

func (s *Service) phaseCatalogForecast(ctx context.Context, st *runState) (PhaseResult, error) {
	r, err := st.retailerClient(ctx, s.Connector)
	if err != nil {
		return PhaseResult{}, err
	}
	products, err := s.products(ctx, st, MaxCatalogProducts)
	if err != nil {
		return PhaseResult{}, err
	}
	entries := make([]CatalogForecast, 0, len(products))
	var skipped int
	for _, p := range products {
		cat, err := r.GetCatalogProduct(ctx, p.ean)
		if err != nil {
			skipped++
			log.Debug().Err(err).Str("ean", p.ean).Msg("catalog product skipped")
			continue
		}
		e := CatalogForecast{EAN: p.ean, OfferID: p.offerID, Catalog: cat}
		if p.offerID != "" {
			f, err := r.GetSalesForecast(ctx, p.offerID)
			if err != nil {
				log.Debug().Err(err).Str("offer_id", p.offerID).Msg("sales forecast skipped")
			} else {
				e.Forecast = f
			}
		}
		entries = append(entries, e)
	}
	if _, err := s.snapshot(ctx, st.customer.ID, health.DataCatalogForecast, entries, len(entries), ""); err != nil {
		return PhaseResult{Records: len(entries)}, err
	}
	return PhaseResult{Records: len(entries), Detail: fmt.Sprintf("%d products, %d skipped", len(products), skipped)}, nil
}
