package syncs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/sellerpulse/internal/domain/health"
	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
	"github.com/bryanwahyu/sellerpulse/internal/domain/syncjobs"
)

func (s *Service) completePhases() []phase {
	return []phase{
		{name: "exports", run: s.phaseCompleteExports},
	}
}

// phaseCompleteExports polls every pending export once. A successful export is
// downloaded, enriched and scored before the job is completed; when that fails
// the job stays pending for the next run.
func (s *Service) phaseCompleteExports(ctx context.Context, st *runState) (PhaseResult, error) {
	r, err := st.retailerClient(ctx, s.Connector)
	if err != nil {
		return PhaseResult{}, err
	}
	jobs, err := s.Jobs.Pending(ctx, st.customer.ID)
	if err != nil {
		return PhaseResult{}, err
	}
	if len(jobs) == 0 {
		return PhaseResult{}, skip("no pending exports")
	}

	var completed, failed, waiting int
	var problems []string
	var lastScore *int
	for _, job := range jobs {
		pr, err := s.Jobs.Poll(ctx, r, job)
		if err != nil {
			problems = append(problems, fmt.Sprintf("poll %s: %v", job.ExternalJobID, err))
			continue
		}
		switch pr.Outcome {
		case PollFailed:
			failed++
			continue
		case PollPending:
			waiting++
			continue
		}

		score, err := s.processOffersExport(ctx, st, r, job, pr.ReportID)
		if err != nil {
			problems = append(problems, fmt.Sprintf("process %s: %v", job.ExternalJobID, err))
			continue
		}
		if err := s.Jobs.Complete(ctx, job); err != nil {
			problems = append(problems, fmt.Sprintf("complete %s: %v", job.ExternalJobID, err))
			continue
		}
		completed++
		lastScore = &score
	}

	res := PhaseResult{
		Records: completed,
		Score:   lastScore,
		Detail:  fmt.Sprintf("%d completed, %d failed, %d pending", completed, failed, waiting),
	}
	if len(problems) > 0 {
		return res, errors.New(strings.Join(problems, "; "))
	}
	return res, nil
}

func (s *Service) processOffersExport(ctx context.Context, st *runState, r marketplace.Retailer, job *syncjobs.SyncJob, reportID string) (int, error) {
	data, err := r.DownloadExport(ctx, reportID)
	if err != nil {
		return 0, err
	}
	offers, err := marketplace.ParseOffersCSV(data)
	if err != nil {
		return 0, err
	}

	var payloadURL string
	if s.Archive != nil {
		key := fmt.Sprintf("%s/offers/%s.csv", st.customer.ID, job.ExternalJobID)
		url, err := s.Archive.Put(ctx, key, data, "text/csv")
		if err != nil {
			log.Warn().Err(err).Str("customer_id", st.customer.ID).Str("key", key).Msg("archive export failed")
		} else {
			payloadURL = url
		}
	}

	ids := make([]string, 0, len(offers))
	for _, o := range offers {
		if o.OfferID != "" {
			ids = append(ids, o.OfferID)
		}
	}
	if len(ids) > 0 {
		insights, err := r.GetOfferInsights(ctx, ids)
		if err != nil {
			return 0, fmt.Errorf("offer insights: %w", err)
		}
		byID := make(map[string]*marketplace.OfferInsight, len(insights))
		for _, in := range insights {
			byID[in.OfferID] = in.Insights
		}
		for i := range offers {
			offers[i].Insights = byID[offers[i].OfferID]
		}
	}

	snap, err := s.snapshot(ctx, st.customer.ID, health.DataOffers, offers, len(offers), payloadURL)
	if err != nil {
		return 0, err
	}
	res := health.AnalyzeContent(offers)
	if err := s.analysis(ctx, st.customer.ID, snap, health.CategoryContent, res); err != nil {
		return 0, err
	}
	return res.Score, nil
}
