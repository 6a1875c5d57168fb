package syncs

import (
	"context"
	"time"

	"github.com/bryanwahyu/sellerpulse/internal/application"
	"github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
	"github.com/bryanwahyu/sellerpulse/internal/domain/syncjobs"
)

// Advertising history windows in days
const (
	BackfillDays    = 180
	IncrementalDays = 7
)

// BackfillPlanner chooses the advertising performance window
type BackfillPlanner struct {
	Repo  syncjobs.BackfillRepository
	Clock application.Clock
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Plan returns the window and whether it is the historical backfill. The first
// call for a customer records the backfill as done before any data is fetched.
func (p *BackfillPlanner) Plan(ctx context.Context, customerID string) (marketplace.Window, bool, error) {
	today := utcDay(p.Clock.Now())
	backfill := marketplace.Window{From: today.AddDate(0, 0, -BackfillDays), To: today}

	st, err := p.Repo.Get(ctx, customerID)
	if err != nil {
		return marketplace.Window{}, false, err
	}
	switch {
	case st == nil:
		completedAt := today
		if err := p.Repo.Create(ctx, &syncjobs.BackfillStatus{
			CustomerID:        customerID,
			BackfillCompleted: true,
			OldestDateFetched: backfill.From,
			CompletedAt:       &completedAt,
		}); err != nil {
			return marketplace.Window{}, false, err
		}
		return backfill, true, nil
	case !st.BackfillCompleted:
		return backfill, true, nil
	}
	return marketplace.Window{From: today.AddDate(0, 0, -IncrementalDays), To: today}, false, nil
}
