package marketplace

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Delay bounds for upstream pacing
const (
	MinDelay     = 100 * time.Millisecond
	MaxDelay     = 200 * time.Millisecond
	DefaultDelay = 150 * time.Millisecond
)

// Pacer blocks until the next upstream call may be issued
type Pacer interface {
	Wait(ctx context.Context) error
}

// LimiterPacer spaces calls at least delay apart. The first call goes through
// immediately.
type LimiterPacer struct {
	lim *rate.Limiter
}

// NewPacer clamps delay into [MinDelay, MaxDelay]
func NewPacer(delay time.Duration) *LimiterPacer {
	if delay < MinDelay {
		delay = MinDelay
	}
	if delay > MaxDelay {
		delay = MaxDelay
	}
	return &LimiterPacer{lim: rate.NewLimiter(rate.Every(delay), 1)}
}

func (p *LimiterPacer) Wait(ctx context.Context) error {
	return p.lim.Wait(ctx)
}

// noPacer for calls that are never issued in a loop
type noPacer struct{}

func (noPacer) Wait(context.Context) error { return nil }
