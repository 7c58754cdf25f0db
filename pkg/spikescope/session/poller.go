package session

import (
	"context"
	"time"

	"github.com/neuralview/spikescope/pkg/models"
)

// ListFetcher fetches the full focus-unit list from the backing service.
type ListFetcher func(ctx context.Context) ([]models.FocusUnit, error)

// Poller re-fetches the focus-unit list on a fixed interval. A list failure
// is blocking: OnError replaces the whole view; no partial content is
// delivered. Staleness is bounded by the interval, not instantaneous.
type Poller struct {
	Interval time.Duration
	Fetch    ListFetcher
	OnUpdate func(units []models.FocusUnit)
	OnError  func(err error)
}

// Run polls until the context is cancelled. The first fetch happens
// immediately rather than one interval in.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	units, err := p.Fetch(ctx)
	if err != nil {
		if p.OnError != nil {
			p.OnError(err)
		}
		return
	}
	if p.OnUpdate != nil {
		p.OnUpdate(units)
	}
}
