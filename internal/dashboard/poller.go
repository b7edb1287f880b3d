package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/canalwatch/icewatch/internal/locations"
	"github.com/canalwatch/icewatch/internal/types"
	"golang.org/x/sync/errgroup"
)

// Snapshot is the result of one refresh cycle
type Snapshot struct {
	Locations []locations.Location
	Latest    []types.Reading
	Overall   types.OverallStatus
	Statuses  []types.LocationStatus
	Histories map[string][]types.Reading
	Chart     ChartData
	// ChartErr is set when a history fetch failed. Chart then holds the
	// previous cycle's data.
	ChartErr  error
	FetchedAt time.Time
}

// Poller repeats the dashboard refresh cycle against a Client
type Poller struct {
	client       *Client
	historyLimit int

	mu        sync.Mutex
	locations []locations.Location
	chart     ChartData
}

// NewPoller creates a poller. historyLimit is passed to every history call.
func NewPoller(client *Client, historyLimit int) *Poller {
	return &Poller{
		client:       client,
		historyLimit: historyLimit,
	}
}

// Refresh runs one cycle: latest, then status, then every location's history
// in parallel. A failed history only affects the chart.
func (p *Poller) Refresh(ctx context.Context) (Snapshot, error) {
	locs, err := p.loadLocations(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	latest, err := p.client.Latest(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest: %w", err)
	}

	overall, statuses, err := p.client.Status(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("status: %w", err)
	}

	snap := Snapshot{
		Locations: locs,
		Latest:    latest,
		Overall:   overall,
		Statuses:  statuses,
		FetchedAt: time.Now(),
	}

	histories := make([][]types.Reading, len(locs))
	g, gctx := errgroup.WithContext(ctx)
	for i, loc := range locs {
		g.Go(func() error {
			h, err := p.client.History(gctx, loc.Name, p.historyLimit)
			if err != nil {
				return fmt.Errorf("history for %s: %w", loc.Name, err)
			}
			histories[i] = h
			return nil
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := g.Wait(); err != nil {
		snap.ChartErr = err
		snap.Chart = p.chart
		return snap, nil
	}

	snap.Histories = make(map[string][]types.Reading, len(locs))
	for i, loc := range locs {
		snap.Histories[loc.Name] = histories[i]
	}
	p.chart = MergeSeries(snap.Histories)
	snap.Chart = p.chart

	return snap, nil
}

// Run refreshes immediately and then once per interval until ctx is done.
// fn receives every cycle's outcome.
func (p *Poller) Run(ctx context.Context, interval time.Duration, fn func(Snapshot, error)) {
	fn(p.Refresh(ctx))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(p.Refresh(ctx))
		}
	}
}

func (p *Poller) loadLocations(ctx context.Context) ([]locations.Location, error) {
	p.mu.Lock()
	cached := p.locations
	p.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	locs, err := p.client.Locations(ctx)
	if err != nil {
		return nil, fmt.Errorf("locations: %w", err)
	}

	p.mu.Lock()
	p.locations = locs
	p.mu.Unlock()
	return locs, nil
}
