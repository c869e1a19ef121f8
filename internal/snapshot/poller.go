// Package snapshot owns the poll loop. Every cycle fetches the three
// sheet feeds, resolves them into one immutable Snapshot and swaps it
// in atomically. A failed cycle changes nothing: consumers keep reading
// the last good snapshot until a fetch succeeds again.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"castboard/internal/btime"
	"castboard/internal/events"
	"castboard/internal/grid"
	"castboard/internal/metrics"
	"castboard/internal/models"
	"castboard/internal/reception"
	"castboard/internal/roster"
)

// Feeds is the slice of the sheets adapter the poller needs.
type Feeds interface {
	FetchRoster(ctx context.Context) ([]grid.RosterRow, []grid.DedicatedRow, error)
	FetchReceptions(ctx context.Context, date string) ([]models.ReceptionRecord, error)
	FetchAttendance(ctx context.Context, date string) (map[string]models.AttendanceInterval, error)
}

// Snapshot is one fully resolved view of the business day. It is never
// mutated after Build returns.
type Snapshot struct {
	Date       string
	Workers    []*models.Worker
	Attendance map[string]models.AttendanceInterval
	Receptions []models.ReceptionRecord
	Index      reception.Index
	Stats      roster.Stats
	FetchedAt  time.Time
}

// Poller refreshes the current-day snapshot on a fixed interval.
type Poller struct {
	feeds    Feeds
	bus      *events.EventBus
	logger   *zerolog.Logger
	interval time.Duration

	current atomic.Pointer[Snapshot]

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewPoller(feeds Feeds, bus *events.EventBus, logger *zerolog.Logger, interval time.Duration) *Poller {
	return &Poller{
		feeds:    feeds,
		bus:      bus,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Current returns the latest good snapshot, or nil before the first
// successful cycle.
func (p *Poller) Current() *Snapshot {
	return p.current.Load()
}

// Start runs the poll loop until the context ends or Stop is called.
// The first cycle runs immediately.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	p.logger.Info().Dur("interval", p.interval).Msg("Snapshot poller started")

	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Snapshot poller stopped by context")
			return
		case <-p.stopCh:
			p.logger.Info().Msg("Snapshot poller stopped")
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// Stop halts the poll loop.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.running {
		p.running = false
		close(p.stopCh)
	}
	p.mu.Unlock()
}

func (p *Poller) refresh(ctx context.Context) {
	date := btime.GridSheetName(time.Now(), time.Now())

	snap, err := p.Build(ctx, date)
	if err != nil {
		p.logger.Error().Err(err).Str("date", date).Msg("Snapshot refresh failed, keeping previous")
		return
	}

	p.current.Store(snap)

	if p.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"date":    snap.Date,
			"workers": len(snap.Workers),
		})
		p.bus.Publish(events.Event{Type: events.SnapshotRefreshed, Payload: payload})
	}

	p.logger.Info().
		Str("date", snap.Date).
		Int("workers", len(snap.Workers)).
		Int("receptions", len(snap.Receptions)).
		Int("merged", snap.Stats.Merged).
		Msg("Snapshot refreshed")
}

// Build fetches all three feeds for a day sheet concurrently and
// resolves them. Any feed failing fails the whole build; a snapshot is
// all of the day or none of it.
func (p *Poller) Build(ctx context.Context, date string) (*Snapshot, error) {
	var (
		wg sync.WaitGroup

		shared     []grid.RosterRow
		dedicated  []grid.DedicatedRow
		receptions []models.ReceptionRecord
		attendance map[string]models.AttendanceInterval

		rosterErr     error
		receptionsErr error
		attendanceErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		shared, dedicated, rosterErr = p.feeds.FetchRoster(ctx)
		metrics.IncFeedFetch("roster", resultLabel(rosterErr))
	}()
	go func() {
		defer wg.Done()
		receptions, receptionsErr = p.feeds.FetchReceptions(ctx, date)
		metrics.IncFeedFetch("receptions", resultLabel(receptionsErr))
	}()
	go func() {
		defer wg.Done()
		attendance, attendanceErr = p.feeds.FetchAttendance(ctx, date)
		metrics.IncFeedFetch("attendance", resultLabel(attendanceErr))
	}()
	wg.Wait()

	if rosterErr != nil {
		return nil, fmt.Errorf("roster feed: %w", rosterErr)
	}
	if receptionsErr != nil {
		return nil, fmt.Errorf("receptions feed: %w", receptionsErr)
	}
	if attendanceErr != nil {
		return nil, fmt.Errorf("attendance feed: %w", attendanceErr)
	}

	workers, stats := roster.Resolve(shared, dedicated)
	metrics.IncWorkersMerged(stats.Merged)
	if stats.Skipped > 0 {
		metrics.IncRowsDropped("reservation_token", stats.Skipped)
	}

	return &Snapshot{
		Date:       date,
		Workers:    workers,
		Attendance: attendance,
		Receptions: receptions,
		Index:      reception.BuildIndex(receptions),
		Stats:      stats,
		FetchedAt:  time.Now(),
	}, nil
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
