// Package retention implements the optional serve control surface's
// background eviction of old run records. It is adapted from the
// teacher's internal/retention.Janitor — trimmed from a multi-kitchen,
// multi-backend (trace/audit archive-then-purge) retention system down to
// the one policy this domain needs: periodically evict runlog records
// older than a single configurable window. Archiving is dropped entirely
// — spec.md §1 names persistence of execution history as a non-goal, so
// there is nothing to archive before a record is purged, only the purge
// itself.
package retention

import (
	"context"
	"sync"
	"time"

	"github.com/recipeforge/recipeforge/internal/runlog"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is how often the janitor sweeps when New is given a
// non-positive interval.
const DefaultInterval = 1 * time.Hour

// Janitor periodically evicts run records older than Retention from a
// runlog.Store. The zero value is not usable; construct with New.
type Janitor struct {
	store     *runlog.Store
	retention time.Duration
	interval  time.Duration

	mu      sync.Mutex
	running bool
}

// New creates a Janitor that evicts runlog.Store records whose
// CompletedAt is older than retention, sweeping every interval.
func New(store *runlog.Store, retention, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Janitor{store: store, retention: retention, interval: interval}
}

// Start runs the sweep loop until ctx is canceled. It is meant to be
// launched with `go janitor.Start(ctx)`; Start returns once ctx is done.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	j.running = true
	j.mu.Unlock()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("retention janitor started")

	for {
		select {
		case <-ctx.Done():
			j.mu.Lock()
			j.running = false
			j.mu.Unlock()
			log.Info().Msg("retention janitor stopped")
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

// Running reports whether the janitor's sweep loop is currently active.
func (j *Janitor) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *Janitor) sweep() {
	cutoff := time.Now().Add(-j.retention)
	evicted := j.store.EvictOlderThan(cutoff)
	if evicted > 0 {
		log.Info().Int("evicted", evicted).Time("cutoff", cutoff).Msg("retention janitor evicted run records")
	}
}
