// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package presence

import (
	"context"
	"time"

	"github.com/reelroom/reelroom/internal/logging"
	"github.com/reelroom/reelroom/internal/metrics"
)

// Reaper periodically evicts connections that stopped heartbeating. It runs
// as a supervised service: the supervisor restarts it if Serve returns
// unexpectedly.
//
// Two things trigger a sweep: the periodic tick, and an emergency signal from
// the registry when the connection total crosses its threshold. The emergency
// path exists so a reconnect storm is trimmed immediately instead of waiting
// out the tick.
type Reaper struct {
	registry *Registry
	interval time.Duration
	grace    time.Duration
	clock    func() time.Time
}

// NewReaper creates a reaper for the registry. interval is the sweep cadence;
// grace is how long a silent connection survives before eviction.
func NewReaper(registry *Registry, interval, grace time.Duration) *Reaper {
	return &Reaper{
		registry: registry,
		interval: interval,
		grace:    grace,
		clock:    time.Now,
	}
}

// Serve runs the sweep loop until the context is cancelled. Implements
// suture.Service.
func (r *Reaper) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", r.interval).
		Dur("grace", r.grace).
		Msg("Presence reaper started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Presence reaper stopping")
			return ctx.Err()
		case <-ticker.C:
			evicted := r.sweep()
			metrics.RecordEvictions("stale", evicted)
		case <-r.registry.Emergency():
			evicted := r.sweep()
			metrics.RecordEvictions("emergency", evicted)
			logging.Warn().
				Int("evicted", evicted).
				Int("connections", r.registry.TotalConnections()).
				Msg("Emergency presence sweep completed")
		}
	}
}

// String names the service in supervisor logs.
func (r *Reaper) String() string {
	return "presence-reaper"
}

func (r *Reaper) sweep() int {
	cutoff := r.clock().Add(-r.grace)
	return r.registry.Sweep(cutoff)
}
