// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package presence

import (
	"sync"
	"time"

	"github.com/reelroom/reelroom/internal/logging"
	"github.com/reelroom/reelroom/internal/metrics"
)

// conn is the registry's record of one websocket connection.
type conn struct {
	identity Identity
	lastSeen time.Time
}

// Snapshot is a consistent view of the registry at one instant.
type Snapshot struct {
	// Count is the number of distinct identities currently connected.
	Count int
	// TotalConnections is the number of tracked sockets.
	TotalConnections int
	// Identities maps each identity key to its connection count.
	Identities map[string]int
}

// Registry tracks live connections grouped by identity. A connection belongs
// to exactly one identity at a time; an identity with zero connections is
// removed immediately, so the distinct count is always len(identities).
//
// All methods are safe for concurrent use. The count callback runs after the
// state lock is released, so callbacks may read the registry; they must not
// mutate it, since mutations re-enter the notification path.
type Registry struct {
	mu sync.Mutex
	// conns maps connection ID to its record.
	conns map[string]*conn
	// identities maps identity key to the set of its connection IDs.
	identities map[string]map[string]struct{}

	// onCount is invoked with the new distinct count whenever it changes.
	onCount func(count int)
	// lastCount is the most recent count handed to onCount. Guarded by mu;
	// it dedupes notifications when a mutation leaves the count unchanged
	// (a second tab from the same user, for example).
	lastCount int

	// notifyMu serializes callback delivery. seq is stamped under mu per
	// mutation; sentSeq/sentCount, guarded by notifyMu, remember the freshest
	// state delivered so far so an interleaved older notification can never
	// broadcast a stale count after a newer one went out.
	notifyMu  sync.Mutex
	seq       uint64
	sentSeq   uint64
	sentCount int

	// emergency receives a signal when the connection total crosses the
	// threshold. Buffered so registration never blocks; a signal already
	// in flight covers any number of crossings.
	emergency chan struct{}
	threshold int
}

// Option configures a Registry.
type Option func(*Registry)

// WithCountCallback sets the function called when the distinct count changes.
// Deliveries are serialized, so the callback must not block for long;
// broadcasters should hand off to their own goroutine or buffered channel.
// The callback may read the registry but must not mutate it.
func WithCountCallback(fn func(count int)) Option {
	return func(r *Registry) { r.onCount = fn }
}

// WithEmergencyThreshold sets the connection total that triggers an
// out-of-cycle sweep signal on Emergency().
func WithEmergencyThreshold(n int) Option {
	return func(r *Registry) { r.threshold = n }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		conns:      make(map[string]*conn),
		identities: make(map[string]map[string]struct{}),
		emergency:  make(chan struct{}, 1),
		threshold:  1000,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Emergency returns the channel that signals threshold crossings. The reaper
// selects on it to run an immediate sweep.
func (r *Registry) Emergency() <-chan struct{} {
	return r.emergency
}

// Connect registers a connection under an identity. Registering an already
// known connection ID re-keys it to the given identity, which keeps the
// single-ownership invariant if a client reconnects with a reused ID.
func (r *Registry) Connect(connectionID string, identity Identity, now time.Time) {
	r.mu.Lock()

	if existing, ok := r.conns[connectionID]; ok {
		r.detachLocked(connectionID, existing.identity)
	}
	r.conns[connectionID] = &conn{identity: identity, lastSeen: now}
	r.attachLocked(connectionID, identity)

	count, total, changed, seq := r.countsLocked()
	r.mu.Unlock()

	r.notify(count, total, changed, seq)
	if r.threshold > 0 && total >= r.threshold {
		select {
		case r.emergency <- struct{}{}:
		default:
		}
	}
}

// Disconnect removes a connection. Unknown IDs are ignored so transport and
// reaper can race on removal without errors.
func (r *Registry) Disconnect(connectionID string) {
	r.mu.Lock()
	c, ok := r.conns[connectionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connectionID)
	r.detachLocked(connectionID, c.identity)

	count, total, changed, seq := r.countsLocked()
	r.mu.Unlock()

	r.notify(count, total, changed, seq)
}

// Heartbeat refreshes a connection's liveness. Timestamps only move forward;
// an out-of-order heartbeat cannot roll lastSeen back and resurrect a stale
// connection.
func (r *Registry) Heartbeat(connectionID string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connectionID]
	if !ok {
		return false
	}
	if now.After(c.lastSeen) {
		c.lastSeen = now
	}
	return true
}

// Rekey moves a connection to a new identity in one step, preserving its
// lastSeen. This is how an anonymous visitor's connections migrate to their
// account identity on login without a disconnect/reconnect flap in the count.
func (r *Registry) Rekey(connectionID string, identity Identity) bool {
	r.mu.Lock()
	c, ok := r.conns[connectionID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if c.identity.Key() == identity.Key() {
		r.mu.Unlock()
		return true
	}

	r.detachLocked(connectionID, c.identity)
	c.identity = identity
	r.attachLocked(connectionID, identity)

	count, total, changed, seq := r.countsLocked()
	r.mu.Unlock()

	r.notify(count, total, changed, seq)
	return true
}

// Sweep removes every connection whose lastSeen is older than the cutoff and
// returns how many were evicted.
func (r *Registry) Sweep(cutoff time.Time) int {
	r.mu.Lock()
	evicted := 0
	for id, c := range r.conns {
		if c.lastSeen.Before(cutoff) {
			delete(r.conns, id)
			r.detachLocked(id, c.identity)
			evicted++
		}
	}
	count, total, changed, seq := r.countsLocked()
	r.mu.Unlock()

	if evicted > 0 {
		logging.Debug().Int("evicted", evicted).Int("remaining", total).Msg("Presence sweep evicted stale connections")
	}
	r.notify(count, total, changed, seq)
	return evicted
}

// Count returns the number of distinct identities. O(1); no iteration.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.identities)
}

// TotalConnections returns the number of tracked sockets.
func (r *Registry) TotalConnections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Snapshot returns a consistent copy of the registry state for the query
// endpoint's debug payload.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	identities := make(map[string]int, len(r.identities))
	for key, conns := range r.identities {
		identities[key] = len(conns)
	}
	return Snapshot{
		Count:            len(r.identities),
		TotalConnections: len(r.conns),
		Identities:       identities,
	}
}

// attachLocked adds a connection to an identity's set. Caller holds mu.
func (r *Registry) attachLocked(connectionID string, identity Identity) {
	key := identity.Key()
	set, ok := r.identities[key]
	if !ok {
		set = make(map[string]struct{})
		r.identities[key] = set
	}
	set[connectionID] = struct{}{}
}

// detachLocked removes a connection from an identity's set, deleting the set
// when it empties. Caller holds mu.
func (r *Registry) detachLocked(connectionID string, identity Identity) {
	key := identity.Key()
	set, ok := r.identities[key]
	if !ok {
		return
	}
	delete(set, connectionID)
	if len(set) == 0 {
		delete(r.identities, key)
	}
}

// countsLocked returns the current counts, whether the distinct count moved
// since the last notification, and the mutation's sequence number. Caller
// holds mu.
func (r *Registry) countsLocked() (count, total int, changed bool, seq uint64) {
	count = len(r.identities)
	total = len(r.conns)
	changed = count != r.lastCount
	r.lastCount = count
	r.seq++
	return count, total, changed, r.seq
}

// notify publishes gauges and, when the count moved, fires the callback.
// Runs outside the state lock; notifyMu orders deliveries by sequence, so
// when two mutations race the callback for the older one carries the newer
// count instead of rolling the broadcast backward.
func (r *Registry) notify(count, total int, changed bool, seq uint64) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	if seq > r.sentSeq {
		r.sentSeq = seq
		r.sentCount = count
		metrics.UpdatePresence(count, total)
	}
	if changed && r.onCount != nil {
		r.onCount(r.sentCount)
	}
}
