// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package presence

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/reelroom/reelroom/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func TestConnectDeduplicatesByIdentity(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	// First connection for an identity bumps the count
	r.Connect("c1", AnonIdentity("visitor-1"), now)
	if got := r.Count(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	// More connections for the same identity do not
	r.Connect("c2", AnonIdentity("visitor-1"), now)
	r.Connect("c3", AnonIdentity("visitor-1"), now)
	if got := r.Count(); got != 1 {
		t.Errorf("count = %d, want 1 after duplicate tabs", got)
	}
	if got := r.TotalConnections(); got != 3 {
		t.Errorf("totalConnections = %d, want 3", got)
	}

	// A different identity does
	r.Connect("c4", AnonIdentity("visitor-2"), now)
	if got := r.Count(); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestConservation(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	r.Connect("base", UserIdentity("resident"), now)
	before := r.Count()

	// Every connect paired with a disconnect nets to zero
	for i := 0; i < 50; i++ {
		r.Connect(fmt.Sprintf("c%d", i), AnonIdentity(fmt.Sprintf("v%d", i%7)), now)
	}
	for i := 0; i < 50; i++ {
		r.Disconnect(fmt.Sprintf("c%d", i))
	}

	if got := r.Count(); got != before {
		t.Errorf("count = %d, want %d after balanced sequence", got, before)
	}
	if got := r.TotalConnections(); got != 1 {
		t.Errorf("totalConnections = %d, want 1", got)
	}
}

func TestReconnectStability(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	r.Connect("a", AnonIdentity("K"), now)
	if got := r.Count(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	// The same visitor reconnecting under a new connection ID must not
	// produce a transient bump visible between the events
	r.Connect("b", AnonIdentity("K"), now)
	if got := r.Count(); got != 1 {
		t.Errorf("count = %d during overlap, want 1", got)
	}
	r.Disconnect("a")
	if got := r.Count(); got != 1 {
		t.Errorf("count = %d after old socket closed, want 1", got)
	}
}

func TestIdempotentDisconnect(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	r.Connect("c1", AnonIdentity("v1"), now)
	r.Disconnect("c1")
	r.Disconnect("c1") // second call is a no-op
	r.Disconnect("never-existed")

	if got := r.Count(); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
	if got := r.TotalConnections(); got != 0 {
		t.Errorf("totalConnections = %d, want 0", got)
	}
}

func TestSweepEvictsStaleConnections(t *testing.T) {
	r := NewRegistry()
	base := time.Now()

	r.Connect("stale", AnonIdentity("v1"), base)
	r.Connect("live", AnonIdentity("v2"), base)

	// Only the live connection keeps heartbeating
	r.Heartbeat("live", base.Add(30*time.Second))

	evicted := r.Sweep(base.Add(10 * time.Second))
	if evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	if got := r.Count(); got != 1 {
		t.Errorf("count = %d, want 1 after sweep", got)
	}

	snap := r.Snapshot()
	if _, ok := snap.Identities["anon:v1"]; ok {
		t.Error("stale identity must be removed from snapshot")
	}
	if snap.Identities["anon:v2"] != 1 {
		t.Errorf("live identity missing from snapshot: %+v", snap.Identities)
	}
}

func TestHeartbeatIsMonotonic(t *testing.T) {
	r := NewRegistry()
	base := time.Now()

	r.Connect("c1", AnonIdentity("v1"), base)
	if !r.Heartbeat("c1", base.Add(40*time.Second)) {
		t.Fatal("heartbeat for known connection must return true")
	}

	// An out-of-order heartbeat must not roll lastSeen backwards
	r.Heartbeat("c1", base.Add(5*time.Second))

	// Cutoff between the stale and fresh timestamps: connection survives
	if evicted := r.Sweep(base.Add(20 * time.Second)); evicted != 0 {
		t.Errorf("evicted = %d, want 0; lastSeen regressed", evicted)
	}

	if r.Heartbeat("ghost", base) {
		t.Error("heartbeat for unknown connection must return false")
	}
}

func TestRekeyMigratesWithoutFlap(t *testing.T) {
	counts := make([]int, 0, 8)
	r := NewRegistry(WithCountCallback(func(c int) {
		counts = append(counts, c)
	}))
	now := time.Now()

	// Two tabs browsing anonymously, then the visitor logs in
	r.Connect("tab1", AnonIdentity("cookie-7"), now)
	r.Connect("tab2", AnonIdentity("cookie-7"), now)
	if got := r.Count(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	if !r.Rekey("tab1", UserIdentity("42")) {
		t.Fatal("rekey of known connection must return true")
	}
	// One tab upgraded, one still anonymous: two identities for a moment
	if got := r.Count(); got != 2 {
		t.Errorf("count = %d mid-upgrade, want 2", got)
	}
	r.Rekey("tab2", UserIdentity("42"))
	if got := r.Count(); got != 1 {
		t.Errorf("count = %d after full upgrade, want 1", got)
	}

	snap := r.Snapshot()
	if snap.Identities["user:42"] != 2 {
		t.Errorf("expected both tabs under user:42, got %+v", snap.Identities)
	}
	if _, ok := snap.Identities["anon:cookie-7"]; ok {
		t.Error("anonymous entry must be removed after rekey")
	}

	// Rekey to the same identity is a no-op
	if !r.Rekey("tab1", UserIdentity("42")) {
		t.Error("same-identity rekey must return true")
	}
	if r.Rekey("ghost", UserIdentity("42")) {
		t.Error("rekey of unknown connection must return false")
	}

	// The count never flapped to 0 during the upgrade
	for _, c := range counts {
		if c == 0 {
			t.Errorf("count callback saw 0 during upgrade: %v", counts)
		}
	}
}

func TestCountCallbackFiresOnlyOnChange(t *testing.T) {
	var mu sync.Mutex
	calls := make([]int, 0, 8)
	r := NewRegistry(WithCountCallback(func(c int) {
		mu.Lock()
		calls = append(calls, c)
		mu.Unlock()
	}))
	now := time.Now()

	r.Connect("c1", AnonIdentity("v1"), now) // 0 -> 1: fires
	r.Connect("c2", AnonIdentity("v1"), now) // still 1: silent
	r.Connect("c3", AnonIdentity("v2"), now) // 1 -> 2: fires
	r.Disconnect("c2")                       // still 2: silent
	r.Disconnect("c1")                       // 2 -> 1: fires
	r.Disconnect("c3")                       // 1 -> 0: fires

	mu.Lock()
	defer mu.Unlock()
	want := []int{1, 2, 1, 0}
	if len(calls) != len(want) {
		t.Fatalf("callback calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("callback[%d] = %d, want %d", i, calls[i], want[i])
		}
	}
}

func TestCountCallbackNeverRollsBackward(t *testing.T) {
	var mu sync.Mutex
	calls := make([]int, 0, 64)
	r := NewRegistry(WithCountCallback(func(c int) {
		mu.Lock()
		calls = append(calls, c)
		mu.Unlock()
	}))
	now := time.Now()

	// Concurrent connects from distinct visitors; every mutation changes the
	// count, so every one fires the callback, in whatever delivery order the
	// scheduler produces.
	const visitors = 32
	var wg sync.WaitGroup
	for i := 0; i < visitors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			r.Connect(id, AnonIdentity(id), now)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != visitors {
		t.Fatalf("callback fired %d times, want %d", len(calls), visitors)
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] < calls[i-1] {
			t.Fatalf("broadcast rolled backward at %d: %v", i, calls)
		}
	}
	if last := calls[len(calls)-1]; last != visitors {
		t.Errorf("last broadcast = %d, want %d", last, visitors)
	}
}

func TestEmergencySignalOnThreshold(t *testing.T) {
	r := NewRegistry(WithEmergencyThreshold(5))
	now := time.Now()

	for i := 0; i < 4; i++ {
		r.Connect(fmt.Sprintf("c%d", i), ConnIdentity(fmt.Sprintf("c%d", i)), now)
	}
	select {
	case <-r.Emergency():
		t.Fatal("emergency must not fire below threshold")
	default:
	}

	r.Connect("c4", ConnIdentity("c4"), now)
	select {
	case <-r.Emergency():
	default:
		t.Fatal("emergency must fire at threshold")
	}

	// Further crossings coalesce into at most one pending signal
	r.Connect("c5", ConnIdentity("c5"), now)
	r.Connect("c6", ConnIdentity("c6"), now)
	select {
	case <-r.Emergency():
	default:
		t.Fatal("expected one pending emergency signal")
	}
	select {
	case <-r.Emergency():
		t.Fatal("signals must coalesce, got a second pending signal")
	default:
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.Connect("c1", AnonIdentity("v1"), now)

	snap := r.Snapshot()
	snap.Identities["anon:forged"] = 99

	if got := r.Count(); got != 1 {
		t.Errorf("mutating a snapshot must not affect the registry, count = %d", got)
	}
	if _, ok := r.Snapshot().Identities["anon:forged"]; ok {
		t.Error("snapshot mutation leaked into the registry")
	}
}

func TestConnectReusedConnectionID(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	r.Connect("c1", AnonIdentity("v1"), now)
	// Transport reuses the connection ID for a different visitor; the old
	// ownership must be released, never doubled
	r.Connect("c1", AnonIdentity("v2"), now)

	if got := r.TotalConnections(); got != 1 {
		t.Errorf("totalConnections = %d, want 1", got)
	}
	snap := r.Snapshot()
	if _, ok := snap.Identities["anon:v1"]; ok {
		t.Error("old identity must be detached when connection ID is reused")
	}
	if snap.Identities["anon:v2"] != 1 {
		t.Errorf("new identity missing: %+v", snap.Identities)
	}
}

// TestLiteralScenario walks the canonical multi-tab session end to end.
func TestLiteralScenario(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	if got := r.Count(); got != 0 {
		t.Fatalf("count = %d, want 0", got)
	}

	// Three sockets with distinct fresh anonymous tokens
	r.Connect("s1", AnonIdentity("t1"), now)
	r.Connect("s2", AnonIdentity("t2"), now)
	r.Connect("s3", AnonIdentity("t3"), now)
	if got := r.Count(); got != 3 {
		t.Fatalf("count = %d, want 3", got)
	}

	// Fourth socket replays socket #1's token
	r.Connect("s4", AnonIdentity("t1"), now)
	if got := r.Count(); got != 3 {
		t.Errorf("count = %d, want 3 after token replay", got)
	}
	if got := r.TotalConnections(); got != 4 {
		t.Errorf("totalConnections = %d, want 4", got)
	}

	// Close sockets #1 and #4
	r.Disconnect("s1")
	r.Disconnect("s4")
	if got := r.Count(); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
	if got := r.TotalConnections(); got != 2 {
		t.Errorf("totalConnections = %d, want 2", got)
	}

	// Close the rest
	r.Disconnect("s2")
	r.Disconnect("s3")
	if got := r.Count(); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
	if got := r.TotalConnections(); got != 0 {
		t.Errorf("totalConnections = %d, want 0", got)
	}
}

func TestConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("g%d-c%d", g, i)
				r.Connect(id, AnonIdentity(fmt.Sprintf("v%d", i%13)), time.Now())
				r.Heartbeat(id, time.Now())
				if i%3 != 0 {
					r.Disconnect(id)
				}
			}
		}(g)
	}
	// Concurrent readers
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = r.Count()
				_ = r.Snapshot()
			}
		}()
	}
	wg.Wait()

	// Invariants hold after the storm: every identity entry is non-empty
	// and connection totals agree
	snap := r.Snapshot()
	total := 0
	for key, n := range snap.Identities {
		if n <= 0 {
			t.Errorf("identity %q has %d connections, empty entries are forbidden", key, n)
		}
		total += n
	}
	if total != snap.TotalConnections {
		t.Errorf("identity connection sum %d != totalConnections %d", total, snap.TotalConnections)
	}
	if snap.Count != len(snap.Identities) {
		t.Errorf("count %d != identity entries %d", snap.Count, len(snap.Identities))
	}
}
