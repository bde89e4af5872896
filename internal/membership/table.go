// Package membership holds the per-peer membership table: the mapping from
// a peer address to everything the detector knows about that peer's
// liveness. The table is the sole source of truth the gossip engine reads
// from and writes to; it is deliberately ignorant of transport, timing
// policy and gossip mechanics.
package membership

import (
	"sync"
	"time"

	"github.com/mcastellin/gossip-detector/internal/fsm"
)

// Addr is an opaque, hashable, orderable peer identifier transmitted
// verbatim on the wire. In practice it is a "host:port" dial string.
type Addr string

// Entry is everything the table tracks for one known peer.
type Entry struct {
	Heartbeat      uint64
	AdvancedAt     time.Time
	State          fsm.State
	EnteredStateAt time.Time
	FailureCount   uint64

	// Config snapshots copied from the engine at construction.
	SuspectDuration time.Duration
	GossipThreshold int
}

// Table is the mapping from peer address to membership entry. Every method
// takes Table.mu: the gossip engine is its sole writer, but diagnostic
// readers — the HTTP status endpoint, which the CLI's "nodes" subcommand
// queries — read the table from outside the engine's single-threaded loop.
type Table struct {
	mu      sync.RWMutex
	entries map[Addr]*Entry

	suspectDuration time.Duration
	gossipThreshold int
}

// NewTable creates an empty table. suspectDuration and gossipThreshold are
// the config snapshots copied into every newly created entry.
func NewTable(suspectDuration time.Duration, gossipThreshold int) *Table {
	return &Table{
		entries:         map[Addr]*Entry{},
		suspectDuration: suspectDuration,
		gossipThreshold: gossipThreshold,
	}
}

// Upsert inserts a fresh Suspect entry for addr if absent. Idempotent: a no-op
// if addr is already known.
func (t *Table) Upsert(addr Addr, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.upsertLocked(addr, now)
}

func (t *Table) upsertLocked(addr Addr, now time.Time) *Entry {
	if e, ok := t.entries[addr]; ok {
		return e
	}
	e := &Entry{
		Heartbeat:       0,
		AdvancedAt:      now,
		State:           fsm.Suspect,
		EnteredStateAt:  now,
		SuspectDuration: t.suspectDuration,
		GossipThreshold: t.gossipThreshold,
	}
	t.entries[addr] = e
	return e
}

// MergeCounter applies a monotonic merge of an observed heartbeat counter.
// Returns true if the counter strictly advanced. The stored heartbeat never
// decreases regardless of what is observed.
func (t *Table) MergeCounter(addr Addr, observed uint64, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.upsertLocked(addr, now)
	if observed > e.Heartbeat {
		e.Heartbeat = observed
		e.AdvancedAt = now
		return true
	}
	return false
}

// SnapshotCounts returns a point-in-time copy of {addr -> heartbeat} for
// outbound dissemination. Callers may freely mutate the table afterward
// without affecting the returned map.
func (t *Table) SnapshotCounts() map[Addr]uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[Addr]uint64, len(t.entries))
	for addr, e := range t.entries {
		out[addr] = e.Heartbeat
	}
	return out
}

// SetState records a transition into newState, bumping FailureCount for the
// condemning transitions (Alive->Suspect, Suspect->Dead).
func (t *Table) SetState(addr Addr, newState fsm.State, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[addr]
	if !ok {
		return
	}
	if (e.State == fsm.Alive && newState == fsm.Suspect) ||
		(e.State == fsm.Suspect && newState == fsm.Dead) {
		e.FailureCount++
	}
	if newState == fsm.Alive && e.State == fsm.Suspect {
		e.FailureCount = 0
	}
	e.State = newState
	e.EnteredStateAt = now
}

// Get returns a copy of the entry for addr, if known.
func (t *Table) Get(addr Addr) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[addr]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Addrs returns every known peer address, in no particular order.
func (t *Table) Addrs() []Addr {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Addr, 0, len(t.entries))
	for addr := range t.entries {
		out = append(out, addr)
	}
	return out
}

// Peers returns a point-in-time copy of the full table, for diagnostics.
func (t *Table) Peers() map[Addr]Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[Addr]Entry, len(t.entries))
	for addr, e := range t.entries {
		out[addr] = *e
	}
	return out
}
