// Package engine implements the gossip engine: the periodic tick that
// drives fan-out, dispatch of inbound messages, integration of remote
// heartbeat counters into the membership table, and target selection. It
// is the sole writer of the membership table for its entire lifetime; the
// FSM is invoked only from here and never owns I/O.
package engine

import (
	"context"
	"time"

	"github.com/mcastellin/gossip-detector/internal/fsm"
	"github.com/mcastellin/gossip-detector/internal/membership"
	"github.com/mcastellin/gossip-detector/internal/transport"
	"github.com/mcastellin/gossip-detector/internal/wire"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

type received struct {
	from membership.Addr
	msg  wire.GossipMessage
}

// Engine owns the membership table and the transport for its entire
// lifetime, running a single cooperative loop with exactly two
// suspension points: awaiting the next inbound message and awaiting the
// next periodic tick. Construct with NewBuilder.
type Engine struct {
	selfAddr        membership.Addr
	table           *membership.Table
	transport       transport.Transport
	logger          *zap.Logger
	gossipInterval  time.Duration
	suspectDuration time.Duration
	fanout          int
	gossipThreshold int
	generation      xid.ID

	events chan Event
	recvCh chan received
}

// SelfAddr returns the node's own address.
func (e *Engine) SelfAddr() membership.Addr { return e.selfAddr }

// Generation returns the identifier minted at construction time that
// distinguishes this process's lifetime from a prior run bound to the
// same address, for logging and diagnostics.
func (e *Engine) Generation() string { return e.generation.String() }

// Events returns the channel of state-change notifications the engine
// publishes to. Sends are non-blocking: a full channel drops the event
// and logs a warning rather than stalling the steady-state loop.
func (e *Engine) Events() <-chan Event { return e.events }

// AddNode explicitly registers a peer address, creating a fresh Suspect
// entry if it is not already known. Idempotent.
func (e *Engine) AddNode(addr membership.Addr) {
	if addr == e.selfAddr {
		return
	}
	e.table.Upsert(addr, time.Now())
}

// Snapshot returns a point-in-time copy of the full membership table, for
// diagnostics (the CLI's "nodes" subcommand and the HTTP status endpoint).
func (e *Engine) Snapshot() map[membership.Addr]membership.Entry {
	return e.table.Peers()
}

// Run executes the engine's cooperative loop until ctx is canceled, and
// then returns ctx.Err(). Receive errors are logged by recvLoop and never
// end the loop. On each iteration exactly one of two events is handled:
// an inbound message, or the periodic tick.
func (e *Engine) Run(ctx context.Context) error {
	go e.recvLoop(ctx)

	ticker := time.NewTicker(e.gossipInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-e.recvCh:
			if !ok {
				return nil
			}
			e.handleMessage(r.from, r.msg)
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// recvLoop blocks on the transport's Receive and forwards decoded
// messages onto recvCh. Receive errors are logged and the loop continues;
// they never abort the engine.
func (e *Engine) recvLoop(ctx context.Context) {
	for {
		from, msg, err := e.transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.logger.Error("gossip receive failed", zap.Error(err))
			continue
		}
		select {
		case e.recvCh <- received{from: from, msg: msg}:
		case <-ctx.Done():
			return
		}
	}
}

// handleMessage integrates one inbound gossip message: lazy discovery of
// unknown addresses, monotonic counter merge, and FSM evaluation for every
// peer whose counter advanced. All merges and evaluations for this message
// complete before the next event is considered.
func (e *Engine) handleMessage(from membership.Addr, msg wire.GossipMessage) {
	now := time.Now()

	e.publish(Event{Kind: GossipReceived, From: from})

	for addr := range msg.GossipCounts {
		if _, known := e.table.Get(addr); !known {
			e.table.Upsert(addr, now)
			e.publish(Event{Kind: NodeAdded, Addr: addr})
		}
	}

	for addr, observed := range msg.GossipCounts {
		if e.table.MergeCounter(addr, observed, now) {
			e.evaluate(addr, now)
		}
	}
}

// tick fires one gossip round: advance the self heartbeat, sweep every
// known peer's FSM (the self entry is skipped) so silent peers can be condemned without waiting on
// another peer's heartbeat to trigger evaluation, snapshot counts, and
// disseminate to randomly selected targets.
//
// Both the self-heartbeat advance and the full-table sweep happen on
// every tick, not just when a message arrives: without the advance the
// sender would look permanently silent in every peer's view, and without
// the sweep a lapsed peer would stay stuck in Alive until some other
// peer's heartbeat happened to touch it.
func (e *Engine) tick(ctx context.Context) {
	now := time.Now()

	self, ok := e.table.Get(e.selfAddr)
	if !ok {
		e.table.Upsert(e.selfAddr, now)
		self, _ = e.table.Get(e.selfAddr)
	}
	e.table.MergeCounter(e.selfAddr, self.Heartbeat+1, now)

	for _, addr := range e.table.Addrs() {
		if addr == e.selfAddr {
			continue
		}
		e.evaluate(addr, now)
	}

	counts := e.table.SnapshotCounts()
	msg := wire.GossipMessage{
		From:          e.selfAddr,
		GossipCounts:  counts,
		FailoverList:  []membership.Addr{},
		StartingNodes: []membership.Addr{},
	}

	for _, target := range e.selectTargets() {
		if err := e.transport.Send(ctx, target, msg); err != nil {
			e.logger.Warn("gossip send failed",
				zap.String("to", string(target)), zap.Error(err))
		}
	}
}

// evaluate runs the FSM for addr and applies the resulting transition, if
// any, to the table.
func (e *Engine) evaluate(addr membership.Addr, now time.Time) {
	entry, ok := e.table.Get(addr)
	if !ok {
		return
	}

	gap := now.Sub(entry.AdvancedAt)
	held := now.Sub(entry.EnteredStateAt)
	cfg := fsm.Config{GossipThreshold: e.gossipThreshold, SuspectDuration: e.suspectDuration}

	next, changed := fsm.Evaluate(entry.State, gap, held, cfg)
	if !changed {
		return
	}

	e.table.SetState(addr, next, now)
	e.publish(Event{Kind: NodeStateChanged, Addr: addr, State: next})
	e.logger.Info("peer state changed",
		zap.String("addr", string(addr)), zap.String("state", next.String()))
}

// selectTargets uniformly samples up to fanout addresses from the table,
// excluding self. No stratification by state: Dead peers are still
// gossiped to, since they might be back.
func (e *Engine) selectTargets() []membership.Addr {
	all := e.table.Addrs()
	candidates := make([]membership.Addr, 0, len(all))
	for _, addr := range all {
		if addr != e.selfAddr {
			candidates = append(candidates, addr)
		}
	}
	return sampleWithoutReplacement(candidates, e.fanout)
}

func (e *Engine) publish(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("event channel full, dropping event")
	}
}
