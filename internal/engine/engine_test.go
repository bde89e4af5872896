package engine

import (
	"context"
	"testing"
	"time"

	"github.com/mcastellin/gossip-detector/internal/fsm"
	"github.com/mcastellin/gossip-detector/internal/membership"
	"github.com/mcastellin/gossip-detector/internal/transport"
	"github.com/mcastellin/gossip-detector/internal/wire"
)

// buildTestEngine wires an Engine onto a shared in-memory network. Only
// suspectDuration and gossipInterval are scaled down for fast tests;
// gossipThreshold stays in whole seconds since that's what the FSM config
// expects.
func buildTestEngine(t *testing.T, net *transport.MemoryNetwork, addr membership.Addr, seeds []membership.Addr, gossipThresholdSeconds int, suspectDuration time.Duration, gossipInterval time.Duration) *Engine {
	t.Helper()
	tr := net.NewTransport(addr)
	e, err := NewBuilder(addr).
		WithSeedNodes(seeds).
		WithTransport(tr).
		WithGossipInterval(gossipInterval).
		WithSuspectTimeout(suspectDuration).
		WithGossipThreshold(gossipThresholdSeconds).
		WithFanout(3).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatal("condition not met before timeout")
	}
}

func stateOf(t *testing.T, e *Engine, addr membership.Addr) fsm.State {
	t.Helper()
	entry, ok := e.table.Get(addr)
	if !ok {
		return fsm.Dead + 1 // sentinel: unknown
	}
	return entry.State
}

func TestSelfNeverSelectedAsTarget(t *testing.T) {
	net := transport.NewMemoryNetwork()
	e := buildTestEngine(t, net, "a", []membership.Addr{"b", "c"}, 5, 5*time.Second, time.Hour)

	for i := 0; i < 50; i++ {
		targets := e.selectTargets()
		for _, target := range targets {
			if target == e.selfAddr {
				t.Fatalf("self address selected as gossip target")
			}
		}
	}
}

func TestFanoutBoundRespected(t *testing.T) {
	net := transport.NewMemoryNetwork()
	e := buildTestEngine(t, net, "a", []membership.Addr{"b", "c", "d", "e", "f"}, 5, 5*time.Second, time.Hour)

	targets := e.selectTargets()
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets (fanout), got %d", len(targets))
	}
	seen := map[membership.Addr]bool{}
	for _, target := range targets {
		if seen[target] {
			t.Fatalf("duplicate target %s: sampling must be without replacement", target)
		}
		seen[target] = true
	}
}

func TestFanoutBoundWithFewerPeers(t *testing.T) {
	net := transport.NewMemoryNetwork()
	e := buildTestEngine(t, net, "a", []membership.Addr{"b"}, 5, 5*time.Second, time.Hour)

	targets := e.selectTargets()
	if len(targets) != 1 {
		t.Fatalf("expected all 1 known peer as target, got %d", len(targets))
	}
}

func TestTwoNodeConvergence(t *testing.T) {
	net := transport.NewMemoryNetwork()
	a := buildTestEngine(t, net, "a", []membership.Addr{"b"}, 1, time.Second, 50*time.Millisecond)
	b := buildTestEngine(t, net, "b", []membership.Addr{"a"}, 1, time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)
	go b.Run(ctx)

	waitFor(t, 3*time.Second, func() bool {
		return stateOf(t, a, "b") == fsm.Alive && stateOf(t, b, "a") == fsm.Alive
	})
}

func TestIndirectDiscovery(t *testing.T) {
	net := transport.NewMemoryNetwork()
	a := buildTestEngine(t, net, "a", []membership.Addr{"b"}, 1, time.Second, 50*time.Millisecond)
	b := buildTestEngine(t, net, "b", []membership.Addr{"a", "c"}, 1, time.Second, 50*time.Millisecond)
	c := buildTestEngine(t, net, "c", []membership.Addr{"b"}, 1, time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)
	go b.Run(ctx)
	go c.Run(ctx)

	waitFor(t, 3*time.Second, func() bool {
		_, ok := a.table.Get("c")
		return ok
	})

	entry, _ := a.table.Get("c")
	if entry.State != fsm.Suspect && entry.State != fsm.Alive {
		t.Fatalf("expected c to be Suspect or Alive from a's perspective, got %v", entry.State)
	}
}

func TestLazyDiscoveryStartsSuspectWithZeroHeartbeat(t *testing.T) {
	net := transport.NewMemoryNetwork()
	a := buildTestEngine(t, net, "a", nil, 5, 5*time.Second, time.Hour)

	msg := wire.GossipMessage{
		From:         "b",
		GossipCounts: map[membership.Addr]uint64{"b": 0},
	}
	a.handleMessage("b", msg)
	entry, ok := a.table.Get("b")
	if !ok {
		t.Fatal("expected b to be discovered")
	}
	if entry.State != fsm.Suspect {
		t.Fatalf("expected initial state Suspect, got %v", entry.State)
	}
	if entry.Heartbeat != 0 {
		t.Fatalf("expected initial heartbeat 0, got %d", entry.Heartbeat)
	}
}
