package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcastellin/gossip-detector/internal/gosserr"
	"github.com/mcastellin/gossip-detector/internal/membership"
	"github.com/mcastellin/gossip-detector/internal/wire"
)

// inbox is an envelope queued for a Memory transport's Receive side.
type inbox struct {
	from membership.Addr
	msg  wire.GossipMessage
}

// MemoryNetwork is a shared in-process registry of Memory transports keyed
// by address, used to run full engine-to-engine scenarios in tests without
// touching real sockets.
type MemoryNetwork struct {
	mu    sync.RWMutex
	peers map[membership.Addr]chan inbox
}

// NewMemoryNetwork creates an empty in-process network.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{peers: map[membership.Addr]chan inbox{}}
}

// NewTransport registers and returns a Memory transport bound to addr.
func (n *MemoryNetwork) NewTransport(addr membership.Addr) *Memory {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan inbox, 64)
	n.peers[addr] = ch
	return &Memory{self: addr, network: n, inbox: ch}
}

func (n *MemoryNetwork) deliver(to membership.Addr, env inbox) error {
	n.mu.RLock()
	ch, ok := n.peers[to]
	n.mu.RUnlock()
	if !ok {
		return gosserr.New("memory.deliver", gosserr.Network, fmt.Errorf("unknown peer %q", to))
	}
	select {
	case ch <- env:
		return nil
	default:
		return gosserr.New("memory.deliver", gosserr.Network, fmt.Errorf("inbox full for peer %q", to))
	}
}

func (n *MemoryNetwork) unregister(addr membership.Addr) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.peers, addr)
}

// Memory is an in-process Transport implementation backed by a
// MemoryNetwork, used by the test suite to exercise engine scenarios
// deterministically and without real sockets.
type Memory struct {
	self    membership.Addr
	network *MemoryNetwork
	inbox   chan inbox
}

func (m *Memory) Send(ctx context.Context, to membership.Addr, msg wire.GossipMessage) error {
	return m.network.deliver(to, inbox{from: m.self, msg: msg.Clone()})
}

func (m *Memory) Receive(ctx context.Context) (membership.Addr, wire.GossipMessage, error) {
	select {
	case env := <-m.inbox:
		return env.from, env.msg, nil
	case <-ctx.Done():
		return "", wire.GossipMessage{}, ctx.Err()
	}
}

func (m *Memory) Close() error {
	m.network.unregister(m.self)
	return nil
}
