package transport

import (
	"context"
	"testing"
	"time"

	"github.com/mcastellin/gossip-detector/internal/membership"
	"github.com/mcastellin/gossip-detector/internal/wire"
	"go.uber.org/zap"
)

func TestMemoryTransportDeliversMessage(t *testing.T) {
	net := NewMemoryNetwork()
	a := net.NewTransport("peer-a")
	b := net.NewTransport("peer-b")
	defer a.Close()
	defer b.Close()

	msg := wire.GossipMessage{
		From:         "peer-a",
		GossipCounts: map[membership.Addr]uint64{"peer-a": 1},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := a.Send(ctx, "peer-b", msg); err != nil {
		t.Fatal(err)
	}

	from, got, err := b.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if from != "peer-a" {
		t.Fatalf("expected sender peer-a, got %s", from)
	}
	if got.GossipCounts["peer-a"] != 1 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestUDPTransportLoopback(t *testing.T) {
	logger := zap.NewNop()
	a, err := NewUDP("127.0.0.1:0", logger)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewUDP("127.0.0.1:0", logger)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	bAddr := membership.Addr(b.conn.LocalAddr().String())

	msg := wire.GossipMessage{
		From:         "peer-a",
		GossipCounts: map[membership.Addr]uint64{"peer-a": 42},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := a.Send(ctx, bAddr, msg); err != nil {
		t.Fatal(err)
	}

	_, got, err := b.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.GossipCounts["peer-a"] != 42 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestTCPTransportLoopback(t *testing.T) {
	logger := zap.NewNop()
	a, err := NewTCP("127.0.0.1:0", logger)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewTCP("127.0.0.1:0", logger)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	bAddr := membership.Addr(b.listener.Addr().String())

	msg := wire.GossipMessage{
		From:         "peer-a",
		GossipCounts: map[membership.Addr]uint64{"peer-a": 7},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := a.Send(ctx, bAddr, msg); err != nil {
		t.Fatal(err)
	}

	_, got, err := b.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.GossipCounts["peer-a"] != 7 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}
