// Package transport carries one whole gossip message blob between peers.
// The gossip engine is the sole owner of a Transport for its entire
// lifetime. The engine calls Receive from its own receive goroutine while
// Send runs on its loop goroutine, so an implementation must allow one
// Send to run concurrently with one Receive.
package transport

import (
	"context"

	"github.com/mcastellin/gossip-detector/internal/membership"
	"github.com/mcastellin/gossip-detector/internal/wire"
)

// Transport delivers and receives whole GossipMessage blobs. Send failures
// are non-fatal to the engine; Receive blocks until a message is available,
// ctx is canceled, or an unrecoverable error occurs.
type Transport interface {
	// Send delivers msg to the peer at to. May fail; failures are
	// logged and swallowed by the caller.
	Send(ctx context.Context, to membership.Addr, msg wire.GossipMessage) error

	// Receive yields the next received message along with the
	// transport-observed sender address, which MAY differ from the
	// msg.From field the message itself carries.
	Receive(ctx context.Context) (from membership.Addr, msg wire.GossipMessage, err error)

	// Close releases any resources (sockets, listeners, cached
	// connections) held by the transport.
	Close() error
}
