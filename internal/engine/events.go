package engine

import (
	"github.com/mcastellin/gossip-detector/internal/fsm"
	"github.com/mcastellin/gossip-detector/internal/membership"
)

// EventKind classifies an Event published on the engine's Events channel,
// letting callers observe membership changes without polling Snapshot.
type EventKind int

const (
	// GossipReceived fires once per inbound message handled.
	GossipReceived EventKind = iota
	// NodeStateChanged fires whenever a peer's FSM transitions.
	NodeStateChanged
	// NodeAdded fires when an inbound gossip message names a previously
	// unknown peer. Seed nodes and peers registered through AddNode do
	// not produce it.
	NodeAdded
)

// Event is a single notification of something the engine did. Addr and
// From are populated according to Kind; State is only meaningful for
// NodeStateChanged.
type Event struct {
	Kind  EventKind
	Addr  membership.Addr
	From  membership.Addr
	State fsm.State
}
