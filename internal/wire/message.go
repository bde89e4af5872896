// Package wire defines the gossip message wire format and its codec.
package wire

import "github.com/mcastellin/gossip-detector/internal/membership"

// GossipMessage is the record exchanged on every gossip round. FailoverList
// and StartingNodes are reserved for forward compatibility: the current
// design never populates them, but they must round-trip through the codec
// even when empty.
type GossipMessage struct {
	From          membership.Addr
	GossipCounts  map[membership.Addr]uint64
	FailoverList  []membership.Addr
	StartingNodes []membership.Addr
}

// Clone returns a deep copy of the message suitable for handing to a
// transport that may retain or mutate its argument.
func (m GossipMessage) Clone() GossipMessage {
	counts := make(map[membership.Addr]uint64, len(m.GossipCounts))
	for k, v := range m.GossipCounts {
		counts[k] = v
	}
	failover := append([]membership.Addr(nil), m.FailoverList...)
	starting := append([]membership.Addr(nil), m.StartingNodes...)
	return GossipMessage{
		From:          m.From,
		GossipCounts:  counts,
		FailoverList:  failover,
		StartingNodes: starting,
	}
}
