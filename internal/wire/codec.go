package wire

import (
	"bytes"
	"encoding/gob"

	"github.com/mcastellin/gossip-detector/internal/gosserr"
	"github.com/mcastellin/gossip-detector/internal/membership"
)

// Encode serializes a GossipMessage to its binary wire form. Nil reserved
// lists and counts are replaced by empty values first; gob does not
// transmit empty slices or maps, so it is Decode that restores them as
// empty (never nil) values on the receiving side.
func Encode(msg GossipMessage) ([]byte, error) {
	out := msg
	if out.FailoverList == nil {
		out.FailoverList = []membership.Addr{}
	}
	if out.StartingNodes == nil {
		out.StartingNodes = []membership.Addr{}
	}
	if out.GossipCounts == nil {
		out.GossipCounts = map[membership.Addr]uint64{}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(out); err != nil {
		return nil, gosserr.New("wire.Encode", gosserr.Serialization, err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes a GossipMessage from its binary wire form.
func Decode(data []byte) (GossipMessage, error) {
	var msg GossipMessage
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&msg); err != nil {
		return GossipMessage{}, gosserr.New("wire.Decode", gosserr.Serialization, err)
	}
	if msg.FailoverList == nil {
		msg.FailoverList = []membership.Addr{}
	}
	if msg.StartingNodes == nil {
		msg.StartingNodes = []membership.Addr{}
	}
	if msg.GossipCounts == nil {
		msg.GossipCounts = map[membership.Addr]uint64{}
	}
	return msg, nil
}
