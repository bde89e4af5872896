package transport

import (
	"context"
	"net"
	"time"

	"github.com/mcastellin/gossip-detector/internal/gosserr"
	"github.com/mcastellin/gossip-detector/internal/membership"
	"github.com/mcastellin/gossip-detector/internal/wire"
	"go.uber.org/zap"
)

// udpBufferSize bounds one datagram. Messages exceeding this are truncated
// by the kernel before we ever see them; this is a practical limit on
// cluster size given each message carries the sender's entire view.
const udpBufferSize = 4096

// UDP is a datagram Transport: each Send emits one UDP packet, each
// Receive reads one packet and decodes it whole.
type UDP struct {
	conn   *net.UDPConn
	logger *zap.Logger
}

// NewUDP binds a UDP socket at bindAddr.
func NewUDP(bindAddr string, logger *zap.Logger) (*UDP, error) {
	addr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, gosserr.New("transport.NewUDP", gosserr.InvalidAddress, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, gosserr.New("transport.NewUDP", gosserr.Network, err)
	}
	return &UDP{conn: conn, logger: logger}, nil
}

func (t *UDP) Send(ctx context.Context, to membership.Addr, msg wire.GossipMessage) error {
	raddr, err := net.ResolveUDPAddr("udp", string(to))
	if err != nil {
		return gosserr.New("udp.Send", gosserr.InvalidAddress, err)
	}
	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	if _, err := t.conn.WriteToUDP(data, raddr); err != nil {
		return gosserr.New("udp.Send", gosserr.Network, err)
	}
	return nil
}

func (t *UDP) Receive(ctx context.Context) (membership.Addr, wire.GossipMessage, error) {
	t.conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { t.conn.SetReadDeadline(time.Now()) })
	defer stop()

	buf := make([]byte, udpBufferSize)
	n, raddr, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		if ctx.Err() != nil {
			return "", wire.GossipMessage{}, ctx.Err()
		}
		return "", wire.GossipMessage{}, gosserr.New("udp.Receive", gosserr.Network, err)
	}
	msg, err := wire.Decode(buf[:n])
	if err != nil {
		t.logger.Warn("udp message decode failed",
			zap.String("from", raddr.String()), zap.Error(err))
		return "", wire.GossipMessage{}, err
	}
	return membership.Addr(raddr.String()), msg, nil
}

func (t *UDP) Close() error {
	return t.conn.Close()
}
