package transport

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/mcastellin/gossip-detector/internal/gosserr"
	"github.com/mcastellin/gossip-detector/internal/membership"
	"github.com/mcastellin/gossip-detector/internal/wire"
	"go.uber.org/zap"
)

// TCP is a stream Transport using 4-byte big-endian length-prefixed
// framing. The accept loop is long-lived: every accepted connection gets
// its own reader goroutine that decodes messages one at a time and pushes
// them onto a shared inbound queue, rather than spawning a fresh listener
// per message.
type TCP struct {
	listener net.Listener
	logger   *zap.Logger

	mu          sync.Mutex
	connections map[membership.Addr]net.Conn

	inbound chan inbound
	done    chan struct{}
}

type inbound struct {
	from membership.Addr
	msg  wire.GossipMessage
	err  error
}

// NewTCP binds a listener at bindAddr and starts its accept loop.
func NewTCP(bindAddr string, logger *zap.Logger) (*TCP, error) {
	l, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, gosserr.New("transport.NewTCP", gosserr.Network, err)
	}
	t := &TCP{
		listener:    l,
		logger:      logger,
		connections: map[membership.Addr]net.Conn{},
		inbound:     make(chan inbound, 64),
		done:        make(chan struct{}),
	}
	go t.acceptLoop()
	return t, nil
}

func (t *TCP) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			t.logger.Error("tcp accept loop terminated, no further connections will be accepted",
				zap.Error(err))
			t.inbound <- inbound{err: gosserr.New("tcp.accept", gosserr.Network, err)}
			return
		}
		go t.readLoop(conn)
	}
}

func (t *TCP) readLoop(conn net.Conn) {
	from := membership.Addr(conn.RemoteAddr().String())
	defer conn.Close()

	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			if err != io.EOF {
				t.logger.Warn("tcp connection dropped while reading frame length",
					zap.String("from", string(from)), zap.Error(err))
			}
			return
		}
		length := binary.BigEndian.Uint32(lenBuf[:])

		payload := make([]byte, length)
		if _, err := io.ReadFull(conn, payload); err != nil {
			t.logger.Warn("tcp connection dropped mid-frame",
				zap.String("from", string(from)), zap.Error(err))
			t.inbound <- inbound{from: from, err: gosserr.New("tcp.read", gosserr.Network, err)}
			return
		}

		msg, err := wire.Decode(payload)
		if err != nil {
			t.logger.Warn("tcp message decode failed",
				zap.String("from", string(from)), zap.Error(err))
			t.inbound <- inbound{from: from, err: err}
			continue
		}
		t.inbound <- inbound{from: from, msg: msg}
	}
}

func (t *TCP) dial(to membership.Addr) (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if conn, ok := t.connections[to]; ok {
		return conn, nil
	}
	conn, err := net.Dial("tcp", string(to))
	if err != nil {
		return nil, gosserr.New("tcp.dial", gosserr.Network, err)
	}
	t.connections[to] = conn
	return conn, nil
}

func (t *TCP) Send(ctx context.Context, to membership.Addr, msg wire.GossipMessage) error {
	conn, err := t.dial(to)
	if err != nil {
		return err
	}

	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		t.dropConnection(to)
		return gosserr.New("tcp.Send", gosserr.Network, err)
	}
	if _, err := conn.Write(data); err != nil {
		t.dropConnection(to)
		return gosserr.New("tcp.Send", gosserr.Network, err)
	}
	return nil
}

func (t *TCP) dropConnection(to membership.Addr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.connections, to)
}

func (t *TCP) Receive(ctx context.Context) (membership.Addr, wire.GossipMessage, error) {
	select {
	case env := <-t.inbound:
		if env.err != nil {
			return env.from, wire.GossipMessage{}, env.err
		}
		return env.from, env.msg, nil
	case <-ctx.Done():
		return "", wire.GossipMessage{}, ctx.Err()
	}
}

func (t *TCP) Close() error {
	close(t.done)
	t.mu.Lock()
	for _, conn := range t.connections {
		conn.Close()
	}
	t.mu.Unlock()
	return t.listener.Close()
}
