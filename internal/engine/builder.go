package engine

import (
	"errors"
	"time"

	"github.com/mcastellin/gossip-detector/internal/fsm"
	"github.com/mcastellin/gossip-detector/internal/gosserr"
	"github.com/mcastellin/gossip-detector/internal/membership"
	"github.com/mcastellin/gossip-detector/internal/transport"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

var (
	errEmptySelfAddr       = errors.New("self address must not be empty")
	errNoTransport         = errors.New("transport is required")
	errNonPositiveFanout   = errors.New("fanout must be positive")
	errNonPositiveInterval = errors.New("gossip interval must be positive")
	errNonPositiveSuspect  = errors.New("suspect timeout must be positive")
)

const (
	defaultGossipInterval = time.Second
	defaultSuspectTimeout = 5 * time.Second
	defaultFanout         = 3
)

// Builder assembles an Engine. Construction-time errors (missing self
// address, missing transport, invalid fanout) propagate to the caller
// instead of being swallowed, per the detector's error handling design.
type Builder struct {
	selfAddr        membership.Addr
	seedNodes       []membership.Addr
	gossipInterval  time.Duration
	suspectTimeout  time.Duration
	fanout          int
	gossipThreshold int
	thresholdSet    bool
	logger          *zap.Logger
	tr              transport.Transport
}

// NewBuilder starts a Builder for the node bound at selfAddr.
func NewBuilder(selfAddr membership.Addr) *Builder {
	return &Builder{
		selfAddr:       selfAddr,
		gossipInterval: defaultGossipInterval,
		suspectTimeout: defaultSuspectTimeout,
		fanout:         defaultFanout,
	}
}

// WithSeedNodes sets the initial set of peers to discover eagerly.
func (b *Builder) WithSeedNodes(nodes []membership.Addr) *Builder {
	b.seedNodes = nodes
	return b
}

// WithGossipInterval overrides the period between fan-out rounds.
func (b *Builder) WithGossipInterval(d time.Duration) *Builder {
	b.gossipInterval = d
	return b
}

// WithSuspectTimeout overrides the Suspect quarantine / condemnation
// window (propagated as suspect_duration to every entry).
func (b *Builder) WithSuspectTimeout(d time.Duration) *Builder {
	b.suspectTimeout = d
	return b
}

// WithFanout overrides the number of gossip targets per round. Unless
// WithGossipThreshold is also called, gossip_threshold is derived from
// fanout so the two stay coupled by default (see DESIGN.md for why
// that coupling is kept as a default rather than a hard rule).
func (b *Builder) WithFanout(n int) *Builder {
	b.fanout = n
	return b
}

// WithGossipThreshold overrides the Alive liveness tolerance in seconds,
// decoupling it from fanout.
func (b *Builder) WithGossipThreshold(seconds int) *Builder {
	b.gossipThreshold = seconds
	b.thresholdSet = true
	return b
}

// WithLogger overrides the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithTransport sets the transport capability the engine will use. Required.
func (b *Builder) WithTransport(tr transport.Transport) *Builder {
	b.tr = tr
	return b
}

// Build validates the configuration and constructs the Engine. The table
// is seeded with the self entry and every seed node before returning.
func (b *Builder) Build() (*Engine, error) {
	if b.selfAddr == "" {
		return nil, gosserr.ConfigError("engine.Build", errEmptySelfAddr)
	}
	if b.tr == nil {
		return nil, gosserr.ConfigError("engine.Build", errNoTransport)
	}
	if b.fanout <= 0 {
		return nil, gosserr.ConfigError("engine.Build", errNonPositiveFanout)
	}
	if b.gossipInterval <= 0 {
		return nil, gosserr.ConfigError("engine.Build", errNonPositiveInterval)
	}
	if b.suspectTimeout <= 0 {
		return nil, gosserr.ConfigError("engine.Build", errNonPositiveSuspect)
	}

	threshold := b.fanout
	if b.thresholdSet {
		threshold = b.gossipThreshold
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	table := membership.NewTable(b.suspectTimeout, threshold)

	e := &Engine{
		selfAddr:        b.selfAddr,
		table:           table,
		transport:       b.tr,
		logger:          logger,
		gossipInterval:  b.gossipInterval,
		suspectDuration: b.suspectTimeout,
		fanout:          b.fanout,
		gossipThreshold: threshold,
		generation:      xid.New(),
		events:          make(chan Event, 256),
		recvCh:          make(chan received, 64),
	}

	now := time.Now()
	table.Upsert(e.selfAddr, now)
	table.SetState(e.selfAddr, fsm.Alive, now)
	for _, seed := range b.seedNodes {
		if seed == e.selfAddr {
			continue
		}
		table.Upsert(seed, now)
	}

	return e, nil
}
