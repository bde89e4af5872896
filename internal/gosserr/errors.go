// Package gosserr defines the error kinds used across the gossip detector.
package gosserr

import "fmt"

// Kind classifies an Error by its origin, so callers can decide whether
// to log-and-continue or abort construction.
type Kind int

const (
	// Unknown is the catch-all kind; treated as fatal.
	Unknown Kind = iota
	// Network covers transport send/receive/bind/connect failures.
	Network
	// InvalidAddress covers address parse failures at construction time.
	InvalidAddress
	// Config covers invalid builder parameters.
	Config
	// StateMachine covers internal invariant violations; should not occur.
	StateMachine
	// Serialization covers encode/decode failures of gossip messages.
	Serialization
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "network"
	case InvalidAddress:
		return "invalid_address"
	case Config:
		return "config"
	case StateMachine:
		return "state_machine"
	case Serialization:
		return "serialization"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so call sites can branch on
// origin without string matching.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error for op/kind wrapping err. Serialization failures are
// surfaced as Network per the detector's error handling design: nothing
// that happens on the wire is allowed to be more than a logged warning.
func New(op string, kind Kind, err error) *Error {
	if kind == Serialization {
		kind = Network
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// ConfigError is a convenience constructor for construction-time
// configuration errors, which propagate to the caller instead of being
// swallowed.
func ConfigError(op string, err error) *Error {
	return &Error{Op: op, Kind: Config, Err: err}
}
