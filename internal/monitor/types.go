package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrConnectionLost      = errors.New("connection lost")
	ErrReconnectExhausted  = errors.New("reconnection attempts exhausted")
	ErrShutdown            = errors.New("monitor is shut down")
	ErrAlreadyStarted      = errors.New("monitor already started")
	ErrIllegalTransition   = errors.New("illegal state transition")
	ErrNoConnectionFactory = errors.New("connection factory is required")
)

// ConnectError wraps a connection-establishment failure.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect: %v", e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err belongs to the connection-failure
// class that the retry wrapper is allowed to retry.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConnectError
	return errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, ErrReconnectExhausted) ||
		errors.As(err, &ce)
}

// Conn is the opaque gateway connection handle produced by the factory.
// The monitor probes it for the optional capabilities below exactly once,
// when the handle is produced.
type Conn any

// Factory produces a new (not yet connected) gateway connection handle.
type Factory func(ctx context.Context) (Conn, error)

// Connecter is an optional capability: a handle that must be explicitly
// connected after creation.
type Connecter interface {
	Connect(ctx context.Context) error
}

// Disconnecter is an optional capability: a handle with an orderly teardown.
type Disconnecter interface {
	Disconnect() error
}

// Pinger is an optional capability: a handle that supports an explicit
// round-trip liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusReporter is an optional capability: the primary liveness signal
// when available.
type StatusReporter interface {
	IsConnected() bool
}

// TrafficCounter is an optional capability: a handle that tracks its own
// send/receive counts, surfaced through the health snapshot.
type TrafficCounter interface {
	Counts() (sent, received uint64)
}

// capabilities holds the capability views of the current handle, resolved
// once when the handle is produced.
type capabilities struct {
	connecter    Connecter
	disconnecter Disconnecter
	pinger       Pinger
	status       StatusReporter
	traffic      TrafficCounter
}

func resolveCapabilities(c Conn) capabilities {
	var caps capabilities
	caps.connecter, _ = c.(Connecter)
	caps.disconnecter, _ = c.(Disconnecter)
	caps.pinger, _ = c.(Pinger)
	caps.status, _ = c.(StatusReporter)
	caps.traffic, _ = c.(TrafficCounter)
	return caps
}

// Config configures the Connection Monitor.
type Config struct {
	HeartbeatInterval    time.Duration // Interval between liveness/heartbeat checks
	MaxReconnectAttempts int           // Attempts per reconnection sequence
	ReconnectBaseDelay   time.Duration // Base delay for exponential backoff
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:    10 * time.Second,
		MaxReconnectAttempts: 5,
		ReconnectBaseDelay:   5 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
}
