package gateway

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected     = errors.New("session not connected")
	ErrAlreadyConnected = errors.New("session already connected")
	ErrSessionClosed    = errors.New("session closed")
	ErrPingTimeout      = errors.New("ping timed out")
)

// Message wraps raw message data with its receive timestamp.
type Message struct {
	Data       []byte    // Raw message bytes from the gateway
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Config configures a gateway session.
type Config struct {
	URL              string        // WebSocket URL of the gateway (e.g., ws://127.0.0.1:4002/ws)
	APIKey           string        // Bearer token for the Authorization header (empty = no auth)
	HandshakeTimeout time.Duration // WebSocket handshake deadline
	PingTimeout      time.Duration // Max wait for a correlated pong
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Inbound message channel buffer size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		PingTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1024,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = def.PingTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
}
