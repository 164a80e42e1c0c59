package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is a single WebSocket connection to the gateway.
type Session struct {
	cfg    Config
	logger *slog.Logger

	conn *websocket.Conn

	// Output channels
	messages chan Message
	errs     chan error
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu        sync.RWMutex
	connected bool
	closed    bool
	lastPong  time.Time

	// Outstanding pings keyed by correlation ID
	pongMu   sync.Mutex
	pongWait map[string]chan struct{}

	sent     atomic.Uint64
	received atomic.Uint64
}

// NewSession creates a new, not yet connected gateway session.
func NewSession(cfg Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	return &Session{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan Message, cfg.BufferSize),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
		pongWait: make(map[string]chan struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.connected {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.mu.Unlock()

	header := http.Header{}
	header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		return err
	}

	conn.SetPongHandler(func(data string) error {
		s.mu.Lock()
		s.lastPong = time.Now()
		s.mu.Unlock()

		s.pongMu.Lock()
		if ch, ok := s.pongWait[data]; ok {
			close(ch)
			delete(s.pongWait, data)
		}
		s.pongMu.Unlock()
		return nil
	})

	// Answer server-initiated pings so the gateway sees us as alive.
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.lastPong = time.Now()
	s.mu.Unlock()

	go s.readLoop()

	s.logger.Debug("gateway session connected", "url", s.cfg.URL)

	return nil
}

// Disconnect gracefully closes the session. It is safe to call more
// than once.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.connected = false
	conn := s.conn
	s.mu.Unlock()

	close(s.done)

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}

	return nil
}

// Send writes raw bytes to the gateway.
func (s *Session) Send(data []byte) error {
	s.mu.RLock()
	if !s.connected {
		s.mu.RUnlock()
		return ErrNotConnected
	}
	conn := s.conn
	s.mu.RUnlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	s.sent.Add(1)
	return nil
}

// Ping sends a correlated WebSocket ping and waits for the matching
// pong. The round trip doubles as the monitor's heartbeat probe.
func (s *Session) Ping(ctx context.Context) error {
	s.mu.RLock()
	if !s.connected {
		s.mu.RUnlock()
		return ErrNotConnected
	}
	conn := s.conn
	s.mu.RUnlock()

	id := uuid.NewString()
	ch := make(chan struct{})

	s.pongMu.Lock()
	s.pongWait[id] = ch
	s.pongMu.Unlock()

	defer func() {
		s.pongMu.Lock()
		delete(s.pongWait, id)
		s.pongMu.Unlock()
	}()

	deadline := time.Now().Add(s.cfg.WriteTimeout)
	if err := conn.WriteControl(websocket.PingMessage, []byte(id), deadline); err != nil {
		return err
	}

	timer := time.NewTimer(s.cfg.PingTimeout)
	defer timer.Stop()

	select {
	case <-ch:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrPingTimeout
	}
}

// Messages returns the inbound message channel.
func (s *Session) Messages() <-chan Message {
	return s.messages
}

// Errors returns the connection error channel.
func (s *Session) Errors() <-chan error {
	return s.errs
}

// IsConnected reports the current connection state.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Counts returns the session's cumulative sent and received message
// counts.
func (s *Session) Counts() (sent, received uint64) {
	return s.sent.Load(), s.received.Load()
}

// readLoop reads messages from the WebSocket and pumps them onto the
// messages channel until the connection dies or the session closes.
func (s *Session) readLoop() {
	defer func() {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Ignore errors after Disconnect() is called
			select {
			case <-s.done:
				return
			default:
				select {
				case s.errs <- err:
				default:
				}
				return
			}
		}

		s.received.Add(1)

		select {
		case s.messages <- Message{Data: data, ReceivedAt: receivedAt}:
		case <-s.done:
			return
		default:
			s.logger.Warn("message buffer full, dropping message")
		}
	}
}
