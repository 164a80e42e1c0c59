package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Monitor owns the lifecycle of one logical gateway connection: it
// establishes it, periodically verifies it is alive, and repairs it with
// bounded exponential backoff.
type Monitor struct {
	cfg     Config
	factory Factory
	logger  *slog.Logger

	// mu guards health, conn, caps and started.
	mu      sync.RWMutex
	health  Health
	conn    Conn
	caps    capabilities
	started bool

	// reconnectMu serializes whole reconnection sequences so concurrent
	// triggers share a single sequence and its outcome.
	reconnectMu sync.Mutex

	// Single-slot lifecycle callbacks (last registration wins).
	cbMu           sync.RWMutex
	onConnected    func()
	onDisconnected func()
	onError        func(error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Connection Monitor around the given connection factory.
func New(factory Factory, cfg Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	return &Monitor{
		cfg:     cfg,
		factory: factory,
		logger:  logger,
		health:  Health{State: StateDisconnected},
	}
}

// Start establishes the initial connection and launches the background
// liveness and heartbeat checks.
func (m *Monitor) Start(ctx context.Context) error {
	if m.factory == nil {
		return ErrNoConnectionFactory
	}

	m.mu.Lock()
	if m.health.State == StateShutdown {
		m.mu.Unlock()
		return ErrShutdown
	}
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	m.logger.Info("starting connection monitor",
		"heartbeat_interval", m.cfg.HeartbeatInterval,
		"max_reconnect_attempts", m.cfg.MaxReconnectAttempts,
	)

	if err := m.connect(ctx); err != nil {
		m.setState(StateError)
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
		return &ConnectError{Err: err}
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(2)
	go m.livenessLoop()
	go m.heartbeatLoop()

	return nil
}

// Stop shuts the monitor down: it signals both background checks to exit,
// awaits their orderly termination (bounded by ctx), and only then tears
// down the connection handle.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.health.State == StateShutdown {
		m.mu.Unlock()
		return nil
	}
	m.setStateLocked(StateShutdown)
	m.mu.Unlock()

	m.logger.Info("stopping connection monitor")

	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, abandoning background checks")
	}

	m.dropConn()
	m.notify("disconnected", m.disconnectedCallback())

	m.logger.Info("connection monitor stopped")
	return nil
}

// Reconnect runs one serialized reconnection sequence. It is idempotent:
// if already connected it returns true without touching the factory.
// Returns false once all attempts are exhausted, after moving to
// StateError and firing the error callback.
func (m *Monitor) Reconnect(ctx context.Context) bool {
	m.reconnectMu.Lock()
	defer m.reconnectMu.Unlock()

	m.mu.Lock()
	switch m.health.State {
	case StateConnected:
		m.mu.Unlock()
		return true
	case StateShutdown:
		m.mu.Unlock()
		return false
	}
	m.setStateLocked(StateReconnecting)
	m.mu.Unlock()

	for attempt := 1; attempt <= m.cfg.MaxReconnectAttempts; attempt++ {
		if m.State() == StateShutdown {
			return false
		}

		delay := m.cfg.ReconnectBaseDelay << (attempt - 1)

		m.logger.Info("reconnection attempt",
			"attempt", attempt,
			"max", m.cfg.MaxReconnectAttempts,
			"delay", delay,
		)

		// Drop any stale handle before redialing.
		m.dropConn()

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		if err := m.connect(ctx); err != nil {
			if m.State() == StateShutdown {
				return false
			}
			m.logger.Warn("reconnection attempt failed",
				"attempt", attempt,
				"error", err,
			)
			continue
		}

		m.mu.Lock()
		m.health.ReconnectCount++
		m.mu.Unlock()

		m.logger.Info("reconnection successful", "attempts", attempt)
		return true
	}

	m.logger.Error("max reconnection attempts reached",
		"max", m.cfg.MaxReconnectAttempts,
	)
	m.setState(StateError)
	m.notifyError(fmt.Errorf("%w: %w", ErrConnectionLost, ErrReconnectExhausted))
	return false
}

// IsConnected reports whether the monitor currently holds a live connection.
func (m *Monitor) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health.State == StateConnected
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health.State
}

// Conn returns the live connection handle, or nil unless the state is
// StateConnected. This prevents callers from borrowing a handle mid-recovery.
func (m *Monitor) Conn() Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.health.State != StateConnected {
		return nil
	}
	return m.conn
}

// HealthSnapshot returns a copy of the current health metrics.
func (m *Monitor) HealthSnapshot() Health {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h := m.health
	if m.caps.traffic != nil {
		h.MessagesSent, h.MessagesReceived = m.caps.traffic.Counts()
	}
	return h
}

// OnConnected registers the connected callback. Last registration wins.
func (m *Monitor) OnConnected(fn func()) {
	m.cbMu.Lock()
	m.onConnected = fn
	m.cbMu.Unlock()
}

// OnDisconnected registers the disconnected callback. Last registration wins.
func (m *Monitor) OnDisconnected(fn func()) {
	m.cbMu.Lock()
	m.onDisconnected = fn
	m.cbMu.Unlock()
}

// OnError registers the error callback. Last registration wins.
func (m *Monitor) OnError(fn func(error)) {
	m.cbMu.Lock()
	m.onError = fn
	m.cbMu.Unlock()
}

// connect invokes the factory and the handle's Connecter capability if
// present. On success it installs the handle, moves to StateConnected and
// fires the connected callback. On failure it records the error and leaves
// the state to the caller. If the monitor can no longer accept a handle
// (shutdown raced the factory), the fresh handle is discarded.
func (m *Monitor) connect(ctx context.Context) error {
	m.logger.Info("establishing connection")

	conn, err := m.factory(ctx)
	var caps capabilities
	if err == nil {
		caps = resolveCapabilities(conn)
		if caps.connecter != nil {
			err = caps.connecter.Connect(ctx)
		}
	}

	if err != nil {
		m.mu.Lock()
		m.health.LastError = err.Error()
		m.health.ErrorCount++
		m.mu.Unlock()
		m.logger.Error("connection failed", "error", err)
		return err
	}

	now := time.Now()
	m.mu.Lock()
	if !m.setStateLocked(StateConnected) {
		// The monitor moved to a state that cannot accept a handle while
		// the factory was in flight (typically shutdown). Discard the
		// fresh handle instead of installing it.
		state := m.health.State
		m.mu.Unlock()

		if caps.disconnecter != nil {
			if derr := caps.disconnecter.Disconnect(); derr != nil {
				m.logger.Error("error discarding connection", "error", derr)
			}
		}
		m.logger.Warn("discarding connection established in unusable state",
			"state", state,
		)
		return fmt.Errorf("cannot install connection in state %s: %w", state, ErrIllegalTransition)
	}
	m.conn = conn
	m.caps = caps
	m.health.ConnectedAt = now
	m.health.LastHeartbeat = now
	m.mu.Unlock()

	m.logger.Info("connection established")
	m.notify("connected", m.connectedCallback())
	return nil
}

// dropConn releases the current handle, using its Disconnecter if present.
func (m *Monitor) dropConn() {
	m.mu.Lock()
	conn := m.conn
	disc := m.caps.disconnecter
	m.conn = nil
	m.caps = capabilities{}
	m.mu.Unlock()

	if conn == nil {
		return
	}
	if disc != nil {
		if err := disc.Disconnect(); err != nil {
			m.logger.Error("error during disconnect", "error", err)
		}
	}
}

// livenessLoop periodically verifies the connection and triggers recovery.
func (m *Monitor) livenessLoop() {
	defer m.wg.Done()
	m.logger.Debug("liveness loop started")

	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Debug("liveness loop stopped")
			return
		case <-ticker.C:
			if m.State() == StateShutdown {
				return
			}
			if !m.checkConnection() {
				m.logger.Warn("connection check failed, attempting recovery")
				m.Reconnect(m.ctx)
			}
		}
	}
}

// checkConnection verifies that the handle reports itself connected and
// that a heartbeat has been seen within 3x the heartbeat interval.
func (m *Monitor) checkConnection() bool {
	m.mu.RLock()
	conn := m.conn
	status := m.caps.status
	state := m.health.State
	last := m.health.LastHeartbeat
	m.mu.RUnlock()

	if conn == nil || state != StateConnected {
		return false
	}

	if status != nil && !status.IsConnected() {
		m.logger.Warn("connection check: handle reports disconnected")
		m.setState(StateDisconnected)
		return false
	}

	if !last.IsZero() && time.Since(last) > 3*m.cfg.HeartbeatInterval {
		m.logger.Warn("no heartbeat", "age", time.Since(last))
		return false
	}

	return true
}

// heartbeatLoop periodically probes the handle and records latency and a
// fresh heartbeat timestamp.
func (m *Monitor) heartbeatLoop() {
	defer m.wg.Done()
	m.logger.Debug("heartbeat loop started")

	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Debug("heartbeat loop stopped")
			return
		case <-ticker.C:
			m.heartbeat()
		}
	}
}

// heartbeat performs a single probe. An unreachable handle is treated as
// a connection-loss signal; the liveness loop picks up the recovery.
func (m *Monitor) heartbeat() {
	m.mu.RLock()
	state := m.health.State
	conn := m.conn
	caps := m.caps
	m.mu.RUnlock()

	if state != StateConnected || conn == nil {
		return
	}

	start := time.Now()

	switch {
	case caps.pinger != nil:
		if err := caps.pinger.Ping(m.ctx); err != nil {
			m.logger.Warn("heartbeat ping failed", "error", err)
			m.mu.Lock()
			m.health.ErrorCount++
			m.health.LastError = err.Error()
			m.setStateLocked(StateDisconnected)
			m.mu.Unlock()
			return
		}
	case caps.status != nil:
		if !caps.status.IsConnected() {
			m.logger.Warn("heartbeat detected connection loss")
			m.setState(StateDisconnected)
			return
		}
	}

	m.mu.Lock()
	m.health.Latency = time.Since(start)
	m.health.LastHeartbeat = time.Now()
	if caps.traffic != nil {
		m.health.MessagesSent, m.health.MessagesReceived = caps.traffic.Counts()
	}
	m.mu.Unlock()
}

// setState applies a guarded state transition. Illegal transitions are
// rejected and leave the state unchanged.
func (m *Monitor) setState(to State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setStateLocked(to)
}

func (m *Monitor) setStateLocked(to State) bool {
	from := m.health.State
	if !CanTransition(from, to) {
		m.logger.Warn("rejected illegal state transition", "from", from, "to", to)
		return false
	}
	if from != to {
		m.logger.Debug("state transition", "from", from, "to", to)
	}
	m.health.State = to
	return true
}

func (m *Monitor) connectedCallback() func() {
	m.cbMu.RLock()
	defer m.cbMu.RUnlock()
	return m.onConnected
}

func (m *Monitor) disconnectedCallback() func() {
	m.cbMu.RLock()
	defer m.cbMu.RUnlock()
	return m.onDisconnected
}

// notify invokes a callback best-effort: a panic inside the callback is
// logged and swallowed, never allowed to crash the monitor.
func (m *Monitor) notify(name string, fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("callback panic", "callback", name, "panic", r)
		}
	}()
	fn()
}

func (m *Monitor) notifyError(err error) {
	m.cbMu.RLock()
	fn := m.onError
	m.cbMu.RUnlock()

	if fn == nil {
		return
	}
	m.notify("error", func() { fn(err) })
}
