package monitor

import "time"

// healthyHeartbeatAge is the maximum heartbeat age for a connection to
// still be considered healthy.
const healthyHeartbeatAge = 30 * time.Second

// Health holds connection health metrics. Mutated only by the monitor;
// callers receive copies via HealthSnapshot.
type Health struct {
	State            State
	LastHeartbeat    time.Time
	ConnectedAt      time.Time
	ReconnectCount   int
	ErrorCount       int
	LastError        string
	Latency          time.Duration
	MessagesSent     uint64
	MessagesReceived uint64
}

// Healthy reports whether the connection is connected and has seen a
// heartbeat recently.
func (h Health) Healthy() bool {
	if h.State != StateConnected {
		return false
	}
	if h.LastHeartbeat.IsZero() {
		return false
	}
	return time.Since(h.LastHeartbeat) < healthyHeartbeatAge
}

// Uptime returns time since the connection was established, or zero if
// it was never connected.
func (h Health) Uptime() time.Duration {
	if h.ConnectedAt.IsZero() {
		return 0
	}
	return time.Since(h.ConnectedAt)
}
