package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultPingTimeout      = 60 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultBufferSize       = 1000

	DefaultHeartbeatInterval    = 10 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectBaseDelay   = 5 * time.Second

	DefaultMaxRequestsPerSecond  = 50.0
	DefaultMaxOrdersPerSecond    = 5.0
	DefaultMaxMarketDataLines    = 100
	DefaultMaxHistoricalRequests = 60
	DefaultHistoricalWindow      = 10 * time.Minute
	DefaultBurstSize             = 10
	DefaultInitialBackoff        = 100 * time.Millisecond
	DefaultMaxBackoff            = 30 * time.Second
	DefaultBackoffMultiplier     = 2.0

	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

func (c *BridgeConfig) applyDefaults() {
	// Gateway defaults
	if c.Gateway.HandshakeTimeout == 0 {
		c.Gateway.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Gateway.PingTimeout == 0 {
		c.Gateway.PingTimeout = DefaultPingTimeout
	}
	if c.Gateway.WriteTimeout == 0 {
		c.Gateway.WriteTimeout = DefaultWriteTimeout
	}
	if c.Gateway.BufferSize == 0 {
		c.Gateway.BufferSize = DefaultBufferSize
	}

	// Monitor defaults
	if c.Monitor.HeartbeatInterval == 0 {
		c.Monitor.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Monitor.MaxReconnectAttempts == 0 {
		c.Monitor.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Monitor.ReconnectBaseDelay == 0 {
		c.Monitor.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}

	// Rate limit defaults
	if c.RateLimit.MaxRequestsPerSecond == 0 {
		c.RateLimit.MaxRequestsPerSecond = DefaultMaxRequestsPerSecond
	}
	if c.RateLimit.MaxOrdersPerSecond == 0 {
		c.RateLimit.MaxOrdersPerSecond = DefaultMaxOrdersPerSecond
	}
	if c.RateLimit.MaxMarketDataLines == 0 {
		c.RateLimit.MaxMarketDataLines = DefaultMaxMarketDataLines
	}
	if c.RateLimit.MaxHistoricalRequests == 0 {
		c.RateLimit.MaxHistoricalRequests = DefaultMaxHistoricalRequests
	}
	if c.RateLimit.HistoricalWindow == 0 {
		c.RateLimit.HistoricalWindow = DefaultHistoricalWindow
	}
	if c.RateLimit.BurstSize == 0 {
		c.RateLimit.BurstSize = DefaultBurstSize
	}
	if c.RateLimit.InitialBackoff == 0 {
		c.RateLimit.InitialBackoff = DefaultInitialBackoff
	}
	if c.RateLimit.MaxBackoff == 0 {
		c.RateLimit.MaxBackoff = DefaultMaxBackoff
	}
	if c.RateLimit.BackoffMultiplier == 0 {
		c.RateLimit.BackoffMultiplier = DefaultBackoffMultiplier
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
