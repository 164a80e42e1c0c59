package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *BridgeConfig) Validate() error {
	if c.Gateway.URL == "" {
		return errors.New("gateway.url is required")
	}

	if c.Monitor.MaxReconnectAttempts < 1 {
		return errors.New("monitor.max_reconnect_attempts must be >= 1")
	}
	if c.Monitor.HeartbeatInterval <= 0 {
		return errors.New("monitor.heartbeat_interval must be > 0")
	}
	if c.Monitor.ReconnectBaseDelay <= 0 {
		return errors.New("monitor.reconnect_base_delay must be > 0")
	}

	if c.RateLimit.MaxRequestsPerSecond <= 0 {
		return errors.New("rate_limit.max_requests_per_second must be > 0")
	}
	if c.RateLimit.MaxOrdersPerSecond <= 0 {
		return errors.New("rate_limit.max_orders_per_second must be > 0")
	}
	if c.RateLimit.MaxMarketDataLines < 1 {
		return errors.New("rate_limit.max_market_data_lines must be >= 1")
	}
	if c.RateLimit.MaxHistoricalRequests < 1 {
		return errors.New("rate_limit.max_historical_requests must be >= 1")
	}
	if c.RateLimit.BurstSize < 1 {
		return errors.New("rate_limit.burst_size must be >= 1")
	}
	if c.RateLimit.BackoffMultiplier <= 1 {
		return errors.New("rate_limit.backoff_multiplier must be > 1")
	}
	if c.RateLimit.MaxBackoff < c.RateLimit.InitialBackoff {
		return errors.New("rate_limit.max_backoff must be >= rate_limit.initial_backoff")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}
