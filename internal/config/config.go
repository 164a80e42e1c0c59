package config

import "time"

// BridgeConfig is the root configuration for a gateway bridge instance.
type BridgeConfig struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// GatewayConfig holds settings for the gateway session.
type GatewayConfig struct {
	URL              string        `yaml:"url"`
	APIKey           string        `yaml:"api_key"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
}

// MonitorConfig holds connection monitor settings.
type MonitorConfig struct {
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
}

// RateLimitConfig holds rate limiter settings.
type RateLimitConfig struct {
	MaxRequestsPerSecond  float64       `yaml:"max_requests_per_second"`
	MaxOrdersPerSecond    float64       `yaml:"max_orders_per_second"`
	MaxMarketDataLines    int           `yaml:"max_market_data_lines"`
	MaxHistoricalRequests int           `yaml:"max_historical_requests"`
	HistoricalWindow      time.Duration `yaml:"historical_window"`
	BurstSize             int           `yaml:"burst_size"`
	InitialBackoff        time.Duration `yaml:"initial_backoff"`
	MaxBackoff            time.Duration `yaml:"max_backoff"`
	BackoffMultiplier     float64       `yaml:"backoff_multiplier"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
