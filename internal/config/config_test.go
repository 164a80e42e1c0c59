package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
gateway:
  url: ws://127.0.0.1:4002/ws
  ping_timeout: 30s
monitor:
  heartbeat_interval: 15s
  max_reconnect_attempts: 3
rate_limit:
  max_requests_per_second: 40
  max_orders_per_second: 2
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:4002/ws", cfg.Gateway.URL)
	assert.Equal(t, 30*time.Second, cfg.Gateway.PingTimeout)
	assert.Equal(t, 15*time.Second, cfg.Monitor.HeartbeatInterval)
	assert.Equal(t, 3, cfg.Monitor.MaxReconnectAttempts)
	assert.Equal(t, 40.0, cfg.RateLimit.MaxRequestsPerSecond)
	assert.Equal(t, 2.0, cfg.RateLimit.MaxOrdersPerSecond)
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_GATEWAY_KEY", "secret123")

	yaml := `
gateway:
  url: ws://127.0.0.1:4002/ws
  api_key: ${TEST_GATEWAY_KEY}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret123", cfg.Gateway.APIKey)
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
gateway:
  url: ws://127.0.0.1:4002/ws
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultHeartbeatInterval, cfg.Monitor.HeartbeatInterval)
	assert.Equal(t, DefaultMaxReconnectAttempts, cfg.Monitor.MaxReconnectAttempts)
	assert.Equal(t, DefaultReconnectBaseDelay, cfg.Monitor.ReconnectBaseDelay)
	assert.Equal(t, DefaultMaxRequestsPerSecond, cfg.RateLimit.MaxRequestsPerSecond)
	assert.Equal(t, DefaultMaxMarketDataLines, cfg.RateLimit.MaxMarketDataLines)
	assert.Equal(t, DefaultHistoricalWindow, cfg.RateLimit.HistoricalWindow)
	assert.Equal(t, DefaultBurstSize, cfg.RateLimit.BurstSize)
	assert.Equal(t, DefaultMetricsPort, cfg.Metrics.Port)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
}

func TestLoadAndValidate(t *testing.T) {
	yaml := `
gateway:
  url: ws://127.0.0.1:4002/ws
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *BridgeConfig {
		cfg := &BridgeConfig{Gateway: GatewayConfig{URL: "ws://127.0.0.1:4002/ws"}}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*BridgeConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *BridgeConfig) {},
		},
		{
			name:    "missing gateway url",
			mutate:  func(c *BridgeConfig) { c.Gateway.URL = "" },
			wantErr: "gateway.url is required",
		},
		{
			name:    "reconnect attempts below one",
			mutate:  func(c *BridgeConfig) { c.Monitor.MaxReconnectAttempts = 0 },
			wantErr: "monitor.max_reconnect_attempts must be >= 1",
		},
		{
			name:    "zero request rate",
			mutate:  func(c *BridgeConfig) { c.RateLimit.MaxRequestsPerSecond = 0 },
			wantErr: "rate_limit.max_requests_per_second must be > 0",
		},
		{
			name:    "multiplier not above one",
			mutate:  func(c *BridgeConfig) { c.RateLimit.BackoffMultiplier = 1 },
			wantErr: "rate_limit.backoff_multiplier must be > 1",
		},
		{
			name:    "max backoff below initial",
			mutate:  func(c *BridgeConfig) { c.RateLimit.MaxBackoff = c.RateLimit.InitialBackoff / 2 },
			wantErr: "rate_limit.max_backoff must be >= rate_limit.initial_backoff",
		},
		{
			name:    "metrics port out of range",
			mutate:  func(c *BridgeConfig) { c.Metrics.Port = 70000 },
			wantErr: "metrics.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
