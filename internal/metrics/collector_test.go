package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcaldwell/twsgate/internal/monitor"
	"github.com/rcaldwell/twsgate/internal/ratelimit"
)

type fakeHealth struct{ h monitor.Health }

func (f fakeHealth) HealthSnapshot() monitor.Health { return f.h }

type fakeStats struct{ s ratelimit.Stats }

func (f fakeStats) StatsSnapshot() ratelimit.Stats { return f.s }

func TestCollector_Collect(t *testing.T) {
	health := fakeHealth{h: monitor.Health{
		State:            monitor.StateConnected,
		LastHeartbeat:    time.Now(),
		ConnectedAt:      time.Now().Add(-time.Minute),
		ReconnectCount:   2,
		ErrorCount:       3,
		Latency:          25 * time.Millisecond,
		MessagesSent:     10,
		MessagesReceived: 40,
	}}
	stats := fakeStats{s: ratelimit.Stats{
		TotalRequests:       8,
		AcceptedRequests:    6,
		RejectedRequests:    2,
		DelayedRequests:     1,
		TotalDelay:          500 * time.Millisecond,
		AcceptanceRate:      0.75,
		ActiveSubscriptions: 4,
		InBackoff:           true,
	}}

	c := NewCollector(health, stats)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP twsgate_connection_healthy Whether the gateway connection is connected with a recent heartbeat
# TYPE twsgate_connection_healthy gauge
twsgate_connection_healthy 1
# HELP twsgate_reconnects_total Successful reconnections since start
# TYPE twsgate_reconnects_total counter
twsgate_reconnects_total 2
# HELP twsgate_connection_errors_total Connection and heartbeat errors since start
# TYPE twsgate_connection_errors_total counter
twsgate_connection_errors_total 3
# HELP twsgate_heartbeat_latency_seconds Round-trip latency of the most recent heartbeat probe
# TYPE twsgate_heartbeat_latency_seconds gauge
twsgate_heartbeat_latency_seconds 0.025
# HELP twsgate_gateway_messages_total Messages exchanged with the gateway
# TYPE twsgate_gateway_messages_total counter
twsgate_gateway_messages_total{direction="received"} 40
twsgate_gateway_messages_total{direction="sent"} 10
# HELP twsgate_ratelimit_requests_total Rate limiter admission decisions
# TYPE twsgate_ratelimit_requests_total counter
twsgate_ratelimit_requests_total{result="accepted"} 6
twsgate_ratelimit_requests_total{result="delayed"} 1
twsgate_ratelimit_requests_total{result="rejected"} 2
# HELP twsgate_ratelimit_delay_seconds_total Cumulative time requests spent waiting for tokens
# TYPE twsgate_ratelimit_delay_seconds_total counter
twsgate_ratelimit_delay_seconds_total 0.5
# HELP twsgate_ratelimit_acceptance_ratio Fraction of requests admitted since the last stats reset
# TYPE twsgate_ratelimit_acceptance_ratio gauge
twsgate_ratelimit_acceptance_ratio 0.75
# HELP twsgate_market_data_subscriptions Active market data subscription lines
# TYPE twsgate_market_data_subscriptions gauge
twsgate_market_data_subscriptions 4
# HELP twsgate_ratelimit_backoff_active Whether a gateway-imposed backoff window is in effect
# TYPE twsgate_ratelimit_backoff_active gauge
twsgate_ratelimit_backoff_active 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"twsgate_connection_healthy",
		"twsgate_reconnects_total",
		"twsgate_connection_errors_total",
		"twsgate_heartbeat_latency_seconds",
		"twsgate_gateway_messages_total",
		"twsgate_ratelimit_requests_total",
		"twsgate_ratelimit_delay_seconds_total",
		"twsgate_ratelimit_acceptance_ratio",
		"twsgate_market_data_subscriptions",
		"twsgate_ratelimit_backoff_active",
	)
	assert.NoError(t, err)
}

func TestCollector_ConnectionStatePerState(t *testing.T) {
	health := fakeHealth{h: monitor.Health{State: monitor.StateReconnecting}}

	c := NewCollector(health, nil)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, fam := range families {
		if fam.GetName() != "twsgate_connection_state" {
			continue
		}
		found = true
		assert.Len(t, fam.GetMetric(), len(monitor.States()))

		for _, m := range fam.GetMetric() {
			state := m.GetLabel()[0].GetValue()
			want := 0.0
			if state == string(monitor.StateReconnecting) {
				want = 1.0
			}
			assert.Equal(t, want, m.GetGauge().GetValue(), "state %s", state)
		}
	}
	assert.True(t, found, "twsgate_connection_state family missing")
}

func TestCollector_NilSources(t *testing.T) {
	c := NewCollector(nil, nil)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestCollector_LiveLimiterSource(t *testing.T) {
	l := ratelimit.New(ratelimit.DefaultConfig(), nil)
	require.NoError(t, l.AddSubscription("AAPL"))
	require.NoError(t, l.AddSubscription("MSFT"))

	c := NewCollector(nil, l)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)

	var subs float64 = -1
	for _, fam := range families {
		if fam.GetName() == "twsgate_market_data_subscriptions" {
			subs = fam.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 2.0, subs)
}
