package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rcaldwell/twsgate/internal/monitor"
	"github.com/rcaldwell/twsgate/internal/ratelimit"
)

// HealthSource yields a point-in-time view of the gateway connection.
type HealthSource interface {
	HealthSnapshot() monitor.Health
}

// StatsSource yields a point-in-time view of the rate limiter.
type StatsSource interface {
	StatsSnapshot() ratelimit.Stats
}

// Collector converts health and limiter snapshots into Prometheus
// metrics on every scrape. It holds no state of its own.
type Collector struct {
	health HealthSource
	stats  StatsSource

	connState        *prometheus.Desc
	connHealthy      *prometheus.Desc
	connUptime       *prometheus.Desc
	reconnects       *prometheus.Desc
	connErrors       *prometheus.Desc
	heartbeatLatency *prometheus.Desc
	messages         *prometheus.Desc

	limitRequests *prometheus.Desc
	limitDelay    *prometheus.Desc
	acceptance    *prometheus.Desc
	subscriptions *prometheus.Desc
	backoffActive *prometheus.Desc
}

// NewCollector builds a collector over the given snapshot sources.
// Either source may be nil, in which case its metrics are omitted.
func NewCollector(health HealthSource, stats StatsSource) *Collector {
	return &Collector{
		health: health,
		stats:  stats,

		connState: prometheus.NewDesc(
			"twsgate_connection_state",
			"Current connection state (1 for the active state, 0 otherwise)",
			[]string{"state"}, nil,
		),
		connHealthy: prometheus.NewDesc(
			"twsgate_connection_healthy",
			"Whether the gateway connection is connected with a recent heartbeat",
			nil, nil,
		),
		connUptime: prometheus.NewDesc(
			"twsgate_connection_uptime_seconds",
			"Seconds since the current connection was established",
			nil, nil,
		),
		reconnects: prometheus.NewDesc(
			"twsgate_reconnects_total",
			"Successful reconnections since start",
			nil, nil,
		),
		connErrors: prometheus.NewDesc(
			"twsgate_connection_errors_total",
			"Connection and heartbeat errors since start",
			nil, nil,
		),
		heartbeatLatency: prometheus.NewDesc(
			"twsgate_heartbeat_latency_seconds",
			"Round-trip latency of the most recent heartbeat probe",
			nil, nil,
		),
		messages: prometheus.NewDesc(
			"twsgate_gateway_messages_total",
			"Messages exchanged with the gateway",
			[]string{"direction"}, nil,
		),

		limitRequests: prometheus.NewDesc(
			"twsgate_ratelimit_requests_total",
			"Rate limiter admission decisions",
			[]string{"result"}, nil,
		),
		limitDelay: prometheus.NewDesc(
			"twsgate_ratelimit_delay_seconds_total",
			"Cumulative time requests spent waiting for tokens",
			nil, nil,
		),
		acceptance: prometheus.NewDesc(
			"twsgate_ratelimit_acceptance_ratio",
			"Fraction of requests admitted since the last stats reset",
			nil, nil,
		),
		subscriptions: prometheus.NewDesc(
			"twsgate_market_data_subscriptions",
			"Active market data subscription lines",
			nil, nil,
		),
		backoffActive: prometheus.NewDesc(
			"twsgate_ratelimit_backoff_active",
			"Whether a gateway-imposed backoff window is in effect",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	if c.health != nil {
		ch <- c.connState
		ch <- c.connHealthy
		ch <- c.connUptime
		ch <- c.reconnects
		ch <- c.connErrors
		ch <- c.heartbeatLatency
		ch <- c.messages
	}
	if c.stats != nil {
		ch <- c.limitRequests
		ch <- c.limitDelay
		ch <- c.acceptance
		ch <- c.subscriptions
		ch <- c.backoffActive
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.health != nil {
		h := c.health.HealthSnapshot()

		for _, state := range monitor.States() {
			v := 0.0
			if h.State == state {
				v = 1.0
			}
			ch <- prometheus.MustNewConstMetric(c.connState,
				prometheus.GaugeValue, v, string(state))
		}

		ch <- prometheus.MustNewConstMetric(c.connHealthy,
			prometheus.GaugeValue, boolValue(h.Healthy()))
		ch <- prometheus.MustNewConstMetric(c.connUptime,
			prometheus.GaugeValue, h.Uptime().Seconds())
		ch <- prometheus.MustNewConstMetric(c.reconnects,
			prometheus.CounterValue, float64(h.ReconnectCount))
		ch <- prometheus.MustNewConstMetric(c.connErrors,
			prometheus.CounterValue, float64(h.ErrorCount))
		ch <- prometheus.MustNewConstMetric(c.heartbeatLatency,
			prometheus.GaugeValue, h.Latency.Seconds())
		ch <- prometheus.MustNewConstMetric(c.messages,
			prometheus.CounterValue, float64(h.MessagesSent), "sent")
		ch <- prometheus.MustNewConstMetric(c.messages,
			prometheus.CounterValue, float64(h.MessagesReceived), "received")
	}

	if c.stats != nil {
		s := c.stats.StatsSnapshot()

		ch <- prometheus.MustNewConstMetric(c.limitRequests,
			prometheus.CounterValue, float64(s.AcceptedRequests), "accepted")
		ch <- prometheus.MustNewConstMetric(c.limitRequests,
			prometheus.CounterValue, float64(s.RejectedRequests), "rejected")
		ch <- prometheus.MustNewConstMetric(c.limitRequests,
			prometheus.CounterValue, float64(s.DelayedRequests), "delayed")
		ch <- prometheus.MustNewConstMetric(c.limitDelay,
			prometheus.CounterValue, s.TotalDelay.Seconds())
		ch <- prometheus.MustNewConstMetric(c.acceptance,
			prometheus.GaugeValue, s.AcceptanceRate)
		ch <- prometheus.MustNewConstMetric(c.subscriptions,
			prometheus.GaugeValue, float64(s.ActiveSubscriptions))
		ch <- prometheus.MustNewConstMetric(c.backoffActive,
			prometheus.GaugeValue, boolValue(s.InBackoff))
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
