// Package metrics exposes Prometheus metrics for the bridge.
//
// Key metrics:
//   - Connection state, uptime, reconnects and heartbeat latency
//   - Gateway message throughput
//   - Rate limiter acceptance, rejection and delay totals
//   - Market data subscription count and backoff state
package metrics
