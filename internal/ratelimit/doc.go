// Package ratelimit implements the Rate Limiter component.
//
// The Rate Limiter:
//   - Gates every outbound gateway call by operation class
//   - Token buckets for general throughput and order placement
//   - Sliding-window counter for historical-data quotas
//   - Bounded tracking of concurrent market-data subscriptions
//   - Reactive backoff when the gateway itself reports a rate violation
package ratelimit
