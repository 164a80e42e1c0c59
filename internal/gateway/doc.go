// Package gateway implements the WebSocket session to the brokerage
// desktop gateway.
//
// A Session is the concrete connection handle managed by the monitor
// package: it dials the gateway, serializes writes, pumps inbound
// messages onto a buffered channel, and answers liveness probes with
// correlated ping/pong round trips. Sessions are single-use; the
// factory produces a fresh one for every (re)connection attempt.
package gateway
