// Package monitor implements the Connection Monitor component.
//
// The Connection Monitor:
//   - Owns the lifecycle of one logical gateway connection
//   - Runs periodic liveness and heartbeat checks
//   - Recovers lost connections with bounded exponential backoff
//   - Exposes lifecycle callbacks and a health snapshot for collaborators
package monitor
