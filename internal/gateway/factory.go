package gateway

import (
	"context"
	"log/slog"

	"github.com/rcaldwell/twsgate/internal/monitor"
)

// NewFactory returns a connection factory producing fresh sessions.
// Each invocation builds a new Session; the monitor takes care of
// calling Connect and retiring dead handles.
func NewFactory(cfg Config, logger *slog.Logger) monitor.Factory {
	return func(ctx context.Context) (monitor.Conn, error) {
		return NewSession(cfg, logger), nil
	}
}
