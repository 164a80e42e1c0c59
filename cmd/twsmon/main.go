// twsmon runs the gateway bridge daemon: it maintains a monitored
// WebSocket connection to the brokerage desktop gateway, rate limits
// outbound traffic, and exposes health and Prometheus metrics.
// Usage: go run ./cmd/twsmon --config configs/bridge.local.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rcaldwell/twsgate/internal/config"
	"github.com/rcaldwell/twsgate/internal/gateway"
	"github.com/rcaldwell/twsgate/internal/metrics"
	"github.com/rcaldwell/twsgate/internal/monitor"
	"github.com/rcaldwell/twsgate/internal/ratelimit"
	"github.com/rcaldwell/twsgate/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/bridge.example.yaml", "path to config file")
	statsInterval := flag.Duration("stats-interval", time.Minute, "interval between stats log lines")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting twsmon",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"gateway_url", cfg.Gateway.URL,
		"heartbeat_interval", cfg.Monitor.HeartbeatInterval,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Rate limiter for outbound gateway traffic
	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerSecond:  cfg.RateLimit.MaxRequestsPerSecond,
		MaxOrdersPerSecond:    cfg.RateLimit.MaxOrdersPerSecond,
		MaxMarketDataLines:    cfg.RateLimit.MaxMarketDataLines,
		MaxHistoricalRequests: cfg.RateLimit.MaxHistoricalRequests,
		HistoricalWindow:      cfg.RateLimit.HistoricalWindow,
		BurstSize:             cfg.RateLimit.BurstSize,
		InitialBackoff:        cfg.RateLimit.InitialBackoff,
		MaxBackoff:            cfg.RateLimit.MaxBackoff,
		BackoffMultiplier:     cfg.RateLimit.BackoffMultiplier,
	}, logger)

	// Monitored gateway connection
	factory := gateway.NewFactory(gateway.Config{
		URL:              cfg.Gateway.URL,
		APIKey:           cfg.Gateway.APIKey,
		HandshakeTimeout: cfg.Gateway.HandshakeTimeout,
		PingTimeout:      cfg.Gateway.PingTimeout,
		WriteTimeout:     cfg.Gateway.WriteTimeout,
		BufferSize:       cfg.Gateway.BufferSize,
	}, logger)

	mon := monitor.New(factory, monitor.Config{
		HeartbeatInterval:    cfg.Monitor.HeartbeatInterval,
		MaxReconnectAttempts: cfg.Monitor.MaxReconnectAttempts,
		ReconnectBaseDelay:   cfg.Monitor.ReconnectBaseDelay,
	}, logger)

	mon.OnConnected(func() {
		logger.Info("gateway connected")
		limiter.ResetBackoff()
	})
	mon.OnDisconnected(func() {
		logger.Warn("gateway disconnected")
	})
	mon.OnError(func(err error) {
		logger.Error("gateway connection error", "error", err)
	})

	logger.Info("connecting to gateway", "url", cfg.Gateway.URL)
	if err := mon.Start(ctx); err != nil {
		logger.Error("failed to connect to gateway", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	reg := metrics.NewRegistry(metrics.NewCollector(mon, limiter))
	metricsSrv := metrics.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, reg, logger)

	// Health endpoint alongside the Prometheus scrape target
	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port+1),
		Handler:           healthHandler(mon, limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return metricsSrv.ListenAndServe()
	})

	g.Go(func() error {
		logger.Info("health server listening", "addr", healthSrv.Addr)
		if err := healthSrv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Periodic stats logging
	g.Go(func() error {
		ticker := time.NewTicker(*statsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				h := mon.HealthSnapshot()
				s := limiter.StatsSnapshot()
				logger.Info("bridge stats",
					"state", h.State,
					"healthy", h.Healthy(),
					"uptime", h.Uptime().Round(time.Second),
					"reconnects", h.ReconnectCount,
					"latency", h.Latency,
					"requests", s.TotalRequests,
					"accepted", s.AcceptedRequests,
					"rejected", s.RejectedRequests,
					"avg_delay", s.AvgDelay,
					"subscriptions", s.ActiveSubscriptions,
					"in_backoff", s.InBackoff,
				)
			}
		}
	})

	// Shutdown sequencing
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		metricsSrv.Shutdown(shutdownCtx)
		healthSrv.Shutdown(shutdownCtx)
		return mon.Stop(shutdownCtx)
	})

	logger.Info("twsmon running",
		"metrics_url", fmt.Sprintf("http://localhost:%d%s", cfg.Metrics.Port, cfg.Metrics.Path),
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port+1),
	)

	if err := g.Wait(); err != nil {
		logger.Error("bridge terminated", "error", err)
		os.Exit(1)
	}

	logger.Info("twsmon stopped")
}

// healthHandler reports connection health and limiter stats as JSON.
func healthHandler(mon *monitor.Monitor, limiter *ratelimit.Limiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := mon.HealthSnapshot()
		s := limiter.StatsSnapshot()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if !h.Healthy() {
			health.Status = "unhealthy"
		}

		health.Components["connection"] = map[string]any{
			"state":          h.State,
			"uptime_seconds": h.Uptime().Seconds(),
			"reconnects":     h.ReconnectCount,
			"errors":         h.ErrorCount,
			"last_error":     h.LastError,
			"latency_ms":     h.Latency.Milliseconds(),
		}
		health.Components["rate_limiter"] = map[string]any{
			"requests":        s.TotalRequests,
			"accepted":        s.AcceptedRequests,
			"rejected":        s.RejectedRequests,
			"acceptance_rate": s.AcceptanceRate,
			"subscriptions":   s.ActiveSubscriptions,
			"in_backoff":      s.InBackoff,
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
