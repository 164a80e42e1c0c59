// gwprobe is a diagnostic tool that attaches a monitored session to the
// desktop gateway, runs a series of ping round trips through the
// connection-retry guard, and reports latency statistics.
// Usage: go run ./cmd/gwprobe --url ws://127.0.0.1:4002/ws --count 10
//
// Optional environment variable:
//
//	TWSGATE_API_KEY - bearer token sent on the Authorization header
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rcaldwell/twsgate/internal/gateway"
	"github.com/rcaldwell/twsgate/internal/monitor"
)

func main() {
	url := flag.String("url", "ws://127.0.0.1:4002/ws", "gateway WebSocket URL")
	count := flag.Int("count", 10, "number of ping round trips")
	interval := flag.Duration("interval", time.Second, "delay between pings")
	verbose := flag.Bool("verbose", false, "print each round trip")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	gwCfg := gateway.DefaultConfig()
	gwCfg.URL = *url
	gwCfg.APIKey = os.Getenv("TWSGATE_API_KEY")

	monCfg := monitor.DefaultConfig()
	monCfg.ReconnectBaseDelay = time.Second

	mon := monitor.New(gateway.NewFactory(gwCfg, logger), monCfg, logger)

	fmt.Printf("dialing %s...\n", *url)
	start := time.Now()
	if err := mon.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "connect failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		mon.Stop(stopCtx)
	}()
	fmt.Printf("connected in %v\n\n", time.Since(start).Round(time.Millisecond))

	policy := monitor.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second}

	var (
		sum      time.Duration
		min, max time.Duration
		failures int
	)

	for i := 0; i < *count; i++ {
		if ctx.Err() != nil {
			break
		}

		pingStart := time.Now()
		err := monitor.WithRetry(ctx, mon, policy, func(ctx context.Context) error {
			conn := mon.Conn()
			if conn == nil {
				return monitor.ErrConnectionLost
			}
			return conn.(*gateway.Session).Ping(ctx)
		})
		rtt := time.Since(pingStart)

		if err != nil {
			failures++
			fmt.Printf("ping %d/%d: FAILED (%v)\n", i+1, *count, err)
		} else {
			sum += rtt
			if min == 0 || rtt < min {
				min = rtt
			}
			if rtt > max {
				max = rtt
			}
			if *verbose {
				fmt.Printf("ping %d/%d: %v\n", i+1, *count, rtt)
			}
		}

		if i+1 < *count {
			select {
			case <-ctx.Done():
			case <-time.After(*interval):
			}
		}
	}

	succeeded := *count - failures
	fmt.Printf("\n%d pings, %d ok, %d failed\n", *count, succeeded, failures)
	if succeeded > 0 {
		fmt.Printf("rtt min/avg/max = %v/%v/%v\n",
			min.Round(time.Microsecond),
			(sum / time.Duration(succeeded)).Round(time.Microsecond),
			max.Round(time.Microsecond),
		)
	}

	h := mon.HealthSnapshot()
	fmt.Printf("state=%s healthy=%v reconnects=%d sent=%d received=%d\n",
		h.State, h.Healthy(), h.ReconnectCount, h.MessagesSent, h.MessagesReceived)

	if failures > 0 {
		os.Exit(1)
	}
}
