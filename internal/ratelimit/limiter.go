package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Op is the operation class an outbound call belongs to.
type Op string

const (
	OpGeneral        Op = "general"
	OpOrder          Op = "order"
	OpHistoricalData Op = "historical_data"
	OpMarketData     Op = "market_data"
)

// Config holds rate limit settings. Defaults are conservative for a
// desktop trading gateway.
type Config struct {
	MaxRequestsPerSecond  float64       // General outbound throughput
	MaxOrdersPerSecond    float64       // Order placement rate
	MaxMarketDataLines    int           // Concurrent market data subscriptions
	MaxHistoricalRequests int           // Historical data requests per window
	HistoricalWindow      time.Duration // Window for the historical quota
	BurstSize             int           // General bucket capacity
	InitialBackoff        time.Duration // First backoff after a gateway rate violation
	MaxBackoff            time.Duration // Backoff ceiling
	BackoffMultiplier     float64       // Exponential backoff multiplier
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRequestsPerSecond:  50,
		MaxOrdersPerSecond:    5,
		MaxMarketDataLines:    100,
		MaxHistoricalRequests: 60,
		HistoricalWindow:      10 * time.Minute,
		BurstSize:             10,
		InitialBackoff:        100 * time.Millisecond,
		MaxBackoff:            30 * time.Second,
		BackoffMultiplier:     2.0,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.MaxRequestsPerSecond <= 0 {
		c.MaxRequestsPerSecond = def.MaxRequestsPerSecond
	}
	if c.MaxOrdersPerSecond <= 0 {
		c.MaxOrdersPerSecond = def.MaxOrdersPerSecond
	}
	if c.MaxMarketDataLines <= 0 {
		c.MaxMarketDataLines = def.MaxMarketDataLines
	}
	if c.MaxHistoricalRequests <= 0 {
		c.MaxHistoricalRequests = def.MaxHistoricalRequests
	}
	if c.HistoricalWindow <= 0 {
		c.HistoricalWindow = def.HistoricalWindow
	}
	if c.BurstSize <= 0 {
		c.BurstSize = def.BurstSize
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.BackoffMultiplier <= 1 {
		c.BackoffMultiplier = def.BackoffMultiplier
	}
}

// LimitError is the structured rejection returned when a hard ceiling or
// an active backoff window blocks a call. RetryAfter is zero where no
// automatic retry is sensible (e.g. the subscription ceiling).
type LimitError struct {
	Op         Op
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Op, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Op)
}

// Stats is a read-only statistics snapshot.
type Stats struct {
	TotalRequests       int64
	AcceptedRequests    int64
	RejectedRequests    int64
	DelayedRequests     int64
	TotalDelay          time.Duration
	AvgDelay            time.Duration
	AcceptanceRate      float64
	ActiveSubscriptions int
	InBackoff           bool
	Since               time.Time
}

// Limiter gates every outbound gateway call by operation class. All
// internal structures are exclusively owned; callers interact only
// through Acquire and the subscription operations.
type Limiter struct {
	cfg    Config
	logger *slog.Logger

	general    *TokenBucket
	order      *TokenBucket
	historical *SlidingWindow

	subsMu sync.Mutex
	subs   map[string]struct{}

	backoffMu         sync.Mutex
	backoffUntil      time.Time
	consecutiveErrors int

	statsMu    sync.Mutex
	total      int64
	accepted   int64
	rejected   int64
	delayed    int64
	totalDelay time.Duration
	since      time.Time
}

// New creates a Limiter from cfg.
func New(cfg Config, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	return &Limiter{
		cfg:        cfg,
		logger:     logger,
		general:    NewTokenBucket(cfg.MaxRequestsPerSecond, cfg.BurstSize),
		order:      NewTokenBucket(cfg.MaxOrdersPerSecond, int(cfg.MaxOrdersPerSecond*2)),
		historical: NewSlidingWindow(cfg.HistoricalWindow),
		subs:       make(map[string]struct{}),
		since:      time.Now(),
	}
}

// Acquire obtains permission for one outbound call of the given class,
// suspending for any computed bucket wait before returning. Hard ceilings
// (historical window, subscription count, active backoff) fail fast with
// a *LimitError carrying the suggested retry delay.
func (l *Limiter) Acquire(ctx context.Context, op Op, weight int) error {
	if weight < 1 {
		weight = 1
	}

	l.statsMu.Lock()
	l.total++
	l.statsMu.Unlock()

	if remaining := l.backoffRemaining(); remaining > 0 {
		l.reject()
		return &LimitError{Op: op, RetryAfter: remaining}
	}

	var wait time.Duration
	switch op {
	case OpOrder:
		// Orders consume both the general and the stricter order bucket;
		// the caller honors the larger of the two waits.
		generalWait := l.general.Acquire(weight)
		orderWait := l.order.Acquire(1)
		wait = max(generalWait, orderWait)

	case OpHistoricalData:
		count, ok := l.historical.TryAdd(l.cfg.MaxHistoricalRequests)
		if !ok {
			l.reject()
			l.logger.Warn("historical data quota exhausted",
				"count", count,
				"max", l.cfg.MaxHistoricalRequests,
				"window", l.cfg.HistoricalWindow,
			)
			return &LimitError{Op: OpHistoricalData, RetryAfter: time.Minute}
		}
		wait = l.general.Acquire(weight)

	case OpMarketData:
		l.subsMu.Lock()
		active := len(l.subs)
		l.subsMu.Unlock()
		if active >= l.cfg.MaxMarketDataLines {
			l.reject()
			return &LimitError{Op: OpMarketData, RetryAfter: 0}
		}
		wait = l.general.Acquire(weight)

	default:
		wait = l.general.Acquire(weight)
	}

	if wait > 0 {
		l.statsMu.Lock()
		l.delayed++
		l.totalDelay += wait
		l.statsMu.Unlock()

		l.logger.Debug("rate limit delay", "wait", wait, "op", op)

		select {
		case <-ctx.Done():
			// The bucket reservation already stands; only the caller gave
			// up. Counted as rejected so the acceptance rate stays a true
			// total = accepted + rejected partition.
			l.reject()
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	l.statsMu.Lock()
	l.accepted++
	l.statsMu.Unlock()

	l.backoffMu.Lock()
	l.consecutiveErrors = 0
	l.backoffMu.Unlock()

	return nil
}

// TryAcquire is the non-blocking variant: it succeeds only if the
// relevant buckets already hold enough tokens.
func (l *Limiter) TryAcquire(op Op) bool {
	switch op {
	case OpOrder:
		return l.general.TryAcquire(1) && l.order.TryAcquire(1)
	default:
		return l.general.TryAcquire(1)
	}
}

// AddSubscription registers an active market data line for symbol.
// Idempotent; fails with a *LimitError once the configured maximum of
// distinct symbols is reached.
func (l *Limiter) AddSubscription(symbol string) error {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()

	if _, ok := l.subs[symbol]; ok {
		return nil
	}
	if len(l.subs) >= l.cfg.MaxMarketDataLines {
		return &LimitError{Op: OpMarketData, RetryAfter: 0}
	}
	l.subs[symbol] = struct{}{}

	l.logger.Debug("added market data subscription",
		"symbol", symbol,
		"active", len(l.subs),
		"max", l.cfg.MaxMarketDataLines,
	)
	return nil
}

// RemoveSubscription drops the market data line for symbol. Idempotent.
func (l *Limiter) RemoveSubscription(symbol string) {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()

	delete(l.subs, symbol)
	l.logger.Debug("removed market data subscription",
		"symbol", symbol,
		"active", len(l.subs),
	)
}

// ClearSubscriptions drops all market data lines.
func (l *Limiter) ClearSubscriptions() {
	l.subsMu.Lock()
	count := len(l.subs)
	l.subs = make(map[string]struct{})
	l.subsMu.Unlock()

	l.logger.Info("cleared market data subscriptions", "count", count)
}

// ActiveSubscriptions returns the number of active market data lines.
func (l *Limiter) ActiveSubscriptions() int {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	return len(l.subs)
}

// HandleRateLimitError reacts to a rate violation reported by the gateway
// itself: it grows the backoff window exponentially (capped at the
// configured maximum) and makes subsequent Acquire calls fail fast until
// the window elapses.
func (l *Limiter) HandleRateLimitError(message string) {
	l.backoffMu.Lock()
	defer l.backoffMu.Unlock()

	l.consecutiveErrors++

	backoff := time.Duration(float64(l.cfg.InitialBackoff) *
		math.Pow(l.cfg.BackoffMultiplier, float64(l.consecutiveErrors)))
	if backoff > l.cfg.MaxBackoff {
		backoff = l.cfg.MaxBackoff
	}
	l.backoffUntil = time.Now().Add(backoff)

	l.logger.Warn("gateway rate limit error, backing off",
		"backoff", backoff,
		"consecutive_errors", l.consecutiveErrors,
		"message", message,
	)
}

// ResetBackoff clears the backoff state, e.g. after a verified
// successful call.
func (l *Limiter) ResetBackoff() {
	l.backoffMu.Lock()
	l.backoffUntil = time.Time{}
	l.consecutiveErrors = 0
	l.backoffMu.Unlock()
}

// InBackoff reports whether a backoff window is currently active.
func (l *Limiter) InBackoff() bool {
	return l.backoffRemaining() > 0
}

// StatsSnapshot returns current statistics.
func (l *Limiter) StatsSnapshot() Stats {
	l.statsMu.Lock()
	s := Stats{
		TotalRequests:    l.total,
		AcceptedRequests: l.accepted,
		RejectedRequests: l.rejected,
		DelayedRequests:  l.delayed,
		TotalDelay:       l.totalDelay,
		Since:            l.since,
	}
	l.statsMu.Unlock()

	if s.DelayedRequests > 0 {
		s.AvgDelay = s.TotalDelay / time.Duration(s.DelayedRequests)
	}
	if s.TotalRequests > 0 {
		s.AcceptanceRate = float64(s.AcceptedRequests) / float64(s.TotalRequests)
	}
	s.ActiveSubscriptions = l.ActiveSubscriptions()
	s.InBackoff = l.InBackoff()
	return s
}

// ResetStats zeroes the counters.
func (l *Limiter) ResetStats() {
	l.statsMu.Lock()
	l.total, l.accepted, l.rejected, l.delayed = 0, 0, 0, 0
	l.totalDelay = 0
	l.since = time.Now()
	l.statsMu.Unlock()
}

func (l *Limiter) backoffRemaining() time.Duration {
	l.backoffMu.Lock()
	defer l.backoffMu.Unlock()

	if l.backoffUntil.IsZero() {
		return 0
	}
	remaining := time.Until(l.backoffUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (l *Limiter) reject() {
	l.statsMu.Lock()
	l.rejected++
	l.statsMu.Unlock()
}
