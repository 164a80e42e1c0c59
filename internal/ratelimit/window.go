package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow counts events within a trailing fixed duration, evicting
// stale events on each access.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	times  []time.Time
}

// NewSlidingWindow creates a counter over the given window duration.
func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

// Add records an event and returns the resulting in-window count.
func (w *SlidingWindow) Add() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict(time.Now())
	w.times = append(w.times, time.Now())
	return len(w.times)
}

// Count returns the in-window count without recording an event.
func (w *SlidingWindow) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict(time.Now())
	return len(w.times)
}

// TryAdd records an event only if the resulting in-window count stays
// within limit. The check and the append happen under one lock so
// concurrent callers cannot both slip past the ceiling. A rejected event
// does not occupy window capacity.
func (w *SlidingWindow) TryAdd(limit int) (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict(time.Now())
	if len(w.times)+1 > limit {
		return len(w.times), false
	}
	w.times = append(w.times, time.Now())
	return len(w.times), true
}

// evict drops every timestamp older than now-window.
// Callers must hold w.mu.
func (w *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.times) && w.times[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		w.times = append(w.times[:0], w.times[i:]...)
	}
}
