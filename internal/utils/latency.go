package utils

import (
	"slices"
	"sync"
	"time"
)

// LatencyTracker keeps the most recent duration samples in a ring and computes percentiles.
type LatencyTracker struct {
	mu      sync.RWMutex
	ring    []time.Duration
	next    int
	filled  bool
	maxSize int
}

// NewLatencyTracker creates a tracker storing up to maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{ring: make([]time.Duration, maxSize), maxSize: maxSize}
}

// Observe records a new duration, overwriting the oldest sample once full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ring[l.next] = d
	l.next = (l.next + 1) % l.maxSize
	if l.next == 0 {
		l.filled = true
	}
}

// Percentile returns the percentile (0-100) duration. Returns zero if no samples.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	sorted := slices.Clone(l.samples())
	l.mu.RUnlock()

	if len(sorted) == 0 {
		return 0
	}
	slices.Sort(sorted)
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}

	index := int((p / 100.0) * float64(len(sorted)-1))
	return sorted[min(max(index, 0), len(sorted)-1)]
}

// Count returns number of samples recorded.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.samples())
}

func (l *LatencyTracker) samples() []time.Duration {
	if l.filled {
		return l.ring
	}
	return l.ring[:l.next]
}
