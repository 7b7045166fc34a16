package client

import (
	"sync"
	"time"
)

// governor applies backpressure to outbound calls. It counts consecutive
// failures; once the threshold is reached, calls are rejected locally until
// the cooldown elapses, after which exactly one probe call is let through.
// The probe's outcome decides whether the cooldown restarts. A success at
// any point resets the count to zero.
//
// This is throttling, not retry: the governor never re-issues a call.
type governor struct {
	mu          sync.Mutex
	errors      int
	lastSuccess time.Time
	retryAt     time.Time

	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

func newGovernor(threshold int, cooldown time.Duration) *governor {
	return &governor{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// allow reports whether a call may go out. When it lets a probe through
// after a cooldown it immediately arms the next window, so overlapping
// callers cannot both probe.
func (g *governor) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.errors < g.threshold {
		return true
	}
	now := g.now()
	if now.Before(g.retryAt) {
		return false
	}
	g.retryAt = now.Add(g.cooldown)
	return true
}

func (g *governor) success() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errors = 0
	g.lastSuccess = g.now()
}

func (g *governor) failure() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errors++
	if g.errors >= g.threshold {
		g.retryAt = g.now().Add(g.cooldown)
	}
}

func (g *governor) consecutiveErrors() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.errors
}
