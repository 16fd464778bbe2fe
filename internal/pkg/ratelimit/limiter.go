// Package ratelimit implements an in-memory fixed-window request counter.
//
// Counters live in process memory only and are lost on restart. Deployments
// with more than one instance need a shared store behind the same Check
// contract.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Decision is the outcome of one Check call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per key within fixed windows.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
	sweep   time.Duration

	stop chan struct{}
	done chan struct{}
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter whose background sweep runs every sweepInterval once started.
func New(sweepInterval time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		now:     time.Now,
		sweep:   sweepInterval,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Check records one request for key and reports whether it fits in the window.
func (l *Limiter) Check(key string, window time.Duration, maxRequests int) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(window)}
		l.entries[key] = e
		return Decision{Allowed: true, Remaining: maxRequests - 1, ResetAt: e.resetAt}
	}
	if e.count >= maxRequests {
		return Decision{Allowed: false, Remaining: 0, ResetAt: e.resetAt}
	}
	e.count++
	return Decision{Allowed: true, Remaining: maxRequests - e.count, ResetAt: e.resetAt}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Sweep removes entries whose window has ended and returns how many were dropped.
func (l *Limiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, e := range l.entries {
		if !now.Before(e.resetAt) {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// Start launches the background sweep. It stops when ctx is done or Stop is called.
func (l *Limiter) Start(ctx context.Context) {
	l.mu.Lock()
	if l.stop != nil {
		l.mu.Unlock()
		return
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	stop, done := l.stop, l.done
	l.mu.Unlock()

	go func() {
		defer close(done)
		t := time.NewTicker(l.sweep)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-t.C:
				if n := l.Sweep(); n > 0 {
					slog.Debug("rate limit sweep", "removed", n)
				}
			}
		}
	}()
}

// Stop ends the background sweep and waits for it to exit.
func (l *Limiter) Stop() {
	l.mu.Lock()
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	l.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}
