package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter counts hits per key inside a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) Decision
}

type Window struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	clients map[string]*clientBucket
	now     func() time.Time
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

var _ Limiter = (*Window)(nil)

// NewWindow keeps counters in process memory. A non-positive limit allows everything.
func NewWindow(limit int, window time.Duration) *Window {
	if window <= 0 {
		window = time.Minute
	}

	return &Window{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

func (w *Window) Allow(_ context.Context, key string) Decision {
	if w.limit <= 0 {
		return Decision{Allowed: true}
	}

	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.clients[key]

	if !ok || now.After(b.windowEnd) {
		w.clients[key] = &clientBucket{
			count:     1,
			windowEnd: now.Add(w.window),
		}
		w.sweep(now)
		return Decision{Allowed: true}
	}

	if b.count >= w.limit {
		retry := b.windowEnd.Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Decision{Allowed: false, RetryAfter: retry}
	}

	b.count++
	return Decision{Allowed: true}
}

// sweep drops expired buckets once the map grows. Caller holds mu.
func (w *Window) sweep(now time.Time) {
	if len(w.clients) < 1024 {
		return
	}
	for k, b := range w.clients {
		if now.After(b.windowEnd) {
			delete(w.clients, k)
		}
	}
}
