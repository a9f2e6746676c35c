package navigation

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/profpay/profpay/core"
)

// DefaultWindow is the minimum delay between two accepted triggers of an action.
const DefaultWindow = 300 * time.Millisecond

type (
	// Throttle accepts the first trigger of a key and drops the following ones until the window elapsed.
	// Dropped triggers are not queued.
	Throttle struct {
		window time.Duration
		now    func() time.Time
		logger core.Logger

		mu       sync.Mutex
		limiters map[string]*throttleEntry
	}

	throttleEntry struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	ThrottleOption func(*Throttle)
)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ThrottleOption {
	return func(t *Throttle) { t.now = now }
}

// WithLogger logs suppressed triggers.
func WithLogger(logger core.Logger) ThrottleOption {
	return func(t *Throttle) { t.logger = logger }
}

func NewThrottle(window time.Duration, opts ...ThrottleOption) *Throttle {
	if window <= 0 {
		window = DefaultWindow
	}
	t := &Throttle{
		window:   window,
		now:      time.Now,
		limiters: make(map[string]*throttleEntry),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Throttle) Window() time.Duration { return t.window }

// Allow reports whether the trigger identified by key may run now.
func (t *Throttle) Allow(key string) bool {
	now := t.now()

	t.mu.Lock()
	t.evict(now)
	entry, ok := t.limiters[key]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(rate.Every(t.window), 1)}
		t.limiters[key] = entry
	}
	entry.lastSeen = now
	allowed := entry.limiter.AllowN(now, 1)
	t.mu.Unlock()

	if !allowed && t.logger != nil {
		t.logger.Debug("throttled action suppressed", map[string]interface{}{"key": key})
	}
	return allowed
}

// Do runs fn when the trigger is allowed and reports whether it ran.
func (t *Throttle) Do(key string, fn func()) bool {
	if !t.Allow(key) {
		return false
	}
	fn()
	return true
}

// evict drops limiters idle for more than a window: they would accept the next trigger anyway.
func (t *Throttle) evict(now time.Time) {
	if len(t.limiters) < 1024 {
		return
	}
	for key, entry := range t.limiters {
		if now.Sub(entry.lastSeen) > t.window {
			delete(t.limiters, key)
		}
	}
}
