package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// MemoryLimiter is the Redis-free rate admission gate: one token
// bucket per client key, with idle entries evicted on a timer. Used
// when no Redis address is configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry

	limit rate.Limit
	burst int

	idleTTL      time.Duration
	cleanupEvery time.Duration

	keyFunc func(*gin.Context) string
	skip    func(*gin.Context) bool
	stop    chan struct{}
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiterOption customizes a MemoryLimiter
type MemoryLimiterOption func(*MemoryLimiter)

// WithIdleTTL sets how long an unused client entry survives
func WithIdleTTL(d time.Duration) MemoryLimiterOption {
	return func(m *MemoryLimiter) { m.idleTTL = d }
}

// WithCleanupEvery sets the eviction sweep interval
func WithCleanupEvery(d time.Duration) MemoryLimiterOption {
	return func(m *MemoryLimiter) { m.cleanupEvery = d }
}

// WithKeyFunc overrides the client key derivation (default: client IP)
func WithKeyFunc(f func(*gin.Context) string) MemoryLimiterOption {
	return func(m *MemoryLimiter) { m.keyFunc = f }
}

// WithSkipFunc exempts matching requests from admission
func WithSkipFunc(f func(*gin.Context) bool) MemoryLimiterOption {
	return func(m *MemoryLimiter) { m.skip = f }
}

// NewMemoryLimiter creates an in-process limiter admitting rps requests
// per second with the given burst per client key.
func NewMemoryLimiter(rps float64, burst int, opts ...MemoryLimiterOption) *MemoryLimiter {
	m := &MemoryLimiter{
		entries:      make(map[string]*limiterEntry),
		limit:        rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		keyFunc:      func(c *gin.Context) string { return c.ClientIP() },
		skip:         func(c *gin.Context) bool { return false },
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.cleanupLoop()
	return m
}

// Middleware returns the gin middleware applying this ceiling
func (m *MemoryLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.skip(c) {
			c.Next()
			return
		}
		if !m.get(m.keyFunc(c)).Allow() {
			defaultErrorHandler(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Close stops the eviction loop
func (m *MemoryLimiter) Close() {
	close(m.stop)
}

func (m *MemoryLimiter) get(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(m.limit, m.burst)}
		m.entries[key] = e
	}
	e.lastSeen = time.Now()
	return e.lim
}

func (m *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key, e := range m.entries {
				if now.Sub(e.lastSeen) > m.idleTTL {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
