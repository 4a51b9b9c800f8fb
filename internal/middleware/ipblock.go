package middleware

import (
	"context"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// BlocklistSource provides the current set of blocked addresses
type BlocklistSource interface {
	ListBlockedAddresses(ctx context.Context) ([]string, error)
}

// IPBlocker rejects requests from blocked addresses before they reach
// any handler. The blocklist is loaded into an immutable snapshot that
// a background loop replaces on an interval; request paths read the
// snapshot through an atomic pointer and never lock. A newly blocked
// (or unblocked) address can therefore lag by up to one refresh
// interval.
type IPBlocker struct {
	source   BlocklistSource
	interval time.Duration
	snapshot atomic.Pointer[map[string]struct{}]
	stop     chan struct{}
}

// NewIPBlocker creates a blocker and performs the initial load. A
// failed initial load starts with an empty snapshot; the refresh loop
// retries on its own schedule.
func NewIPBlocker(source BlocklistSource, interval time.Duration) *IPBlocker {
	b := &IPBlocker{
		source:   source,
		interval: interval,
		stop:     make(chan struct{}),
	}
	empty := make(map[string]struct{})
	b.snapshot.Store(&empty)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Refresh(ctx); err != nil {
		log.Printf("initial blocklist load failed: %v", err)
	}

	go b.refreshLoop()
	return b
}

// Middleware returns the gin middleware enforcing the blocklist
func (b *IPBlocker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if b.Blocked(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    http.StatusForbidden,
				"message": "Your address has been blocked.",
				"error":   "address_blocked",
			})
			return
		}
		c.Next()
	}
}

// Blocked reports whether the address is in the current snapshot
func (b *IPBlocker) Blocked(addr string) bool {
	set := b.snapshot.Load()
	_, blocked := (*set)[addr]
	return blocked
}

// Refresh replaces the snapshot with the source's current contents.
// The refresh loop is the only writer besides explicit calls.
func (b *IPBlocker) Refresh(ctx context.Context) error {
	addrs, err := b.source.ListBlockedAddresses(ctx)
	if err != nil {
		return err
	}
	next := make(map[string]struct{}, len(addrs))
	for _, addr := range addrs {
		next[addr] = struct{}{}
	}
	b.snapshot.Store(&next)
	return nil
}

// Close stops the refresh loop
func (b *IPBlocker) Close() {
	close(b.stop)
}

func (b *IPBlocker) refreshLoop() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := b.Refresh(ctx); err != nil {
				// Keep serving the stale snapshot
				log.Printf("blocklist refresh failed: %v", err)
			}
			cancel()
		}
	}
}
