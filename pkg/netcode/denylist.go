package netcode

import (
	"net"
	"sync"
	"time"
)

// CachedDenyList wraps a slower DenyChecker (typically *pkg/ncdb.DB) with an
// in-memory negative cache, so the handshake's hot path doesn't hit sqlite
// for every connection request from an address that was already cleared.
type CachedDenyList struct {
	backend DenyChecker
	ttl     time.Duration

	mu    sync.Mutex
	clear map[string]time.Time
}

// NewCachedDenyList wraps backend, caching clear (non-denied) results for
// ttl before re-checking.
func NewCachedDenyList(backend DenyChecker, ttl time.Duration) *CachedDenyList {
	return &CachedDenyList{
		backend: backend,
		ttl:     ttl,
		clear:   make(map[string]time.Time),
	}
}

// Denied implements DenyChecker.
func (c *CachedDenyList) Denied(ip net.IP) bool {
	key := ip.String()

	c.mu.Lock()
	if until, ok := c.clear[key]; ok {
		if time.Now().Before(until) {
			c.mu.Unlock()
			return false
		}
		delete(c.clear, key)
	}
	c.mu.Unlock()

	if c.backend.Denied(ip) {
		return true
	}

	c.mu.Lock()
	c.clear[key] = time.Now().Add(c.ttl)
	c.mu.Unlock()
	return false
}
