package cache

import (
	"sync"
	"time"

	"zapstream/internal/models"
)

// ProfileCache is a TTL cache for resolved payer metadata, so repeat payers
// across sessions don't trigger another relay round-trip.
type ProfileCache struct {
	entries map[string]*profileEntry
	mu      sync.RWMutex
	ttl     time.Duration

	stop chan struct{}
}

type profileEntry struct {
	profile   models.Profile
	timestamp time.Time
}

// NewProfileCache creates a ProfileCache with the given entry TTL.
func NewProfileCache(ttl time.Duration) *ProfileCache {
	c := &ProfileCache{
		entries: make(map[string]*profileEntry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}

	go c.cleanupRoutine()

	return c
}

// Get returns the cached profile for a pubkey, if present and fresh.
func (c *ProfileCache) Get(pubkey string) (models.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[pubkey]
	if !exists || time.Since(entry.timestamp) >= c.ttl {
		return models.Profile{}, false
	}
	return entry.profile, true
}

// Set stores a resolved profile.
func (c *ProfileCache) Set(pubkey string, profile models.Profile) {
	c.mu.Lock()
	c.entries[pubkey] = &profileEntry{
		profile:   profile,
		timestamp: time.Now(),
	}
	c.mu.Unlock()
}

// Stop terminates the cleanup goroutine.
func (c *ProfileCache) Stop() {
	close(c.stop)
}

// cleanupRoutine periodically removes expired cache entries
func (c *ProfileCache) cleanupRoutine() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *ProfileCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for pubkey, entry := range c.entries {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.entries, pubkey)
		}
	}
}
