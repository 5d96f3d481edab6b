package relay

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// Pool wraps a go-nostr SimplePool for the listener and profile resolver,
// tracking which relays it touched so Stop can close them cleanly.
type Pool struct {
	pool *nostr.SimplePool

	usedMu sync.Mutex
	used   map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a relay pool. Relay notices are swallowed; they are relay
// operator chatter, not errors.
func NewPool(ctx context.Context) *Pool {
	poolCtx, cancel := context.WithCancel(ctx)

	// go-nostr v0.35.0 (newest release compatible with Go 1.21) has no
	// WithRelayOptions pool option, so notices cannot be swallowed here.
	return &Pool{
		pool:   nostr.NewSimplePool(poolCtx),
		used:   make(map[string]time.Time),
		ctx:    poolCtx,
		cancel: cancel,
	}
}

// Get returns the underlying SimplePool.
func (p *Pool) Get() *nostr.SimplePool {
	return p.pool
}

// Track records that a relay was just used.
func (p *Pool) Track(relayURL string) {
	p.usedMu.Lock()
	p.used[relayURL] = time.Now()
	p.usedMu.Unlock()
}

// Stop cancels the pool context and closes every relay it connected to.
func (p *Pool) Stop() {
	p.cancel()

	p.usedMu.Lock()
	defer p.usedMu.Unlock()

	for url := range p.used {
		relay, ok := p.pool.Relays.Load(url)
		if !ok || relay == nil {
			continue
		}
		if relay.IsConnected() {
			if err := relay.Close(); err != nil {
				log.Printf("[RELAY] Error closing relay %s: %v", url, err)
			}
		}
		delete(p.used, url)
	}
}
