package relay

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/time/rate"

	"zapstream/internal/models"
)

const (
	backlogTimeout  = 2 * time.Minute
	liveOverlap     = 60 * time.Second // resubscribe overlap; dedup absorbs repeats
	resubscribeRate = 5 * time.Second
)

// Sink is where decoded stream signals go. *engine.Engine satisfies it.
type Sink interface {
	SubmitReceipt(ev *nostr.Event)
	MarkBacklogComplete()
	SubmitProfile(pubkey string, profile models.Profile, generation uint64)
}

// Listener subscribes to zap receipts for one target across the configured
// relays: a stored-events pass first, the end-of-backlog signal once every
// relay reports EOSE, then a live subscription that reconnects on drop.
type Listener struct {
	pool   *Pool
	health *HealthTracker
	sink   Sink

	relays []string
	target string

	// Paces resubscribe attempts after the live stream drops.
	reconnectLimiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
}

// NewListener creates a Listener for the given target id or a-coordinate.
func NewListener(pool *Pool, health *HealthTracker, sink Sink, relays []string, target string) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		pool:             pool,
		health:           health,
		sink:             sink,
		relays:           relays,
		target:           target,
		reconnectLimiter: rate.NewLimiter(rate.Every(resubscribeRate), 1),
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Start begins streaming in the background.
func (l *Listener) Start() {
	go l.run()
}

// Stop ends the subscription.
func (l *Listener) Stop() {
	l.cancel()
}

// receiptFilter matches kind-9735 receipts referencing the target. An
// a-coordinate target (kind:pubkey:d) filters on #a, a plain id on #e.
func (l *Listener) receiptFilter(since *nostr.Timestamp) nostr.Filter {
	tagKey := "e"
	if strings.Count(l.target, ":") == 2 {
		tagKey = "a"
	}
	return nostr.Filter{
		Kinds: []int{nostr.KindZap},
		Tags:  nostr.TagMap{tagKey: []string{l.target}},
		Since: since,
	}
}

func (l *Listener) run() {
	lastSeen := l.drainBacklog()
	l.sink.MarkBacklogComplete()
	l.streamLive(lastSeen)
}

// drainBacklog pulls stored receipts until every healthy relay signals EOSE,
// and returns the newest receipt timestamp seen.
func (l *Listener) drainBacklog() nostr.Timestamp {
	relays := l.healthyRelays()

	ctx, cancel := context.WithTimeout(l.ctx, backlogTimeout)
	defer cancel()

	var lastSeen nostr.Timestamp
	count := 0
	for ie := range l.pool.Get().SubManyEose(ctx, relays, nostr.Filters{l.receiptFilter(nil)}) {
		if ie.Event == nil {
			continue
		}
		if ie.Relay != nil {
			l.pool.Track(ie.Relay.URL)
		}
		if ie.Event.CreatedAt > lastSeen {
			lastSeen = ie.Event.CreatedAt
		}
		l.sink.SubmitReceipt(ie.Event)
		count++
	}
	log.Printf("[RELAY] Backlog drained: %d receipts from %d relays", count, len(relays))
	return lastSeen
}

// streamLive keeps a live subscription open, resubscribing with overlap when
// the stream drops. Duplicate deliveries from the overlap are the engine's
// dedup set's problem, by contract.
func (l *Listener) streamLive(lastSeen nostr.Timestamp) {
	for {
		if err := l.reconnectLimiter.Wait(l.ctx); err != nil {
			return
		}

		since := nostr.Timestamp(time.Now().Add(-liveOverlap).Unix())
		if lastSeen > 0 && lastSeen < since {
			since = lastSeen
		}

		relays := l.healthyRelays()
		log.Printf("[RELAY] Live subscription on %d relays since %d", len(relays), since)

		ch := l.pool.Get().SubMany(l.ctx, relays, nostr.Filters{l.receiptFilter(&since)})
		for ie := range ch {
			if ie.Event == nil {
				continue
			}
			if ie.Relay != nil {
				l.pool.Track(ie.Relay.URL)
				l.health.RecordSuccess(ie.Relay.URL)
			}
			if ie.Event.CreatedAt > lastSeen {
				lastSeen = ie.Event.CreatedAt
			}
			l.sink.SubmitReceipt(ie.Event)
		}

		select {
		case <-l.ctx.Done():
			return
		default:
		}

		// Channel closed without cancellation: every relay dropped us.
		for _, r := range relays {
			l.health.RecordFailure(r)
		}
		log.Println("[RELAY] Live subscription closed, reconnecting...")
	}
}

// healthyRelays filters banned relays, falling back to the full list when
// everything is banned (a stalled retry beats silence).
func (l *Listener) healthyRelays() []string {
	healthy := l.health.FilterBanned(l.relays)
	if len(healthy) == 0 {
		return l.relays
	}
	return healthy
}
